// Package abatch drives an agentic-coding server through an ordered batch of
// prompts, one ephemeral session per prompt, and folds the per-prompt outcomes
// into a summary and an exit code.
package abatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// APIError is a structured error payload returned by the server while the
// transport itself stayed intact.
type APIError struct {
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *APIError) String() string {
	data, err := json.Marshal(e)
	if err != nil {
		return e.Message
	}

	return string(data)
}

// PromptResponse is the structured result of one prompt submission.
// Either Body or Error is populated; Error means the remote run itself
// reported a failure.
type PromptResponse struct {
	Status int
	Body   json.RawMessage
	Error  *APIError
}

// SessionClient is the capability the orchestrator needs from the agent
// server: create a session, submit one prompt to it, and delete it.
type SessionClient interface {
	// CreateSession opens a new server-side session. Any failure is returned
	// as an error; a session that cannot be created is unusable.
	CreateSession(ctx context.Context, title string) (string, error)

	// SubmitPrompt sends text to the session and waits for completion.
	// A non-nil error is a transport fault; a server-reported run failure is
	// carried inside the response.
	SubmitPrompt(ctx context.Context, sessionID, text string) (*PromptResponse, error)

	// DeleteSession destroys the session. Best-effort.
	DeleteSession(ctx context.Context, sessionID string) error
}

// HTTPClient implements SessionClient against an OpenCode-compatible REST
// surface. The base URL and credential are read-only after construction.
type HTTPClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewHTTPClient builds a client for the server at baseURL. apiKey, when
// non-empty, is sent as a bearer credential on every request.
func NewHTTPClient(baseURL, apiKey string) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingServer
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("server URL %q must be http or https with a host", baseURL)
	}

	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{},
	}, nil
}

type createSessionRequest struct {
	Title string `json:"title,omitempty"`
}

type createSessionResponse struct {
	ID string `json:"id"`
}

type promptRequest struct {
	Parts []promptPart `json:"parts"`
}

type promptPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CreateSession implements SessionClient.
func (c *HTTPClient) CreateSession(ctx context.Context, title string) (string, error) {
	body, status, err := c.do(ctx, http.MethodPost, "/session", createSessionRequest{Title: title})
	if err != nil {
		return "", err
	}

	if status < 200 || status > 299 {
		return "", fmt.Errorf("%w: %s", ErrSessionCreate, errorPayloadText(status, body))
	}

	var resp createSessionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode session response: %w", err)
	}

	return resp.ID, nil
}

// SubmitPrompt implements SessionClient.
func (c *HTTPClient) SubmitPrompt(ctx context.Context, sessionID, text string) (*PromptResponse, error) {
	req := promptRequest{Parts: []promptPart{{Type: "text", Text: text}}}

	body, status, err := c.do(ctx, http.MethodPost, "/session/"+url.PathEscape(sessionID)+"/message", req)
	if err != nil {
		return nil, err
	}

	if status < 200 || status > 299 {
		apiErr, ok := decodeAPIError(body, true)
		if !ok {
			return nil, fmt.Errorf("server returned status %d: %s", status, truncateBody(body))
		}

		return &PromptResponse{Status: status, Error: apiErr}, nil
	}

	// Some servers report run failures with a 2xx status and an error object
	// in the body.
	if apiErr, ok := decodeAPIError(body, false); ok {
		return &PromptResponse{Status: status, Error: apiErr}, nil
	}

	return &PromptResponse{Status: status, Body: body}, nil
}

// DeleteSession implements SessionClient.
func (c *HTTPClient) DeleteSession(ctx context.Context, sessionID string) error {
	body, status, err := c.do(ctx, http.MethodDelete, "/session/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return err
	}

	if status < 200 || status > 299 {
		return fmt.Errorf("delete session %s: %s", sessionID, errorPayloadText(status, body))
	}

	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	var reqBody io.Reader

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request: %w", err)
		}

		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, path, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}

	return body, resp.StatusCode, nil
}

// decodeAPIError probes a response body for a structured error payload,
// either top-level or under an "error" key. Payloads under "error" qualify
// with either field set. A top-level payload on an error status qualifies
// with either field too; on a success status it needs both, since a success
// body may carry a plain "message" text field.
func decodeAPIError(body []byte, errorStatus bool) (*APIError, bool) {
	var envelope struct {
		Error *APIError `json:"error"`
	}

	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		if envelope.Error.Code != "" || envelope.Error.Message != "" {
			return envelope.Error, true
		}
	}

	var direct APIError
	if err := json.Unmarshal(body, &direct); err != nil {
		return nil, false
	}

	if direct.Code != "" && direct.Message != "" {
		return &direct, true
	}

	if errorStatus && (direct.Code != "" || direct.Message != "") {
		return &direct, true
	}

	return nil, false
}

func errorPayloadText(status int, body []byte) string {
	if apiErr, ok := decodeAPIError(body, true); ok {
		return apiErr.String()
	}

	return fmt.Sprintf("status %d: %s", status, truncateBody(body))
}

const maxBodyExcerpt = 512

func truncateBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxBodyExcerpt {
		s = s[:maxBodyExcerpt] + "..."
	}

	return s
}
