package abatch

import "errors"

var (
	// ErrNoPrompts indicates the prompt source produced no usable entries.
	ErrNoPrompts = errors.New("no prompts to run")
	// ErrPromptSourceConflict indicates more than one prompt origin was selected.
	ErrPromptSourceConflict = errors.New("multiple prompt sources selected")
	// ErrMissingServer indicates no server base URL was configured.
	ErrMissingServer = errors.New("server base URL missing")
	// ErrSessionCreate indicates the server did not hand back a usable session.
	ErrSessionCreate = errors.New("session creation failed")
	// ErrEmptyResponse indicates the server answered a prompt with no body.
	ErrEmptyResponse = errors.New("empty prompt response")
	// ErrResultSchemaInvalid indicates the result text does not satisfy the schema.
	ErrResultSchemaInvalid = errors.New("result does not match schema")
	// ErrServerNotReady indicates a spawned server never accepted connections.
	ErrServerNotReady = errors.New("spawned server not ready")
)
