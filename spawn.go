package abatch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	readyPollInterval = 200 * time.Millisecond
	stopWait          = 5 * time.Second
)

// ServerProcess is a locally spawned agent server owned by the batch run.
type ServerProcess struct {
	cmd *exec.Cmd
	log zerolog.Logger
}

// SpawnServer launches the agent server as a local subprocess and waits until
// the server's TCP address accepts connections. The command is split on
// whitespace; shell quoting is not supported.
func SpawnServer(ctx context.Context, command, serverURL string, readyTimeout time.Duration, output io.Writer, log zerolog.Logger) (*ServerProcess, error) {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil, fmt.Errorf("spawn command is empty")
	}

	addr, err := serverAddr(serverURL)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if output != nil {
		cmd.Stdout = output
		cmd.Stderr = output
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start server: %w", err)
	}

	log.Debug().Str("addr", addr).Int("pid", cmd.Process.Pid).Msg("spawned server")

	if err := waitReady(ctx, addr, readyTimeout); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()

		return nil, err
	}

	return &ServerProcess{cmd: cmd, log: log}, nil
}

// Stop terminates the spawned server, escalating to SIGKILL if it does not
// exit within stopWait.
func (p *ServerProcess) Stop() error {
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return nil
	}

	// Signal(os.Interrupt) is not implemented on Windows; the error falls
	// through to an immediate Kill there.
	if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
		_ = p.cmd.Process.Kill()
	}

	done := make(chan error, 1)

	go func() { done <- p.cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			p.log.Debug().Err(err).Msg("server exited with error")
		}

		return nil
	case <-time.After(stopWait):
		_ = p.cmd.Process.Kill()
		<-done

		return nil
	}
}

func waitReady(ctx context.Context, addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		conn, err := net.DialTimeout("tcp", addr, readyPollInterval)
		if err == nil {
			return conn.Close()
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s not accepting connections after %s", ErrServerNotReady, addr, timeout)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrServerNotReady, ctx.Err())
		case <-time.After(readyPollInterval):
		}
	}
}

// serverAddr extracts the host:port a spawned server should be probed on.
func serverAddr(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server URL: %w", err)
	}

	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("server URL %q has no host", serverURL)
	}

	port := u.Port()
	if port == "" {
		if u.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}

	return net.JoinHostPort(host, port), nil
}
