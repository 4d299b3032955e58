package abatch

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestServerAddr(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"http://127.0.0.1:4096", "127.0.0.1:4096"},
		{"http://agents.internal", "agents.internal:80"},
		{"https://agents.internal", "agents.internal:443"},
	}

	for _, tt := range tests {
		got, err := serverAddr(tt.url)
		if err != nil {
			t.Fatalf("serverAddr(%q): %v", tt.url, err)
		}
		if got != tt.want {
			t.Fatalf("serverAddr(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}

	if _, err := serverAddr("http://"); err == nil {
		t.Fatal("expected error for URL without host")
	}
}

func TestSpawnServerEmptyCommand(t *testing.T) {
	_, err := SpawnServer(context.Background(), "  ", "http://127.0.0.1:4096", time.Second, nil, zerolog.Nop())
	if err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestSpawnServerMissingBinary(t *testing.T) {
	_, err := SpawnServer(context.Background(), "definitely-not-a-binary-abatch", "http://127.0.0.1:4096", time.Second, nil, zerolog.Nop())
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestSpawnServerReadyTimeout(t *testing.T) {
	// Nothing listens on the probed port, so readiness must time out and the
	// child must be reaped.
	_, err := SpawnServer(context.Background(), "sleep 30", "http://127.0.0.1:1", 500*time.Millisecond, nil, zerolog.Nop())
	if !errors.Is(err, ErrServerNotReady) {
		t.Fatalf("expected ErrServerNotReady, got %v", err)
	}
}

func TestSpawnServerReadyAndStop(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	proc, err := SpawnServer(context.Background(), "sleep 30", "http://"+ln.Addr().String(), 2*time.Second, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	if err := proc.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestServerProcessStopNil(t *testing.T) {
	var proc *ServerProcess
	if err := proc.Stop(); err != nil {
		t.Fatalf("nil stop: %v", err)
	}
}
