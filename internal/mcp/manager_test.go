package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rulehound/rulehound/internal/tools"
)

func TestConnectFailureIsDiscoveryError(t *testing.T) {
	m := NewManager([]ServerConfig{
		{Name: "broken", Transport: "carrier-pigeon"},
	}, "rulehound", "test")

	err := m.Connect(context.Background(), tools.NewRegistry())
	if err == nil {
		t.Fatal("expected connect to fail")
	}
	var disc *DiscoveryError
	if !errors.As(err, &disc) {
		t.Fatalf("expected *DiscoveryError, got %T: %v", err, err)
	}
	if disc.Server != "broken" {
		t.Errorf("error must name the failing server, got %q", disc.Server)
	}
}

func TestConnectRejectsIncompleteServerConfig(t *testing.T) {
	cases := []ServerConfig{
		{Name: "no-cmd", Transport: TransportStdio},
		{Name: "no-url", Transport: TransportHTTP},
	}
	for _, sc := range cases {
		m := NewManager([]ServerConfig{sc}, "rulehound", "test")
		err := m.Connect(context.Background(), tools.NewRegistry())
		var disc *DiscoveryError
		if !errors.As(err, &disc) {
			t.Errorf("%s: expected *DiscoveryError, got %v", sc.Name, err)
		}
	}
}

func TestConnectUnreachableStdioServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m := NewManager([]ServerConfig{
		{Name: "ghost", Transport: TransportStdio, Command: "/nonexistent/rulehound-test-binary"},
	}, "rulehound", "test")
	defer m.Shutdown()

	err := m.Connect(ctx, tools.NewRegistry())
	var disc *DiscoveryError
	if !errors.As(err, &disc) {
		t.Fatalf("expected *DiscoveryError, got %v", err)
	}
	if disc.Server != "ghost" {
		t.Errorf("expected server ghost, got %q", disc.Server)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	m := NewManager(nil, "rulehound", "test")
	m.Shutdown()
	m.Shutdown() // second call must be a no-op, not a panic
}
