// Package mcp manages the lifecycle of external MCP tool servers: connect,
// discover their tools into the catalog, and shut everything down on every
// exit path.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/rulehound/rulehound/internal/tools"
)

// Transport selects how a server is reached.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// ServerConfig describes one external tool server.
type ServerConfig struct {
	Name       string   `json:"name"`
	Transport  string   `json:"transport"`            // "stdio" (default) or "http"
	Command    string   `json:"command,omitempty"`    // stdio: executable to spawn
	Args       []string `json:"args,omitempty"`
	Env        []string `json:"env,omitempty"`        // stdio: extra KEY=VALUE pairs
	URL        string   `json:"url,omitempty"`        // http: endpoint
	ToolPrefix string   `json:"toolPrefix,omitempty"` // optional prefix for registered tool names
	TimeoutSec int      `json:"timeoutSec,omitempty"` // per-call timeout, default 60
}

type serverConn struct {
	name      string
	client    *mcpclient.Client
	connected atomic.Bool
}

// Manager owns the connections to all configured servers. Connect and
// Shutdown bracket an analysis run; Shutdown is safe to call more than once
// and after a partial Connect.
type Manager struct {
	servers []ServerConfig
	conns   []*serverConn
	once    sync.Once

	clientName    string
	clientVersion string
}

// NewManager creates a manager for the given server configurations.
func NewManager(servers []ServerConfig, clientName, clientVersion string) *Manager {
	return &Manager{
		servers:       servers,
		clientName:    clientName,
		clientVersion: clientVersion,
	}
}

// Connect starts every configured server, runs the MCP initialize handshake,
// lists its tools, and registers them into reg. Any failure — unreachable
// server, handshake error, malformed catalog — aborts with a *DiscoveryError
// naming the server; already-opened connections are closed before returning.
func (m *Manager) Connect(ctx context.Context, reg *tools.Registry) error {
	for _, sc := range m.servers {
		if err := m.connectServer(ctx, sc, reg); err != nil {
			m.Shutdown()
			return &DiscoveryError{Server: sc.Name, Err: err}
		}
	}
	slog.Info("tool discovery complete", "servers", len(m.conns), "tools", reg.Count())
	return nil
}

func (m *Manager) connectServer(ctx context.Context, sc ServerConfig, reg *tools.Registry) error {
	cli, err := m.dial(ctx, sc)
	if err != nil {
		return err
	}

	conn := &serverConn{name: sc.Name, client: cli}
	m.conns = append(m.conns, conn)

	initReq := mcpgo.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpgo.Implementation{Name: m.clientName, Version: m.clientVersion}
	if _, err := cli.Initialize(ctx, initReq); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	listed, err := cli.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}

	timeout := time.Duration(sc.TimeoutSec) * time.Second
	registered := 0
	for _, mt := range listed.Tools {
		if mt.Name == "" {
			return fmt.Errorf("malformed tool definition: empty name")
		}
		bt := NewBridgeTool(sc.Name, mt, cli, sc.ToolPrefix, timeout, &conn.connected)
		if reg.Register(bt) {
			registered++
		}
	}
	conn.connected.Store(true)

	slog.Info("server connected",
		"server", sc.Name,
		"transport", transportOf(sc),
		"tools", registered,
	)
	return nil
}

func (m *Manager) dial(ctx context.Context, sc ServerConfig) (*mcpclient.Client, error) {
	switch transportOf(sc) {
	case TransportStdio:
		if sc.Command == "" {
			return nil, fmt.Errorf("stdio server needs a command")
		}
		cli, err := mcpclient.NewStdioMCPClient(sc.Command, sc.Env, sc.Args...)
		if err != nil {
			return nil, fmt.Errorf("spawn %q: %w", sc.Command, err)
		}
		return cli, nil
	case TransportHTTP:
		if sc.URL == "" {
			return nil, fmt.Errorf("http server needs a url")
		}
		cli, err := mcpclient.NewStreamableHttpClient(sc.URL)
		if err != nil {
			return nil, fmt.Errorf("http client %q: %w", sc.URL, err)
		}
		if err := cli.Start(ctx); err != nil {
			return nil, fmt.Errorf("start %q: %w", sc.URL, err)
		}
		return cli, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", sc.Transport)
	}
}

// Shutdown closes every open server connection exactly once. It must run on
// every exit path, including Failed terminations and cancellation.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		for _, conn := range m.conns {
			conn.connected.Store(false)
			if err := conn.client.Close(); err != nil {
				slog.Warn("server close failed", "server", conn.name, "error", err)
			} else {
				slog.Debug("server closed", "server", conn.name)
			}
		}
	})
}

func transportOf(sc ServerConfig) string {
	if sc.Transport == "" {
		return TransportStdio
	}
	return sc.Transport
}
