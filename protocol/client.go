package protocol

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jonwraymond/toolgen/config"
	"github.com/jonwraymond/toolgen/peer"
)

// maxLineInError bounds how much of a malformed reply is kept in errors.
const maxLineInError = 512

// Config holds the configuration for a Client.
type Config struct {
	// Launch is the launch configuration: mock mode and server entries.
	// Required.
	Launch *config.Config

	// Peers owns the server processes. Required unless Launch.MockMode.
	Peers *peer.Manager

	// CallTimeout bounds the wait for one reply. Defaults to
	// Launch.Peers.CallTimeout, then config.DefaultCallTimeout.
	CallTimeout time.Duration

	// Logger is an optional logger.
	Logger *zap.Logger
}

// Validate checks that all required fields are set.
// Returns config.ErrConfiguration if any required field is missing.
func (c *Config) Validate() error {
	var missing []string
	if c.Launch == nil {
		missing = append(missing, "Launch")
	}
	if c.Peers == nil && (c.Launch == nil || !c.Launch.MockMode) {
		missing = append(missing, "Peers")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s",
			config.ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.CallTimeout <= 0 {
		c.CallTimeout = c.Launch.Peers.CallTimeout.Std()
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = config.DefaultCallTimeout
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Client performs tool calls against configured servers.
//
// Contract:
// - Concurrency: safe for concurrent use. Calls to one server are
// serialized by its peer handle; calls to distinct servers run in parallel.
// - Context: Call blocks until a reply, ctx cancellation, or CallTimeout.
// - Errors: ErrTimeout, ErrProtocol, ErrRemoteTool, peer.ErrProcessStart,
// peer.ErrPeerExited and config.ErrConfiguration propagate to the caller.
type Client struct {
	cfg    Config
	logger *zap.Logger
	nextID atomic.Int64
}

// NewClient creates a Client.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &Client{cfg: cfg, logger: cfg.Logger.Named("protocol")}, nil
}

// MockMode reports whether calls are synthesized instead of sent.
func (c *Client) MockMode() bool {
	return c.cfg.Launch.MockMode
}

// Call invokes tool on the named server and returns its result.
//
// In mock mode it returns MockResult without touching any process.
func (c *Client) Call(ctx context.Context, server, tool string, args map[string]any) (Result, error) {
	if c.cfg.Launch.MockMode {
		c.logger.Debug("mock call", zap.String("server", server), zap.String("tool", tool))
		return MockResult(server, tool, args), nil
	}

	srv, _ := c.cfg.Launch.Server(server)
	h, err := c.cfg.Peers.Acquire(ctx, server, srv)
	if err != nil {
		return nil, err
	}

	id := c.nextID.Add(1)
	frame, err := NewRequest(id, tool, args).Encode()
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	line, err := h.Exchange(callCtx, frame, matchID(id))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			c.logger.Warn("call abandoned",
				zap.String("server", server),
				zap.String("tool", tool),
				zap.Int64("id", id),
				zap.Duration("timeout", c.cfg.CallTimeout))
			return nil, fmt.Errorf("%w: %s on %q after %s", ErrTimeout, tool, server, c.cfg.CallTimeout)
		}
		return nil, err
	}
	c.logger.Debug("call complete",
		zap.String("server", server),
		zap.String("tool", tool),
		zap.Int64("id", id),
		zap.Duration("elapsed", time.Since(start)))

	resp, err := DecodeResponse(line)
	if err != nil {
		return nil, &ProtocolError{Server: server, Line: string(truncate(line, maxLineInError)), Err: err}
	}
	if resp.Error != nil {
		return nil, &RemoteToolError{
			Server:  server,
			Tool:    tool,
			Code:    resp.Error.Code,
			Message: resp.Error.Message,
			Data:    resp.Error.Data,
		}
	}
	result, err := decodeResult(resp.Result)
	if err != nil {
		return nil, &ProtocolError{Server: server, Line: string(truncate(line, maxLineInError)), Err: err}
	}
	return result, nil
}

// CallTool invokes a catalog tool, composing its peer-facing name.
func (c *Client) CallTool(ctx context.Context, server, category, tool string, args map[string]any) (Result, error) {
	return c.Call(ctx, server, ToolName(server, category, tool), args)
}

// Close shuts down every server process owned by the client's manager.
func (c *Client) Close() error {
	if c.cfg.Peers == nil {
		return nil
	}
	return c.cfg.Peers.Close()
}

// MockResult is the deterministic acknowledgment returned in mock mode.
func MockResult(server, tool string, args map[string]any) Result {
	if args == nil {
		args = map[string]any{}
	}
	return Result{
		"status":    "success",
		"mock":      true,
		"server":    server,
		"tool":      tool,
		"arguments": args,
		"message":   fmt.Sprintf("mock execution of %s/%s", server, tool),
		"result": map[string]any{
			"id":         "mock_123",
			"created_at": "2025-01-01T00:00:00Z",
		},
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
