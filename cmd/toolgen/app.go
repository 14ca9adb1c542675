package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/jonwraymond/toolgen/agent"
	"github.com/jonwraymond/toolgen/catalog"
	"github.com/jonwraymond/toolgen/config"
	"github.com/jonwraymond/toolgen/generate"
	"github.com/jonwraymond/toolgen/history"
	"github.com/jonwraymond/toolgen/peer"
	"github.com/jonwraymond/toolgen/protocol"
	"github.com/jonwraymond/toolgen/relevance"
	"github.com/jonwraymond/toolgen/sandbox"
)

// app wires the components one command needs. Fields are nil until the
// matching open method has run.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	catalog *catalog.Catalog
	peers   *peer.Manager
	client  *protocol.Client
	agent   agent.Agent
	history *history.Store
}

// loadConfig reads the configuration named by the flags and applies the
// flag overrides.
func loadConfig(opts *rootOptions) (*app, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if opts.mock {
		cfg.MockMode = true
	}
	if opts.catalogPath != "" {
		cfg.Catalog = opts.catalogPath
	}
	logger := opts.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &app{cfg: cfg, logger: logger}, nil
}

// openAgent loads the catalog and builds the protocol client and agent.
func openAgent(opts *rootOptions) (*app, error) {
	a, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if err := a.openCatalog(); err != nil {
		return nil, err
	}
	if err := a.openAgent(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openCatalog() error {
	if a.cfg.Catalog == "" {
		return fmt.Errorf("%w: no catalog configured (use --catalog)", config.ErrConfiguration)
	}
	cat, err := catalog.Load(a.cfg.Catalog)
	if err != nil {
		return err
	}
	a.catalog = cat
	a.logger.Debug("catalog loaded",
		zap.String("path", a.cfg.Catalog),
		zap.Int("servers", len(cat.ServerNames())),
		zap.Int("tools", cat.Len()))
	return nil
}

func (a *app) openAgent() error {
	if !a.cfg.MockMode {
		a.peers = peer.NewManager(peer.Options{
			StartupGrace:    a.cfg.Peers.StartupGrace.Std(),
			ShutdownTimeout: a.cfg.Peers.ShutdownTimeout.Std(),
			Logger:          a.logger,
		})
	}
	client, err := protocol.NewClient(protocol.Config{
		Launch: a.cfg,
		Peers:  a.peers,
		Logger: a.logger,
	})
	if err != nil {
		return err
	}
	a.client = client

	idx, docs, err := a.catalog.Index()
	if err != nil {
		return err
	}
	ranker, err := relevance.NewRankerWithIndex(a.catalog, idx)
	if err != nil {
		return err
	}
	ag, err := agent.New(agent.Config{
		Catalog: a.catalog,
		Caller:  client,
		Ranker:  ranker,
		Docs:    docs,
		Logger:  a.logger,
	})
	if err != nil {
		return err
	}
	a.agent = ag
	return nil
}

func (a *app) sandbox() (*sandbox.Sandbox, error) {
	return sandbox.New(sandbox.ConfigFrom(a.cfg.Sandbox, a.agent, a.logger))
}

func (a *app) orchestrator(ctx context.Context) (*generate.Orchestrator, error) {
	backend, err := generate.NewBackend(ctx, a.cfg.Generator, os.LookupEnv)
	if err != nil {
		return nil, err
	}
	return generate.NewOrchestrator(generate.Config{
		Catalog:   a.catalog,
		Backend:   backend,
		MaxTokens: a.cfg.Generator.MaxTokens,
		Logger:    a.logger,
	})
}

// openHistory opens the configured run history. It is a no-op when no
// history path is configured.
func (a *app) openHistory(ctx context.Context) error {
	if a.cfg.History == "" {
		return nil
	}
	store, err := history.Open(ctx, a.cfg.History)
	if err != nil {
		return err
	}
	a.history = store
	return nil
}

// Close stops every launched server and closes the history.
func (a *app) Close() {
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			a.logger.Warn("closing client", zap.Error(err))
		}
	} else if a.peers != nil {
		a.peers.ShutdownAll()
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn("closing history", zap.Error(err))
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
