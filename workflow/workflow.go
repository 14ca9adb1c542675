package workflow

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonwraymond/toolgen/config"
	"github.com/jonwraymond/toolgen/generate"
	"github.com/jonwraymond/toolgen/sandbox"
)

// Stage is a step of a run.
type Stage string

// Stages in the order a run passes through them. A run takes either
// StageExecuting or StageSkipExecution.
const (
	StageStart         Stage = "start"
	StageGenerating    Stage = "generating"
	StageExecuting     Stage = "executing"
	StageSkipExecution Stage = "skip-execution"
	StageDone          Stage = "done"
)

// Generator produces a code unit for a request, as a generate.Parsed or
// generate.Degraded result. *generate.Orchestrator satisfies it.
type Generator interface {
	Generate(ctx context.Context, query, contextText string) (generate.ParseResult, error)
}

// Executor runs code in a tier. *sandbox.Sandbox satisfies it.
type Executor interface {
	Run(ctx context.Context, code string, tier sandbox.Tier) sandbox.Outcome
}

// Recorder stores finished runs.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: a failed Record never changes the run's result.
type Recorder interface {
	Record(ctx context.Context, r Result) error
}

// Options tune one run.
type Options struct {
	// Execute runs the generated code. When false the run ends after
	// generation.
	Execute bool

	// Tier is the sandbox tier used when Execute is set.
	Tier sandbox.Tier

	// Context is extra text appended to the generation prompt.
	Context string
}

// Result is the outcome of one run.
type Result struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// Query is the request as given.
	Query string `json:"query"`

	// Code is the generated unit, nil when generation failed.
	Code *generate.CodeUnit `json:"generated_code,omitempty"`

	// Degraded reports that the backend reply could not be parsed and Code
	// holds the raw reply.
	Degraded bool `json:"degraded,omitempty"`

	// Execution is the sandbox outcome, nil when execution was skipped or
	// never reached.
	Execution *sandbox.Outcome `json:"execution_result,omitempty"`

	// Success is true when generation succeeded and, if requested,
	// execution succeeded.
	Success bool `json:"success"`

	// Error describes the failure when Success is false.
	Error string `json:"error,omitempty"`

	// Trace is the failure detail: the sandbox trace or a panic stack.
	Trace string `json:"trace,omitempty"`

	// Stages lists the stages the run passed through.
	Stages []Stage `json:"stages"`

	// Executed reports whether execution was requested.
	Executed bool `json:"executed"`

	// Tier is the sandbox tier requested.
	Tier string `json:"tier"`

	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}

// Config holds the configuration for a Coordinator.
type Config struct {
	// Generator produces code. Required.
	Generator Generator

	// Executor runs code. Required.
	Executor Executor

	// Recorder stores every finished run. Optional.
	Recorder Recorder

	// Logger is an optional logger.
	Logger *zap.Logger
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	var missing []string
	if c.Generator == nil {
		missing = append(missing, "Generator")
	}
	if c.Executor == nil {
		missing = append(missing, "Executor")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s",
			config.ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Coordinator sequences generation and execution.
type Coordinator struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Coordinator.
func New(cfg Config) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &Coordinator{cfg: cfg, logger: cfg.Logger.Named("workflow")}, nil
}

// Run generates code for query and, when opts.Execute is set, runs it.
func (c *Coordinator) Run(ctx context.Context, query string, opts Options) Result {
	res := Result{
		RunID:     uuid.NewString(),
		Query:     query,
		Executed:  opts.Execute,
		Tier:      opts.Tier.String(),
		StartedAt: time.Now(),
	}
	logger := c.logger.With(zap.String("run_id", res.RunID))

	c.run(ctx, logger, &res, opts)

	res.DurationMs = time.Since(res.StartedAt).Milliseconds()
	c.enter(logger, &res, StageDone)
	logger.Info("run finished",
		zap.Bool("success", res.Success),
		zap.Int64("duration_ms", res.DurationMs))

	if c.cfg.Recorder != nil {
		if err := c.cfg.Recorder.Record(ctx, res); err != nil {
			logger.Warn("recording run failed", zap.Error(err))
		}
	}
	return res
}

func (c *Coordinator) run(ctx context.Context, logger *zap.Logger, res *Result, opts Options) {
	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.Error = fmt.Sprintf("panic: %v", r)
			res.Trace = string(debug.Stack())
			logger.Error("run panicked", zap.Any("panic", r))
		}
	}()

	c.enter(logger, res, StageStart)

	c.enter(logger, res, StageGenerating)
	parsed, err := c.cfg.Generator.Generate(ctx, res.Query, opts.Context)
	if err == nil && parsed == nil {
		err = errors.New("generator returned no result")
	}
	if err != nil {
		res.Error = err.Error()
		logger.Warn("generation failed", zap.Error(err))
		return
	}
	if d, ok := parsed.(generate.Degraded); ok {
		res.Degraded = true
		logger.Warn("generation degraded", zap.String("reason", d.Reason))
	}
	unit := parsed.Unit()
	res.Code = &unit

	if !opts.Execute {
		c.enter(logger, res, StageSkipExecution)
		res.Success = true
		return
	}

	c.enter(logger, res, StageExecuting)
	out := c.cfg.Executor.Run(ctx, unit.Code, opts.Tier)
	res.Execution = &out
	res.Success = out.Success
	if !out.Success {
		res.Error = out.Error
		res.Trace = out.Trace
	}
}

func (c *Coordinator) enter(logger *zap.Logger, res *Result, s Stage) {
	res.Stages = append(res.Stages, s)
	logger.Debug("stage", zap.String("stage", string(s)))
}
