package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"github.com/traefik/yaegi/stdlib/unrestricted"
	"go.uber.org/zap"
)

// resultVar is the variable whose value becomes Outcome.Result.
const resultVar = "result"

// positionPattern finds the line:column prefix of interpreter errors.
var positionPattern = regexp.MustCompile(`(\d+):(\d+): `)

// Sandbox runs code units in a fresh interpreter per run.
//
// Contract:
//   - Concurrency: safe for concurrent use. Runs share only the Agent.
//   - Context: runs stop at ctx cancellation or Config.Timeout, whichever
//     comes first.
//   - Errors: never returned; every failure is reported in the Outcome.
type Sandbox struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Sandbox.
// Returns config.ErrConfiguration if cfg is invalid.
func New(cfg Config) (*Sandbox, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &Sandbox{cfg: cfg, logger: cfg.Logger.Named("sandbox")}, nil
}

// AllowList returns the restricted tier's allow list.
func (s *Sandbox) AllowList() AllowList {
	return s.cfg.AllowList
}

// RunRestricted runs code with only the allow list and the agent package.
func (s *Sandbox) RunRestricted(ctx context.Context, code string) Outcome {
	return s.Run(ctx, code, TierRestricted)
}

// RunUnrestricted runs code with the full standard library.
func (s *Sandbox) RunUnrestricted(ctx context.Context, code string) Outcome {
	return s.Run(ctx, code, TierUnrestricted)
}

// Run runs code in the given tier.
func (s *Sandbox) Run(ctx context.Context, code string, tier Tier) Outcome {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	stdout := newCaptureBuffer(s.cfg.MaxOutputBytes)
	stderr := newCaptureBuffer(s.cfg.MaxOutputBytes)
	rec := newRecorder(ctx, s.cfg.Agent, s.cfg.MaxToolCalls)

	value, err := s.eval(ctx, code, tier, stdout, stderr, rec)

	out := Outcome{
		Success:    err == nil,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		Result:     value,
		ToolCalls:  rec.ToolCalls(),
		Truncated:  stdout.Truncated() || stderr.Truncated(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		out.Result = nil
		out.Err = err
		out.Error = err.Error()
		out.Trace = trace(err)
	}

	s.logger.Debug("run finished",
		zap.Stringer("tier", tier),
		zap.Bool("success", out.Success),
		zap.Int("tool_calls", len(out.ToolCalls)),
		zap.Int64("duration_ms", out.DurationMs),
		zap.Error(err))
	return out
}

// eval runs code and returns the value of its result variable. Every
// failure is an *ExecutionError.
func (s *Sandbox) eval(ctx context.Context, code string, tier Tier, stdout, stderr io.Writer, rec *recorder) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = &ExecutionError{Kind: KindInternal, Message: fmt.Sprint(r)}
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, s.classify(ctx, err, 0)
	}
	u, err := parseUnit(code)
	if err != nil {
		return nil, err
	}
	if tier == TierRestricted {
		for _, imp := range u.imports {
			if imp.Path == agentPackage || s.cfg.AllowList.Allows(imp.Path) {
				continue
			}
			return nil, &ExecutionError{
				Kind:    KindImport,
				Message: fmt.Sprintf("import %q is not allowed in the %s tier", imp.Path, tier),
				Line:    imp.Line,
				Err:     ErrImportNotAllowed,
			}
		}
	}

	i := interp.New(interp.Options{
		Stdin:        strings.NewReader(""),
		Stdout:       stdout,
		Stderr:       stderr,
		Unrestricted: tier == TierUnrestricted,
	})
	if err := s.use(i, tier, rec); err != nil {
		return nil, &ExecutionError{Kind: KindInternal, Message: err.Error(), Err: err}
	}

	if !u.program {
		if _, err := i.EvalWithContext(ctx, fmt.Sprintf("import %q", agentPackage)); err != nil {
			return nil, s.classify(ctx, err, 0)
		}
		if u.importSrc != "" {
			if _, err := i.EvalWithContext(ctx, u.importSrc); err != nil {
				return nil, s.classify(ctx, err, 0)
			}
		}
	}
	if strings.TrimSpace(u.body) == "" {
		return nil, nil
	}
	if _, err := i.EvalWithContext(ctx, u.body); err != nil {
		return nil, s.classify(ctx, err, u.bodyLine-1)
	}
	// Any further evaluation would run a program's main again.
	if u.program {
		return nil, nil
	}

	v, err := i.EvalWithContext(ctx, resultVar)
	if err != nil {
		if ctx.Err() != nil {
			return nil, s.classify(ctx, err, 0)
		}
		return nil, nil
	}
	if !v.IsValid() || !v.CanInterface() {
		return nil, nil
	}
	return snapshot(v.Interface()), nil
}

// use loads the tier's symbol table and the agent binding.
func (s *Sandbox) use(i *interp.Interpreter, tier Tier, rec *recorder) error {
	switch tier {
	case TierUnrestricted:
		if err := i.Use(stdlib.Symbols); err != nil {
			return err
		}
		if err := i.Use(unrestricted.Symbols); err != nil {
			return err
		}
	default:
		if err := i.Use(s.cfg.AllowList.Exports()); err != nil {
			return err
		}
	}
	return i.Use(rec.exports())
}

// classify turns an interpreter error into an ExecutionError. lineShift
// maps body lines back to code unit lines.
func (s *Sandbox) classify(ctx context.Context, err error, lineShift int) *ExecutionError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return &ExecutionError{
				Kind:    KindTimeout,
				Message: fmt.Sprintf("timeout after %v", s.cfg.Timeout),
				Err:     fmt.Errorf("%w: %w", ErrLimitExceeded, ctxErr),
			}
		}
		return &ExecutionError{Kind: KindCanceled, Message: ctxErr.Error(), Err: ctxErr}
	}

	var p interp.Panic
	if errors.As(err, &p) {
		return &ExecutionError{Kind: KindRuntime, Message: "panic: " + fmt.Sprint(p.Value), Err: err}
	}

	e := &ExecutionError{Kind: KindCompile, Message: err.Error(), Err: err}
	if m := positionPattern.FindStringSubmatchIndex(err.Error()); m != nil {
		msg := err.Error()
		line, _ := strconv.Atoi(msg[m[2]:m[3]])
		col, _ := strconv.Atoi(msg[m[4]:m[5]])
		e.Line = line + lineShift
		e.Column = col
		e.Message = strings.TrimSpace(msg[m[1]:])
	}
	return e
}

// trace returns the failure detail for err.
func trace(err error) string {
	var p interp.Panic
	if errors.As(err, &p) && len(p.Stack) > 0 {
		return string(p.Stack)
	}
	var e *ExecutionError
	if errors.As(err, &e) && e.Line > 0 {
		return fmt.Sprintf("line %d, col %d: %s", e.Line, e.Column, e.Message)
	}
	return err.Error()
}
