// Package guard evaluates CEL expressions that decide whether a matched
// route may be dispatched.
//
// Expressions see three variables:
//
//	params  map(string, string)  named path parameters
//	query   map(string, string)  first value of each query parameter
//	path    string               the resolved path
//
// For example "params.id != '0' && query.preview != 'true'".
package guard

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/vyrodovalexey/navroute/internal/observability"
	"github.com/vyrodovalexey/navroute/internal/router"
)

var (
	envOnce sync.Once
	env     *cel.Env
	envErr  error
)

func environment() (*cel.Env, error) {
	envOnce.Do(func() {
		env, envErr = cel.NewEnv(
			cel.Variable("params", cel.MapType(cel.StringType, cel.StringType)),
			cel.Variable("query", cel.MapType(cel.StringType, cel.StringType)),
			cel.Variable("path", cel.StringType),
		)
	})
	return env, envErr
}

// Input is what a guard expression is evaluated against.
type Input struct {
	Params map[string]string
	Query  string
	Path   string
}

// Guard is a compiled guard expression. It is safe for concurrent use.
type Guard struct {
	expr    string
	program cel.Program
	logger  observability.Logger
	metrics *observability.Metrics
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the logger used for evaluation failures.
func WithLogger(logger observability.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// WithMetrics records every decision.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Guard) { g.metrics = m }
}

// Compile parses and type-checks expr. The expression must yield a bool.
func Compile(expr string, opts ...Option) (*Guard, error) {
	e, err := environment()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := e.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile guard %q: %w", expr, issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("guard %q must evaluate to bool, got %s", expr, out)
	}

	program, err := e.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for guard %q: %w", expr, err)
	}

	g := &Guard{
		expr:    expr,
		program: program,
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Expression returns the source expression.
func (g *Guard) Expression() string {
	return g.expr
}

// Allow evaluates the guard.
func (g *Guard) Allow(ctx context.Context, in Input) (bool, error) {
	params := in.Params
	if params == nil {
		params = map[string]string{}
	}

	out, _, err := g.program.ContextEval(ctx, map[string]any{
		"params": params,
		"query":  firstValues(in.Query),
		"path":   in.Path,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate guard %q: %w", g.expr, err)
	}

	allowed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("guard %q returned %T", g.expr, out.Value())
	}
	return allowed, nil
}

// Hooks returns route hooks whose Before step runs the guard. Evaluation
// errors deny the dispatch.
func (g *Guard) Hooks() router.Hooks {
	return router.Hooks{Before: g.before}
}

func (g *Guard) before(ctx context.Context, d router.Dispatch) bool {
	allowed, err := g.Allow(ctx, Input{Params: d.Params, Query: d.Query, Path: d.Path})
	if err != nil {
		g.logger.WithContext(ctx).Warn("guard evaluation failed",
			observability.String("guard", g.expr),
			observability.String("path", d.Path),
			observability.Error(err),
		)
	}
	g.metrics.RecordGuardDecision(allowed)
	if !allowed {
		g.logger.WithContext(ctx).Debug("dispatch denied by guard",
			observability.String("guard", g.expr),
			observability.String("path", d.Path),
		)
	}
	return allowed
}

// firstValues parses a raw query into its first value per key. Malformed
// pairs are skipped.
func firstValues(raw string) map[string]string {
	out := map[string]string{}
	values, _ := url.ParseQuery(raw)
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
