// Package stoprule compiles CEL expressions into training stop rules.
//
// An expression sees the statistics of the epoch that just finished:
//
//	epoch            int     1 for the first epoch
//	mse              double  mean squared error of the epoch
//	prev_mse         double  MSE of the previous epoch (+Inf after the first)
//	best_mse         double  lowest MSE so far
//	lr               double  learning rate used during the epoch
//	elapsed_seconds  double  wall time since training started
//
// and must evaluate to a bool, for example
//
//	epoch >= 100 && prev_mse - mse < 1e-6
package stoprule

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/born-ml/backprop/internal/train"
)

// ErrNotBool is returned when an expression does not produce a bool.
var ErrNotBool = errors.New("stop rule must evaluate to bool")

// Rule is a compiled stop expression. It implements train.StopRule and is
// safe for concurrent use.
type Rule struct {
	Expression string
	program    cel.Program
}

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("epoch", cel.IntType),
		cel.Variable("mse", cel.DoubleType),
		cel.Variable("prev_mse", cel.DoubleType),
		cel.Variable("best_mse", cel.DoubleType),
		cel.Variable("lr", cel.DoubleType),
		cel.Variable("elapsed_seconds", cel.DoubleType),
	)
}

// New compiles expression. Type errors, including a non-bool result, are
// reported here rather than during training.
func New(expression string) (*Rule, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression can't be empty")
	}

	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("error creating CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("error compiling stop rule %q: %w", expression, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: %q has type %s", ErrNotBool, expression, ast.OutputType())
	}

	p, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("error creating program: %w", err)
	}
	return &Rule{
		Expression: expression,
		program:    p,
	}, nil
}

// ShouldStop evaluates the expression against stats.
func (r *Rule) ShouldStop(stats train.EpochStats) (bool, error) {
	out, _, err := r.program.Eval(map[string]any{
		"epoch":           int64(stats.Epoch),
		"mse":             stats.MSE,
		"prev_mse":        stats.PrevMSE,
		"best_mse":        stats.BestMSE,
		"lr":              stats.LearningRate,
		"elapsed_seconds": stats.Elapsed.Seconds(),
	})
	if err != nil {
		return false, fmt.Errorf("error evaluating stop rule %q: %w", r.Expression, err)
	}
	stop, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: got %T", ErrNotBool, out.Value())
	}
	return stop, nil
}

var _ train.StopRule = (*Rule)(nil)
