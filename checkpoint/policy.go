package checkpoint

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/hypatia-ai/hypatia"
)

// Policy is a compiled default-resolution expression. When a blocking
// checkpoint times out, the policy decides the outcome from the gated
// stage's name and confidence.
//
// Expressions are CEL over two variables:
//
//	stage      string  the gated stage name
//	confidence double  the stage's reported confidence
//
// The expression must evaluate to a bool (true approves) or to one of the
// strings "approve" / "reject".
type Policy struct {
	expr string
	prg  cel.Program
}

// NewPolicy compiles a default-resolution expression.
func NewPolicy(expr string) (*Policy, error) {
	const op = "checkpoint.NewPolicy"

	env, err := cel.NewEnv(
		cel.Variable("stage", cel.StringType),
		cel.Variable("confidence", cel.DoubleType),
	)
	if err != nil {
		return nil, hypatia.NewInternalError(op, fmt.Errorf("building policy environment: %w", err))
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, hypatia.NewConfigurationError(op,
			fmt.Errorf("%w: compiling policy %q: %v", hypatia.ErrInvalidConfig, expr, iss.Err()))
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, hypatia.NewConfigurationError(op,
			fmt.Errorf("%w: building policy program: %v", hypatia.ErrInvalidConfig, err))
	}

	return &Policy{expr: expr, prg: prg}, nil
}

// Expression returns the source expression the policy was compiled from.
func (p *Policy) Expression() string {
	return p.expr
}

// Evaluate decides approve or reject for the given stage and confidence.
func (p *Policy) Evaluate(stage string, confidence float64) (Action, error) {
	const op = "checkpoint.Policy.Evaluate"

	out, _, err := p.prg.Eval(map[string]any{
		"stage":      stage,
		"confidence": confidence,
	})
	if err != nil {
		return "", hypatia.NewExecutionError(op, fmt.Errorf("evaluating policy %q: %w", p.expr, err))
	}

	switch v := out.Value().(type) {
	case bool:
		if v {
			return ActionApprove, nil
		}
		return ActionReject, nil
	case string:
		action, err := ParseAction(v)
		if err != nil || action == ActionModify {
			return "", hypatia.NewContractError(op,
				fmt.Errorf("policy %q produced %q, want approve or reject", p.expr, v))
		}
		return action, nil
	default:
		return "", hypatia.NewContractError(op,
			fmt.Errorf("policy %q produced %T, want bool or string", p.expr, out.Value()))
	}
}
