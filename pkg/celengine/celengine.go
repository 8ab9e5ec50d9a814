package celengine

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// Engine compiles and evaluates boolean expressions over a fixed set of typed
// variables. Compiled programs are cached per expression.
type Engine struct {
	env      *cel.Env
	programs sync.Map
}

type Variable struct {
	Name string
	Type *cel.Type
}

func New(vars ...Variable) (*Engine, error) {
	opts := make([]cel.EnvOption, 0, len(vars))
	for _, v := range vars {
		opts = append(opts, cel.Variable(v.Name, v.Type))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, err
	}
	return &Engine{env: env}, nil
}

func (e *Engine) program(expr string) (cel.Program, error) {
	if v, ok := e.programs.Load(expr); ok {
		return v.(cel.Program), nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression must evaluate to bool, got %s", ast.OutputType())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, err
	}
	e.programs.Store(expr, prg)
	return prg, nil
}

// Validate compiles expr without running it.
func (e *Engine) Validate(expr string) error {
	_, err := e.program(expr)
	return err
}

func (e *Engine) Evaluate(expr string, attrs map[string]any) (bool, error) {
	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(attrs)
	if err != nil {
		return false, err
	}

	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expected bool from expression, got %T (%v)", out.Value(), out.Value())
	}
	return b, nil
}
