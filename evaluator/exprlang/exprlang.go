// Package exprlang is Phlow's production expression evaluator, built on
// github.com/expr-lang/expr. It is the concrete binding mentioned in
// SPEC_FULL.md §4.5: the engine only ever depends on evaluator.Evaluator,
// but this is the implementation wired into the default loader.
package exprlang

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/lowcarboncode/phlow/evaluator"
	"github.com/lowcarboncode/phlow/value"
)

// Evaluator compiles Phlow guard/payload/return/input expressions with
// expr-lang/expr. The zero value is ready to use.
type Evaluator struct{}

// New returns a ready-to-use Evaluator.
func New() *Evaluator { return &Evaluator{} }

// Compile parses source with expr-lang's env-less mode (bindings are a
// dynamic map, so no expr.Env option is supplied) and returns a
// CompiledExpr that re-evaluates the program against fresh bindings on
// every call; the core performs no result caching. A source wrapped in
// "{{ ... }}" (as the yamlpp !eval and !import macros produce) is compiled
// without the braces; Source still reports the original text.
func (Evaluator) Compile(source string) (evaluator.CompiledExpr, error) {
	code := strings.TrimSpace(source)
	if strings.HasPrefix(code, "{{") && strings.HasSuffix(code, "}}") {
		code = strings.TrimSpace(code[2 : len(code)-2])
	}
	program, err := expr.Compile(code, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("exprlang: compile %q: %w", source, err)
	}
	return compiledExpr{source: source, program: program}, nil
}

type compiledExpr struct {
	source  string
	program *vm.Program
}

func (c compiledExpr) Source() string { return c.source }

func (c compiledExpr) Eval(bindings value.Value) (value.Value, error) {
	env, ok := bindings.ToAny().(map[string]any)
	if !ok {
		env = map[string]any{}
	}
	out, err := expr.Run(c.program, env)
	if err != nil {
		return value.Null, fmt.Errorf("exprlang: eval %q: %w", c.source, err)
	}
	return value.FromAny(out), nil
}
