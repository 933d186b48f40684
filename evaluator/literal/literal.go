// Package literal provides a dependency-free, pure-value evaluator used in
// tests. It covers two cases that never need the full expr-lang grammar: document fields
// that are already a literal value.Value (object/array/number/bool/null,
// not an expression string), and simple dotted-path lookups used in unit
// tests that don't exercise arithmetic.
package literal

import (
	"fmt"

	"github.com/lowcarboncode/phlow/evaluator"
	"github.com/lowcarboncode/phlow/value"
)

// Of wraps a literal value.Value as a CompiledExpr that always evaluates to
// itself, ignoring bindings. Used by the compiler (package pipeline) for
// step fields given as structured document values rather than strings.
func Of(v value.Value) evaluator.CompiledExpr {
	return literalExpr{v: v}
}

type literalExpr struct{ v value.Value }

func (l literalExpr) Eval(value.Value) (value.Value, error) { return l.v, nil }
func (l literalExpr) Source() string                        { return l.v.String() }

// PathEvaluator compiles expression source strings as plain dotted paths
// into the bindings object (e.g. "params.requested"), with no operators.
// It satisfies evaluator.Evaluator and is useful in tests that don't need
// arithmetic or the expr-lang dependency.
type PathEvaluator struct{}

// Compile validates that source is non-empty; path resolution happens at
// Eval time since the same compiled expression is re-bound on every step.
func (PathEvaluator) Compile(source string) (evaluator.CompiledExpr, error) {
	if source == "" {
		return nil, fmt.Errorf("literal: empty expression")
	}
	return pathExpr{source: source}, nil
}

type pathExpr struct{ source string }

func (p pathExpr) Eval(bindings value.Value) (value.Value, error) {
	v, ok := bindings.Path(p.source)
	if !ok {
		return value.Null, fmt.Errorf("literal: path %q not found in bindings", p.source)
	}
	return v, nil
}

func (p pathExpr) Source() string { return p.source }
