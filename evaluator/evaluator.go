// Package evaluator defines the narrow capability the engine depends on for
// expression strings: compile once, evaluate against a rebuilt binding on
// every step. The engine never imports a concrete evaluator directly; it is
// wired through this interface so it can be swapped, including for a
// pure-value evaluator in tests.
package evaluator

import "github.com/lowcarboncode/phlow/value"

// CompiledExpr is an expression that has already been parsed/validated and
// is ready to be evaluated repeatedly against different bindings.
type CompiledExpr interface {
	// Eval runs the compiled expression against bindings and returns its
	// result, or an error if evaluation fails (divide by zero, missing
	// binding, type mismatch).
	Eval(bindings value.Value) (value.Value, error)

	// Source returns the original expression text, for diagnostics.
	Source() string
}

// Evaluator compiles expression source strings into CompiledExpr values.
// A CompileError is raised for malformed or rejected expressions.
type Evaluator interface {
	Compile(source string) (CompiledExpr, error)
}
