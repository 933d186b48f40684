package exprlang

import (
	"testing"

	"github.com/lowcarboncode/phlow/value"
)

func bindingsFor(requested, preApproved, score float64) value.Value {
	params := value.NewObject().
		Set("requested", value.Number(requested)).
		Set("pre-approved", value.Number(preApproved)).
		Set("score", value.Number(score))
	return value.NewObject().Set("params", params).Set("steps", value.NewObject())
}

func TestEvalArithmetic(t *testing.T) {
	e := New()
	compiled, err := e.Compile("(params.requested * 0.3) + params[\"pre-approved\"]")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	got, err := compiled.Eval(bindingsFor(300, 100, 0.8))
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	f, ok := got.Number()
	if !ok || f != 190 {
		t.Errorf("Eval() = %v, want 190", got)
	}
}

func TestEvalPathLookup(t *testing.T) {
	e := New()
	compiled, err := e.Compile("params.requested")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got, err := compiled.Eval(bindingsFor(100, 200, 0))
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if f, _ := got.Number(); f != 100 {
		t.Errorf("Eval() = %v, want 100", got)
	}
}

func TestCompileInvalidExpression(t *testing.T) {
	e := New()
	if _, err := e.Compile("params..."); err == nil {
		t.Errorf("Compile(invalid) expected error, got nil")
	}
}

func TestSourcePreserved(t *testing.T) {
	e := New()
	compiled, err := e.Compile("params.requested")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if compiled.Source() != "params.requested" {
		t.Errorf("Source() = %q, want %q", compiled.Source(), "params.requested")
	}
}
