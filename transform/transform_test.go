package transform

import (
	"testing"

	"github.com/lowcarboncode/phlow/value"
)

// creditApprovalDoc builds a credit approval pipeline directly as a
// value.Value tree (no parser involved; the parser is exercised in
// package config).
func creditApprovalDoc() value.Value {
	cond := func(left string, right value.Value, op string) value.Value {
		return value.NewObject().
			Set("left", value.String(left)).
			Set("right", right).
			Set("operator", value.String(op))
	}

	innerThenReturn := value.NewObject().Set("return", value.String("params.requested"))
	innerElseReturn := value.NewObject().Set("return", value.String("steps.approved.total"))

	innerCondStep := value.NewObject().
		Set("condition", cond("steps.approved.total", value.String("params.requested"), "greater_than")).
		Set("then", innerThenReturn).
		Set("else", innerElseReturn)

	approvedStep := value.NewObject().
		Set("id", value.String("approved")).
		Set("payload", value.NewObject().Set("total", value.String("(params.requested * 0.3) + params.pre-approved")))

	scoreStep := value.NewObject().
		Set("condition", cond("params.score", value.Number(0.5), "greater_than"))

	elseBranch := value.NewObject().Set("steps", value.Array(scoreStep, approvedStep, innerCondStep))

	thenBranch := value.NewObject().Set("payload", value.String("params.requested"))

	rootStep := value.NewObject().
		Set("condition", cond("params.requested", value.String("params.pre-approved"), "less_than")).
		Set("then", thenBranch).
		Set("else", elseBranch)

	return value.Array(rootStep)
}

func TestNormalizeCreditApproval(t *testing.T) {
	pipelines, root, err := Normalize(creditApprovalDoc())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if root != 4 {
		t.Fatalf("root pipeline id = %d, want 4", root)
	}
	if len(pipelines) != 5 {
		t.Fatalf("len(pipelines) = %d, want 5", len(pipelines))
	}

	// Pipeline 0: then-branch of root ({payload: params.requested}).
	p0 := pipelines[0].Items()
	if len(p0) != 1 {
		t.Fatalf("pipeline 0 has %d steps, want 1", len(p0))
	}
	if payload, _ := p0[0].Get("payload"); payload.Kind() != value.KindString {
		t.Errorf("pipeline 0 step missing payload")
	}

	// Pipeline 4 (root) has then=0, else=3.
	root0 := pipelines[4].Items()[0]
	thenID, ok := root0.Get("then")
	if !ok {
		t.Fatalf("root step missing then")
	}
	if f, _ := thenID.Number(); f != 0 {
		t.Errorf("root then = %v, want 0", f)
	}
	elseID, _ := root0.Get("else")
	if f, _ := elseID.Number(); f != 3 {
		t.Errorf("root else = %v, want 3", f)
	}
}

func TestNormalizeFlatListIsRoundTrip(t *testing.T) {
	// N flat leaf steps yield exactly one pipeline of length N with no
	// integer branches introduced.
	steps := value.Array(
		value.NewObject().Set("id", value.String("a")),
		value.NewObject().Set("id", value.String("b")),
		value.NewObject().Set("id", value.String("c")),
	)

	pipelines, root, err := Normalize(steps)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(pipelines) != 1 || root != 0 {
		t.Fatalf("len(pipelines)=%d root=%d, want 1,0", len(pipelines), root)
	}
	if got := len(pipelines[0].Items()); got != 3 {
		t.Fatalf("pipeline 0 has %d steps, want 3", got)
	}
	for _, step := range pipelines[0].Items() {
		if _, ok := step.Get("then"); ok {
			t.Errorf("flat leaf step unexpectedly has a then id")
		}
	}
}

func TestNormalizeEmptyPrelude(t *testing.T) {
	// An object whose only key is "steps" yields a pipeline of exactly the
	// rewritten child steps, no empty prelude step prepended.
	doc := value.NewObject().Set("steps", value.Array(
		value.NewObject().Set("id", value.String("only")),
	))
	pipelines, root, err := Normalize(doc)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(pipelines[root].Items()) != 1 {
		t.Fatalf("expected 1 step with no prelude, got %d", len(pipelines[root].Items()))
	}
}

func TestPostOrderReferencesAreSmaller(t *testing.T) {
	// Every pipeline referenced from P has a strictly smaller id than P.
	pipelines, _, err := Normalize(creditApprovalDoc())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	for pid, pipeline := range pipelines {
		for _, step := range pipeline.Items() {
			for _, field := range []string{"then", "else"} {
				if ref, ok := step.Get(field); ok {
					refID, _ := ref.Number()
					if int(refID) >= pid {
						t.Errorf("pipeline %d step references %s=%v, want < %d", pid, field, refID, pid)
					}
				}
			}
		}
	}
}

func TestSingleLeafStepYieldsOneStepPipeline(t *testing.T) {
	leaf := value.NewObject().Set("payload", value.Number(1))
	pipelines, root, err := Normalize(leaf)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(pipelines) != 1 {
		t.Fatalf("len(pipelines) = %d, want 1", len(pipelines))
	}
	if got := len(pipelines[root].Items()); got != 1 {
		t.Fatalf("leaf pipeline has %d steps, want 1", got)
	}
}
