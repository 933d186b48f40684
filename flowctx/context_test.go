package flowctx

import (
	"testing"

	"github.com/lowcarboncode/phlow/value"
)

func TestRecordStepAndBindings(t *testing.T) {
	ctx := New(value.NewObject().Set("requested", value.Number(100)))
	ctx.RecordStep("approved", value.NewObject().Set("total", value.Number(190)))

	bindings := ctx.Bindings()
	got, ok := bindings.Path("steps.approved.total")
	if !ok {
		t.Fatalf("steps.approved.total not found in bindings")
	}
	if f, _ := got.Number(); f != 190 {
		t.Errorf("steps.approved.total = %v, want 190", f)
	}

	params, ok := bindings.Path("params.requested")
	if !ok {
		t.Fatalf("params.requested not found")
	}
	if f, _ := params.Number(); f != 100 {
		t.Errorf("params.requested = %v, want 100", f)
	}
}

func TestRecordStepIgnoresEmptyID(t *testing.T) {
	ctx := New(value.Null)
	ctx.RecordStep("", value.Number(1))
	if len(ctx.Steps) != 0 {
		t.Errorf("RecordStep(\"\", ...) should not record, got %v", ctx.Steps)
	}
}

func TestFromMain(t *testing.T) {
	ctx := FromMain(value.NewObject().Set("hello", value.String("world")))
	b := ctx.Bindings()
	got, ok := b.Path("main.hello")
	if !ok {
		t.Fatalf("main.hello not found")
	}
	if s, _ := got.Str(); s != "world" {
		t.Errorf("main.hello = %q, want world", s)
	}
}
