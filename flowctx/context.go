// Package flowctx holds the per-execution state a pipeline carries between
// steps: params, the main module's request value, the current payload, the
// current module input, and a flat map of completed step outputs keyed by
// step id, keyed per step id (steps.<id>.*) rather than a single flattened
// "Current" map.
package flowctx

import (
	"sort"

	"github.com/lowcarboncode/phlow/value"
)

// Context is the per-request execution state threaded through a pipeline
// run. It is exclusively owned by one execution; the executor mutates it
// between steps and each StepWorker sees a consistent snapshot via the
// accessor methods below.
type Context struct {
	Params  value.Value
	Main    value.Value
	Payload value.Value
	Input   value.Value
	Steps   map[string]value.Value
}

// New creates a Context for a request driven directly by params (no main
// module), matching the original's Context::new.
func New(params value.Value) *Context {
	return &Context{
		Params: params,
		Steps:  make(map[string]value.Value),
	}
}

// FromMain creates a Context for a request delivered by the main module,
// matching the original's Context::from_main.
func FromMain(main value.Value) *Context {
	return &Context{
		Main:  main,
		Steps: make(map[string]value.Value),
	}
}

// RecordStep stores a completed step's effective output under its id.
// A step id appears in Steps only after the step has successfully
// completed.
func (c *Context) RecordStep(id string, output value.Value) {
	if id == "" {
		return
	}
	c.Steps[id] = output
}

// Bindings returns the read-only view handed to the expression evaluator:
// params, main, payload, input and steps as nested objects.
func (c *Context) Bindings() value.Value {
	steps := value.NewObject()
	// Stable order keeps evaluator error messages and test fixtures
	// deterministic; step ids are small in practice so a sort is cheap.
	ids := make([]string, 0, len(c.Steps))
	for id := range c.Steps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		steps = steps.Set(id, c.Steps[id])
	}

	out := value.NewObject()
	out = out.Set("params", c.Params)
	out = out.Set("main", c.Main)
	out = out.Set("payload", c.Payload)
	out = out.Set("input", c.Input)
	out = out.Set("steps", steps)
	return out
}
