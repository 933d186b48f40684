package pipeline

import (
	"fmt"

	"github.com/lowcarboncode/phlow/evaluator"
	"github.com/lowcarboncode/phlow/evaluator/literal"
	"github.com/lowcarboncode/phlow/phlowerr"
	"github.com/lowcarboncode/phlow/transform"
	"github.com/lowcarboncode/phlow/value"
)

// Pipeline is an ordered sequence of compiled steps.
type Pipeline struct {
	Steps []*StepWorker
}

// Map is PipelineId → Pipeline; ids are dense starting at 0. The root
// pipeline is Map[RootID].
type Map struct {
	Pipelines []Pipeline
	RootID    int
}

// Compile compiles transform's RawPipelines into a Map, parsing each step's
// condition/payload/return/use fields and handing expression strings to ev.
// Compilation failure raises *phlowerr.CompileError.
func Compile(raw transform.RawPipelines, rootID int, ev evaluator.Evaluator) (*Map, error) {
	pipelines := make([]Pipeline, len(raw))
	for pid, rawPipeline := range raw {
		steps := make([]*StepWorker, 0, rawPipeline.Len())
		for i, rawStep := range rawPipeline.Items() {
			worker, err := compileStep(rawStep, ev)
			if err != nil {
				return nil, &phlowerr.CompileError{StepIndex: i, Cause: fmt.Errorf("pipeline %d: %w", pid, err)}
			}
			steps = append(steps, worker)
		}
		pipelines[pid] = Pipeline{Steps: steps}
	}

	for pid, p := range pipelines {
		for i, step := range p.Steps {
			for _, target := range []*int{step.Then, step.Else} {
				if target == nil {
					continue
				}
				if *target < 0 || *target >= len(pipelines) {
					return nil, &phlowerr.CompileError{
						StepIndex: i,
						Cause:     fmt.Errorf("pipeline %d: then/else target %d does not exist", pid, *target),
					}
				}
			}
		}
	}

	return &Map{Pipelines: pipelines, RootID: rootID}, nil
}

// ModuleNames returns the distinct module names referenced by every step's
// use field across the whole map, in first-seen order. Callers (package
// phlow's Build) use this to reject a document whose steps reference a
// module absent from its modules: declaration before loading anything.
func (m *Map) ModuleNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range m.Pipelines {
		for _, step := range p.Steps {
			if step.Use == nil {
				continue
			}
			if !seen[step.Use.Module] {
				seen[step.Use.Module] = true
				names = append(names, step.Use.Module)
			}
		}
	}
	return names
}

func compileStep(raw value.Value, ev evaluator.Evaluator) (*StepWorker, error) {
	worker := &StepWorker{}

	if id, ok := raw.Get("id"); ok {
		if s, ok := id.Str(); ok {
			worker.ID = s
		}
	}

	if cond, ok := raw.Get("condition"); ok {
		guard, err := compileGuard(cond, ev)
		if err != nil {
			return nil, err
		}
		worker.Guard = guard
	}

	if payload, ok := raw.Get("payload"); ok {
		expr, err := compileExprField(payload, ev)
		if err != nil {
			return nil, fmt.Errorf("payload: %w", err)
		}
		worker.Payload = expr
	}

	if ret, ok := raw.Get("return"); ok {
		expr, err := compileExprField(ret, ev)
		if err != nil {
			return nil, fmt.Errorf("return: %w", err)
		}
		worker.Return = expr
	}

	if use, ok := raw.Get("use"); ok {
		moduleName, ok := use.Str()
		if !ok {
			return nil, fmt.Errorf("use: expected a module name string")
		}
		inv := &ModuleInvocation{Module: moduleName}
		if input, ok := raw.Get("input"); ok {
			expr, err := compileExprField(input, ev)
			if err != nil {
				return nil, fmt.Errorf("input: %w", err)
			}
			inv.Input = expr
		} else {
			inv.Input = literal.Of(value.Null)
		}
		worker.Use = inv
	}

	if then, ok := raw.Get("then"); ok {
		id, err := pipelineRef(then)
		if err != nil {
			return nil, fmt.Errorf("then: %w", err)
		}
		worker.Then = &id
	}
	if els, ok := raw.Get("else"); ok {
		id, err := pipelineRef(els)
		if err != nil {
			return nil, fmt.Errorf("else: %w", err)
		}
		worker.Else = &id
	}

	return worker, nil
}

func pipelineRef(v value.Value) (int, error) {
	f, ok := v.Number()
	if !ok {
		return 0, fmt.Errorf("expected a pipeline id, got %s (transform should have rewritten this)", v.Kind())
	}
	return int(f), nil
}

var operatorNames = map[string]Operator{
	"equal":                 OpEqual,
	"not_equal":             OpNotEqual,
	"less_than":             OpLessThan,
	"less_than_or_equal":    OpLessOrEqual,
	"greater_than":          OpGreaterThan,
	"greater_than_or_equal": OpGreaterOrEqual,
	"and":                   OpAnd,
	"or":                    OpOr,
}

func compileGuard(cond value.Value, ev evaluator.Evaluator) (*Guard, error) {
	leftVal, ok := cond.Get("left")
	if !ok {
		return nil, fmt.Errorf("condition: missing 'left'")
	}
	rightVal, ok := cond.Get("right")
	if !ok {
		return nil, fmt.Errorf("condition: missing 'right'")
	}
	opVal, ok := cond.Get("operator")
	if !ok {
		return nil, fmt.Errorf("condition: missing 'operator'")
	}
	opName, ok := opVal.Str()
	if !ok {
		return nil, fmt.Errorf("condition: 'operator' must be a string")
	}
	op, ok := operatorNames[opName]
	if !ok {
		return nil, fmt.Errorf("condition: unknown operator %q", opName)
	}

	left, err := compileExprField(leftVal, ev)
	if err != nil {
		return nil, fmt.Errorf("condition.left: %w", err)
	}
	right, err := compileExprField(rightVal, ev)
	if err != nil {
		return nil, fmt.Errorf("condition.right: %w", err)
	}

	return &Guard{Left: left, Right: right, Op: op}, nil
}

// compileExprField compiles a document field that may be either an
// expression string (handed to ev) or a structured literal value (wrapped
// so it evaluates to itself, per SPEC_FULL.md §4.5).
func compileExprField(v value.Value, ev evaluator.Evaluator) (evaluator.CompiledExpr, error) {
	if s, ok := v.Str(); ok {
		return ev.Compile(s)
	}
	return literal.Of(v), nil
}
