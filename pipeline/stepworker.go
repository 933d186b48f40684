// Package pipeline holds the compiled form of a step (StepWorker) and the
// executor that walks a sequence of them. StepWorkers and the PipelineMap
// they live in are immutable after compilation; Context is the only thing
// that changes between steps.
package pipeline

import (
	"context"
	"fmt"

	"github.com/lowcarboncode/phlow/evaluator"
	"github.com/lowcarboncode/phlow/flowctx"
	"github.com/lowcarboncode/phlow/phlowerr"
	"github.com/lowcarboncode/phlow/value"
)

// Operator is one of the guard comparison/boolean operators.
type Operator string

const (
	OpEqual          Operator = "equal"
	OpNotEqual       Operator = "not_equal"
	OpLessThan       Operator = "less_than"
	OpLessOrEqual    Operator = "less_than_or_equal"
	OpGreaterThan    Operator = "greater_than"
	OpGreaterOrEqual Operator = "greater_than_or_equal"
	OpAnd            Operator = "and"
	OpOr             Operator = "or"
)

// Guard is a compiled condition: left OP right.
type Guard struct {
	Left  evaluator.CompiledExpr
	Right evaluator.CompiledExpr
	Op    Operator
}

// Eval evaluates the guard against bindings, returning its boolean result.
func (g *Guard) Eval(bindings value.Value) (bool, error) {
	left, err := g.Left.Eval(bindings)
	if err != nil {
		return false, fmt.Errorf("guard left operand: %w", err)
	}
	right, err := g.Right.Eval(bindings)
	if err != nil {
		return false, fmt.Errorf("guard right operand: %w", err)
	}

	switch g.Op {
	case OpEqual:
		return value.Equal(left, right), nil
	case OpNotEqual:
		return !value.Equal(left, right), nil
	case OpAnd:
		return left.Truthy() && right.Truthy(), nil
	case OpOr:
		return left.Truthy() || right.Truthy(), nil
	case OpLessThan, OpLessOrEqual, OpGreaterThan, OpGreaterOrEqual:
		cmp, ok := value.Compare(left, right)
		if !ok {
			return false, fmt.Errorf("cannot compare %s and %s", left.Kind(), right.Kind())
		}
		switch g.Op {
		case OpLessThan:
			return cmp < 0, nil
		case OpLessOrEqual:
			return cmp <= 0, nil
		case OpGreaterThan:
			return cmp > 0, nil
		default: // OpGreaterOrEqual
			return cmp >= 0, nil
		}
	default:
		return false, fmt.Errorf("unknown guard operator %q", g.Op)
	}
}

// ModuleInvocation is a compiled `use`/`input` pair.
type ModuleInvocation struct {
	Module string
	Input  evaluator.CompiledExpr
}

// ModuleDispatcher is the narrow capability StepWorker needs from the
// modules host (package moduleshost) to invoke a module by name. Defined
// here, not in moduleshost, so pipeline never imports moduleshost; the
// host is wired in by the caller (package phlow's Engine).
type ModuleDispatcher interface {
	// Invoke sends the step's evaluated input value to the named module
	// and blocks for exactly one reply.
	Invoke(ctx context.Context, pipelineID int, stepID string, module string, input value.Value) (value.Value, error)
}

// StepWorker is the compiled form of one document step.
type StepWorker struct {
	ID      string
	Guard   *Guard
	Payload evaluator.CompiledExpr
	Return  evaluator.CompiledExpr
	Use     *ModuleInvocation
	Then    *int
	Else    *int
}

// OutcomeKind classifies what the executor should do after a step runs.
type OutcomeKind uint8

const (
	OutcomeContinue OutcomeKind = iota
	OutcomeJump
	OutcomeReturn
)

// Outcome is the result of executing one StepWorker.
type Outcome struct {
	Kind  OutcomeKind
	Jump  int
	Value value.Value
}

// Execute runs the step against ctx, per the six-step contract in spec
// §4.2. pipelineID is used only for error/event context.
func (s *StepWorker) Execute(ctx context.Context, dispatcher ModuleDispatcher, pipelineID int, fc *flowctx.Context) (Outcome, error) {
	var guardResult *bool

	if s.Guard != nil {
		bindings := fc.Bindings()
		result, err := s.Guard.Eval(bindings)
		if err != nil {
			return Outcome{}, &phlowerr.EvalError{StepID: s.ID, PipelineID: pipelineID, Cause: err}
		}
		guardResult = &result
		if !result {
			return s.branchOutcome(false), nil
		}
	}

	var (
		payloadSet   bool
		moduleCalled bool
	)

	if s.Use != nil {
		input, err := s.Use.Input.Eval(fc.Bindings())
		if err != nil {
			return Outcome{}, &phlowerr.EvalError{StepID: s.ID, PipelineID: pipelineID, Cause: err}
		}
		resp, err := dispatcher.Invoke(ctx, pipelineID, s.ID, s.Use.Module, input)
		if err != nil {
			return Outcome{}, err
		}
		fc.Input = resp
		moduleCalled = true
	}

	if s.Payload != nil {
		v, err := s.Payload.Eval(fc.Bindings())
		if err != nil {
			return Outcome{}, &phlowerr.EvalError{StepID: s.ID, PipelineID: pipelineID, Cause: err}
		}
		fc.Payload = v
		payloadSet = true
	}

	effective := s.effectiveOutput(payloadSet, moduleCalled, guardResult, fc)
	if s.ID != "" {
		fc.RecordStep(s.ID, effective)
	}

	if s.Return != nil {
		v, err := s.Return.Eval(fc.Bindings())
		if err != nil {
			return Outcome{}, &phlowerr.EvalError{StepID: s.ID, PipelineID: pipelineID, Cause: err}
		}
		return Outcome{Kind: OutcomeReturn, Value: v}, nil
	}

	if guardResult != nil {
		return s.branchOutcome(true), nil
	}

	return Outcome{Kind: OutcomeContinue}, nil
}

// effectiveOutput computes the "effective step output" recorded for this
// step: payload if evaluated this step, else input if a module was
// invoked, else the guard's boolean, else null.
func (s *StepWorker) effectiveOutput(payloadSet, moduleCalled bool, guardResult *bool, fc *flowctx.Context) value.Value {
	switch {
	case payloadSet:
		return fc.Payload
	case moduleCalled:
		return fc.Input
	case guardResult != nil:
		return value.Bool(*guardResult)
	default:
		return value.Null
	}
}

// branchOutcome resolves a guard's true/false result into a Jump (when the
// corresponding branch target is set) or Continue (fall through to the
// next step in the current pipeline when the taken side has no target).
func (s *StepWorker) branchOutcome(guardTrue bool) Outcome {
	target := s.Else
	if guardTrue {
		target = s.Then
	}
	if target != nil {
		return Outcome{Kind: OutcomeJump, Jump: *target}
	}
	return Outcome{Kind: OutcomeContinue}
}
