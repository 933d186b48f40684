package pipeline

import (
	"context"
	"fmt"

	"github.com/lowcarboncode/phlow/flowctx"
	"github.com/lowcarboncode/phlow/phlowerr"
	"github.com/lowcarboncode/phlow/value"
)

// Run executes pipelines[pipelineID] against fc, honoring Jump/Return.
// then/else are full continuations (a Jump replaces the rest of the
// current pipeline entirely; branch pipelines are never "returned from"
// into the parent). Tail jumps are resolved with a trampoline loop rather
// than Go call recursion, so long branch chains don't grow the call stack.
func Run(ctx context.Context, m *Map, pipelineID int, fc *flowctx.Context, dispatcher ModuleDispatcher) (value.Value, error) {
pipelines:
	for {
		if pipelineID < 0 || pipelineID >= len(m.Pipelines) {
			return value.Null, fmt.Errorf("pipeline: unknown pipeline id %d", pipelineID)
		}
		steps := m.Pipelines[pipelineID].Steps

		for i := 0; i < len(steps); i++ {
			select {
			case <-ctx.Done():
				return value.Null, &phlowerr.DispatchError{Cause: fmt.Errorf("pipeline %d cancelled: %w", pipelineID, ctx.Err())}
			default:
			}

			outcome, err := steps[i].Execute(ctx, dispatcher, pipelineID, fc)
			if err != nil {
				return value.Null, err
			}

			switch outcome.Kind {
			case OutcomeReturn:
				return outcome.Value, nil
			case OutcomeJump:
				pipelineID = outcome.Jump
				continue pipelines
			default: // OutcomeContinue
			}
		}

		// Pipeline produced no explicit Return: surface the current
		// payload (or null).
		return fc.Payload, nil
	}
}
