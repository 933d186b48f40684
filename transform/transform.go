// Package transform normalizes a nested step document into a flat,
// index-addressed PipelineMap. Every then/else subtree is hoisted into
// its own pipeline and the branch field rewritten to that pipeline's
// integer id; children are emitted before parents, so the root pipeline
// always ends up with the largest id.
package transform

import (
	"fmt"

	"github.com/lowcarboncode/phlow/value"
)

// maxDepth bounds recursive descent into then/else subtrees. Go goroutine
// stacks grow automatically, so a hand-rolled explicit-stack walker buys
// little extra safety over a depth counter; this cap turns runaway nesting
// into an error from Normalize (which phlow.Build reports as a LoadError)
// instead of a crash.
const maxDepth = 10000

// RawPipelines is the output of Normalize: pipelines in emission order,
// each a value.Array of step objects with integer then/else ids already
// substituted. The root pipeline is the last entry (len(RawPipelines)-1).
type RawPipelines []value.Value

// Normalize walks the given step tree (an object with a "steps" array, an
// array of step objects, or a single leaf step object) and returns the
// hoisted pipeline list plus the root pipeline's id.
func Normalize(node value.Value) (RawPipelines, int, error) {
	var out RawPipelines
	rootID, err := normalize(node, 0, &out)
	if err != nil {
		return nil, 0, err
	}
	return out, rootID, nil
}

func normalize(node value.Value, depth int, out *RawPipelines) (int, error) {
	if depth > maxDepth {
		return 0, fmt.Errorf("transform: step tree exceeds max nesting depth (%d)", maxDepth)
	}

	switch node.Kind() {
	case value.KindObject:
		prelude := node.Without("steps")
		prelude, err := rewriteBranches(prelude, depth, out)
		if err != nil {
			return 0, err
		}

		var steps []value.Value
		if prelude.Len() > 0 {
			steps = append(steps, prelude)
		}

		if stepsVal, ok := node.Get("steps"); ok && stepsVal.Kind() == value.KindArray {
			for _, step := range stepsVal.Items() {
				rewritten, err := rewriteBranches(step, depth, out)
				if err != nil {
					return 0, err
				}
				steps = append(steps, rewritten)
			}
		}

		*out = append(*out, value.Array(steps...))
		return len(*out) - 1, nil

	case value.KindArray:
		var steps []value.Value
		for _, step := range node.Items() {
			if step.Kind() != value.KindObject {
				continue
			}
			rewritten, err := rewriteBranches(step, depth, out)
			if err != nil {
				return 0, err
			}
			steps = append(steps, rewritten)
		}
		*out = append(*out, value.Array(steps...))
		return len(*out) - 1, nil

	default:
		return 0, fmt.Errorf("transform: expected an object or array step node, got %s", node.Kind())
	}
}

// rewriteBranches replaces a step's then/else subtree (if present) with the
// integer PipelineId produced by hoisting it via normalize. Non-object
// steps pass through unchanged (there is nothing to rewrite).
func rewriteBranches(step value.Value, depth int, out *RawPipelines) (value.Value, error) {
	if step.Kind() != value.KindObject {
		return step, nil
	}

	result := step
	if thenVal, ok := step.Get("then"); ok {
		pid, err := normalize(thenVal, depth+1, out)
		if err != nil {
			return value.Null, err
		}
		result = result.Set("then", value.Number(float64(pid)))
	}
	if elseVal, ok := step.Get("else"); ok {
		pid, err := normalize(elseVal, depth+1, out)
		if err != nil {
			return value.Null, err
		}
		result = result.Set("else", value.Number(float64(pid)))
	}
	return result, nil
}
