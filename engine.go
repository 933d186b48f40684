// Package phlow ties the whole pipeline engine together: it loads a
// document (package config), normalizes it (package transform), compiles
// it (package pipeline), loads its modules (package moduleshost), and
// runs it. A Build-from-config constructor returns a ready-to-run Engine
// value, narrowed to Phlow's single-document, single-PipelineMap scope.
package phlow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lowcarboncode/phlow/config"
	"github.com/lowcarboncode/phlow/evaluator/exprlang"
	"github.com/lowcarboncode/phlow/flowctx"
	"github.com/lowcarboncode/phlow/moduleshost"
	"github.com/lowcarboncode/phlow/phlowerr"
	"github.com/lowcarboncode/phlow/pipeline"
	"github.com/lowcarboncode/phlow/tracing"
	"github.com/lowcarboncode/phlow/transform"
	"github.com/lowcarboncode/phlow/value"
)

// Engine is a compiled, loaded Phlow document ready to run.
type Engine struct {
	pipelines *pipeline.Map
	host      *moduleshost.Host
	mainName  string
	logger    *slog.Logger
}

// Options configures Build.
type Options struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Tracing is injected into every module's ModuleSetup.Dispatch. Nil
	// is valid: modules receive a nil handle and skip tracing.
	Tracing *tracing.Provider
	// ModulesDir overrides where module binaries resolve from; default
	// is "phlow_modules" relative to the working directory.
	ModulesDir string
}

// Build loads the document at target (a file or directory), compiles it,
// and loads its modules.
func Build(target string, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	doc, err := config.Load(target)
	if err != nil {
		return nil, err
	}

	raw, rootID, err := transform.Normalize(doc.Steps)
	if err != nil {
		return nil, &phlowerr.LoadError{Reason: "normalize document", Cause: err}
	}

	pipelines, err := pipeline.Compile(raw, rootID, exprlang.New())
	if err != nil {
		return nil, err
	}

	declared := make(map[string]bool, len(doc.Modules))
	for _, decl := range doc.Modules {
		declared[decl.Name] = true
	}
	for _, used := range pipelines.ModuleNames() {
		if !declared[used] {
			return nil, &phlowerr.LoadError{Reason: fmt.Sprintf("step uses undeclared module %q", used)}
		}
	}

	host := moduleshost.New(opts.Tracing)
	modulesDir := opts.ModulesDir
	if modulesDir == "" {
		modulesDir = "phlow_modules"
	}

	for _, decl := range doc.Modules {
		isMain := decl.Name == doc.Main
		path := modulePath(modulesDir, decl.Module)
		if err := host.LoadFile(path, decl.Name, decl.With, isMain); err != nil {
			return nil, err
		}
		logger.Info("loaded module", "name", decl.Name, "module", decl.Module, "main", isMain)
	}

	return &Engine{pipelines: pipelines, host: host, mainName: doc.Main, logger: logger}, nil
}

func modulePath(dir, module string) string {
	return fmt.Sprintf("%s/%s/module.so", dir, module)
}

// Run executes the root pipeline (pipelines.RootID, the last one transform
// emits) once against params, without involving a main module. Used for
// one-shot invocations and in tests: the engine is otherwise idle when
// there is no main module and runs the root pipeline once on startup.
func (e *Engine) Run(ctx context.Context, params value.Value) (value.Value, error) {
	fc := flowctx.New(params)
	return pipeline.Run(ctx, e.pipelines, e.pipelines.RootID, fc, e.host)
}

// Serve blocks, answering every RootRequest the main module produces by
// running the root pipeline and fulfilling the request's reply channel. It
// returns when ctx is cancelled.
func (e *Engine) Serve(ctx context.Context) error {
	if e.mainName == "" {
		return fmt.Errorf("phlow: Serve called without a main module")
	}
	for {
		select {
		case <-ctx.Done():
			e.host.Shutdown()
			return ctx.Err()
		case req := <-e.host.RootRequests():
			go e.handleRootRequest(ctx, req)
		}
	}
}

func (e *Engine) handleRootRequest(ctx context.Context, req moduleshost.RootRequest) {
	fc := flowctx.New(req.RequestData)
	result, err := pipeline.Run(ctx, e.pipelines, e.pipelines.RootID, fc, e.host)
	if err != nil {
		e.logPipelineError(err)
		result = value.NewObject().Set("error", value.NewObject().Set("message", value.String(err.Error())))
	}
	// The pipeline run is already complete; a cancelled ctx here only means
	// the caller that would have received result has gone away, so don't
	// let a send nobody reads block this goroutine past the run itself.
	select {
	case req.Send <- result:
	case <-ctx.Done():
		e.logger.Warn("root request caller gone, dropping result", "origin", req.Origin)
	}
}

// logPipelineError logs a failed pipeline run, attaching step_id/
// pipeline_id attributes when the error carries them.
func (e *Engine) logPipelineError(err error) {
	var evalErr *phlowerr.EvalError
	var modErr *phlowerr.ModuleError
	switch {
	case errors.As(err, &evalErr):
		e.logger.Error("pipeline run failed", "error", err, "step_id", evalErr.StepID, "pipeline_id", evalErr.PipelineID)
	case errors.As(err, &modErr):
		e.logger.Error("pipeline run failed", "error", err, "step_id", modErr.StepID, "pipeline_id", modErr.PipelineID, "module", modErr.Module)
	default:
		e.logger.Error("pipeline run failed", "error", err)
	}
}

// HasMain reports whether the document designated a main module.
func (e *Engine) HasMain() bool {
	return e.mainName != ""
}

// Shutdown marks every loaded module's worker as shut down.
func (e *Engine) Shutdown() {
	e.host.Shutdown()
}
