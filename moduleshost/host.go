package moduleshost

import (
	"context"
	"fmt"
	"plugin"
	"sync"

	"github.com/lowcarboncode/phlow/phlowerr"
	"github.com/lowcarboncode/phlow/tracing"
	"github.com/lowcarboncode/phlow/value"
)

// pluginSymbol is the exported name every module .so must resolve.
const pluginSymbol = "Plugin"

// entry is the host's view of one loaded module.
type entry struct {
	id      ModuleID
	name    string
	state   State
	packets chan<- ModulePackage
}

// Host loads modules and dispatches `use` invocations to them. It
// implements pipeline.ModuleDispatcher.
type Host struct {
	dispatch *tracing.Provider

	mu      sync.RWMutex
	byName  map[string]*entry
	nextID  ModuleID
	rootReq chan RootRequest
}

// New creates an empty Host. dispatch may be nil, in which case modules
// receive a nil Dispatch handle and are expected to no-op on tracing.
func New(dispatch *tracing.Provider) *Host {
	return &Host{
		dispatch: dispatch,
		byName:   make(map[string]*entry),
		rootReq:  make(chan RootRequest),
	}
}

// RootRequests returns the channel the main module's bridge delivers
// RootRequest values on. The Engine reads from this channel for the
// process lifetime, running the root pipeline for each request.
func (h *Host) RootRequests() <-chan RootRequest {
	return h.rootReq
}

// LoadFile opens the shared object at path, resolves its Plugin symbol,
// and runs its setup handshake. name is how pipeline steps refer to it
// via `use`. isMain designates it as the module that drives the root
// pipeline.
func (h *Host) LoadFile(path, name string, with value.Value, isMain bool) error {
	p, err := plugin.Open(path)
	if err != nil {
		return &phlowerr.LoadError{Reason: fmt.Sprintf("open module %q", name), Cause: err}
	}
	sym, err := p.Lookup(pluginSymbol)
	if err != nil {
		return &phlowerr.LoadError{Reason: fmt.Sprintf("module %q missing %s symbol", name, pluginSymbol), Cause: err}
	}
	fn, ok := sym.(func(ModuleSetup))
	if !ok {
		return &phlowerr.LoadError{Reason: fmt.Sprintf("module %q: %s has the wrong signature", name, pluginSymbol)}
	}
	return h.run(name, with, isMain, fn)
}

// run performs the handshake for a module entry point, regardless of
// whether it came from a loaded .so (LoadFile) or was registered
// in-process (used by tests).
func (h *Host) run(name string, with value.Value, isMain bool, fn func(ModuleSetup)) error {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.mu.Unlock()

	setupCh := make(chan chan<- ModulePackage, 1)
	setup := ModuleSetup{
		ID:          id,
		With:        with,
		SetupSender: setupCh,
		Dispatch:    h.dispatch,
	}
	if isMain {
		setup.MainSender = h.rootReq
	}

	go fn(setup)

	packets, ok := <-setupCh
	if !ok || packets == nil {
		// Passive module: main-only or fire-and-forget, never entered
		// into the dispatch table.
		return nil
	}

	h.mu.Lock()
	h.byName[name] = &entry{id: id, name: name, state: StateReady, packets: packets}
	h.mu.Unlock()
	return nil
}

// Invoke implements pipeline.ModuleDispatcher: send the evaluated input
// value to the named module's channel and block for exactly one reply.
// Cancelling ctx stops delivery of a package the module has not yet
// received; once delivered, Invoke waits for the reply.
func (h *Host) Invoke(ctx context.Context, pipelineID int, stepID string, module string, input value.Value) (value.Value, error) {
	h.mu.RLock()
	e, ok := h.byName[module]
	h.mu.RUnlock()
	if !ok {
		return value.Null, &phlowerr.ModuleError{Module: module, StepID: stepID, PipelineID: pipelineID, Kind: phlowerr.ModuleErrorSentinel,
			Cause: fmt.Errorf("module %q is not loaded", module)}
	}

	reply := make(chan ModuleReply, 1)
	if err := safeSend(e.packets, ctx, ModulePackage{Context: ctx, Input: input, Reply: reply}); err != nil {
		return value.Null, &phlowerr.DispatchError{Module: module, Cause: err}
	}

	r, ok := <-reply
	if !ok {
		return value.Null, &phlowerr.ModuleError{Module: module, StepID: stepID, PipelineID: pipelineID, Kind: phlowerr.ModuleErrorDropped,
			Cause: fmt.Errorf("module %q closed its reply channel without sending", module)}
	}
	if r.Err != nil {
		return value.Null, &phlowerr.ModuleError{Module: module, StepID: stepID, PipelineID: pipelineID, Kind: phlowerr.ModuleErrorSentinel, Cause: r.Err}
	}
	return r.Value, nil
}

// safeSend delivers pkg to packets, reporting ctx cancellation as an error
// and recovering a send-on-closed-channel panic (a module worker that
// exited and closed its own packets channel) as an error too, so a gone
// worker surfaces a DispatchError instead of crashing the host.
func safeSend(packets chan<- ModulePackage, ctx context.Context, pkg ModulePackage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("module worker exited: %v", r)
		}
	}()
	select {
	case packets <- pkg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown marks every loaded module shut down. Module goroutines are
// expected to observe ctx cancellation on in-flight packages; the host
// itself holds no subprocess to kill.
func (h *Host) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.byName {
		e.state = StateShutdown
	}
}
