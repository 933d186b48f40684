// Package moduleshost loads dynamically-linked modules and dispatches
// pipeline `use` invocations to them. It adapts a dlopen-and-resolve-a-
// symbol ABI to Go's standard library plugin package: Go's plugin.Lookup
// only resolves exported (capitalized) symbols, so the well-known entry
// point is named Plugin, not plugin. Everything else, the one-shot
// handshake, the per-module package channel, the main-module bridge,
// the worker state machine, follows the same contract a subprocess-based
// module host would. The package channel is created by the module itself
// and its capacity is the module's choice; the reference log module's is
// unbuffered, so a send blocks until the worker receives it. The host
// does not supply an unbounded channel.
package moduleshost

import (
	"context"

	"github.com/lowcarboncode/phlow/tracing"
	"github.com/lowcarboncode/phlow/value"
)

// ModuleID identifies a loaded module.
type ModuleID int

// State is a module worker's lifecycle state, from the host's point of
// view: Uninitialized -> AwaitingHandshake -> Ready -> Serving* ->
// Shutdown. AwaitingHandshake -> Ready happens when the
// one-shot setup channel resolves with a non-nil sender; resolving with
// nil leaves the module passive (main-only or fire-and-forget): the host
// records no entry for it, so it is never in the dispatch table.
type State int

const (
	StateUninitialized State = iota
	StateAwaitingHandshake
	StateReady
	StateServing
	StateShutdown
	StatePassive
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAwaitingHandshake:
		return "awaiting_handshake"
	case StateReady:
		return "ready"
	case StateServing:
		return "serving"
	case StateShutdown:
		return "shutdown"
	case StatePassive:
		return "passive"
	default:
		return "unknown"
	}
}

// ModulePackage is one request delivered to a module's channel: the
// step's evaluated input value, and a one-shot reply channel the module must send
// exactly one Value to (or close/drop, which the host treats as
// ModuleError{Kind: ModuleErrorDropped}).
type ModulePackage struct {
	Context context.Context
	Input   value.Value
	Reply   chan<- ModuleReply
}

// ModuleReply is what a module sends back on ModulePackage.Reply.
type ModuleReply struct {
	Value value.Value
	Err   error
}

// RootRequest is what the main module sends upstream through
// ModuleSetup.MainSender to trigger a fresh run of the root pipeline.
type RootRequest struct {
	RequestData value.Value
	Send        chan<- value.Value
	Origin      ModuleID
}

// ModuleSetup is handed to a module's Plugin entry point exactly once,
// at load time.
type ModuleSetup struct {
	ID          ModuleID
	With        value.Value
	SetupSender chan<- chan<- ModulePackage
	MainSender  chan<- RootRequest
	Dispatch    *tracing.Provider
}

// IsMain reports whether this module was designated the main module.
func (s ModuleSetup) IsMain() bool {
	return s.MainSender != nil
}

// Plugin is the symbol every module shared object must export (Go's
// plugin ABI only resolves exported identifiers).
type Plugin func(setup ModuleSetup)
