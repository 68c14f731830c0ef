// Package script defines the engine-agnostic scripting contract: the Script
// calling convention, the engine registry, and the native callback bridge.
// Interpreter backends live in subpackages and register themselves at init.
package script

import (
	"os"
	"time"

	"github.com/tmwgo/server/internal/core/handle"
	"go.uber.org/zap"
)

// Script wraps exactly one interpreter instance, owned by whichever native
// component created it. Calls follow a strict sequence:
//
//	Prepare(fn) -> PushInt/PushHandle* -> Execute
//
// Execute always resets the sequence, success or failure. Pushing or
// executing without a prepared call, preparing twice, or using the Script
// after Close is a programming error and panics. Interpreter-level failures
// never panic: Execute logs them and returns 0.
type Script interface {
	// Prepare begins a call to the named script-level function. An
	// unresolvable name is not an error here; the Execute that follows
	// fails gracefully.
	Prepare(fn string)

	// PushInt appends an integer argument to the pending call.
	PushInt(v int)

	// PushHandle appends an entity handle. The interpreter receives an
	// opaque token it can store indefinitely; it never sees a native
	// reference.
	PushHandle(h handle.Handle)

	// Execute runs the prepared call and returns its integer result, or 0
	// if the call failed (unresolved function, interpreter error,
	// non-numeric return, exhausted budget).
	Execute() int

	// Close tears down the interpreter instance. Exactly once.
	Close()
}

// Host is the environment the registry hands to backend loaders: the handle
// table scripts resolve against, the callback bridge to expose, and call
// policy. A zero CallTimeout means no budget.
type Host struct {
	Handles     *handle.Table
	Bridge      *Bridge
	Log         *zap.Logger
	CallTimeout time.Duration

	// ReadFile resolves a script path to its source. Defaults to
	// os.ReadFile; the resource-loading collaborator can override it.
	ReadFile func(path string) ([]byte, error)
}

func (h *Host) readFile(path string) ([]byte, error) {
	if h.ReadFile != nil {
		return h.ReadFile(path)
	}
	return os.ReadFile(path)
}

// Logger returns the host logger, or a no-op logger when unset.
func (h *Host) Logger() *zap.Logger {
	if h.Log != nil {
		return h.Log
	}
	return zap.NewNop()
}
