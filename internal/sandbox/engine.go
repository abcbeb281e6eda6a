// Package sandbox wraps tetratelabs/wazero to satisfy spec.md §4.5: bytecode
// is compiled once at enable-load time and cached as a Module; every
// dispatch gets a fresh, isolated Instance bound to that invocation's
// capability-filtered host state. Grounded on the packed-pointer calling
// convention used by reglet-dev's own wazero-based executor
// (other_examples/5b5e7963_reglet-dev-reglet-sdk__go-host-executor.go.go):
// a WASM export returns a single i64 that packs a (ptr<<32 | len) pair into
// the plugin's linear memory, from which the host reads the JSON payload.
package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// ResourceLimits bounds what one Instance may consume (spec.md §4.5).
// Fuel is a count of CallPacked calls on one Instance, checked in CallPacked
// itself, rather than a wazero-native instruction budget, since wazero
// (unlike wasmtime) does not meter instructions directly. Instructions
// executed inside a call and host-function calls made by the plugin are not
// counted.
type ResourceLimits struct {
	MemoryPages  uint32 // 64 KiB per page
	Fuel         uint64 // max CallPacked calls permitted per Instance
	StackDepth   uint32 // not passed to wazero; wazero applies its own fixed call-stack limit
}

// DefaultResourceLimits match the conservative defaults implied by spec.md's
// "configured fuel budget, configured maximum linear memory, configured call
// stack depth" language; hosts are expected to override via configuration.
var DefaultResourceLimits = ResourceLimits{
	MemoryPages: 256, // 16 MiB
	Fuel:        1_000_000,
	StackDepth:  512,
}

// Trap classifies an abort that is not the plugin's own reported error —
// resource exhaustion or a deadline the dispatcher imposed (spec.md §4.5,
// §7 "Trap(Timeout | ResourceExhausted)").
type Trap struct {
	Reason string
}

func (t *Trap) Error() string { return fmt.Sprintf("trap: %s", t.Reason) }

var (
	// ErrResourceExhausted's message is the Reason of the *Trap CallPacked
	// returns once an Instance exceeds its fuel budget. Trap does not wrap
	// it, so errors.Is does not match it.
	ErrResourceExhausted = errors.New("resource exhausted")
	// ErrTimeout's message is the Reason of the *Trap returned when a call's
	// context is done mid-invocation. Trap does not wrap it either.
	ErrTimeout = errors.New("invocation timed out")
)

// Module is a compiled plugin bytecode module, safe to share across
// concurrent invocations once built (spec.md: "the bytecode module is
// parsed once at enable-load and cached").
type Module struct {
	engine   *Engine
	compiled wazero.CompiledModule
}

// Engine owns the wazero runtime shared by every loaded plugin. One Engine
// is constructed per host process.
type Engine struct {
	runtime wazero.Runtime
	limits  ResourceLimits
	imports HostImportBuilder
}

// HostImportBuilder wires host functions into a module's import namespace
// for one invocation's HostState. Implemented by internal/hostapi.
type HostImportBuilder func(ctx context.Context, rt wazero.Runtime, state any) (*wazero.HostModuleBuilder, error)

// NewEngine constructs an Engine with the given resource limits and host
// import wiring function. Close must be called on shutdown to release the
// underlying wazero runtime.
func NewEngine(ctx context.Context, limits ResourceLimits, imports HostImportBuilder) (*Engine, error) {
	cfg := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(limits.MemoryPages).
		WithCloseOnContextDone(true)

	rt := wazero.NewRuntimeWithConfig(ctx, cfg)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("instantiating WASI preview1: %w", err)
	}

	return &Engine{runtime: rt, limits: limits, imports: imports}, nil
}

// Close releases the wazero runtime and every module compiled against it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// LoadModule parses and validates bytecode once (spec.md §4.5 load_module).
// This may take hundreds of milliseconds; callers invoke it on the enable
// path, never on the dispatch hot path.
func (e *Engine) LoadModule(ctx context.Context, bytecode []byte) (*Module, error) {
	compiled, err := e.runtime.CompileModule(ctx, bytecode)
	if err != nil {
		return nil, fmt.Errorf("compiling module: %w", err)
	}
	return &Module{engine: e, compiled: compiled}, nil
}

// Close releases the compiled module. Called when the owning LoadedPlugin
// is dropped (disable/uninstall).
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// Instance is one invocation's isolated execution context — constructed
// fresh per call, never shared or pooled (spec.md §4.5, §5 "each
// invocation's Instance is strictly owned by its task").
type Instance struct {
	module     api.Module
	hostModule api.Module // non-nil when the engine wires host imports; closed alongside module
	callCount  uint64
	limits     ResourceLimits
}

// Instantiate constructs an isolated instance bound to hostState, with the
// capability-filtered host imports the caller's HostImportBuilder provides.
// The host import module is named "host" on every call, so it must be
// closed before the next invocation's Instantiate runs — Instance.Close
// does this alongside the plugin module, keeping the namespace free for the
// next invocation's fresh HostState.
func (m *Module) Instantiate(ctx context.Context, hostState any) (*Instance, error) {
	var hostModule api.Module
	if m.engine.imports != nil {
		builder, err := m.engine.imports(ctx, m.engine.runtime, hostState)
		if err != nil {
			return nil, fmt.Errorf("building host imports: %w", err)
		}
		if builder != nil {
			hostModule, err = builder.Instantiate(ctx)
			if err != nil {
				return nil, fmt.Errorf("instantiating host import module: %w", err)
			}
		}
	}

	modCfg := wazero.NewModuleConfig().WithStartFunctions("_initialize")
	mod, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, modCfg)
	if err != nil {
		if hostModule != nil {
			_ = hostModule.Close(ctx)
		}
		return nil, fmt.Errorf("instantiating plugin module: %w", err)
	}

	return &Instance{module: mod, hostModule: hostModule, limits: m.engine.limits}, nil
}

// Close tears down the instance and reclaims its linear memory, along with
// the per-invocation host import module, if any.
func (i *Instance) Close(ctx context.Context) error {
	err := i.module.Close(ctx)
	if i.hostModule != nil {
		if hostErr := i.hostModule.Close(ctx); hostErr != nil && err == nil {
			err = hostErr
		}
	}
	return err
}

// CallPacked invokes an export taking either no arguments or a (ptr, len)
// pair, and returning a packed
// (ptr<<32 | len) i64 pointing at a JSON payload in the plugin's linear
// memory, per the host-SDK calling convention this engine is grounded on.
// If argPayload is non-nil, it is written into plugin memory via the
// plugin's exported "alloc" function before the call (the plugin is
// responsible for freeing it, or relying on wasm's per-instance teardown).
func (i *Instance) CallPacked(ctx context.Context, export string, argPayload []byte) ([]byte, error) {
	i.callCount++
	if i.limits.Fuel > 0 && i.callCount > i.limits.Fuel {
		return nil, &Trap{Reason: ErrResourceExhausted.Error()}
	}

	fn := i.module.ExportedFunction(export)
	if fn == nil {
		return nil, fmt.Errorf("plugin does not export %q", export)
	}

	var args []uint64
	if argPayload != nil {
		ptr, err := i.writeBytes(ctx, argPayload)
		if err != nil {
			return nil, err
		}
		args = []uint64{uint64(ptr), uint64(len(argPayload))}
	}

	results, err := fn.Call(ctx, args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &Trap{Reason: ErrTimeout.Error()}
		}
		return nil, fmt.Errorf("calling %q: %w", export, err)
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("export %q returned %d results, expected 1 packed i64", export, len(results))
	}

	ptr, length := unpack(results[0])
	data, ok := i.module.Memory().Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("export %q returned an out-of-bounds pointer", export)
	}
	out := make([]byte, length)
	copy(out, data)
	return out, nil
}

func unpack(v uint64) (ptr, length uint32) {
	return uint32(v >> 32), uint32(v)
}

func (i *Instance) writeBytes(ctx context.Context, payload []byte) (uint32, error) {
	allocFn := i.module.ExportedFunction("alloc")
	if allocFn == nil {
		return 0, fmt.Errorf("plugin does not export \"alloc\" required to pass an argument")
	}
	results, err := allocFn.Call(ctx, uint64(len(payload)))
	if err != nil {
		return 0, fmt.Errorf("calling alloc: %w", err)
	}
	ptr := uint32(results[0])
	if !i.module.Memory().Write(ptr, payload) {
		return 0, fmt.Errorf("writing argument payload into plugin memory")
	}
	return ptr, nil
}

func pack(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}

// Pack is pack's exported twin, for host functions (internal/hostapi) that
// themselves need to return a packed pointer to the calling plugin — the
// reverse direction of CallPacked, which must agree on the same bit layout.
func Pack(ptr, length uint32) uint64 {
	return pack(ptr, length)
}

// WriteToMemory allocates length bytes in mod's linear memory via its
// exported "alloc" function and copies payload into it, returning the
// pointer a packed result can reference. Used by host functions that marshal
// a response for the plugin to read back (internal/hostapi).
func WriteToMemory(ctx context.Context, mod api.Module, payload []byte) (uint32, error) {
	allocFn := mod.ExportedFunction("alloc")
	if allocFn == nil {
		return 0, fmt.Errorf("plugin does not export \"alloc\" required to receive a host response")
	}
	results, err := allocFn.Call(ctx, uint64(len(payload)))
	if err != nil {
		return 0, fmt.Errorf("calling alloc: %w", err)
	}
	ptr := uint32(results[0])
	if !mod.Memory().Write(ptr, payload) {
		return 0, fmt.Errorf("writing host response into plugin memory")
	}
	return ptr, nil
}
