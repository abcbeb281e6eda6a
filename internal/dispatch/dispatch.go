// Package dispatch implements the two hook pipelines spec.md §4.7 describes:
// a filter chain that aborts on the first plugin error or trap, and an
// action fan-out that logs and swallows failures so one plugin never blocks
// another. Both pipelines snapshot the plugin list before running so a
// concurrent enable/disable never races with an in-flight dispatch
// (spec.md §5).
package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/goagain/reglet-host/internal/abi"
	"github.com/goagain/reglet-host/internal/hookregistry"
	"github.com/goagain/reglet-host/internal/hostapi"
	"github.com/goagain/reglet-host/internal/pluginregistry"
	"github.com/goagain/reglet-host/internal/sandbox"
)

const (
	exportHandleFilter = "handle_filter"
	exportHandleAction = "handle_action"
)

// registryView is the slice of *pluginregistry.Registry the Dispatcher
// depends on, kept narrow so tests can supply a fake hook index without
// standing up a full Registry.
type registryView interface {
	PluginsForHook(hook string) []pluginregistry.Key
	Get(key pluginregistry.Key) (*pluginregistry.LoadedPlugin, bool)
}

// Dispatcher fires application events through enabled plugins in load order.
type Dispatcher struct {
	registry registryView
	cfg      Config
	logger   *slog.Logger
}

func New(registry registryView, cfg Config, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, cfg: cfg, logger: logger}
}

// DispatchFilter runs hook's filter pipeline over payload and returns the
// folded result, or the FilterError of whichever plugin aborted the chain
// (spec.md §4.7 "Filter pipeline").
func (d *Dispatcher) DispatchFilter(ctx context.Context, hook string, payload json.RawMessage) (json.RawMessage, error) {
	def, ok := hookregistry.Get(hook)
	if !ok {
		return nil, &errUnknownHook{hook: hook}
	}
	if def.Kind != abi.KindFilter {
		return nil, &errWrongKind{hook: hook, want: "filter"}
	}

	keys := d.registry.PluginsForHook(hook)
	current := payload
	for _, key := range keys {
		loaded, ok := d.registry.Get(key)
		if !ok {
			continue // disabled between snapshot and invocation; skip silently
		}
		out, err := d.invokeOne(ctx, hook, loaded, exportHandleFilter, current)
		if err != nil {
			return nil, &FilterError{PluginID: key.PluginID, Hook: hook, Cause: err}
		}
		var outcome abi.FilterOutcome
		if err := json.Unmarshal(out, &outcome); err != nil {
			return nil, &FilterError{PluginID: key.PluginID, Hook: hook, Cause: err}
		}
		if outcome.IsErr() {
			return nil, &FilterError{PluginID: key.PluginID, Hook: hook, Cause: errPluginReported(outcome.Err)}
		}
		current = outcome.Ok.Payload
	}
	return current, nil
}

// DispatchAction fires hook's action pipeline. Every plugin is invoked
// regardless of earlier failures; traps and errors are logged, never
// returned (spec.md §4.7 "Action pipeline").
func (d *Dispatcher) DispatchAction(ctx context.Context, hook string, payload json.RawMessage) error {
	def, ok := hookregistry.Get(hook)
	if !ok {
		return &errUnknownHook{hook: hook}
	}
	if def.Kind != abi.KindAction {
		return &errWrongKind{hook: hook, want: "action"}
	}

	for _, key := range d.registry.PluginsForHook(hook) {
		loaded, ok := d.registry.Get(key)
		if !ok {
			continue
		}
		if _, err := d.invokeOne(ctx, hook, loaded, exportHandleAction, payload); err != nil {
			d.logger.Warn("action plugin failed, continuing",
				slog.String("plugin_id", key.PluginID), slog.String("hook", hook), slog.Any("error", err))
		}
	}
	return nil
}

// invokeOne instantiates a fresh sandbox.Instance for one call and tears it
// down unconditionally afterward (spec.md §4.5 "never shared or pooled").
func (d *Dispatcher) invokeOne(ctx context.Context, hook string, loaded *pluginregistry.LoadedPlugin, export string, payload []byte) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.cfg.timeoutFor(hook))
	defer cancel()

	state := hostapi.HostState{PluginID: loaded.Key.PluginID, Granted: loaded.GrantedCapabilities}
	instance, err := loaded.Module.Instantiate(callCtx, state)
	if err != nil {
		return nil, err
	}
	defer instance.Close(context.WithoutCancel(ctx))

	out, err := instance.CallPacked(callCtx, export, payload)
	if err != nil {
		if callCtx.Err() != nil {
			return nil, &sandbox.Trap{Reason: sandbox.ErrTimeout.Error()}
		}
		return nil, err
	}
	return out, nil
}

type pluginError string

func (e pluginError) Error() string { return string(e) }

func errPluginReported(msg string) error { return pluginError(msg) }
