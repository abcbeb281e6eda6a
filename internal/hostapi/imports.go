package hostapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/goagain/reglet-host/internal/aiservice"
	"github.com/goagain/reglet-host/internal/permission"
	"github.com/goagain/reglet-host/internal/sandbox"
)

// Brokers bundles every host-facing broker that a plugin import namespace
// exposes (spec.md §4.6). A nil broker field simply omits that namespace's
// functions from the built module, rather than registering a stub — a
// plugin that calls an unwired import fails the same way it would against
// any other undefined WASM import.
type Brokers struct {
	Logger      *LoggerBroker
	Metrics     *MetricsBroker
	AI          *AiBroker
	Posts       *PostsBroker
	Permissions PermissionsBroker
}

// NewHostImportBuilder adapts Brokers into a sandbox.HostImportBuilder: the
// closure sandbox.Module.Instantiate calls once per invocation to build the
// single "host" import module, whose logger_*, metrics_*, ai_*, posts_* and
// permissions_* functions are bound to that invocation's HostState (spec.md §5, "every invocation gets
// its own capability-filtered host imports"). Grounded on the packed-pointer
// convention internal/sandbox.Engine already uses in the plugin->host
// direction; the same (ptr<<32|len) shape carries host->plugin structured
// data here.
func NewHostImportBuilder(b Brokers) sandbox.HostImportBuilder {
	return func(ctx context.Context, rt wazero.Runtime, hostState any) (*wazero.HostModuleBuilder, error) {
		state, ok := hostState.(HostState)
		if !ok {
			return nil, fmt.Errorf("hostapi: unexpected host state type %T", hostState)
		}

		builder := rt.NewHostModuleBuilder("host")

		if b.Logger != nil {
			builder.NewFunctionBuilder().
				WithFunc(func(ctx context.Context, mod api.Module, level int32, msgPtr, msgLen uint32) {
					msg := readString(mod, msgPtr, msgLen)
					b.Logger.Log(state.PluginID, LogLevel(level), msg)
				}).
				Export("logger_log")
		}

		if b.Metrics != nil {
			builder.NewFunctionBuilder().
				WithFunc(func(ctx context.Context, mod api.Module, reqPtr, reqLen uint32) {
					var req metricEmitRequest
					if !readJSON(mod, reqPtr, reqLen, &req) {
						return
					}
					b.Metrics.Emit(state.PluginID, req.Name, req.Kind, req.Value, req.Labels)
				}).
				Export("metrics_emit")
		}

		if b.AI != nil {
			builder.NewFunctionBuilder().
				WithFunc(func(ctx context.Context, mod api.Module, reqPtr, reqLen uint32) uint64 {
					var req aiservice.ChatRequest
					if !readJSON(mod, reqPtr, reqLen, &req) {
						return writeJSONOrZero(ctx, mod, aiChatResult{Err: "malformed request"})
					}
					resp, errMsg := b.AI.ChatCompletion(ctx, state.PluginID, state.Granted, req)
					return writeJSONOrZero(ctx, mod, aiChatResult{Response: resp, Err: errMsg})
				}).
				Export("ai_chat_completion")

			builder.NewFunctionBuilder().
				WithFunc(func(ctx context.Context, mod api.Module) uint64 {
					models := b.AI.ListModels(ctx, state.PluginID, state.Granted)
					return writeJSONOrZero(ctx, mod, models)
				}).
				Export("ai_list_models")
		}

		if b.Posts != nil {
			builder.NewFunctionBuilder().
				WithFunc(func(ctx context.Context, mod api.Module) uint64 {
					categories, err := b.Posts.ListCategories(ctx, state.Granted)
					if err != nil {
						return writeJSONOrZero(ctx, mod, postsResult{Err: err.Error()})
					}
					return writeJSONOrZero(ctx, mod, postsResult{Categories: categories})
				}).
				Export("posts_list_categories")
		}

		builder.NewFunctionBuilder().
			WithFunc(func(ctx context.Context, mod api.Module) uint64 {
				return writeJSONOrZero(ctx, mod, b.Permissions.List(state.Granted))
			}).
			Export("permissions_list")

		builder.NewFunctionBuilder().
			WithFunc(func(ctx context.Context, mod api.Module, capPtr, capLen uint32) uint32 {
				capability := readString(mod, capPtr, capLen)
				if b.Permissions.Granted(state.Granted, capability) {
					return 1
				}
				return 0
			}).
			Export("permissions_granted")

		return builder, nil
	}
}

type metricEmitRequest struct {
	Name   string            `json:"name"`
	Kind   MetricKind        `json:"kind"`
	Value  MetricValue       `json:"value"`
	Labels map[string]string `json:"labels"`
}

type aiChatResult struct {
	Response aiservice.ChatResponse `json:"response"`
	Err      string                 `json:"error,omitempty"`
}

type postsResult struct {
	Categories []string `json:"categories"`
	Err        string   `json:"error,omitempty"`
}

func readString(mod api.Module, ptr, length uint32) string {
	data, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return ""
	}
	return string(data)
}

func readJSON(mod api.Module, ptr, length uint32, out any) bool {
	data, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

// writeJSONOrZero marshals v and writes it into the plugin's own memory,
// returning the packed (ptr<<32|len) result a plugin-facing import is
// expected to hand back. A marshal or allocation failure returns 0 rather
// than panicking across the WASM boundary — the plugin sees an empty
// response, consistent with the brokers' own never-trap contract.
func writeJSONOrZero(ctx context.Context, mod api.Module, v any) uint64 {
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	ptr, err := sandbox.WriteToMemory(ctx, mod, data)
	if err != nil {
		return 0
	}
	return sandbox.Pack(ptr, uint32(len(data)))
}
