package hostapi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goagain/reglet-host/internal/aiservice"
	"github.com/goagain/reglet-host/internal/permission"
)

// AiBroker backs the plugin-facing "ai" import: chat_completion(request)
// and list_models(). Both require a capability; denial is returned as a
// typed ABI value, never a trap (spec.md §4.6, §8 scenario S6). Grounded on
// the original host's ai.rs, including its asymmetric failure shapes:
// chat_completion surfaces an error string, list_models swallows both
// denial and downstream failure into an empty slice.
type AiBroker struct {
	service aiservice.Service
	logger  *slog.Logger
}

// NewAiBroker wires the broker to an AiService implementation.
func NewAiBroker(service aiservice.Service, logger *slog.Logger) *AiBroker {
	return &AiBroker{service: service, logger: logger}
}

// ChatCompletion implements "ai.chat_completion". On missing capability or
// an unavailable service it returns a descriptive error string rather than
// calling the collaborator — AiService.ChatCompletion is provably not
// invoked in either case (spec.md §8 invariant 7, "Capability isolation").
func (b *AiBroker) ChatCompletion(ctx context.Context, pluginID string, granted permission.Set, req aiservice.ChatRequest) (aiservice.ChatResponse, string) {
	if !granted.Granted("ai:chat") {
		return aiservice.ChatResponse{}, fmt.Sprintf("plugin %q does not have 'ai:chat' permission", pluginID)
	}
	if b.service == nil {
		return aiservice.ChatResponse{}, "AI functionality is not available"
	}
	resp, err := b.service.ChatCompletion(ctx, pluginID, req)
	if err != nil {
		return aiservice.ChatResponse{}, err.Error()
	}
	return resp, ""
}

// ListModels implements "ai.list_models". Per spec.md §4.6, absence of the
// capability or a downstream failure both yield an empty slice — not an
// error — which the original host's list_models implements identically.
func (b *AiBroker) ListModels(ctx context.Context, pluginID string, granted permission.Set) []string {
	if !granted.Granted("ai:list_models") || b.service == nil {
		return nil
	}
	models, err := b.service.ListModels(ctx, pluginID)
	if err != nil {
		b.logger.Debug("ai.list_models downstream failure, returning empty list",
			slog.String("plugin_id", pluginID), slog.Any("error", err))
		return nil
	}
	return models
}
