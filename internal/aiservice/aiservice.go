// Package aiservice declares the AiService collaborator spec.md §4.6/§6.3
// leaves as an injected, out-of-core-scope dependency (the real client
// would speak to an OpenAI-compatible HTTP endpoint). Only the interface
// and a deterministic null implementation for tests live here.
package aiservice

import "context"

// ChatMessage is one turn of a chat completion request/response.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatRequest is the plugin-facing chat completion request shape.
type ChatRequest struct {
	Model     string
	Messages  []ChatMessage
	MaxTokens int
}

// ChatChoice is one candidate completion.
type ChatChoice struct {
	Message      ChatMessage
	FinishReason string
}

// ChatUsage reports token accounting for a completion.
type ChatUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatResponse is the plugin-facing chat completion response shape.
type ChatResponse struct {
	ID      string
	Object  string
	Created int64
	Model   string
	Choices []ChatChoice
	Usage   ChatUsage
}

// Service is the collaborator the Host API Broker's "ai" import delegates
// to once a capability check passes (spec.md §4.6). pluginID is threaded
// through per SPEC_FULL §C.4 so an implementation can meter usage per
// plugin, mirroring the original host's
// `ai_service.chat_completion(&self.plugin_id, request)`.
type Service interface {
	ChatCompletion(ctx context.Context, pluginID string, req ChatRequest) (ChatResponse, error)
	ListModels(ctx context.Context, pluginID string) ([]string, error)
}

// Null is a Service that always fails chat completion and reports no
// models — the broker's own capability-denial and empty-vector-on-failure
// behavior (spec.md §4.6) already prevents this from being visible to a
// plugin unless it truly has no provider wired in.
type Null struct{}

func (Null) ChatCompletion(context.Context, string, ChatRequest) (ChatResponse, error) {
	return ChatResponse{}, errAIUnavailable
}

func (Null) ListModels(context.Context, string) ([]string, error) {
	return nil, errAIUnavailable
}

var errAIUnavailable = errUnavailable("AI functionality is not available")

type errUnavailable string

func (e errUnavailable) Error() string { return string(e) }
