package abi

import "encoding/json"

// HookKind is the dispatch kind of a hook: filters may mutate their payload,
// actions are fire-and-forget observers. See spec.md §3 HookDef.kind.
type HookKind int

const (
	KindFilter HookKind = iota
	KindAction
)

func (k HookKind) String() string {
	if k == KindAction {
		return "action"
	}
	return "filter"
}

// Event is the tagged union crossing the host/plugin boundary (spec.md §9
// "Polymorphism over hooks"): one Hook name selects which payload variant
// Payload holds. A plugin's handle_filter/handle_action export receives the
// JSON-encoded Payload and, for filters, returns a replacement JSON payload
// of the same variant. Unknown Hook values are untouched by filters and
// ignored by actions — this is what lets new hooks ship without breaking
// plugins built against an older host.
type Event struct {
	Hook    string          `json:"hook"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals a typed payload into an Event envelope.
func NewEvent(hook string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Hook: hook, Payload: raw}, nil
}

// Decode unmarshals the event payload into dst.
func (e Event) Decode(dst any) error {
	return json.Unmarshal(e.Payload, dst)
}

// PostPublishedPayload is the payload for "post_published_filter".
type PostPublishedPayload struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category,omitempty"`
	AuthorID int64  `json:"author_id"`
}

// UserCreatedPayload is the payload for "action_user_created".
type UserCreatedPayload struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UserLoginPayload is the payload for "action_user_login".
type UserLoginPayload struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	RemoteIP  string `json:"remote_ip,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// AuthenticatePayload is the payload for "filter_authenticate".
type AuthenticatePayload struct {
	Username string `json:"username"`
	Token    string `json:"token,omitempty"`
	Allow    bool   `json:"allow"`
	Reason   string `json:"reason,omitempty"`
}

// SystemPayload is the (empty) payload for the system lifecycle action hooks.
type SystemPayload struct {
	Reason string `json:"reason,omitempty"`
}
