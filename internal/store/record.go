// Package store defines the durable persistence boundary the plugin
// registry depends on (spec.md §4.3): plugin metadata, lifecycle status, and
// capability grants. The core treats Store as an interface only; memstore
// backs tests, sqlstore is the reference relational implementation.
package store

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state persisted on a PluginRecord (spec.md §3).
type Status string

const (
	StatusDisabled      Status = "disabled"
	StatusPendingReview Status = "pending_review"
	StatusEnabled       Status = "enabled"
)

// Record is the durable row for one installed plugin (spec.md §3
// PluginRecord). One row exists per plugin_id; Version tracks the currently
// installed archive (spec.md's §9 open question leaves upgrade-in-place out
// of scope, so Version never changes for a given plugin_id today).
type Record struct {
	PluginID             string
	Version              string
	Name                 string
	Description          string
	Status               Status
	ManifestJSON         []byte
	GrantedCapabilities  []string
	Config               []byte // opaque, reserved for plugin configuration
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Enabled is derived, never stored directly: spec.md §3 "enabled ⇔ status =
// enabled".
func (r Record) Enabled() bool {
	return r.Status == StatusEnabled
}

// ErrNotFound is returned by Get/GetByVersion when no matching record
// exists.
var ErrNotFound = errors.New("plugin record not found")

// ErrAlreadyExists is returned by Insert when plugin_id collides.
var ErrAlreadyExists = errors.New("plugin_id already has a persisted record")

// Store is the persistence interface the Plugin Registry depends on
// (spec.md §4.3). Every method is scoped by a context so SQL-backed
// implementations can honor caller cancellation/timeouts per the suspension
// points named in spec.md §5.
type Store interface {
	Insert(ctx context.Context, record Record) error
	Get(ctx context.Context, pluginID string) (Record, error)
	GetByVersion(ctx context.Context, pluginID, version string) (Record, error)
	ListEnabled(ctx context.Context) ([]Record, error)
	ListAll(ctx context.Context) ([]Record, error)
	Update(ctx context.Context, record Record) error
	Delete(ctx context.Context, pluginID string) error
}
