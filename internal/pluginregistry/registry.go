package pluginregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/goagain/reglet-host/internal/abi"
	"github.com/goagain/reglet-host/internal/archive"
	"github.com/goagain/reglet-host/internal/hookregistry"
	"github.com/goagain/reglet-host/internal/permission"
	"github.com/goagain/reglet-host/internal/sandbox"
	"github.com/goagain/reglet-host/internal/store"
)

// Registry owns the in-memory plugin catalog and hook index, and drives the
// install/enable/disable/uninstall lifecycle against a store.Store (spec.md
// §4.4). All mutation goes through the single rw-mutex named in spec.md §5:
// dispatch takes the read lock, lifecycle operations take the write lock.
type Registry struct {
	cfg    Config
	store  store.Store
	engine *sandbox.Engine
	logger *slog.Logger

	mu     sync.RWMutex
	loaded map[Key]*LoadedPlugin
	hooks  *hookIndex
}

// New constructs a Registry. engine is used to compile and instantiate
// plugin bytecode; it is typically shared process-wide.
func New(cfg Config, st store.Store, engine *sandbox.Engine, logger *slog.Logger) *Registry {
	if cfg.MaxConcurrentLoads <= 0 {
		cfg.MaxConcurrentLoads = 4
	}
	return &Registry{
		cfg:    cfg,
		store:  st,
		engine: engine,
		logger: logger,
		loaded: make(map[Key]*LoadedPlugin),
		hooks:  newHookIndex(),
	}
}

// EnableResult is returned by Enable and ApproveReview.
type EnableResult struct {
	RequiresReview bool
	Missing        []string
}

// Install validates and persists a new plugin archive (spec.md §4.4
// install()). It never loads bytecode; Enable does that.
func (r *Registry) Install(ctx context.Context, archiveBytes []byte) (abi.Manifest, permission.UpdateAnalysis, error) {
	files, err := archive.ReadArchive(archiveBytes, r.cfg.MaxUncompressedSize)
	if err != nil {
		return abi.Manifest{}, permission.UpdateAnalysis{}, fmt.Errorf("reading archive: %w", err)
	}
	pkg, err := archive.ValidatePackage(files, "", hookregistry.IsValid, hookregistry.IsValidCapability)
	if err != nil {
		return abi.Manifest{}, permission.UpdateAnalysis{}, fmt.Errorf("validating package: %w", err)
	}

	if _, err := r.store.Get(ctx, pkg.Manifest.Package.ID); err == nil {
		return abi.Manifest{}, permission.UpdateAnalysis{}, ErrAlreadyInstalled
	} else if err != store.ErrNotFound {
		return abi.Manifest{}, permission.UpdateAnalysis{}, fmt.Errorf("checking for existing record: %w", err)
	}

	archivePath := r.archivePath(pkg.Manifest.Package.ID, pkg.Manifest.Package.Version)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return abi.Manifest{}, permission.UpdateAnalysis{}, fmt.Errorf("creating install directory: %w", err)
	}
	if err := os.WriteFile(archivePath, archiveBytes, 0o644); err != nil {
		return abi.Manifest{}, permission.UpdateAnalysis{}, fmt.Errorf("caching archive: %w", err)
	}

	manifestJSON, err := json.Marshal(pkg.Manifest)
	if err != nil {
		return abi.Manifest{}, permission.UpdateAnalysis{}, fmt.Errorf("serializing manifest: %w", err)
	}

	now := time.Now()
	rec := store.Record{
		PluginID:     pkg.Manifest.Package.ID,
		Version:      pkg.Manifest.Package.Version,
		Name:         pkg.Manifest.Package.Name,
		Description:  pkg.Manifest.Package.Description,
		Status:       store.StatusDisabled,
		ManifestJSON: manifestJSON,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.store.Insert(ctx, rec); err != nil {
		_ = os.Remove(archivePath)
		return abi.Manifest{}, permission.UpdateAnalysis{}, fmt.Errorf("persisting plugin record: %w", err)
	}

	analysis := permission.AnalyzeInstall(pkg.Manifest.Permissions.Required, pkg.Manifest.Permissions.Optional)
	r.logger.Info("plugin installed", slog.String("plugin_id", rec.PluginID), slog.String("version", rec.Version))
	return pkg.Manifest, analysis, nil
}

// Enable loads an installed plugin's bytecode and indexes its hooks, or
// flags the record pending_review if the operator has not yet granted every
// required capability (spec.md §4.4 enable()).
func (r *Registry) Enable(ctx context.Context, pluginID string) (EnableResult, error) {
	rec, err := r.store.Get(ctx, pluginID)
	if err != nil {
		if err == store.ErrNotFound {
			return EnableResult{}, ErrNotInstalled
		}
		return EnableResult{}, fmt.Errorf("loading plugin record: %w", err)
	}
	if rec.Status != store.StatusDisabled && rec.Status != store.StatusPendingReview {
		return EnableResult{}, ErrInvalidLifecycleState
	}

	var manifest abi.Manifest
	if err := json.Unmarshal(rec.ManifestJSON, &manifest); err != nil {
		return EnableResult{}, fmt.Errorf("decoding stored manifest: %w", err)
	}

	granted := permission.NewSet(rec.GrantedCapabilities...)
	if !granted.Contains(manifest.Permissions.Required) {
		rec.Status = store.StatusPendingReview
		rec.UpdatedAt = time.Now()
		if err := r.store.Update(ctx, rec); err != nil {
			return EnableResult{}, fmt.Errorf("marking plugin pending review: %w", err)
		}
		return EnableResult{RequiresReview: true, Missing: granted.Missing(manifest.Permissions.Required)}, nil
	}

	loaded, err := r.loadBytecode(ctx, pluginID, rec.Version, granted, manifest)
	if err != nil {
		return EnableResult{}, fmt.Errorf("loading plugin bytecode: %w", err)
	}

	key := Key{PluginID: pluginID, Version: rec.Version}
	r.mu.Lock()
	r.replaceLoaded(key, loaded)
	r.mu.Unlock()

	rec.Status = store.StatusEnabled
	rec.UpdatedAt = time.Now()
	if err := r.store.Update(ctx, rec); err != nil {
		return EnableResult{}, fmt.Errorf("marking plugin enabled: %w", err)
	}

	r.logger.Info("plugin enabled", slog.String("plugin_id", pluginID),
		slog.Int("hooks_registered", len(loaded.RegisteredHooks)))
	return EnableResult{}, nil
}

// ApproveReview unions grantedCaps into the record's granted capabilities
// and retries Enable (spec.md §4.4 approve_review()).
func (r *Registry) ApproveReview(ctx context.Context, pluginID string, grantedCaps []string) (EnableResult, error) {
	rec, err := r.store.Get(ctx, pluginID)
	if err != nil {
		if err == store.ErrNotFound {
			return EnableResult{}, ErrNotInstalled
		}
		return EnableResult{}, fmt.Errorf("loading plugin record: %w", err)
	}

	union := permission.NewSet(rec.GrantedCapabilities...).Union(grantedCaps)
	rec.GrantedCapabilities = union.List()
	rec.UpdatedAt = time.Now()
	if err := r.store.Update(ctx, rec); err != nil {
		return EnableResult{}, fmt.Errorf("persisting approved grants: %w", err)
	}

	return r.Enable(ctx, pluginID)
}

// Disable unloads a plugin's LoadedPlugin and removes it from the hook
// index; in-flight invocations are unaffected because they hold their own
// *sandbox.Instance, independent of anything Disable touches (spec.md §4.4
// disable(), §5 "a disable taking effect during an invocation does not
// cancel it").
func (r *Registry) Disable(ctx context.Context, pluginID string) error {
	rec, err := r.store.Get(ctx, pluginID)
	if err != nil {
		if err == store.ErrNotFound {
			return ErrNotInstalled
		}
		return fmt.Errorf("loading plugin record: %w", err)
	}

	r.mu.Lock()
	r.unloadLocked(ctx, pluginID)
	r.mu.Unlock()

	rec.Status = store.StatusDisabled
	rec.UpdatedAt = time.Now()
	if err := r.store.Update(ctx, rec); err != nil {
		return fmt.Errorf("marking plugin disabled: %w", err)
	}
	r.logger.Info("plugin disabled", slog.String("plugin_id", pluginID))
	return nil
}

// Uninstall disables the plugin, then deletes its record and cached
// archive (spec.md §4.4 uninstall()).
func (r *Registry) Uninstall(ctx context.Context, pluginID string) error {
	rec, err := r.store.Get(ctx, pluginID)
	if err != nil {
		if err == store.ErrNotFound {
			return ErrNotInstalled
		}
		return fmt.Errorf("loading plugin record: %w", err)
	}

	if err := r.Disable(ctx, pluginID); err != nil && err != ErrNotInstalled {
		return err
	}
	if err := r.store.Delete(ctx, pluginID); err != nil {
		return fmt.Errorf("deleting plugin record: %w", err)
	}
	if err := os.Remove(r.archivePath(pluginID, rec.Version)); err != nil && !os.IsNotExist(err) {
		r.logger.Warn("failed to remove cached archive", slog.String("plugin_id", pluginID), slog.Any("error", err))
	}
	_ = os.RemoveAll(filepath.Join(r.cfg.CacheDir, pluginID))
	r.logger.Info("plugin uninstalled", slog.String("plugin_id", pluginID))
	return nil
}

// LoadAllEnabled loads every record in StatusEnabled at startup. A load
// failure flips that one record back to disabled and logs the cause rather
// than aborting startup (spec.md §4.4 load_all_enabled()).
func (r *Registry) LoadAllEnabled(ctx context.Context) error {
	records, err := r.store.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("listing enabled plugins: %w", err)
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(r.cfg.MaxConcurrentLoads)

	for _, rec := range records {
		rec := rec
		group.Go(func() error {
			if err := r.loadEnabledRecord(gctx, rec); err != nil {
				r.logger.Warn("failed to load enabled plugin at startup, disabling",
					slog.String("plugin_id", rec.PluginID), slog.Any("error", err))
				rec.Status = store.StatusDisabled
				rec.UpdatedAt = time.Now()
				if updateErr := r.store.Update(ctx, rec); updateErr != nil {
					r.logger.Warn("failed to persist forced-disable", slog.String("plugin_id", rec.PluginID), slog.Any("error", updateErr))
				}
			}
			return nil // never abort the group; each plugin's failure is independent
		})
	}
	return group.Wait()
}

func (r *Registry) loadEnabledRecord(ctx context.Context, rec store.Record) error {
	var manifest abi.Manifest
	if err := json.Unmarshal(rec.ManifestJSON, &manifest); err != nil {
		return fmt.Errorf("decoding stored manifest: %w", err)
	}
	granted := permission.NewSet(rec.GrantedCapabilities...)
	loaded, err := r.loadBytecode(ctx, rec.PluginID, rec.Version, granted, manifest)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.replaceLoaded(Key{PluginID: rec.PluginID, Version: rec.Version}, loaded)
	r.mu.Unlock()
	return nil
}

// loadBytecode re-reads the cached archive, compiles its bytecode, and
// validates each declared hook against the Hook Registry and the record's
// granted capabilities (spec.md §4.4 enable() step 3, §4.2 policy rule).
func (r *Registry) loadBytecode(ctx context.Context, pluginID, version string, granted permission.Set, manifest abi.Manifest) (*LoadedPlugin, error) {
	data, err := os.ReadFile(r.archivePath(pluginID, version))
	if err != nil {
		return nil, fmt.Errorf("reading cached archive: %w", err)
	}
	files, err := archive.ReadArchive(data, r.cfg.MaxUncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("re-reading archive: %w", err)
	}
	pkg, err := archive.ValidatePackage(files, pluginID, hookregistry.IsValid, hookregistry.IsValidCapability)
	if err != nil {
		return nil, fmt.Errorf("re-validating package: %w", err)
	}

	module, err := r.engine.LoadModule(ctx, pkg.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("compiling bytecode: %w", err)
	}

	var registered []string
	for _, hook := range manifest.Hooks.Registered {
		if err := hookregistry.Validate(pluginID, hook, granted.AsMap()); err != nil {
			r.logger.Warn("hook dropped at load", slog.String("plugin_id", pluginID),
				slog.String("hook", hook), slog.Any("cause", err))
			continue
		}
		registered = append(registered, hook)
	}

	return &LoadedPlugin{
		Key:                 Key{PluginID: pluginID, Version: version},
		Module:              module,
		RegisteredHooks:     registered,
		GrantedCapabilities: granted,
	}, nil
}

// replaceLoaded installs plugin into the loaded map and hook index. Caller
// must hold the write lock.
func (r *Registry) replaceLoaded(key Key, plugin *LoadedPlugin) {
	r.hooks.removeAll(key.PluginID)
	r.loaded[key] = plugin
	r.hooks.add(key, plugin.RegisteredHooks)
}

// unloadLocked removes every loaded version of pluginID and drops its hook
// index entries. Caller must hold the write lock.
func (r *Registry) unloadLocked(ctx context.Context, pluginID string) {
	r.hooks.removeAll(pluginID)
	for key, plugin := range r.loaded {
		if key.PluginID != pluginID {
			continue
		}
		if err := plugin.Module.Close(ctx); err != nil {
			r.logger.Warn("failed to close plugin module", slog.String("plugin_id", pluginID), slog.Any("error", err))
		}
		delete(r.loaded, key)
	}
}

// PluginsForHook returns a snapshot of the plugins registered for hook, in
// insertion order, for the Dispatcher to range over without holding the
// registry lock across invocations (spec.md §4.7 step 1).
func (r *Registry) PluginsForHook(hook string) []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hooks.snapshot(hook)
}

// Get returns the LoadedPlugin for key, if currently loaded.
func (r *Registry) Get(key Key) (*LoadedPlugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.loaded[key]
	return p, ok
}

func (r *Registry) archivePath(pluginID, version string) string {
	return filepath.Join(r.cfg.InstallDir, fmt.Sprintf("%s-%s.rpk", pluginID, version))
}

// Store exposes the underlying Plugin Store for read-mostly callers (the
// admin CLI's list/get/permissions commands) that don't need the lifecycle
// guarantees Install/Enable/Disable provide.
func (r *Registry) Store() store.Store {
	return r.store
}
