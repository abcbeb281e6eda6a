package pluginregistry_test

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goagain/reglet-host/internal/pluginregistry"
	"github.com/goagain/reglet-host/internal/sandbox"
	"github.com/goagain/reglet-host/internal/store"
)

// minimalWasm is the smallest valid WASM module: magic number plus version,
// no sections. It compiles and instantiates but exports nothing.
var minimalWasm = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

const manifestRequiringPostWrite = `
[package]
id = "org.example.poetry"
name = "Poetry Filter"
version = "1.0.0"

[permissions]
required = ["post:write"]

[hooks]
registered = ["post_published_filter"]
`

const manifestNoRequirements = `
[package]
id = "org.example.logger"
name = "Logger"
version = "1.0.0"

[permissions]
required = []

[hooks]
registered = ["action_system_startup"]
`

func buildArchive(t *testing.T, manifest string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("manifest.toml")
	require.NoError(t, err)
	_, err = w.Write([]byte(manifest))
	require.NoError(t, err)
	w, err = zw.Create("plugin.wasm")
	require.NoError(t, err)
	_, err = w.Write(minimalWasm)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newTestRegistry(t *testing.T) (*pluginregistry.Registry, store.Store, string) {
	t.Helper()
	ctx := context.Background()
	engine, err := sandbox.NewEngine(ctx, sandbox.DefaultResourceLimits, nil)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close(ctx) })

	st := store.NewMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	installDir := t.TempDir()
	cfg := pluginregistry.Config{
		InstallDir:         installDir,
		CacheDir:           t.TempDir(),
		MaxConcurrentLoads: 2,
	}
	return pluginregistry.New(cfg, st, engine, logger), st, installDir
}

func TestRegistry_InstallRequiresReviewUntilGranted(t *testing.T) {
	ctx := context.Background()
	reg, st, _ := newTestRegistry(t)

	manifest, analysis, err := reg.Install(ctx, buildArchive(t, manifestRequiringPostWrite))
	require.NoError(t, err)
	assert.Equal(t, "org.example.poetry", manifest.Package.ID)
	assert.Equal(t, []string{"post:write"}, analysis.NewRequiredCapabilities)

	result, err := reg.Enable(ctx, "org.example.poetry")
	require.NoError(t, err)
	assert.True(t, result.RequiresReview)
	assert.Equal(t, []string{"post:write"}, result.Missing)

	rec, err := st.Get(ctx, "org.example.poetry")
	require.NoError(t, err)
	assert.Equal(t, store.StatusPendingReview, rec.Status)

	_, ok := reg.Get(pluginregistry.Key{PluginID: "org.example.poetry", Version: "1.0.0"})
	assert.False(t, ok)
}

func TestRegistry_InstallEnableWithNoRequiredCapabilities(t *testing.T) {
	ctx := context.Background()
	reg, st, _ := newTestRegistry(t)

	_, _, err := reg.Install(ctx, buildArchive(t, manifestNoRequirements))
	require.NoError(t, err)

	result, err := reg.Enable(ctx, "org.example.logger")
	require.NoError(t, err)
	assert.False(t, result.RequiresReview)

	rec, err := st.Get(ctx, "org.example.logger")
	require.NoError(t, err)
	assert.Equal(t, store.StatusEnabled, rec.Status)

	key := pluginregistry.Key{PluginID: "org.example.logger", Version: "1.0.0"}
	loaded, ok := reg.Get(key)
	require.True(t, ok)
	assert.Contains(t, loaded.RegisteredHooks, "action_system_startup")
	assert.Equal(t, []pluginregistry.Key{key}, reg.PluginsForHook("action_system_startup"))
}

func TestRegistry_ApproveReviewThenEnables(t *testing.T) {
	ctx := context.Background()
	reg, st, _ := newTestRegistry(t)

	_, _, err := reg.Install(ctx, buildArchive(t, manifestRequiringPostWrite))
	require.NoError(t, err)
	_, err = reg.Enable(ctx, "org.example.poetry")
	require.NoError(t, err)

	result, err := reg.ApproveReview(ctx, "org.example.poetry", []string{"post:write"})
	require.NoError(t, err)
	assert.False(t, result.RequiresReview)

	rec, err := st.Get(ctx, "org.example.poetry")
	require.NoError(t, err)
	assert.Equal(t, store.StatusEnabled, rec.Status)

	_, ok := reg.Get(pluginregistry.Key{PluginID: "org.example.poetry", Version: "1.0.0"})
	assert.True(t, ok)
}

func TestRegistry_DisableRemovesFromHookIndexButKeepsRecord(t *testing.T) {
	ctx := context.Background()
	reg, st, _ := newTestRegistry(t)

	_, _, err := reg.Install(ctx, buildArchive(t, manifestNoRequirements))
	require.NoError(t, err)
	_, err = reg.Enable(ctx, "org.example.logger")
	require.NoError(t, err)

	require.NoError(t, reg.Disable(ctx, "org.example.logger"))

	rec, err := st.Get(ctx, "org.example.logger")
	require.NoError(t, err)
	assert.Equal(t, store.StatusDisabled, rec.Status)
	assert.Empty(t, reg.PluginsForHook("action_system_startup"))

	_, ok := reg.Get(pluginregistry.Key{PluginID: "org.example.logger", Version: "1.0.0"})
	assert.False(t, ok)
}

func TestRegistry_UninstallDeletesRecord(t *testing.T) {
	ctx := context.Background()
	reg, st, _ := newTestRegistry(t)

	_, _, err := reg.Install(ctx, buildArchive(t, manifestNoRequirements))
	require.NoError(t, err)
	require.NoError(t, reg.Uninstall(ctx, "org.example.logger"))

	_, err = st.Get(ctx, "org.example.logger")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRegistry_InstallTwiceRejected(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(t)

	_, _, err := reg.Install(ctx, buildArchive(t, manifestNoRequirements))
	require.NoError(t, err)

	_, _, err = reg.Install(ctx, buildArchive(t, manifestNoRequirements))
	assert.ErrorIs(t, err, pluginregistry.ErrAlreadyInstalled)
}

func TestRegistry_LoadAllEnabledRecoversPreviouslyEnabledPlugins(t *testing.T) {
	ctx := context.Background()
	reg, st, installDir := newTestRegistry(t)

	_, _, err := reg.Install(ctx, buildArchive(t, manifestNoRequirements))
	require.NoError(t, err)
	_, err = reg.Enable(ctx, "org.example.logger")
	require.NoError(t, err)

	// Simulate a restart: fresh registry sharing the same store and install dir.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine2, err := sandbox.NewEngine(ctx, sandbox.DefaultResourceLimits, nil)
	require.NoError(t, err)
	defer engine2.Close(ctx)

	rec, err := st.Get(ctx, "org.example.logger")
	require.NoError(t, err)
	require.Equal(t, store.StatusEnabled, rec.Status)

	fresh := pluginregistry.New(pluginregistry.Config{
		InstallDir:         installDir,
		CacheDir:           t.TempDir(),
		MaxConcurrentLoads: 2,
	}, st, engine2, logger)

	require.NoError(t, fresh.LoadAllEnabled(ctx))
	key := pluginregistry.Key{PluginID: "org.example.logger", Version: "1.0.0"}
	_, ok := fresh.Get(key)
	assert.True(t, ok)
}
