package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goagain/reglet-host/internal/config"
	"github.com/goagain/reglet-host/internal/pluginregistry"
	"github.com/goagain/reglet-host/internal/sandbox"
	"github.com/goagain/reglet-host/internal/store"
)

var adminTestWasm = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

const noRequirementsManifest = `
[package]
id = "org.example.logger"
name = "Logger"
version = "1.0.0"

[permissions]
required = []

[hooks]
registered = ["action_system_startup"]
`

func buildAdminArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("manifest.toml")
	require.NoError(t, err)
	_, err = w.Write([]byte(noRequirementsManifest))
	require.NoError(t, err)
	w, err = zw.Create("plugin.wasm")
	require.NoError(t, err)
	_, err = w.Write(adminTestWasm)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newAdminTestRegistry(t *testing.T) *pluginregistry.Registry {
	t.Helper()
	ctx := context.Background()
	engine, err := sandbox.NewEngine(ctx, sandbox.DefaultResourceLimits, nil)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close(ctx) })

	return pluginregistry.New(pluginregistry.Config{
		InstallDir:         t.TempDir(),
		CacheDir:           t.TempDir(),
		MaxConcurrentLoads: 2,
	}, store.NewMemStore(), engine, testLogger())
}

func TestPluginCommand_InstallListGetEnableDisableUninstall(t *testing.T) {
	reg := newAdminTestRegistry(t)
	root := NewRootCommand(config.DefaultConfig(), reg, testLogger())

	archivePath := t.TempDir() + "/logger.rpk"
	require.NoError(t, os.WriteFile(archivePath, buildAdminArchive(t), 0o644))

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"plugin", "install", archivePath})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "org.example.logger")

	buf.Reset()
	root.SetArgs([]string{"plugin", "list", "--output", "json"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "org.example.logger")

	buf.Reset()
	root.SetArgs([]string{"plugin", "get", "org.example.logger", "--output", "json"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "org.example.logger")

	buf.Reset()
	root.SetArgs([]string{"plugin", "enable", "org.example.logger"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "Enabled org.example.logger")

	rec, err := reg.Store().Get(context.Background(), "org.example.logger")
	require.NoError(t, err)
	assert.Equal(t, store.StatusEnabled, rec.Status)

	buf.Reset()
	root.SetArgs([]string{"plugin", "disable", "org.example.logger"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "Disabled org.example.logger")

	buf.Reset()
	root.SetArgs([]string{"plugin", "uninstall", "org.example.logger"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "Uninstalled org.example.logger")

	_, err = reg.Store().Get(context.Background(), "org.example.logger")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPluginCommand_InstallRequiringReviewReportsMissingCapabilities(t *testing.T) {
	reg := newAdminTestRegistry(t)
	root := NewRootCommand(config.DefaultConfig(), reg, testLogger())

	manifest := `
[package]
id = "org.example.summary"
name = "Auto Summary"
version = "1.0.0"

[permissions]
required = ["ai:chat"]

[hooks]
registered = ["action_system_startup"]
`
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("manifest.toml")
	require.NoError(t, err)
	_, err = w.Write([]byte(manifest))
	require.NoError(t, err)
	w, err = zw.Create("plugin.wasm")
	require.NoError(t, err)
	_, err = w.Write(adminTestWasm)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	archivePath := t.TempDir() + "/summary.rpk"
	require.NoError(t, os.WriteFile(archivePath, buf.Bytes(), 0o644))

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"plugin", "install", archivePath})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "ai:chat")

	out.Reset()
	root.SetArgs([]string{"plugin", "enable", "org.example.summary"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "requires review")

	out.Reset()
	root.SetArgs([]string{"plugin", "approve", "org.example.summary", "ai:chat"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Enabled org.example.summary")
}
