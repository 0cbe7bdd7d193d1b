package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	return path
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager("")
	require.NoError(t, err)
	return m
}

func TestValidate_EngineCheckedFirst(t *testing.T) {
	m := newTestManager(t)

	// Both unset: the engine path failure wins.
	require.ErrorIs(t, m.Validate(), ErrEngineUnset)

	require.NoError(t, m.Update(BuildConfig{EnginePath: filepath.Join(t.TempDir(), "missing")}))
	require.ErrorIs(t, m.Validate(), ErrEngineMissing)

	engine := touch(t, filepath.Join(t.TempDir(), "UnrealEditor"))
	require.NoError(t, m.Update(BuildConfig{EnginePath: engine}))
	require.ErrorIs(t, m.Validate(), ErrProjectUnset)

	require.NoError(t, m.Update(BuildConfig{ProjectPath: filepath.Join(t.TempDir(), "Game.uproject")}))
	require.ErrorIs(t, m.Validate(), ErrProjectMissing)

	project := touch(t, filepath.Join(t.TempDir(), "Game.uproject"))
	require.NoError(t, m.Update(BuildConfig{ProjectPath: project}))
	require.NoError(t, m.Validate())
}

func TestUpdate_MergesOnlyNonEmptyFields(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.Update(BuildConfig{EnginePath: "/a", ProjectPath: "/b", BuildFlavor: "Shipping"}))
	require.NoError(t, m.Update(BuildConfig{ProjectPath: "/c"}))

	cfg := m.Get()
	require.Equal(t, "/a", cfg.EnginePath)
	require.Equal(t, "/c", cfg.ProjectPath)
	require.Equal(t, "Shipping", cfg.BuildFlavor)
}

func TestUpdate_NotifiesHost(t *testing.T) {
	m := newTestManager(t)

	var seen []BuildConfig
	m.OnChange(func(cfg BuildConfig) { seen = append(seen, cfg) })

	require.NoError(t, m.Update(BuildConfig{EnginePath: "/a"}))
	require.Len(t, seen, 1)
	require.Equal(t, "/a", seen[0].EnginePath)
}

func TestUpdate_PersistsAcrossManagers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	m1, err := NewManager(path)
	require.NoError(t, err)
	require.NoError(t, m1.Update(BuildConfig{EnginePath: "/engines/editor", BuildFlavor: "DebugGame"}))

	m2, err := NewManager(path)
	require.NoError(t, err)
	cfg := m2.Get()
	require.Equal(t, "/engines/editor", cfg.EnginePath)
	require.Equal(t, "DebugGame", cfg.BuildFlavor)
}

func TestNewManager_DefaultFlavor(t *testing.T) {
	m := newTestManager(t)
	require.Equal(t, DefaultBuildFlavor, m.Get().BuildFlavor)
}

func TestNewManager_EnvOverrides(t *testing.T) {
	t.Setenv("ENGINECTL_ENGINE_PATH", "/env/editor")
	t.Setenv("ENGINECTL_BUILD_FLAVOR", "Shipping")

	m := newTestManager(t)
	cfg := m.Get()
	require.Equal(t, "/env/editor", cfg.EnginePath)
	require.Equal(t, "Shipping", cfg.BuildFlavor)
}

func TestGet_ReturnsCopy(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Update(BuildConfig{EnginePath: "/a"}))

	cfg := m.Get()
	cfg.EnginePath = "/mutated"
	require.Equal(t, "/a", m.Get().EnginePath)
}
