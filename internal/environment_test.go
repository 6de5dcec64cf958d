package internal

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/techtrack/internal/models"
	"github.com/starford/techtrack/internal/settings"
	"github.com/starford/techtrack/internal/testutil"
	"github.com/starford/techtrack/internal/tracker"
)

func fileConfig(t *testing.T) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Storage.Dir = t.TempDir()
	cfg.Catalog.Latency = 0
	return cfg
}

func TestEnvironmentSeedsDefaults(t *testing.T) {
	env, err := newEnvironment(fileConfig(t), testutil.Logger())
	require.NoError(t, err)
	defer env.Close()

	assert.Len(t, env.tracker.List(), 4)
	assert.Equal(t, models.DefaultSettings(), env.settings.Get())
}

func TestEnvironmentEmptySeed(t *testing.T) {
	cfg := fileConfig(t)
	cfg.Collection.Seed = SeedEmpty
	env, err := newEnvironment(cfg, testutil.Logger())
	require.NoError(t, err)
	defer env.Close()

	assert.Empty(t, env.tracker.List())
}

func TestReloadRoutesKeysToStores(t *testing.T) {
	cfg := fileConfig(t)
	a, err := newEnvironment(cfg, testutil.Logger())
	require.NoError(t, err)
	defer a.Close()
	b, err := newEnvironment(cfg, testutil.Logger())
	require.NoError(t, err)
	defer b.Close()

	_, err = a.tracker.Add(models.Draft{Title: "Rust"})
	require.NoError(t, err)
	require.NoError(t, a.settings.Set(models.SettingTheme, "dark"))

	b.reload(tracker.DefaultKey)
	b.reload(settings.DefaultKey)
	b.reload("isLoggedIn")

	assert.Len(t, b.tracker.List(), 5)
	assert.Equal(t, models.ThemeDark, b.settings.Get().Theme)
}

func TestExportImportStatsCommands(t *testing.T) {
	cfg := fileConfig(t)
	opts := []Option{WithConfig(cfg), WithLogOutput(io.Discard)}

	var buf bytes.Buffer
	require.NoError(t, Export(context.Background(), &buf, opts...))
	assert.Contains(t, buf.String(), `"technologies"`)

	res, err := Import(context.Background(), strings.NewReader(`[{"title":"Go","status":"completed"}]`), opts...)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)

	st, err := Stats(context.Background(), opts...)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Total)
	assert.Equal(t, 100, st.CompletionRate)
}

func TestConfigRequired(t *testing.T) {
	_, err := Stats(context.Background())
	require.ErrorIs(t, err, errConfigRequired)
}
