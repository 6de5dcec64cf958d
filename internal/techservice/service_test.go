package techservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/techtrack/internal/apperr"
	"github.com/starford/techtrack/internal/catalog"
	"github.com/starford/techtrack/internal/codec"
	"github.com/starford/techtrack/internal/models"
	"github.com/starford/techtrack/internal/settings"
	"github.com/starford/techtrack/internal/storage"
	"github.com/starford/techtrack/internal/testutil"
	"github.com/starford/techtrack/internal/tracker"
)

func newService(t *testing.T, mem *storage.Memory) *Service {
	t.Helper()
	clk := testutil.NewClock()
	tr, err := tracker.Open(mem,
		tracker.WithSeed(testutil.Sample()),
		tracker.WithClock(clk.Now),
		tracker.WithLogger(testutil.Logger()))
	require.NoError(t, err)
	st, err := settings.Open(mem, settings.WithLogger(testutil.Logger()))
	require.NoError(t, err)
	cd, err := codec.New(codec.DefaultMaxBytes)
	require.NoError(t, err)
	return NewService(tr, st, cd, catalog.NewMock(), testutil.Logger())
}

func titles(items []models.Technology) []string {
	out := []string{}
	for _, t := range items {
		out = append(out, t.Title)
	}
	return out
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newService(t, storage.NewMemory())
	require.NoError(t, src.Settings().Set(models.SettingTheme, "dark"))

	data, err := src.Export(context.Background())
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "exportedAt")
	assert.Contains(t, doc, "technologies")
	assert.Contains(t, doc, "settings")

	dst := newService(t, storage.NewMemory())
	_, err = dst.Tracker().Add(models.Draft{Title: "Rust"})
	require.NoError(t, err)

	res, err := dst.Import(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Imported)
	assert.True(t, res.SettingsApplied)
	assert.Equal(t, []string{"React", "PostgreSQL", "Docker"}, titles(dst.Tracker().List()))
	assert.Equal(t, models.ThemeDark, dst.Settings().Get().Theme)
}

func TestImportBareArrayKeepsSettings(t *testing.T) {
	svc := newService(t, storage.NewMemory())
	require.NoError(t, svc.Settings().Set(models.SettingLanguage, "en"))

	res, err := svc.Import(context.Background(), strings.NewReader(`[{"title":"Go","status":"in-progress"}]`))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.False(t, res.SettingsApplied)
	assert.Equal(t, "en", svc.Settings().Get().Language)

	items := svc.Tracker().List()
	require.Len(t, items, 1)
	assert.NotZero(t, items[0].ID)
	assert.Equal(t, models.CategoryFrontend, items[0].Category)
}

func TestImportRejectedLeavesStateUntouched(t *testing.T) {
	svc := newService(t, storage.NewMemory())
	before := svc.Tracker().List()

	cases := map[string]string{
		"not json":      `{"technologies": [`,
		"wrong shape":   `"hello"`,
		"missing title": `[{"status":"completed"}]`,
		"bad settings":  `{"technologies":[],"settings":{"theme":"neon"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Import(context.Background(), strings.NewReader(body))
			require.ErrorIs(t, err, apperr.ErrFormat)
			assert.Equal(t, before, svc.Tracker().List())
			assert.Equal(t, models.DefaultSettings(), svc.Settings().Get())
		})
	}
}

func TestImportPersistenceFailureStillApplies(t *testing.T) {
	mem := storage.NewMemory()
	svc := newService(t, mem)
	mem.FailWrites(errors.New("quota exceeded"))

	res, err := svc.Import(context.Background(), strings.NewReader(`{"technologies":[{"title":"Go","status":"completed"}],"settings":{"theme":"auto"}}`))
	require.ErrorIs(t, err, apperr.ErrPersistence)
	assert.Equal(t, 1, res.Imported)
	assert.True(t, res.SettingsApplied)
	assert.Equal(t, []string{"Go"}, titles(svc.Tracker().List()))
	assert.Equal(t, models.ThemeAuto, svc.Settings().Get().Theme)
}

func TestImportRoadmapSkipsExisting(t *testing.T) {
	svc := newService(t, storage.NewMemory())

	n, err := svc.ImportRoadmap(context.Background(), catalog.RoadmapFrontend)
	require.NoError(t, err)
	// React is already in the sample collection.
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"React", "PostgreSQL", "Docker", "TypeScript"}, titles(svc.Tracker().List()))

	n, err = svc.ImportRoadmap(context.Background(), catalog.RoadmapFrontend)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestImportRoadmapUnavailable(t *testing.T) {
	svc := newService(t, storage.NewMemory())
	svc.catalog = catalog.NewMock(catalog.WithFailureRate(1), catalog.WithRandom(func() float64 { return 0 }))

	_, err := svc.ImportRoadmap(context.Background(), catalog.RoadmapBackend)
	require.ErrorIs(t, err, catalog.ErrUnavailable)
	assert.Len(t, svc.Tracker().List(), 3)
}

func TestClearAll(t *testing.T) {
	svc := newService(t, storage.NewMemory())
	_, err := svc.Tracker().Add(models.Draft{Title: "Rust"})
	require.NoError(t, err)
	require.NoError(t, svc.Settings().Set(models.SettingTheme, "dark"))

	require.NoError(t, svc.ClearAll())
	assert.Equal(t, []string{"React", "PostgreSQL", "Docker"}, titles(svc.Tracker().List()))
	assert.Equal(t, models.DefaultSettings(), svc.Settings().Get())
}

type recordingSource struct {
	catalog.Source
	calls []string
}

func (r *recordingSource) FetchAll(ctx context.Context) ([]models.Technology, error) {
	r.calls = append(r.calls, "all")
	return r.Source.FetchAll(ctx)
}

func (r *recordingSource) Search(ctx context.Context, q string) ([]models.Technology, error) {
	r.calls = append(r.calls, "search:"+q)
	return r.Source.Search(ctx, q)
}

func TestSearchCatalogBlankQueryFetchesAll(t *testing.T) {
	base := newService(t, storage.NewMemory())
	src := &recordingSource{Source: catalog.NewMock()}
	svc := NewService(base.Tracker(), base.Settings(), base.Codec(), src, testutil.Logger())

	all, err := svc.SearchCatalog(context.Background(), "  ")
	require.NoError(t, err)
	assert.Len(t, all, len(catalog.Defaults()))

	found, err := svc.SearchCatalog(context.Background(), "react")
	require.NoError(t, err)
	assert.NotEmpty(t, found)
	assert.Less(t, len(found), len(all))

	assert.Equal(t, []string{"all", "search:react"}, src.calls)
}
