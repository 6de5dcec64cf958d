package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/techtrack/internal/apperr"
	"github.com/starford/techtrack/internal/models"
	"github.com/starford/techtrack/internal/storage"
	"github.com/starford/techtrack/internal/testutil"
)

func TestListReturnsCopy(t *testing.T) {
	s := openTest(t, storage.NewMemory(), testutil.NewClock(), WithSeed(testutil.Sample()))
	items := s.List()
	items[0].Title = "mutated"
	items[0].Resources[0] = "https://evil.example"

	fresh := s.List()
	assert.Equal(t, "React", fresh[0].Title)
	assert.Equal(t, "https://react.dev", fresh[0].Resources[0])
}

func TestGetMissing(t *testing.T) {
	s := openTest(t, storage.NewMemory(), testutil.NewClock())
	_, err := s.Get(1)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFilter(t *testing.T) {
	s := openTest(t, storage.NewMemory(), testutil.NewClock(), WithSeed(testutil.Sample()))

	tests := []struct {
		name string
		opts FilterOptions
		want []string
	}{
		{"all", FilterOptions{}, []string{"React", "PostgreSQL", "Docker"}},
		{"status", FilterOptions{Status: models.StatusCompleted}, []string{"Docker"}},
		{"category", FilterOptions{Category: models.CategoryDatabase}, []string{"PostgreSQL"}},
		{"title query", FilterOptions{Query: "REACT"}, []string{"React"}},
		{"description query", FilterOptions{Query: "relational"}, []string{"PostgreSQL"}},
		{"combined miss", FilterOptions{Status: models.StatusNotStarted, Query: "docker"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []string{}
			for _, it := range s.Filter(tt.opts) {
				got = append(got, it.Title)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStats(t *testing.T) {
	s := openTest(t, storage.NewMemory(), testutil.NewClock(), WithSeed(testutil.Sample()))

	st := s.Stats()
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, 1, st.InProgress)
	assert.Equal(t, 1, st.NotStarted)
	assert.Equal(t, 33, st.CompletionRate)
	assert.Equal(t, CategoryStats{Total: 1, Completed: 1}, st.ByCategory[models.CategoryDevOps])

	empty := Summarize(nil)
	assert.Zero(t, empty.CompletionRate)
	assert.NotNil(t, empty.ByCategory)
}
