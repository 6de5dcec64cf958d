// Package testutil provides shared test helpers for setting up backends,
// clocks and sample collections.
package testutil

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/starford/techtrack/internal/models"
	"github.com/starford/techtrack/internal/storage"
)

// Epoch is the default start of a test Clock.
var Epoch = time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC)

// Clock is a manually advanced clock safe for concurrent use.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock stopped at Epoch.
func NewClock() *Clock { return &Clock{now: Epoch} }

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestFS creates a temporary storage directory with an FS backend.
func TestFS(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// TestSQLite opens a SQLite backend in a temporary directory.
func TestSQLite(t *testing.T, poll time.Duration) *storage.SQLite {
	t.Helper()
	db, err := storage.OpenSQLite(t.TempDir()+"/techtrack.db", poll)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Sample returns three technologies without ids, one per status.
func Sample() []models.Technology {
	return []models.Technology{
		{
			Title:      "React",
			Category:   models.CategoryFrontend,
			Difficulty: models.DifficultyIntermediate,
			Status:     models.StatusNotStarted,
			Resources:  []string{"https://react.dev"},
		},
		{
			Title:       "PostgreSQL",
			Description: "Relational database",
			Category:    models.CategoryDatabase,
			Difficulty:  models.DifficultyAdvanced,
			Status:      models.StatusInProgress,
		},
		{
			Title:      "Docker",
			Category:   models.CategoryDevOps,
			Difficulty: models.DifficultyBeginner,
			Status:     models.StatusCompleted,
		},
	}
}
