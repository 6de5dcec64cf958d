// Package tracker implements the collection store: the single source of truth
// for tracked technologies, mirrored into a durable storage.Provider.
//
// Every mutation copies the snapshot, transforms the copy, swaps it in,
// persists the whole collection once and emits one payload-free
// notification. Independent stores sharing a provider converge through
// Reload, driven by a storage.Watcher; the last full write wins.
package tracker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/techtrack/internal/apperr"
	"github.com/starford/techtrack/internal/digest"
	"github.com/starford/techtrack/internal/models"
	"github.com/starford/techtrack/internal/notify"
	"github.com/starford/techtrack/internal/storage"
)

const (
	// DefaultKey is the storage key of the collection mirror.
	DefaultKey = "technologies"
	// SchemaVersion tags the collection envelope. A stored envelope with any
	// other tag is discarded and reseeded.
	SchemaVersion = "2"
)

// Store owns the in-memory collection and its durable mirror.
type Store struct {
	mu       sync.Mutex
	backend  storage.Provider
	key      string
	version  string
	seed     []models.Technology
	now      func() time.Time
	loc      *time.Location
	intn     func(n int) int
	logger   *slog.Logger
	instance string

	items   []models.Technology
	lastSum string
	lastID  models.ID
	hub     notify.Hub
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithSchemaVersion overrides the envelope version tag.
func WithSchemaVersion(v string) Option {
	return func(s *Store) { s.version = v }
}

// WithSeed sets the items written on first run or after a reseed.
func WithSeed(items []models.Technology) Option {
	return func(s *Store) { s.seed = cloneItems(items) }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the zone whose calendar day deadlines are checked
// against. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithRandom replaces the source used by StartRandom.
func WithRandom(intn func(n int) int) Option {
	return func(s *Store) { s.intn = intn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open reads the durable mirror and returns a ready store. An absent,
// malformed or differently versioned mirror is replaced by the seed.
func Open(backend storage.Provider, opts ...Option) (*Store, error) {
	s := &Store{
		backend: backend,
		key:     DefaultKey,
		version: SchemaVersion,
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		loc:     time.Local,
		intn:    rand.IntN,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := storage.ValidKey(s.key); err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}
	s.instance = uuid.NewString()
	s.logger = s.logger.With(slog.String("store", s.key), slog.String("instance", s.instance))

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := backend.Get(s.key)
	switch {
	case errors.Is(err, storage.ErrNotExist):
		s.reseedLocked("mirror absent") //nolint:errcheck // logged; Open still succeeds
	case err != nil:
		return nil, fmt.Errorf("tracker: read mirror: %w", err)
	default:
		items, reason := s.decode(raw)
		if reason != "" {
			s.reseedLocked(reason) //nolint:errcheck // logged; Open still succeeds
		} else {
			s.adoptLocked(items, raw)
		}
	}
	s.logger.Info("tracker: opened", slog.Int("items", len(s.items)))
	return s, nil
}

// Instance returns the random id of this store instance.
func (s *Store) Instance() string { return s.instance }

// Subscribe registers fn to run after every committed change or reload.
// Listeners receive no payload and should re-read with List.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}

// Reload re-reads the mirror after an external change signal. It reports
// false when the stored bytes are the ones this store last wrote or read.
// A mirror that was removed is reseeded; a malformed or foreign-version
// mirror is ignored so that two builds sharing a directory cannot reseed
// each other in a loop.
func (s *Store) Reload() (bool, error) {
	s.mu.Lock()
	raw, err := s.backend.Get(s.key)
	switch {
	case errors.Is(err, storage.ErrNotExist):
		s.lastSum = ""
		s.reseedLocked("mirror removed") //nolint:errcheck // logged
	case err != nil:
		s.mu.Unlock()
		return false, fmt.Errorf("tracker: reload: %w", err)
	default:
		if digest.Sum(raw) == s.lastSum {
			s.mu.Unlock()
			return false, nil
		}
		items, reason := s.decode(raw)
		if reason != "" {
			s.logger.Warn("tracker: ignoring external write", slog.String("reason", reason))
			s.mu.Unlock()
			return false, nil
		}
		s.adoptLocked(items, raw)
	}
	n := len(s.items)
	s.mu.Unlock()

	s.logger.Debug("tracker: reloaded", slog.Int("items", n))
	s.hub.Emit()
	return true, nil
}

// decode parses raw bytes, returning a non-empty reason when the mirror
// must be discarded.
func (s *Store) decode(raw []byte) ([]models.Technology, string) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return nil, "legacy unversioned layout"
	}
	var env models.CollectionEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, "malformed mirror"
	}
	if env.Version != s.version {
		return nil, fmt.Sprintf("schema version %q, want %q", env.Version, s.version)
	}
	return env.Items, ""
}

func (s *Store) adoptLocked(items []models.Technology, raw []byte) {
	s.items = s.repairLocked(items)
	s.lastSum = digest.Sum(raw)
}

// repairLocked fills defaults and gives zero or duplicate ids fresh values
// without touching timestamps.
func (s *Store) repairLocked(items []models.Technology) []models.Technology {
	out := make([]models.Technology, 0, len(items))
	for _, it := range items {
		if it.ID > s.lastID {
			s.lastID = it.ID
		}
	}
	seen := make(map[models.ID]bool, len(items))
	now := s.now()
	for _, it := range items {
		it = it.Clone()
		it.ApplyDefaults()
		if it.ID == 0 || seen[it.ID] {
			it.ID = s.nextIDLocked(items, now)
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	return out
}

// Reset discards the collection and restores the seed, as clearing all
// data does.
func (s *Store) Reset() error {
	s.mu.Lock()
	err := s.reseedLocked("reset requested")
	s.mu.Unlock()
	s.hub.Emit()
	return err
}

func (s *Store) reseedLocked(reason string) error {
	now := s.now()
	items := make([]models.Technology, 0, len(s.seed))
	for _, it := range s.seed {
		it = it.Clone()
		it.ApplyDefaults()
		if it.CreatedAt.IsZero() {
			it.CreatedAt = now
		}
		if it.UpdatedAt.IsZero() {
			it.UpdatedAt = now
		}
		items = append(items, it)
	}
	s.items = s.repairLocked(items)
	s.logger.Info("tracker: seeded", slog.String("reason", reason), slog.Int("items", len(s.items)))
	err := s.persistLocked()
	if err != nil {
		s.logger.Warn("tracker: persist seed failed", slog.String("error", err.Error()))
	}
	return err
}

// persistLocked writes the envelope unless it is byte-identical to the last
// one written or read.
func (s *Store) persistLocked() error {
	data, err := json.Marshal(models.CollectionEnvelope{Version: s.version, Items: s.items})
	if err != nil {
		return &apperr.PersistenceError{Key: s.key, Err: err}
	}
	sum := digest.Sum(data)
	if sum == s.lastSum {
		return nil
	}
	if err := s.backend.Set(s.key, data); err != nil {
		return &apperr.PersistenceError{Key: s.key, Err: err}
	}
	s.lastSum = sum
	s.logger.Debug("tracker: persisted", slog.String("digest", digest.Short(data)), slog.Int("items", len(s.items)))
	return nil
}

// mutate runs fn on a copy of the snapshot. When fn reports a change the
// copy becomes the snapshot, is persisted and listeners are notified. A
// persistence failure is returned after the swap and the notification.
func (s *Store) mutate(fn func(items []models.Technology, now time.Time) ([]models.Technology, bool, error)) error {
	s.mu.Lock()
	next, changed, err := fn(cloneItems(s.items), s.now())
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}
	s.items = next
	perr := s.persistLocked()
	s.mu.Unlock()

	if perr != nil {
		s.logger.Error("tracker: change not durable", slog.String("error", perr.Error()))
	}
	s.hub.Emit()
	return perr
}

// nextIDLocked returns an id derived from wall-clock milliseconds that is
// strictly greater than every id issued by this store and every id in items.
func (s *Store) nextIDLocked(items []models.Technology, now time.Time) models.ID {
	id := models.ID(now.UnixMilli())
	if id <= s.lastID {
		id = s.lastID + 1
	}
	for _, it := range items {
		if it.ID >= id {
			id = it.ID + 1
		}
	}
	s.lastID = id
	return id
}

func cloneItems(items []models.Technology) []models.Technology {
	out := make([]models.Technology, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

func indexOf(items []models.Technology, id models.ID) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func notFound(id models.ID) error {
	return &apperr.NotFoundError{Kind: "technology", ID: id.String()}
}
