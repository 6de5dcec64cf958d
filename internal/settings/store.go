// Package settings persists user preferences with the same durability rules
// as the technology collection: a versioned envelope, reseed on mismatch,
// write suppression and payload-free change notifications.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/starford/techtrack/internal/apperr"
	"github.com/starford/techtrack/internal/digest"
	"github.com/starford/techtrack/internal/models"
	"github.com/starford/techtrack/internal/notify"
	"github.com/starford/techtrack/internal/storage"
)

const (
	// DefaultKey is the storage key of the settings record.
	DefaultKey = "appSettings"
	// SchemaVersion tags the settings envelope.
	SchemaVersion = "1"
)

// Store owns the current settings and their durable mirror.
type Store struct {
	mu      sync.Mutex
	backend storage.Provider
	key     string
	version string
	logger  *slog.Logger

	cur     models.Settings
	lastSum string
	hub     notify.Hub
}

// Option configures a Store.
type Option func(*Store)

func WithKey(key string) Option { return func(s *Store) { s.key = key } }

func WithSchemaVersion(v string) Option { return func(s *Store) { s.version = v } }

func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.logger = l } }

// Open loads the stored settings, falling back to defaults when the record
// is absent, malformed, invalid or from another schema version.
func Open(backend storage.Provider, opts ...Option) (*Store, error) {
	s := &Store{
		backend: backend,
		key:     DefaultKey,
		version: SchemaVersion,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := storage.ValidKey(s.key); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	s.logger = s.logger.With(slog.String("store", s.key))

	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := backend.Get(s.key)
	switch {
	case errors.Is(err, storage.ErrNotExist):
		s.resetLocked("record absent")
	case err != nil:
		return nil, fmt.Errorf("settings: read: %w", err)
	default:
		if cur, reason := s.decode(raw); reason != "" {
			s.resetLocked(reason)
		} else {
			s.cur, s.lastSum = cur, digest.Sum(raw)
		}
	}
	return s, nil
}

// Get returns the current settings.
func (s *Store) Get() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Subscribe registers fn to run after every committed change or reload.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}

// Set changes one setting. Unknown keys, wrong value types and values
// outside the allowed set return a ValidationError and change nothing.
func (s *Store) Set(key string, value any) error {
	return s.Update(map[string]any{key: value})
}

// Update applies several settings at once. Either all of them are applied
// or, on the first invalid one, none.
func (s *Store) Update(values map[string]any) error {
	return s.mutate(func(cur *models.Settings) error {
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := apply(cur, k, values[k]); err != nil {
				return err
			}
		}
		return cur.Validate()
	})
}

func apply(cur *models.Settings, key string, value any) error {
	switch key {
	case models.SettingTheme:
		v, ok := asString(value)
		if !ok {
			return apperr.Invalid(key, "must be a string")
		}
		cur.Theme = models.Theme(v)
	case models.SettingLanguage:
		v, ok := asString(value)
		if !ok {
			return apperr.Invalid(key, "must be a string")
		}
		cur.Language = v
	case models.SettingNotifications:
		v, ok := value.(bool)
		if !ok {
			return apperr.Invalid(key, "must be a boolean")
		}
		cur.Notifications = v
	case models.SettingAutoSave:
		v, ok := value.(bool)
		if !ok {
			return apperr.Invalid(key, "must be a boolean")
		}
		cur.AutoSave = v
	default:
		return apperr.Invalid(key, "unknown setting")
	}
	return nil
}

// Replace swaps all settings at once, as an import does.
func (s *Store) Replace(next models.Settings) error {
	return s.mutate(func(cur *models.Settings) error {
		*cur = next
		return cur.Validate()
	})
}

// ResetToDefaults restores the first-run settings.
func (s *Store) ResetToDefaults() error {
	return s.Replace(models.DefaultSettings())
}

// Reload re-reads the record after an external change signal and reports
// whether the settings changed. A removed record resets to defaults; an
// unusable one is ignored.
func (s *Store) Reload() (bool, error) {
	s.mu.Lock()
	raw, err := s.backend.Get(s.key)
	switch {
	case errors.Is(err, storage.ErrNotExist):
		s.lastSum = ""
		s.resetLocked("record removed")
	case err != nil:
		s.mu.Unlock()
		return false, fmt.Errorf("settings: reload: %w", err)
	default:
		sum := digest.Sum(raw)
		if sum == s.lastSum {
			s.mu.Unlock()
			return false, nil
		}
		cur, reason := s.decode(raw)
		if reason != "" {
			s.logger.Warn("settings: ignoring external write", slog.String("reason", reason))
			s.mu.Unlock()
			return false, nil
		}
		s.cur, s.lastSum = cur, sum
	}
	s.mu.Unlock()
	s.hub.Emit()
	return true, nil
}

func (s *Store) decode(raw []byte) (models.Settings, string) {
	var env models.SettingsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return models.Settings{}, "malformed record"
	}
	if env.Version != s.version {
		return models.Settings{}, fmt.Sprintf("schema version %q, want %q", env.Version, s.version)
	}
	if err := env.Settings.Validate(); err != nil {
		return models.Settings{}, "invalid values: " + err.Error()
	}
	return env.Settings, ""
}

func (s *Store) resetLocked(reason string) {
	s.cur = models.DefaultSettings()
	s.logger.Info("settings: defaults applied", slog.String("reason", reason))
	if err := s.persistLocked(); err != nil {
		s.logger.Warn("settings: persist defaults failed", slog.String("error", err.Error()))
	}
}

func (s *Store) persistLocked() error {
	data, err := json.Marshal(models.SettingsEnvelope{Version: s.version, Settings: s.cur})
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
	return nil
}

func (s *Store) mutate(fn func(cur *models.Settings) error) error {
	s.mu.Lock()
	next := s.cur
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	if next == s.cur {
		s.mu.Unlock()
		return nil
	}
	s.cur = next
	perr := s.persistLocked()
	s.mu.Unlock()

	if perr != nil {
		s.logger.Error("settings: change not durable", slog.String("error", perr.Error()))
	}
	s.hub.Emit()
	return perr
}

func asString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case models.Theme:
		return string(x), true
	}
	return "", false
}
