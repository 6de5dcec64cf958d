// Package techservice coordinates the collection store, the settings store,
// the codec and the catalog for operations that span more than one of them.
// The HTTP API, the MCP server and the CLI all go through it.
package techservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/techtrack/internal/apperr"
	"github.com/starford/techtrack/internal/catalog"
	"github.com/starford/techtrack/internal/codec"
	"github.com/starford/techtrack/internal/models"
	"github.com/starford/techtrack/internal/settings"
	"github.com/starford/techtrack/internal/tracker"
)

// ImportResult summarises an import.
type ImportResult struct {
	Imported        int                 `json:"imported"`
	SettingsApplied bool                `json:"settingsApplied"`
	Technologies    []models.Technology `json:"technologies"`
}

// Service coordinates the stores.
type Service struct {
	tracker  *tracker.Store
	settings *settings.Store
	codec    *codec.Codec
	catalog  catalog.Source
	now      func() time.Time
	logger   *slog.Logger
}

// NewService creates a new service.
func NewService(tr *tracker.Store, st *settings.Store, cd *codec.Codec, cat catalog.Source, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		tracker:  tr,
		settings: st,
		codec:    cd,
		catalog:  cat,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Second) },
		logger:   logger,
	}
}

// Tracker returns the collection store.
func (s *Service) Tracker() *tracker.Store { return s.tracker }

// Settings returns the settings store.
func (s *Service) Settings() *settings.Store { return s.settings }

// Catalog returns the catalog source.
func (s *Service) Catalog() catalog.Source { return s.catalog }

// Codec returns the import/export codec.
func (s *Service) Codec() *codec.Codec { return s.codec }

// Export renders the collection and settings as an export document.
func (s *Service) Export(_ context.Context) ([]byte, error) {
	st := s.settings.Get()
	return s.codec.Encode(codec.Document{
		ExportedAt:   s.now(),
		Technologies: s.tracker.List(),
		Settings:     &st,
	})
}

// Import decodes r and replaces the collection with its technologies. The
// settings are replaced too when the document carries them. Nothing changes
// when the document is rejected. A PersistenceError is returned together
// with the result because the import did take effect in memory.
func (s *Service) Import(_ context.Context, r io.Reader) (ImportResult, error) {
	doc, err := s.codec.DecodeReader(r)
	if err != nil {
		return ImportResult{}, err
	}
	var perr error
	items, err := s.tracker.ReplaceAll(doc.Technologies)
	if err != nil {
		if !errors.Is(err, apperr.ErrPersistence) {
			return ImportResult{}, err
		}
		perr = err
	}
	res := ImportResult{Imported: len(items), Technologies: items}

	if doc.Settings != nil {
		if err := s.settings.Replace(*doc.Settings); err != nil {
			if !errors.Is(err, apperr.ErrPersistence) {
				return res, err
			}
			if perr == nil {
				perr = err
			}
		}
		res.SettingsApplied = true
	}
	s.logger.Info("techservice: imported",
		slog.Int("technologies", res.Imported),
		slog.Bool("settings", res.SettingsApplied))
	return res, perr
}

// SearchCatalog lists the whole catalog for a blank query and searches it
// otherwise.
func (s *Service) SearchCatalog(ctx context.Context, query string) ([]models.Technology, error) {
	if strings.TrimSpace(query) == "" {
		return s.catalog.FetchAll(ctx)
	}
	return s.catalog.Search(ctx, query)
}

// ImportRoadmap copies the catalog roadmap of the given kind into the
// collection, skipping titles that are already tracked.
func (s *Service) ImportRoadmap(ctx context.Context, kind string) (int, error) {
	entries, err := s.catalog.FetchRoadmap(ctx, kind)
	if err != nil {
		return 0, fmt.Errorf("fetch roadmap %s: %w", kind, err)
	}
	drafts := make([]models.Draft, len(entries))
	for i, e := range entries {
		drafts[i] = DraftOf(e)
	}
	return s.tracker.AddMissing(drafts)
}

// ClearAll restores the seeded collection and default settings.
func (s *Service) ClearAll() error {
	return errors.Join(s.tracker.Reset(), s.settings.ResetToDefaults())
}

// DraftOf converts a technology into a draft carrying its editable fields.
func DraftOf(t models.Technology) models.Draft {
	return models.Draft{
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Difficulty:  t.Difficulty,
		Status:      t.Status,
		Notes:       t.Notes,
		Deadline:    t.Deadline,
		Resources:   append([]string(nil), t.Resources...),
	}
}
