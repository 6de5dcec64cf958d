package tracker

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/starford/techtrack/internal/apperr"
	"github.com/starford/techtrack/internal/models"
)

// Add validates d, fills defaults, assigns a fresh id and appends the new
// technology. On a PersistenceError the created item is still returned.
func (s *Store) Add(d models.Draft) (models.Technology, error) {
	var created models.Technology
	err := s.mutate(func(items []models.Technology, now time.Time) ([]models.Technology, bool, error) {
		t := d.Technology()
		t.Title = strings.TrimSpace(t.Title)
		if err := models.ValidateEdit(&t, now.In(s.loc)); err != nil {
			return nil, false, err
		}
		t.ID = s.nextIDLocked(items, now)
		t.CreatedAt, t.UpdatedAt = now, now
		created = t.Clone()
		return append(items, t), true, nil
	})
	if err != nil && !errors.Is(err, apperr.ErrPersistence) {
		return models.Technology{}, err
	}
	return created, err
}

// AddMissing appends every draft whose title is not already tracked and
// returns how many were added, as importing a roadmap does. One invalid
// draft rejects the whole batch.
func (s *Store) AddMissing(drafts []models.Draft) (int, error) {
	added := 0
	err := s.mutate(func(items []models.Technology, now time.Time) ([]models.Technology, bool, error) {
		have := make(map[string]bool, len(items))
		for _, it := range items {
			have[it.Title] = true
		}
		for _, d := range drafts {
			t := d.Technology()
			t.Title = strings.TrimSpace(t.Title)
			if err := models.ValidateEdit(&t, now.In(s.loc)); err != nil {
				return nil, false, err
			}
			if have[t.Title] {
				continue
			}
			have[t.Title] = true
			t.ID = s.nextIDLocked(items, now)
			t.CreatedAt, t.UpdatedAt = now, now
			items = append(items, t)
			added++
		}
		return items, added > 0, nil
	})
	if err != nil && !errors.Is(err, apperr.ErrPersistence) {
		return 0, err
	}
	return added, err
}

// UpdateField merges p into the technology with the given id. Only the
// fields p sets are validated. A missing id yields a NotFoundError; an
// invalid field a ValidationError.
func (s *Store) UpdateField(id models.ID, p models.Patch) error {
	return s.mutate(func(items []models.Technology, now time.Time) ([]models.Technology, bool, error) {
		i := indexOf(items, id)
		if i < 0 {
			return nil, false, notFound(id)
		}
		if p.Empty() {
			return items, false, nil
		}
		t := items[i]
		p.Apply(&t)
		t.Title = strings.TrimSpace(t.Title)
		if err := models.ValidatePatched(&t, p, now.In(s.loc)); err != nil {
			return nil, false, err
		}
		t.UpdatedAt = now
		items[i] = t
		return items, true, nil
	})
}

// UpdateStatus sets the status of one technology.
func (s *Store) UpdateStatus(id models.ID, status models.Status) error {
	if !status.Valid() {
		return invalidStatus(status)
	}
	return s.UpdateField(id, models.Patch{Status: &status})
}

// CycleStatus advances the technology to the next status in the cycle and
// returns the new status.
func (s *Store) CycleStatus(id models.ID) (models.Status, error) {
	var next models.Status
	err := s.mutate(func(items []models.Technology, now time.Time) ([]models.Technology, bool, error) {
		i := indexOf(items, id)
		if i < 0 {
			return nil, false, notFound(id)
		}
		next = items[i].Status.Next()
		items[i].Status = next
		items[i].UpdatedAt = now
		return items, true, nil
	})
	if err != nil && !errors.Is(err, apperr.ErrPersistence) {
		return "", err
	}
	return next, err
}

// BulkUpdateStatus sets status on every technology whose id is in ids and
// returns how many were changed. Unknown ids are ignored and items already
// at status are left untouched, so repeating a call writes nothing.
// The collection is persisted and listeners notified at most once.
func (s *Store) BulkUpdateStatus(ids []models.ID, status models.Status) (int, error) {
	want := make(map[models.ID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return s.setStatusWhere(status, func(id models.ID) bool {
		_, ok := want[id]
		return ok
	})
}

// MarkAllCompleted marks every technology completed.
func (s *Store) MarkAllCompleted() (int, error) {
	return s.setStatusWhere(models.StatusCompleted, func(models.ID) bool { return true })
}

// ResetAllStatuses moves every technology back to not-started.
func (s *Store) ResetAllStatuses() (int, error) {
	return s.setStatusWhere(models.StatusNotStarted, func(models.ID) bool { return true })
}

func (s *Store) setStatusWhere(status models.Status, match func(models.ID) bool) (int, error) {
	if !status.Valid() {
		return 0, invalidStatus(status)
	}
	n := 0
	err := s.mutate(func(items []models.Technology, now time.Time) ([]models.Technology, bool, error) {
		for i := range items {
			if !match(items[i].ID) || items[i].Status == status {
				continue
			}
			items[i].Status = status
			items[i].UpdatedAt = now
			n++
		}
		return items, n > 0, nil
	})
	return n, err
}

// StartRandom moves a randomly chosen not-started technology to in-progress.
// It reports false when nothing is left to start.
func (s *Store) StartRandom() (models.Technology, bool, error) {
	var picked models.Technology
	found := false
	err := s.mutate(func(items []models.Technology, now time.Time) ([]models.Technology, bool, error) {
		var candidates []int
		for i := range items {
			if items[i].Status == models.StatusNotStarted {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			return items, false, nil
		}
		i := candidates[s.intn(len(candidates))]
		items[i].Status = models.StatusInProgress
		items[i].UpdatedAt = now
		picked, found = items[i].Clone(), true
		return items, true, nil
	})
	if err != nil && !errors.Is(err, apperr.ErrPersistence) {
		return models.Technology{}, false, err
	}
	return picked, found, err
}

// Delete removes the technology with the given id. Deleting an unknown id
// is a no-op: nothing is written and nobody is notified.
func (s *Store) Delete(id models.ID) error {
	return s.mutate(func(items []models.Technology, _ time.Time) ([]models.Technology, bool, error) {
		i := indexOf(items, id)
		if i < 0 {
			return items, false, nil
		}
		return append(items[:i], items[i+1:]...), true, nil
	})
}

// ReplaceAll swaps the whole collection, as an import does. Every item needs
// a non-empty title and a valid status; otherwise a ValidationError listing
// the offending indices is returned and the collection is untouched.
// Accepted items get an id when missing or duplicated, defaults for empty
// fields, createdAt when unset, and updatedAt = now. Imported ids are never
// issued again by Add, even after they are deleted.
func (s *Store) ReplaceAll(in []models.Technology) ([]models.Technology, error) {
	candidates := cloneItems(in)
	if err := models.ValidateImportedAll(candidates); err != nil {
		return nil, err
	}
	var result []models.Technology
	err := s.mutate(func(_ []models.Technology, now time.Time) ([]models.Technology, bool, error) {
		for _, t := range candidates {
			if t.ID > s.lastID {
				s.lastID = t.ID
			}
		}
		out := make([]models.Technology, 0, len(candidates))
		seen := make(map[models.ID]bool, len(candidates))
		for _, t := range candidates {
			t.Title = strings.TrimSpace(t.Title)
			t.ApplyDefaults()
			if t.ID == 0 || seen[t.ID] {
				t.ID = s.nextIDLocked(candidates, now)
			}
			seen[t.ID] = true
			if t.CreatedAt.IsZero() {
				t.CreatedAt = now
			}
			t.UpdatedAt = now
			out = append(out, t)
		}
		result = cloneItems(out)
		return out, true, nil
	})
	if err != nil && !errors.Is(err, apperr.ErrPersistence) {
		return nil, err
	}
	return result, err
}

func invalidStatus(status models.Status) error {
	return apperr.Invalid("status", "must be one of not-started, in-progress, completed, got "+strconv.Quote(string(status)))
}
