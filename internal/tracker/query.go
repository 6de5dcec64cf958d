package tracker

import (
	"math"
	"strings"

	"github.com/starford/techtrack/internal/models"
)

// FilterOptions narrows List. Zero fields match everything.
type FilterOptions struct {
	Status   models.Status
	Category models.Category
	// Query is matched case-insensitively against title and description.
	Query string
}

// CategoryStats counts progress within one category.
type CategoryStats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	NotStarted int `json:"notStarted"`
}

// Statistics summarises the collection.
type Statistics struct {
	Total          int                               `json:"total"`
	Completed      int                               `json:"completed"`
	InProgress     int                               `json:"inProgress"`
	NotStarted     int                               `json:"notStarted"`
	CompletionRate int                               `json:"completionRate"`
	ByCategory     map[models.Category]CategoryStats `json:"byCategory"`
}

// List returns a copy of the current snapshot in insertion order.
func (s *Store) List() []models.Technology {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// Get returns the technology with the given id.
func (s *Store) Get(id models.ID) (models.Technology, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.items, id)
	if i < 0 {
		return models.Technology{}, notFound(id)
	}
	return s.items[i].Clone(), nil
}

// Filter returns the technologies matching every non-zero option.
func (s *Store) Filter(o FilterOptions) []models.Technology {
	q := strings.ToLower(strings.TrimSpace(o.Query))
	out := []models.Technology{}
	for _, t := range s.List() {
		if o.Status != "" && t.Status != o.Status {
			continue
		}
		if o.Category != "" && t.Category != o.Category {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Stats counts technologies by status, overall and per category.
// CompletionRate is a rounded percentage; an empty collection reports 0.
func (s *Store) Stats() Statistics {
	return Summarize(s.List())
}

// Summarize computes Statistics for an arbitrary slice.
func Summarize(items []models.Technology) Statistics {
	st := Statistics{ByCategory: make(map[models.Category]CategoryStats)}
	for _, t := range items {
		c := st.ByCategory[t.Category]
		st.Total++
		c.Total++
		switch t.Status {
		case models.StatusCompleted:
			st.Completed++
			c.Completed++
		case models.StatusInProgress:
			st.InProgress++
			c.InProgress++
		default:
			st.NotStarted++
			c.NotStarted++
		}
		st.ByCategory[t.Category] = c
	}
	if st.Total > 0 {
		st.CompletionRate = int(math.Round(float64(st.Completed) * 100 / float64(st.Total)))
	}
	return st
}
