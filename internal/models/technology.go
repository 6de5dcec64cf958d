// Package models defines the domain types for techtrack.
package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Status is the learning progress of a technology.
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists the valid statuses in cycle order.
var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusCompleted}

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Next returns the status that follows s in the fixed cycle
// not-started -> in-progress -> completed -> not-started.
// Unknown statuses restart the cycle.
func (s Status) Next() Status {
	switch s {
	case StatusNotStarted:
		return StatusInProgress
	case StatusInProgress:
		return StatusCompleted
	default:
		return StatusNotStarted
	}
}

// Category groups technologies on the list screen.
type Category string

const (
	CategoryFrontend Category = "frontend"
	CategoryBackend  Category = "backend"
	CategoryDatabase Category = "database"
	CategoryDevOps   Category = "devops"
	CategoryOther    Category = "other"
)

// Categories lists every valid category.
var Categories = []Category{CategoryFrontend, CategoryBackend, CategoryDatabase, CategoryDevOps, CategoryOther}

// Difficulty is the self-assessed difficulty of a technology.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Difficulties lists every valid difficulty.
var Difficulties = []Difficulty{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}

// ID identifies a technology. Zero means "not assigned".
type ID int64

func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseID parses a decimal id. Non-positive values are rejected.
func ParseID(s string) (ID, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return ID(n), true
}

// UnmarshalJSON accepts a JSON number or a numeric string. Anything else
// decodes to zero so that the store assigns a fresh id.
func (id *ID) UnmarshalJSON(b []byte) error {
	*id = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if n, ok := ParseID(s); ok {
			*id = n
		}
		return nil
	}
	if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
		if n > 0 {
			*id = ID(n)
		}
		return nil
	}
	// 1.7e12 and 42.0 are integral but not integer literals.
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return nil
	}
	if f > 0 && f == math.Trunc(f) && f < math.MaxInt64 {
		*id = ID(f)
	}
	return nil
}

// Technology is a tracked learning item.
type Technology struct {
	ID          ID         `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    Category   `json:"category"`
	Difficulty  Difficulty `json:"difficulty"`
	Status      Status     `json:"status"`
	Notes       string     `json:"notes"`
	Deadline    string     `json:"deadline,omitempty"`
	Resources   []string   `json:"resources"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Clone returns a deep copy of t.
func (t Technology) Clone() Technology {
	out := t
	out.Resources = append([]string{}, t.Resources...)
	return out
}

// ApplyDefaults fills every empty optional field with its default.
func (t *Technology) ApplyDefaults() {
	if t.Category == "" {
		t.Category = CategoryFrontend
	}
	if t.Difficulty == "" {
		t.Difficulty = DifficultyBeginner
	}
	if t.Status == "" {
		t.Status = StatusNotStarted
	}
	if t.Resources == nil {
		t.Resources = []string{}
	}
}

// Draft is the caller-supplied part of a new technology.
type Draft struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    Category   `json:"category"`
	Difficulty  Difficulty `json:"difficulty"`
	Status      Status     `json:"status"`
	Notes       string     `json:"notes"`
	Deadline    string     `json:"deadline"`
	Resources   []string   `json:"resources"`
}

// Technology converts the draft into an unsaved technology with defaults filled.
func (d Draft) Technology() Technology {
	t := Technology{
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Difficulty:  d.Difficulty,
		Status:      d.Status,
		Notes:       d.Notes,
		Deadline:    d.Deadline,
		Resources:   append([]string(nil), d.Resources...),
	}
	t.ApplyDefaults()
	return t
}

// Patch is a partial update. Nil fields are left untouched; an empty
// Deadline clears it.
type Patch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Category    *Category   `json:"category,omitempty"`
	Difficulty  *Difficulty `json:"difficulty,omitempty"`
	Status      *Status     `json:"status,omitempty"`
	Notes       *string     `json:"notes,omitempty"`
	Deadline    *string     `json:"deadline,omitempty"`
	Resources   *[]string   `json:"resources,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil && p.Difficulty == nil &&
		p.Status == nil && p.Notes == nil && p.Deadline == nil && p.Resources == nil
}

// Apply merges the patch into t.
func (p Patch) Apply(t *Technology) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Difficulty != nil {
		t.Difficulty = *p.Difficulty
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.Deadline != nil {
		t.Deadline = *p.Deadline
	}
	if p.Resources != nil {
		t.Resources = append([]string{}, (*p.Resources)...)
	}
}

// CollectionEnvelope is the durable layout of the technology collection.
type CollectionEnvelope struct {
	Version string       `json:"version"`
	Items   []Technology `json:"items"`
}
