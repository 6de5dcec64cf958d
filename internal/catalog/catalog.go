// Package catalog serves the reference list of technologies the user can
// search, browse as roadmaps and copy into their own collection. The only
// implementation is a mock with configurable latency and failures.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/starford/techtrack/internal/apperr"
	"github.com/starford/techtrack/internal/models"
)

// ErrUnavailable is returned when a simulated request fails.
var ErrUnavailable = errors.New("catalog: service unavailable")

// Roadmap kinds.
const (
	RoadmapFrontend  = "frontend"
	RoadmapBackend   = "backend"
	RoadmapFullstack = "fullstack"
)

// Source is a read-only technology catalog.
type Source interface {
	FetchAll(ctx context.Context) ([]models.Technology, error)
	Search(ctx context.Context, query string) ([]models.Technology, error)
	FetchResources(ctx context.Context, id models.ID) ([]string, error)
	FetchRoadmap(ctx context.Context, kind string) ([]models.Technology, error)
}

//go:embed catalog.json
var datasetJSON []byte

var dataset = mustLoad(datasetJSON)

func mustLoad(raw []byte) []models.Technology {
	var items []models.Technology
	if err := json.Unmarshal(raw, &items); err != nil {
		panic("catalog: embedded dataset: " + err.Error())
	}
	for i := range items {
		items[i].ApplyDefaults()
	}
	return items
}

// Defaults returns the catalog entries without ids or timestamps, ready to
// seed an empty collection.
func Defaults() []models.Technology {
	out := make([]models.Technology, len(dataset))
	for i, t := range dataset {
		t = t.Clone()
		t.ID = 0
		out[i] = t
	}
	return out
}

// Mock implements Source over the embedded dataset.
type Mock struct {
	latency     time.Duration
	failureRate float64
	random      func() float64
	logger      *slog.Logger
}

// MockOption configures a Mock.
type MockOption func(*Mock)

// WithLatency delays every call by d.
func WithLatency(d time.Duration) MockOption { return func(m *Mock) { m.latency = d } }

// WithFailureRate makes a fraction of calls fail with ErrUnavailable.
func WithFailureRate(p float64) MockOption { return func(m *Mock) { m.failureRate = p } }

// WithRandom replaces the source of the failure roll.
func WithRandom(f func() float64) MockOption { return func(m *Mock) { m.random = f } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) MockOption { return func(m *Mock) { m.logger = l } }

// NewMock returns a Mock with no latency and no failures unless configured.
func NewMock(opts ...MockOption) *Mock {
	m := &Mock{random: rand.Float64, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// simulate waits out the latency, honouring ctx, then rolls for failure.
func (m *Mock) simulate(ctx context.Context, op string) error {
	if m.latency > 0 {
		timer := time.NewTimer(m.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}
	if m.failureRate > 0 && m.random() < m.failureRate {
		m.logger.Debug("catalog: simulated failure", slog.String("op", op))
		return ErrUnavailable
	}
	return nil
}

// FetchAll returns every catalog entry.
func (m *Mock) FetchAll(ctx context.Context) ([]models.Technology, error) {
	if err := m.simulate(ctx, "fetch_all"); err != nil {
		return nil, err
	}
	return clone(dataset), nil
}

// Search matches query case-insensitively against title, description,
// category and difficulty. A blank query returns everything.
func (m *Mock) Search(ctx context.Context, query string) ([]models.Technology, error) {
	if err := m.simulate(ctx, "search"); err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return clone(dataset), nil
	}
	out := []models.Technology{}
	for _, t := range dataset {
		for _, field := range []string{t.Title, t.Description, string(t.Category), string(t.Difficulty)} {
			if strings.Contains(strings.ToLower(field), q) {
				out = append(out, t.Clone())
				break
			}
		}
	}
	return out, nil
}

// FetchResources returns the resource links of one entry.
func (m *Mock) FetchResources(ctx context.Context, id models.ID) ([]string, error) {
	if err := m.simulate(ctx, "fetch_resources"); err != nil {
		return nil, err
	}
	for _, t := range dataset {
		if t.ID == id {
			return append([]string{}, t.Resources...), nil
		}
	}
	return nil, &apperr.NotFoundError{Kind: "catalog entry", ID: id.String()}
}

// FetchRoadmap returns the entries of a roadmap. Unknown kinds fall back to
// fullstack, which is the whole catalog.
func (m *Mock) FetchRoadmap(ctx context.Context, kind string) ([]models.Technology, error) {
	if err := m.simulate(ctx, "fetch_roadmap"); err != nil {
		return nil, err
	}
	var want models.Category
	switch kind {
	case RoadmapFrontend:
		want = models.CategoryFrontend
	case RoadmapBackend:
		want = models.CategoryBackend
	default:
		return clone(dataset), nil
	}
	out := []models.Technology{}
	for _, t := range dataset {
		if t.Category == want {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func clone(items []models.Technology) []models.Technology {
	out := make([]models.Technology, len(items))
	for i, t := range items {
		out[i] = t.Clone()
	}
	return out
}
