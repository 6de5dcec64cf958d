package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/techtrack/internal/apperr"
)

func TestStatusCycleClosesAfterThreeSteps(t *testing.T) {
	for _, start := range Statuses {
		s := start
		for i := 0; i < 3; i++ {
			s = s.Next()
		}
		assert.Equal(t, start, s, "cycle from %s", start)
	}
	assert.Equal(t, StatusInProgress, StatusNotStarted.Next())
	assert.Equal(t, StatusCompleted, StatusInProgress.Next())
	assert.Equal(t, StatusNotStarted, StatusCompleted.Next())
}

func TestIDUnmarshal(t *testing.T) {
	cases := map[string]ID{
		`42`:               42,
		`"17"`:             17,
		`"abc"`:            0,
		`null`:             0,
		`-3`:               0,
		`1700000000000`:    1700000000000,
		`1.5`:              0,
		`1.7e12`:           1700000000000,
		`9007199254740993`: 9007199254740993,
		`9007199254740992`: 9007199254740992,
	}
	for in, want := range cases {
		var id ID
		require.NoError(t, json.Unmarshal([]byte(in), &id), in)
		assert.Equal(t, want, id, in)
	}
}

func TestDraftDefaults(t *testing.T) {
	tech := Draft{Title: "React"}.Technology()
	assert.Equal(t, StatusNotStarted, tech.Status)
	assert.Equal(t, CategoryFrontend, tech.Category)
	assert.Equal(t, DifficultyBeginner, tech.Difficulty)
	assert.Equal(t, "", tech.Notes)
	assert.NotNil(t, tech.Resources)
	assert.Empty(t, tech.Resources)
}

func TestValidateEdit(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	ok := Draft{Title: "Go", Deadline: "2026-03-10", Resources: []string{"https://go.dev"}}.Technology()
	assert.NoError(t, ValidateEdit(&ok, now))

	past := Draft{Title: "Go", Deadline: "2026-03-09"}.Technology()
	err := ValidateEdit(&past, now)
	require.Error(t, err)
	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "deadline")

	stamp := Draft{Title: "Go", Deadline: "2026-03-11T00:00:00Z"}.Technology()
	err = ValidateEdit(&stamp, now)
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "deadline", "only plain dates are accepted")

	blank := Draft{Title: "   "}.Technology()
	err = ValidateEdit(&blank, now)
	require.ErrorIs(t, err, apperr.ErrValidation)

	badURL := Draft{Title: "Go", Resources: []string{"not a url"}}.Technology()
	err = ValidateEdit(&badURL, now)
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "resources")

	badEnum := Draft{Title: "Go", Category: "mobile"}.Technology()
	err = ValidateEdit(&badEnum, now)
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "category")
}

func TestValidateEditUsesDayOfNowLocation(t *testing.T) {
	// 2026-03-10 02:00 UTC is still 2026-03-09 at UTC-5.
	loc := time.FixedZone("EST", -5*60*60)
	now := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)

	yesterdayUTC := Draft{Title: "Go", Deadline: "2026-03-09"}.Technology()
	assert.Error(t, ValidateEdit(&yesterdayUTC, now))
	assert.NoError(t, ValidateEdit(&yesterdayUTC, now.In(loc)))
}

func TestValidatePatchedChecksOnlyTouchedFields(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	legacy := Technology{
		Title: "Go", Status: StatusNotStarted, Category: CategoryBackend, Difficulty: DifficultyBeginner,
		Deadline: "2025-01-01", Resources: []string{"see the book"},
	}

	status := StatusInProgress
	notes := "chapter 3"
	for name, p := range map[string]Patch{
		"status": {Status: &status},
		"notes":  {Notes: &notes},
	} {
		t.Run(name, func(t *testing.T) {
			tech := legacy.Clone()
			p.Apply(&tech)
			assert.NoError(t, ValidatePatched(&tech, p, now))
		})
	}

	var ve *apperr.ValidationError
	res := []string{"see the book"}
	tech := legacy.Clone()
	p := Patch{Resources: &res}
	p.Apply(&tech)
	require.True(t, errors.As(ValidatePatched(&tech, p, now), &ve))
	assert.Contains(t, ve.Fields, "resources")

	bad := Status("done")
	tech = legacy.Clone()
	p = Patch{Status: &bad}
	p.Apply(&tech)
	require.True(t, errors.As(ValidatePatched(&tech, p, now), &ve))
	assert.Contains(t, ve.Fields, "status")

	past := "2026-03-09"
	tech = legacy.Clone()
	p = Patch{Deadline: &past}
	p.Apply(&tech)
	require.True(t, errors.As(ValidatePatched(&tech, p, now), &ve))
	assert.Contains(t, ve.Fields, "deadline")
}

func TestValidateImportedAllListsIndices(t *testing.T) {
	items := []Technology{
		{Title: "Ok", Status: StatusCompleted},
		{Status: StatusCompleted},
		{Title: "Bad status", Status: "done"},
	}
	err := ValidateImportedAll(items)
	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []int{1, 2}, ve.Indices)
	assert.Contains(t, ve.Fields, "[1].title")
	assert.Contains(t, ve.Fields, "[2].status")
}

func TestSettingsValidateAndTheme(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	assert.Equal(t, ThemeLight, s.EffectiveTheme(true))

	s.Theme = ThemeAuto
	assert.Equal(t, ThemeDark, s.EffectiveTheme(true))
	assert.Equal(t, ThemeLight, s.EffectiveTheme(false))

	s.Theme = "neon"
	assert.ErrorIs(t, s.Validate(), apperr.ErrValidation)
}
