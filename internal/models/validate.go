package models

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/techtrack/internal/apperr"
)

// DateLayout is the deadline format.
const DateLayout = "2006-01-02"

var (
	statusRule     = validation.In(anySlice(Statuses)...).Error("must be one of not-started, in-progress, completed")
	categoryRule   = validation.In(anySlice(Categories)...).Error("must be one of frontend, backend, database, devops, other")
	difficultyRule = validation.In(anySlice(Difficulties)...).Error("must be one of beginner, intermediate, advanced")
	titleRule      = validation.By(func(v interface{}) error {
		s, _ := v.(string)
		if strings.TrimSpace(s) == "" {
			return errors.New("cannot be blank")
		}
		return nil
	})
	resourceRule = validation.By(func(v interface{}) error {
		s, _ := v.(string)
		u, err := url.Parse(strings.TrimSpace(s))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.New("must be a valid http(s) URL")
		}
		return nil
	})
)

func anySlice[T any](in []T) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// deadlineRule rejects unparseable dates and dates before the day of now.
func deadlineRule(now time.Time) validation.Rule {
	return validation.By(func(v interface{}) error {
		s, _ := v.(string)
		if s == "" {
			return nil
		}
		d, err := ParseDeadline(s, now.Location())
		if err != nil {
			return errors.New("must be a date in YYYY-MM-DD format")
		}
		y, m, day := now.Date()
		if d.Before(time.Date(y, m, day, 0, 0, 0, 0, now.Location())) {
			return errors.New("cannot be in the past")
		}
		return nil
	})
}

// ParseDeadline parses a YYYY-MM-DD date as midnight in loc.
func ParseDeadline(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, loc)
}

// ValidateEdit validates a newly added technology. The deadline is compared
// with the calendar day of now in now's location.
func ValidateEdit(t *Technology, now time.Time) error {
	return toValidationError(validation.ValidateStruct(t,
		validation.Field(&t.Title, titleRule),
		validation.Field(&t.Status, validation.Required, statusRule),
		validation.Field(&t.Category, validation.Required, categoryRule),
		validation.Field(&t.Difficulty, validation.Required, difficultyRule),
		validation.Field(&t.Resources, validation.Each(resourceRule)),
		validation.Field(&t.Deadline, deadlineRule(now)),
	))
}

// ValidatePatched validates the fields of t that p set. Untouched fields
// keep whatever was stored, so imported items with legacy resources or a
// passed deadline stay editable.
func ValidatePatched(t *Technology, p Patch, now time.Time) error {
	var rules []*validation.FieldRules
	if p.Title != nil {
		rules = append(rules, validation.Field(&t.Title, titleRule))
	}
	if p.Status != nil {
		rules = append(rules, validation.Field(&t.Status, validation.Required, statusRule))
	}
	if p.Category != nil {
		rules = append(rules, validation.Field(&t.Category, validation.Required, categoryRule))
	}
	if p.Difficulty != nil {
		rules = append(rules, validation.Field(&t.Difficulty, validation.Required, difficultyRule))
	}
	if p.Resources != nil {
		rules = append(rules, validation.Field(&t.Resources, validation.Each(resourceRule)))
	}
	if p.Deadline != nil {
		rules = append(rules, validation.Field(&t.Deadline, deadlineRule(now)))
	}
	if len(rules) == 0 {
		return nil
	}
	return toValidationError(validation.ValidateStruct(t, rules...))
}

// ValidateImported checks the minimum an imported item needs: a title and a
// known status. Category and difficulty are checked only when present.
func ValidateImported(t *Technology) error {
	return toValidationError(validation.ValidateStruct(t,
		validation.Field(&t.Title, titleRule),
		validation.Field(&t.Status, validation.Required, statusRule),
		validation.Field(&t.Category, categoryRule),
		validation.Field(&t.Difficulty, difficultyRule),
	))
}

// ValidateImportedAll validates every item and reports the offending indices.
func ValidateImportedAll(items []Technology) error {
	verr := &apperr.ValidationError{Fields: map[string]string{}}
	for i := range items {
		err := ValidateImported(&items[i])
		if err == nil {
			continue
		}
		verr.Indices = append(verr.Indices, i)
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			for f, msg := range ve.Fields {
				verr.Fields[itemField(i, f)] = msg
			}
		}
	}
	if len(verr.Indices) == 0 {
		return nil
	}
	return verr
}

func itemField(i int, field string) string {
	return "[" + strconv.Itoa(i) + "]." + field
}

// toValidationError converts ozzo errors into the application taxonomy.
func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	out := &apperr.ValidationError{Fields: make(map[string]string, len(errs))}
	for field, ferr := range errs {
		out.Fields[field] = ferr.Error()
	}
	return out
}
