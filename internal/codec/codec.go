// Package codec encodes and decodes the JSON export document and applies
// the import checks: a size guard, JSON syntax, a JSON Schema for the shape
// and the item rules the collection store enforces.
package codec

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/starford/techtrack/internal/apperr"
	"github.com/starford/techtrack/internal/models"
)

// DefaultMaxBytes is the import size limit used when none is configured.
const DefaultMaxBytes = 5 << 20

//go:embed technology.schema.json
var itemSchema string

// Document is an export snapshot. Settings is optional on import.
type Document struct {
	ExportedAt   time.Time           `json:"exportedAt"`
	Technologies []models.Technology `json:"technologies"`
	Settings     *models.Settings    `json:"settings,omitempty"`
}

// Codec is safe for concurrent use.
type Codec struct {
	maxBytes int64
	list     *gojsonschema.Schema
	envelope *gojsonschema.Schema
}

// New compiles the schemas. A non-positive maxBytes selects DefaultMaxBytes.
func New(maxBytes int64) (*Codec, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	listSrc := `{"type":"array","items":` + itemSchema + `}`
	envSrc := `{
		"type": "object",
		"required": ["technologies"],
		"properties": {
			"exportedAt": {"type": "string"},
			"technologies": ` + listSrc + `,
			"settings": {"type": ["object", "null"]}
		}
	}`
	list, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(listSrc))
	if err != nil {
		return nil, fmt.Errorf("codec: compile list schema: %w", err)
	}
	env, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(envSrc))
	if err != nil {
		return nil, fmt.Errorf("codec: compile envelope schema: %w", err)
	}
	return &Codec{maxBytes: maxBytes, list: list, envelope: env}, nil
}

// MaxBytes returns the configured import limit.
func (c *Codec) MaxBytes() int64 { return c.maxBytes }

// Encode renders doc as an indented envelope. A nil technology list is
// written as an empty array.
func (c *Codec) Encode(doc Document) ([]byte, error) {
	if doc.Technologies == nil {
		doc.Technologies = []models.Technology{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("codec: encode: %w", err)
	}
	return data, nil
}

// DecodeReader reads at most one byte past the limit and decodes.
func (c *Codec) DecodeReader(r io.Reader) (Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return Document{}, &apperr.FormatError{Reason: "read failed", Err: err}
	}
	return c.Decode(data)
}

// Decode parses an import payload: either a bare array of technologies or
// an envelope with a technologies field. Shape problems yield a FormatError;
// items breaking the title or status rules yield a FormatError wrapping a
// ValidationError that lists their indices.
func (c *Codec) Decode(data []byte) (Document, error) {
	if int64(len(data)) > c.maxBytes {
		return Document{}, &apperr.FormatError{
			Reason:   fmt.Sprintf("payload is %d bytes, limit is %d", len(data), c.maxBytes),
			TooLarge: true,
		}
	}
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return Document{}, &apperr.FormatError{Reason: "not valid JSON", Err: syntaxError(trimmed)}
	}

	var doc Document
	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		if err := check(c.list, trimmed); err != nil {
			return Document{}, err
		}
		if err := json.Unmarshal(trimmed, &doc.Technologies); err != nil {
			return Document{}, &apperr.FormatError{Reason: "cannot decode technologies", Err: err}
		}
	case len(trimmed) > 0 && trimmed[0] == '{':
		if err := check(c.envelope, trimmed); err != nil {
			return Document{}, err
		}
		var raw struct {
			ExportedAt   string              `json:"exportedAt"`
			Technologies []models.Technology `json:"technologies"`
			Settings     json.RawMessage     `json:"settings"`
		}
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return Document{}, &apperr.FormatError{Reason: "cannot decode envelope", Err: err}
		}
		doc.Technologies = raw.Technologies
		if t, err := time.Parse(time.RFC3339, raw.ExportedAt); err == nil {
			doc.ExportedAt = t
		}
		if len(raw.Settings) > 0 && string(raw.Settings) != "null" {
			st, err := decodeSettings(raw.Settings)
			if err != nil {
				return Document{}, err
			}
			doc.Settings = &st
		}
	default:
		return Document{}, &apperr.FormatError{Reason: "expected an array of technologies or an object with a technologies field"}
	}

	if doc.Technologies == nil {
		doc.Technologies = []models.Technology{}
	}
	if err := models.ValidateImportedAll(doc.Technologies); err != nil {
		return Document{}, &apperr.FormatError{Reason: "invalid technologies", Err: err}
	}
	return doc, nil
}

// decodeSettings overlays the imported values on the defaults so that a
// partial settings object is accepted.
func decodeSettings(raw json.RawMessage) (models.Settings, error) {
	st := models.DefaultSettings()
	if err := json.Unmarshal(raw, &st); err != nil {
		return models.Settings{}, &apperr.FormatError{Reason: "cannot decode settings", Err: err}
	}
	if err := st.Validate(); err != nil {
		return models.Settings{}, &apperr.FormatError{Reason: "invalid settings", Err: err}
	}
	return st, nil
}

func check(schema *gojsonschema.Schema, data []byte) error {
	res, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &apperr.FormatError{Reason: "schema check failed", Err: err}
	}
	if res.Valid() {
		return nil
	}
	details := make([]string, 0, len(res.Errors()))
	for _, desc := range res.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		details = append(details, field+": "+desc.Description())
	}
	return &apperr.FormatError{Reason: "unexpected document shape", Details: details}
}

func syntaxError(data []byte) error {
	var v any
	err := json.Unmarshal(data, &v)
	var se *json.SyntaxError
	if errors.As(err, &se) {
		return fmt.Errorf("%s at offset %d", se.Error(), se.Offset)
	}
	return err
}
