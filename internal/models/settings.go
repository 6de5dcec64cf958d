package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Theme is the UI colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

// Supported interface languages.
const (
	LanguageRU = "ru"
	LanguageEN = "en"
)

// Setting keys accepted by the settings store.
const (
	SettingTheme         = "theme"
	SettingLanguage      = "language"
	SettingNotifications = "notifications"
	SettingAutoSave      = "autoSave"
)

// Settings holds user preferences.
type Settings struct {
	Theme         Theme  `json:"theme"`
	Language      string `json:"language"`
	Notifications bool   `json:"notifications"`
	AutoSave      bool   `json:"autoSave"`
}

// DefaultSettings returns the first-run preferences.
func DefaultSettings() Settings {
	return Settings{
		Theme:         ThemeLight,
		Language:      LanguageRU,
		Notifications: true,
		AutoSave:      true,
	}
}

// Validate checks the enum fields.
func (s *Settings) Validate() error {
	return toValidationError(validation.ValidateStruct(s,
		validation.Field(&s.Theme, validation.Required, validation.In(ThemeLight, ThemeDark, ThemeAuto)),
		validation.Field(&s.Language, validation.Required, validation.In(LanguageRU, LanguageEN)),
	))
}

// EffectiveTheme resolves "auto" against the host colour preference.
func (s Settings) EffectiveTheme(systemDark bool) Theme {
	if s.Theme != ThemeAuto {
		return s.Theme
	}
	if systemDark {
		return ThemeDark
	}
	return ThemeLight
}

// SettingsEnvelope is the durable layout of the settings record.
type SettingsEnvelope struct {
	Version  string   `json:"version"`
	Settings Settings `json:"settings"`
}
