package driving

import "github.com/custodia-labs/quill/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get resolves the current settings over the defaults.
	Get() (*domain.AppSettings, error)

	// Value returns the stored value of key rendered as text, and whether
	// it is set. Unknown keys return domain.ErrInvalidInput.
	Value(key string) (string, bool, error)

	// Set parses raw according to the key's type, validates it and persists it.
	Set(key, raw string) error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
