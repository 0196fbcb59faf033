package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/core/ports/driven"
	"github.com/custodia-labs/quill/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()

	settings.DataDir = s.configStore.GetString(domain.KeyDataDir)
	settings.LogFile = s.configStore.GetString(domain.KeyLogFile)
	if n := s.configStore.GetInt(domain.KeyLogMaxSizeMB); n > 0 {
		settings.LogMaxSizeMB = n
	}
	if ms := s.configStore.GetInt(domain.KeyWatchDebounceMS); ms > 0 {
		settings.WatchDebounce = time.Duration(ms) * time.Millisecond
	}
	settings.ResearchTemplates = s.configStore.GetStringSlice(domain.KeyResearchTemplates)

	if raw := s.configStore.GetString(domain.KeyDefaultFormat); raw != "" {
		format, err := domain.ParseFormat(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", domain.KeyDefaultFormat, err)
		}
		settings.DefaultFormat = format
	}

	return &settings, nil
}

// Value returns the stored value of key rendered as text.
func (s *SettingsService) Value(key string) (string, bool, error) {
	def, ok := domain.LookupSetting(key)
	if !ok {
		return "", false, fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}
	if _, ok := s.configStore.Get(key); !ok {
		return "", false, nil
	}

	switch def.Type {
	case domain.SettingInt:
		return strconv.Itoa(s.configStore.GetInt(key)), true, nil
	case domain.SettingStringList:
		return strings.Join(s.configStore.GetStringSlice(key), ","), true, nil
	default:
		return s.configStore.GetString(key), true, nil
	}
}

// Set parses raw according to the key's type and persists it.
func (s *SettingsService) Set(key, raw string) error {
	def, ok := domain.LookupSetting(key)
	if !ok {
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}

	var value any
	switch def.Type {
	case domain.SettingInt:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer: %w", key, domain.ErrInvalidInput)
		}
		value = n
	case domain.SettingFormat:
		format, err := domain.ParseFormat(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		value = format.String()
	case domain.SettingStringList:
		value = splitList(raw)
	default:
		value = strings.TrimSpace(raw)
	}

	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func splitList(raw string) []string {
	items := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
