package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quill/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/quill/internal/core/domain"
)

func TestSettingsService_Get_Defaults(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(nil))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, svc.GetDefaults(), *settings)
}

func TestSettingsService_SetAndGet(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(nil))

	require.NoError(t, svc.Set(domain.KeyDataDir, " /srv/quill "))
	require.NoError(t, svc.Set(domain.KeyLogFile, "/var/log/quill.log"))
	require.NoError(t, svc.Set(domain.KeyLogMaxSizeMB, "25"))
	require.NoError(t, svc.Set(domain.KeyDefaultFormat, "pltr"))
	require.NoError(t, svc.Set(domain.KeyWatchDebounceMS, "1200"))
	require.NoError(t, svc.Set(domain.KeyResearchTemplates, "Notes, Clippings,,"))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "/srv/quill", settings.DataDir)
	assert.Equal(t, "/var/log/quill.log", settings.LogFile)
	assert.Equal(t, 25, settings.LogMaxSizeMB)
	assert.Equal(t, domain.FormatPlottr, settings.DefaultFormat)
	assert.Equal(t, 1200*time.Millisecond, settings.WatchDebounce)
	assert.Equal(t, []string{"Notes", "Clippings"}, settings.ResearchTemplates)
}

func TestSettingsService_Set_Invalid(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(nil))

	tests := []struct {
		name string
		key  string
		raw  string
	}{
		{"unknown key", "search.mode", "full"},
		{"not a number", domain.KeyWatchDebounceMS, "soon"},
		{"zero", domain.KeyLogMaxSizeMB, "0"},
		{"unknown format", domain.KeyDefaultFormat, "docx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, svc.Set(tt.key, tt.raw))
		})
	}
}

func TestSettingsService_Value(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(nil))

	_, set, err := svc.Value(domain.KeyWatchDebounceMS)
	require.NoError(t, err)
	assert.False(t, set)

	require.NoError(t, svc.Set(domain.KeyWatchDebounceMS, "800"))
	require.NoError(t, svc.Set(domain.KeyResearchTemplates, "Notes,Clippings"))

	v, set, err := svc.Value(domain.KeyWatchDebounceMS)
	require.NoError(t, err)
	assert.True(t, set)
	assert.Equal(t, "800", v)

	v, _, err = svc.Value(domain.KeyResearchTemplates)
	require.NoError(t, err)
	assert.Equal(t, "Notes,Clippings", v)

	_, _, err = svc.Value("nope")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_Get_BadStoredFormat(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{domain.KeyDefaultFormat: "docx"})
	svc := NewSettingsService(store)

	_, err := svc.Get()
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
