package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quill/internal/core/domain"
)

func TestConfigListCmd(t *testing.T) {
	svc := &mockSettingsService{values: map[string]string{domain.KeyDefaultFormat: "plottr"}}
	withServices(t, Services{Settings: svc})

	out, err := runCommand(t, "", "config", "list")

	require.NoError(t, err)
	for _, def := range domain.SettingDefs() {
		assert.Contains(t, out, def.Key)
	}
	assert.Contains(t, out, "plottr")
	assert.Contains(t, out, "(default)")
}

func TestConfigGetCmd(t *testing.T) {
	svc := &mockSettingsService{values: map[string]string{domain.KeyLogMaxSizeMB: "25"}}
	withServices(t, Services{Settings: svc})

	out, err := runCommand(t, "", "config", "get", domain.KeyLogMaxSizeMB)
	require.NoError(t, err)
	assert.Equal(t, "25\n", out)

	out, err = runCommand(t, "", "config", "get", domain.KeyLogFile)
	require.NoError(t, err)
	assert.Contains(t, out, "log.file is not set")

	_, err = runCommand(t, "", "config", "get", "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigSetCmd(t *testing.T) {
	svc := &mockSettingsService{}
	withServices(t, Services{Settings: svc})

	out, err := runCommand(t, "", "config", "set", domain.KeyWatchDebounceMS, "750")

	require.NoError(t, err)
	assert.Equal(t, "750", svc.values[domain.KeyWatchDebounceMS])
	assert.Contains(t, out, "Set watch.debounce_ms")
}

func TestConfigSetCmd_Error(t *testing.T) {
	withServices(t, Services{Settings: &mockSettingsService{setErr: domain.ErrInvalidInput}})

	_, err := runCommand(t, "", "config", "set", domain.KeyLogMaxSizeMB, "-1")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
