package mcp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("missing import service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{Project: &mockProjectService{}})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingImportService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{Import: &mockImportService{}, Project: &mockProjectService{}})
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.Equal(t, "dev", server.Version())
	})

	t.Run("version option", func(t *testing.T) {
		server, err := NewServer(&Ports{Import: &mockImportService{}, Project: &mockProjectService{}}, WithVersion("1.4.0"))
		require.NoError(t, err)
		assert.Equal(t, "1.4.0", server.Version())
	})

	t.Run("empty version keeps default", func(t *testing.T) {
		server, err := NewServer(&Ports{Import: &mockImportService{}, Project: &mockProjectService{}}, WithVersion(""))
		require.NoError(t, err)
		assert.Equal(t, "dev", server.Version())
	})
}

func TestInstructions_NameEveryToolAndResource(t *testing.T) {
	for _, name := range []string{
		"list_projects",
		"preview_reimport",
		"apply_reimport",
		uriScheme + "projects",
		uriScheme + "projects/{projectId}/outline",
	} {
		assert.True(t, strings.Contains(instructions, name), name)
	}
}

func TestPorts_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ports   *Ports
		wantErr error
	}{
		{"empty", &Ports{}, ErrMissingImportService},
		{"import only", &Ports{Import: &mockImportService{}}, ErrMissingProjectService},
		{"all ports", &Ports{Import: &mockImportService{}, Project: &mockProjectService{}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ports.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
