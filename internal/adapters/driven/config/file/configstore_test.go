package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".quill", "config.toml"), store.Path())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	// A path under /dev/null cannot be created
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("this is not valid TOML {{{[["), 0600)
	require.NoError(t, err)

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_Getters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("log.file", "/tmp/quill.log"))
	require.NoError(t, store.Set("watch.debounce_ms", 750))
	require.NoError(t, store.Set("debug", true))
	require.NoError(t, store.Set("scrivener.research_templates", []string{"Notes"}))

	assert.Equal(t, "/tmp/quill.log", store.GetString("log.file"))
	assert.Equal(t, 750, store.GetInt("watch.debounce_ms"))
	assert.True(t, store.GetBool("debug"))
	assert.Equal(t, []string{"Notes"}, store.GetStringSlice("scrivener.research_templates"))

	// Wrong types and missing keys fall back to zero values
	assert.Empty(t, store.GetString("watch.debounce_ms"))
	assert.Zero(t, store.GetInt("log.file"))
	assert.False(t, store.GetBool("missing"))
	assert.Nil(t, store.GetStringSlice("log.file"))
}

func TestConfigStore_WritesTables(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("watch.debounce_ms", 900))
	require.NoError(t, store.Set("storage.data_dir", "/srv/quill"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "[watch]")
	assert.Contains(t, content, "debounce_ms = 900")
	assert.Contains(t, content, "[storage]")
	assert.NotContains(t, content, "'watch.debounce_ms'")
}

func TestConfigStore_Persistence(t *testing.T) {
	tmpDir := t.TempDir()

	store1, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store1.Set("import.default_format", "plottr"))
	require.NoError(t, store1.Set("scrivener.research_templates", []string{"Notes", "Clippings"}))
	require.NoError(t, store1.Set("watch.debounce_ms", 1200))

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "plottr", store2.GetString("import.default_format"))
	assert.Equal(t, []string{"Notes", "Clippings"}, store2.GetStringSlice("scrivener.research_templates"))
	assert.Equal(t, 1200, store2.GetInt("watch.debounce_ms"))
}

func TestConfigStore_ReadsHandWrittenFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[log]
file = "/var/log/quill.log"
max_size_mb = 20

[scrivener]
research_templates = ["Notes"]
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "/var/log/quill.log", store.GetString("log.file"))
	assert.Equal(t, 20, store.GetInt("log.max_size_mb"))
	assert.Equal(t, []string{"Notes"}, store.GetStringSlice("scrivener.research_templates"))
}

func TestConfigStore_Set_ConflictingKeys(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("log.file", "a.log"))
	err = store.Set("log", "flat")
	assert.Error(t, err)

	// The failed write leaves the old state in place
	_, ok := store.Get("log")
	assert.False(t, ok)
	assert.Equal(t, "a.log", store.GetString("log.file"))
}

func TestConfigStore_Save_Explicit(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	store.mu.Lock()
	store.data["manual.key"] = "manual_value"
	store.mu.Unlock()

	require.NoError(t, store.Save())

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "manual_value", store2.GetString("manual.key"))
}

func TestConfigStore_Save_WriteFileError(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("test", "value"))

	// Replace the file with a directory to cause write error
	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	err = store.Set("another", "value")
	assert.Error(t, err)
	_, ok := store.Get("another")
	assert.False(t, ok)
}

func TestConfigStore_SetWithUnmarshallableValue(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	// Channels cannot be marshaled to TOML
	err = store.Set("channel", make(chan int))
	assert.Error(t, err)
}

func TestConfigStore_Load_Missing(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("a.b", "c"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, store.Load())

	_, ok := store.Get("a.b")
	assert.False(t, ok)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("key", "value"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("watch.debounce_ms", n+1)
			_ = store.GetInt("watch.debounce_ms")
		}(i)
	}
	wg.Wait()

	assert.Positive(t, store.GetInt("watch.debounce_ms"))
}

func TestNestMap(t *testing.T) {
	nested, err := nestMap(map[string]any{"a.b": 1, "a.c": "x", "top": true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a":   map[string]any{"b": 1, "c": "x"},
		"top": true,
	}, nested)

	assert.Equal(t, map[string]any{"a.b": 1, "a.c": "x", "top": true}, flattenMap(nested, ""))
}
