package domain

import "time"

// SettingType is the value type of a configuration key.
type SettingType string

// Setting value types.
const (
	SettingString     SettingType = "string"
	SettingInt        SettingType = "int"
	SettingFormat     SettingType = "format"
	SettingStringList SettingType = "list"
)

// Configuration keys.
const (
	KeyDataDir           = "storage.data_dir"
	KeyLogFile           = "log.file"
	KeyLogMaxSizeMB      = "log.max_size_mb"
	KeyDefaultFormat     = "import.default_format"
	KeyWatchDebounceMS   = "watch.debounce_ms"
	KeyResearchTemplates = "scrivener.research_templates"
)

// SettingDef describes one configuration key.
type SettingDef struct {
	Key         string
	Type        SettingType
	Description string
}

// SettingDefs lists every key quill understands, in display order.
func SettingDefs() []SettingDef {
	return []SettingDef{
		{KeyDataDir, SettingString, "Directory holding quill.db (default ~/.quill/data)"},
		{KeyLogFile, SettingString, "Rotated log file; empty disables file logging"},
		{KeyLogMaxSizeMB, SettingInt, "Log file size in MB before rotation"},
		{KeyDefaultFormat, SettingFormat, "Format used when detection finds nothing"},
		{KeyWatchDebounceMS, SettingInt, "Quiet period before a changed source is reported"},
		{KeyResearchTemplates, SettingStringList, "Extra Scrivener research templates as Name=kind pairs"},
	}
}

// LookupSetting returns the definition of key.
func LookupSetting(key string) (SettingDef, bool) {
	for _, def := range SettingDefs() {
		if def.Key == key {
			return def, true
		}
	}
	return SettingDef{}, false
}

// AppSettings is the resolved configuration.
type AppSettings struct {
	// DataDir is empty when the store default applies.
	DataDir string

	LogFile      string
	LogMaxSizeMB int

	// DefaultFormat is empty when only detection applies.
	DefaultFormat Format

	WatchDebounce time.Duration

	ResearchTemplates []string
}

// DefaultAppSettings returns settings with sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		LogMaxSizeMB:  10,
		WatchDebounce: 500 * time.Millisecond,
	}
}
