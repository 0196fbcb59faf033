// Package file provides file-based implementations of driven port interfaces.
//
// ConfigStore keeps quill's settings in ~/.quill/config.toml. Keys are
// addressed with dots ("watch.debounce_ms") and written back as TOML tables.
package file
