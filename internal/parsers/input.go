package parsers

import (
	"errors"
	"io/fs"
	"os"

	"github.com/custodia-labs/quill/internal/core/domain"
)

// ReadInput returns the bytes of a single-file source. Content already
// loaded by the caller is used as is; otherwise Path is read.
func ReadInput(input domain.ImportInput) ([]byte, error) {
	if input.Content != nil {
		return input.Content, nil
	}
	data, err := os.ReadFile(input.Path)
	if err != nil {
		return nil, domain.NewParseError(domain.ErrUnreadable, input.Path, err)
	}
	return data, nil
}

// StatDir checks that path is a readable directory.
func StatDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return domain.NewParseError(domain.ErrUnreadable, path, err)
	}
	if !info.IsDir() {
		return domain.NewParseError(domain.ErrInvalidStructure, path, errors.New("not a directory"))
	}
	return nil
}

// ReadFileIfExists reads a file, returning nil without error when it is absent.
func ReadFileIfExists(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewParseError(domain.ErrUnreadable, path, err)
	}
	return data, nil
}
