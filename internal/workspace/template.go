package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Template path errors.
var (
	// ErrTemplateNotFound indicates the template path does not exist.
	ErrTemplateNotFound = errors.New("template file not found")
	// ErrTemplateIsDirectory indicates the template path is a directory.
	ErrTemplateIsDirectory = errors.New("template path is a directory")
)

// Template is a workspace configuration template: its raw content plus the
// directory its relative paths resolve against.
type Template struct {
	Content []byte
	Dir     string
}

// defaultTemplate is used when no template path is configured. It has no
// folder references of its own, so a materialized configuration contains
// only the slot self entry.
const defaultTemplate = `{
  "folders": [],
  "settings": {
    "files.autoSave": "afterDelay"
  }
}
`

// DefaultTemplate returns the built-in template. Its Dir is empty; with no
// relative references there is nothing to resolve against it.
func DefaultTemplate() Template {
	return Template{Content: []byte(defaultTemplate)}
}

// LoadTemplate reads a template from path. The template's directory is
// recorded so Materialize can resolve relative references against it.
func LoadTemplate(path string) (Template, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, path)
		}
		return Template{}, fmt.Errorf("failed to stat template: %w", err)
	}
	if info.IsDir() {
		return Template{}, fmt.Errorf("%w: %s", ErrTemplateIsDirectory, path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("failed to read template: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return Template{}, fmt.Errorf("failed to resolve template path: %w", err)
	}

	return Template{Content: content, Dir: filepath.Dir(abs)}, nil
}
