package workspace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Materialization errors. All are user-actionable: fix the template.
var (
	// ErrInvalidTemplate indicates the template is not a well-formed
	// JSON object.
	ErrInvalidTemplate = errors.New("template is not a valid workspace document")
	// ErrMissingFolders indicates the template has no folders list.
	ErrMissingFolders = errors.New("template has no folders list")
	// ErrFoldersNotArray indicates the folders entry is not an array.
	ErrFoldersNotArray = errors.New("template folders entry is not an array")
)

// Folder is one workspace folder reference.
type Folder struct {
	Path string `json:"path"`
	Name string `json:"name,omitempty"`
}

// globKeyedSettings are the settings maps whose keys are paths or glob
// patterns rooted at a path. Relative keys in these maps are resolved
// against the template directory.
var globKeyedSettings = []string{
	"files.exclude",
	"search.exclude",
	"files.watcherExclude",
}

// wildcardChars are the characters that start the glob suffix of a settings
// key. Everything before the first of these is a resolvable path prefix.
const wildcardChars = "*?[{"

// Materialize transforms a workspace template into a slot-ready
// configuration. Relative folder paths are resolved against templateDir, a
// "." self entry is prepended (the only entry that means "the slot
// directory" when the configuration is later opened from inside the slot),
// and relative keys of the recognized glob-keyed settings maps are resolved
// the same way with their glob suffix preserved verbatim. Output uses stable
// 2-space indentation and preserves the input's key order.
func Materialize(content []byte, templateDir string) ([]byte, error) {
	var doc Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	foldersRaw, ok := doc.Get("folders")
	if !ok {
		return nil, ErrMissingFolders
	}
	folders, err := parseFolders(foldersRaw)
	if err != nil {
		return nil, err
	}

	resolved := make([]Folder, 0, len(folders)+1)
	// The self entry: interpreted relative to wherever the configuration
	// is opened from, which is the slot directory. Template-relative "."
	// entries were already made absolute below, so this is unambiguous.
	resolved = append(resolved, Folder{Path: "."})
	for _, f := range folders {
		if !filepath.IsAbs(f.Path) {
			f.Path = filepath.Join(templateDir, f.Path)
		}
		resolved = append(resolved, f)
	}

	foldersOut, err := json.Marshal(resolved)
	if err != nil {
		return nil, err
	}
	doc.Set("folders", foldersOut)

	if settingsRaw, ok := doc.Get("settings"); ok {
		settingsOut, err := materializeSettings(settingsRaw, templateDir)
		if err != nil {
			return nil, err
		}
		doc.Set("settings", settingsOut)
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, out, "", "  "); err != nil {
		return nil, err
	}
	indented.WriteByte('\n')
	return indented.Bytes(), nil
}

func parseFolders(raw json.RawMessage) ([]Folder, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, ErrFoldersNotArray
	}

	folders := make([]Folder, 0, len(elements))
	for _, el := range elements {
		var f Folder
		if err := json.Unmarshal(el, &f); err != nil {
			return nil, fmt.Errorf("%w: bad folder entry: %v", ErrInvalidTemplate, err)
		}
		folders = append(folders, f)
	}
	return folders, nil
}

func materializeSettings(raw json.RawMessage, templateDir string) (json.RawMessage, error) {
	var settings Document
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, fmt.Errorf("%w: settings is not an object: %v", ErrInvalidTemplate, err)
	}

	for _, name := range globKeyedSettings {
		entryRaw, ok := settings.Get(name)
		if !ok {
			continue
		}

		var entry Document
		if err := json.Unmarshal(entryRaw, &entry); err != nil {
			return nil, fmt.Errorf("%w: %s is not an object: %v", ErrInvalidTemplate, name, err)
		}

		rewritten := Document{}
		for _, key := range entry.Keys() {
			value, _ := entry.Get(key)
			rewritten.Set(ResolveGlobKey(key, templateDir), value)
		}

		out, err := json.Marshal(rewritten)
		if err != nil {
			return nil, err
		}
		settings.Set(name, out)
	}

	return json.Marshal(settings)
}

// ResolveGlobKey resolves the non-glob prefix of a path or glob-pattern key
// against dir, leaving the suffix from the first wildcard on untouched.
// Absolute keys are returned unchanged. Separators in the resolved prefix
// are normalized to forward slashes for portability.
func ResolveGlobKey(key, dir string) string {
	if filepath.IsAbs(key) || strings.HasPrefix(key, "/") {
		return key
	}

	idx := strings.IndexAny(key, wildcardChars)
	if idx < 0 {
		return filepath.ToSlash(filepath.Join(dir, key))
	}

	prefix, suffix := key[:idx], key[idx:]
	resolved := filepath.ToSlash(filepath.Join(dir, prefix))
	// Join strips the trailing separator that divided the prefix from the
	// glob; restore it so "lib/**" cannot collapse into "lib**".
	if (prefix == "" || strings.HasSuffix(prefix, "/")) && !strings.HasSuffix(resolved, "/") {
		resolved += "/"
	}
	return resolved + suffix
}
