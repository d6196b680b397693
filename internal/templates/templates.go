// Package templates provides embedded config and manifest templates for updater init.
package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed *.yaml *.toml *.txt
var templatesFS embed.FS

// Template represents an embedded file with metadata.
type Template struct {
	Name        string // Lookup name, e.g. "full"
	File        string // Embedded file name, e.g. "full.yaml"
	Description string
	Content     []byte
}

// Available templates with their descriptions.
var templateDescriptions = map[string]string{
	"minimal":   "Config with the default settings",
	"full":      "Config documenting every setting (YAML)",
	"full-toml": "Config documenting every setting (TOML)",
	"manifest":  "Example update manifest",
}

// templateName maps an embedded file to its lookup name. Files sharing a
// stem get the extension appended ("full.toml" is "full-toml").
func templateName(file string) string {
	ext := path.Ext(file)
	stem := strings.TrimSuffix(file, ext)
	if ext == ".toml" {
		return stem + "-toml"
	}
	return stem
}

// List returns all available template names sorted alphabetically.
func List() []string {
	entries, err := templatesFS.ReadDir(".")
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, templateName(entry.Name()))
	}

	sort.Strings(names)
	return names
}

// Get returns a template by name.
func Get(name string) (*Template, error) {
	entries, err := templatesFS.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	for _, entry := range entries {
		if templateName(entry.Name()) != name {
			continue
		}
		content, err := templatesFS.ReadFile(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read template '%s': %w", name, err)
		}
		return &Template{
			Name:        name,
			File:        entry.Name(),
			Description: GetDescription(name),
			Content:     content,
		}, nil
	}

	return nil, fmt.Errorf("template '%s' not found: %w", name, fs.ErrNotExist)
}

// GetDescription returns the description for a template.
func GetDescription(name string) string {
	if desc, ok := templateDescriptions[name]; ok {
		return desc
	}
	return "Custom template"
}

// IsConfig reports whether the template is an updater config file rather
// than a manifest.
func (t *Template) IsConfig() bool {
	return path.Ext(t.File) != ".txt"
}

// DefaultFileName is the name init writes the template as.
func (t *Template) DefaultFileName() string {
	if !t.IsConfig() {
		return t.File
	}
	return "updater" + path.Ext(t.File)
}
