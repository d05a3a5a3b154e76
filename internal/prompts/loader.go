// Package prompts holds the embedded prompt templates of the résumé import
// pipeline. Templates use {{.Name}} placeholders.
package prompts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Keys of the import prompts.
const (
	ExtractSystem = "extract-resume-draft-system"
	ExtractDraft  = "extract-resume-draft"
)

//go:embed importing.json
var importingJSON []byte

var placeholderRe = regexp.MustCompile(`\{\{\.([A-Za-z][A-Za-z0-9_]*)\}\}`)

// Catalog maps prompt keys to templates.
type Catalog map[string]string

// Parse decodes a JSON object of key to template.
func Parse(data []byte) (Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse prompt catalog: %w", err)
	}
	return c, nil
}

var importing = sync.OnceValues(func() (Catalog, error) {
	return Parse(importingJSON)
})

// Importing returns the import pipeline's catalog, parsed once.
func Importing() (Catalog, error) {
	return importing()
}

// Get returns the template stored under key.
func (c Catalog) Get(key string) (string, error) {
	template, ok := c[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found", key)
	}
	return template, nil
}

// Render fills the template stored under key, failing if a placeholder has no
// value.
func (c Catalog) Render(key string, data map[string]string) (string, error) {
	template, err := c.Get(key)
	if err != nil {
		return "", err
	}
	for _, name := range Placeholders(template) {
		if _, ok := data[name]; !ok {
			return "", fmt.Errorf("prompt %s: missing value for {{.%s}}", key, name)
		}
	}
	return Format(template, data), nil
}

// Keys returns the catalog's keys in sorted order.
func (c Catalog) Keys() []string {
	keys := make([]string, 0, len(c))
	for key := range c {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Placeholders returns the distinct placeholder names of template in order of
// first use.
func Placeholders(template string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Format replaces {{.Key}} placeholders with values from data. Unknown
// placeholders are kept. Values are inserted verbatim and never expanded again.
func Format(template string, data map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(ph string) string {
		key := strings.TrimSuffix(strings.TrimPrefix(ph, "{{."), "}}")
		if value, ok := data[key]; ok {
			return value
		}
		return ph
	})
}
