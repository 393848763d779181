// Package tools is the tool catalog and the dispatcher that runs a tool by slug.
package tools

import (
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownTool is returned for a slug that is not in the catalog
	ErrUnknownTool = errors.New("unknown tool")

	// ErrNotImplemented is returned when running a catalog entry that has no processing function
	ErrNotImplemented = errors.New("tool not implemented")
)

// Tool is one catalog entry
type Tool struct {
	Slug        string   `yaml:"slug" json:"slug"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Category    string   `yaml:"category" json:"category"`
	Implemented bool     `yaml:"implemented" json:"implemented"`
	Inputs      []string `yaml:"inputs" json:"inputs"`
	MultiFile   bool     `yaml:"multi_file" json:"multi_file"`
	Output      string   `yaml:"output" json:"output"`
	Result      string   `yaml:"result" json:"-"`
}

// Category groups tools for browsing
type Category struct {
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
	Color string `yaml:"color" json:"color"`
}

// Accepts reports whether kind is one of the tool's inputs
func (t Tool) Accepts(kind string) bool {
	return slices.Contains(t.Inputs, kind)
}

// ResultName fills the result template from the first input's file name.
// {name} is the file name and {base} the name without its extension.
func (t Tool) ResultName(input string) string {
	name := filepath.Base(input)
	if input == "" || name == "." || name == "/" {
		name = "document.pdf"
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("{name}", name, "{base}", base).Replace(t.Result)
}

//go:embed catalog.yaml
var catalogYAML []byte

type catalogFile struct {
	Categories []Category `yaml:"categories"`
	Tools      []Tool     `yaml:"tools"`
}

var (
	loadOnce sync.Once
	loaded   catalogFile
	loadErr  error
)

func load() catalogFile {
	loadOnce.Do(func() {
		loadErr = yaml.Unmarshal(catalogYAML, &loaded)
		if loadErr == nil {
			loadErr = loaded.check()
		}
	})
	if loadErr != nil {
		panic(fmt.Sprintf("invalid embedded tool catalog: %v", loadErr))
	}
	return loaded
}

func (c catalogFile) check() error {
	known := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		known[cat.Key] = true
	}
	seen := make(map[string]bool, len(c.Tools))
	for _, t := range c.Tools {
		switch {
		case t.Slug == "" || t.Name == "":
			return fmt.Errorf("tool without slug or name")
		case seen[t.Slug]:
			return fmt.Errorf("duplicate tool %q", t.Slug)
		case !known[t.Category]:
			return fmt.Errorf("tool %q has unknown category %q", t.Slug, t.Category)
		case len(t.Inputs) == 0:
			return fmt.Errorf("tool %q accepts no inputs", t.Slug)
		case t.Result == "":
			return fmt.Errorf("tool %q has no result name", t.Slug)
		}
		seen[t.Slug] = true
	}
	return nil
}

// Catalog returns every tool in declaration order
func Catalog() []Tool {
	return slices.Clone(load().Tools)
}

// Categories returns the tool categories in declaration order
func Categories() []Category {
	return slices.Clone(load().Categories)
}

// BySlug looks a tool up by its slug
func BySlug(slug string) (Tool, error) {
	for _, t := range load().Tools {
		if t.Slug == slug {
			return t, nil
		}
	}
	return Tool{}, fmt.Errorf("%w: %q", ErrUnknownTool, slug)
}

// Filter returns the tools whose name or description contains query, case
// insensitively, within category. An empty category or "all" matches every category.
func Filter(query, category string) []Tool {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []Tool
	for _, t := range load().Tools {
		if category != "" && category != "all" && t.Category != category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(t.Name), q) && !strings.Contains(strings.ToLower(t.Description), q) {
			continue
		}
		out = append(out, t)
	}
	return out
}
