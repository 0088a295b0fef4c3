package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
)

//go:embed catalogs/*.yaml
var catalogFS embed.FS

// Built-in catalog slugs.
const (
	ZeroShot       = "zero_shot"
	FewShot        = "few_shot"
	ChainOfThought = "chain_of_thought"
	PromptChaining = "prompt_chaining"
)

// Load parses the embedded catalog with the given slug.
func Load(slug string) (*Catalog, error) {
	data, err := catalogFS.ReadFile("catalogs/" + slug + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown catalog %q: %w", slug, err)
	}
	return Parse(data)
}

// LoadFile parses a catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Slugs lists the embedded catalogs in sorted order.
func Slugs() []string {
	entries, err := fs.ReadDir(catalogFS, "catalogs")
	if err != nil {
		return nil
	}
	slugs := make([]string, 0, len(entries))
	for _, e := range entries {
		slugs = append(slugs, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	slices.Sort(slugs)
	return slugs
}
