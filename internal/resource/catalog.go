package resource

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

//go:embed seeds/*.yaml
var embeddedSeeds embed.FS

// seedExtensions lists the file extensions accepted in an override directory.
var seedExtensions = []string{".yaml", ".yml"}

type seedSet map[string][]map[string]any

// Catalog holds the mock collection of every resource. Collections come from
// the embedded seeds, optionally overridden per resource by <dir>/<name>.yaml.
// Reload swaps the whole set atomically, so readers never see a partial update.
type Catalog struct {
	dir    string
	logger *slog.Logger
	seeds  atomic.Pointer[seedSet]
}

// NewCatalog loads all seed collections. dir may be empty.
func NewCatalog(dir string, logger *slog.Logger) (*Catalog, error) {
	c := &Catalog{
		dir:    dir,
		logger: logger.With("component", "catalog"),
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Dir returns the override directory, or empty.
func (c *Catalog) Dir() string {
	return c.dir
}

// Seeds returns the mock collection for a resource. The returned records are
// shared and must not be modified.
func (c *Catalog) Seeds(name string) []map[string]any {
	set := c.seeds.Load()
	if set == nil {
		return nil
	}
	return (*set)[name]
}

// Reload re-reads every collection. On error the previous set stays active.
func (c *Catalog) Reload() error {
	set := make(seedSet)
	for _, def := range Definitions() {
		records, source, err := c.load(def.Name)
		if err != nil {
			return fmt.Errorf("catalog: load %s: %w", def.Name, err)
		}
		set[def.Name] = records
		c.logger.Debug("loaded seed collection",
			"resource", def.Name,
			"source", source,
			"records", len(records),
		)
	}
	c.seeds.Store(&set)
	return nil
}

func (c *Catalog) load(name string) ([]map[string]any, string, error) {
	if c.dir != "" {
		for _, ext := range seedExtensions {
			path := filepath.Join(c.dir, name+ext)
			data, err := os.ReadFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, path, err
			}
			records, err := parseSeeds(data)
			if err != nil {
				return nil, path, fmt.Errorf("parse %s: %w", path, err)
			}
			return records, path, nil
		}
	}

	path := "seeds/" + name + ".yaml"
	data, err := embeddedSeeds.ReadFile(path)
	if err != nil {
		return nil, path, err
	}
	records, err := parseSeeds(data)
	if err != nil {
		return nil, path, fmt.Errorf("parse embedded %s: %w", path, err)
	}
	return records, "embedded", nil
}

// parseSeeds decodes a YAML sequence of mappings.
func parseSeeds(data []byte) ([]map[string]any, error) {
	var records []map[string]any
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []map[string]any{}
	}
	return records, nil
}
