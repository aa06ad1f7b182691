// Package catalog holds the read-only set of tool descriptors shown in the gallery.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pdf-tools/backend/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed tools.yaml
var defaultTools []byte

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Catalog is an ordered, immutable set of tools.
type Catalog struct {
	tools []models.Tool
	byID  map[models.ToolID]int
}

type document struct {
	Tools []models.Tool `yaml:"tools"`
}

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(bytes.NewReader(defaultTools))
		if err != nil {
			panic(fmt.Sprintf("embedded tool catalog is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes and validates a YAML catalog document.
func Parse(r io.Reader) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return New(doc.Tools)
}

// New builds a catalog from tools, preserving order.
func New(tools []models.Tool) (*Catalog, error) {
	if len(tools) == 0 {
		return nil, fmt.Errorf("catalog has no tools")
	}

	c := &Catalog{
		tools: make([]models.Tool, 0, len(tools)),
		byID:  make(map[models.ToolID]int, len(tools)),
	}
	for i, t := range tools {
		if !t.ID.IsKnown() {
			return nil, fmt.Errorf("tool %d: unknown id %q", i, t.ID)
		}
		if t.Title == "" {
			return nil, fmt.Errorf("tool %q: missing title", t.ID)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("tool %q: duplicate id", t.ID)
		}
		c.byID[t.ID] = len(c.tools)
		c.tools = append(c.tools, t.Clone())
	}
	return c, nil
}

// Tools returns a copy of all tools in display order.
func (c *Catalog) Tools() []models.Tool {
	out := make([]models.Tool, len(c.tools))
	for i, t := range c.tools {
		out[i] = t.Clone()
	}
	return out
}

// Get returns a copy of the tool with the given ID.
func (c *Catalog) Get(id models.ToolID) (models.Tool, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Tool{}, false
	}
	return c.tools[i].Clone(), true
}

// Has reports whether the catalog contains id.
func (c *Catalog) Has(id models.ToolID) bool {
	_, ok := c.byID[id]
	return ok
}

// Len returns the number of tools.
func (c *Catalog) Len() int {
	return len(c.tools)
}
