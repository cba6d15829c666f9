// Package kiosk holds the static form templates a kiosk operator can pick
// and maps decoded share envelopes onto them.
package kiosk

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"norel-backend/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

var ErrUnknownTemplate = errors.New("unknown form template")

// Catalog is an ordered, read-only set of form templates
type Catalog struct {
	templates []models.FormTemplate
	byID      map[string]int
}

type catalogFile struct {
	Templates []models.FormTemplate `yaml:"templates"`
}

// DefaultCatalog returns the templates compiled into the binary
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultTemplates)
}

// LoadCatalog reads templates from a YAML file, or the built-in set when
// path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading templates file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses and validates a YAML template document
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	if len(file.Templates) == 0 {
		return nil, errors.New("no templates defined")
	}

	c := &Catalog{byID: make(map[string]int, len(file.Templates))}
	for i, tpl := range file.Templates {
		if tpl.ID == "" {
			return nil, fmt.Errorf("template %d: missing id", i)
		}
		if _, dup := c.byID[tpl.ID]; dup {
			return nil, fmt.Errorf("template %q defined twice", tpl.ID)
		}
		if tpl.Name == "" {
			tpl.Name = tpl.ID
		}

		seen := make(map[string]bool, len(tpl.Fields))
		for j := range tpl.Fields {
			f := &tpl.Fields[j]
			if f.ID == "" || f.Label == "" {
				return nil, fmt.Errorf("template %q field %d: id and label are required", tpl.ID, j)
			}
			if seen[f.ID] {
				return nil, fmt.Errorf("template %q: field %q defined twice", tpl.ID, f.ID)
			}
			seen[f.ID] = true
			if f.Type == "" {
				f.Type = "text"
			}
		}

		c.byID[tpl.ID] = len(c.templates)
		c.templates = append(c.templates, tpl)
	}
	return c, nil
}

// Get returns a copy of the template with the given id
func (c *Catalog) Get(id string) (models.FormTemplate, error) {
	i, ok := c.byID[id]
	if !ok {
		return models.FormTemplate{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, id)
	}
	return clone(c.templates[i]), nil
}

// List returns copies of all templates in file order
func (c *Catalog) List() []models.FormTemplate {
	out := make([]models.FormTemplate, len(c.templates))
	for i, tpl := range c.templates {
		out[i] = clone(tpl)
	}
	return out
}

func clone(tpl models.FormTemplate) models.FormTemplate {
	tpl.Fields = append([]models.TemplateField(nil), tpl.Fields...)
	return tpl
}
