package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	domitem "github.com/kailas-cloud/souq/internal/domain/item"
)

// Localized is a bilingual value in a catalog file.
type Localized struct {
	Arabic  string `yaml:"ar"`
	English string `yaml:"en"`
}

// Entry is one item of a catalog file. ID is optional; a new one is
// generated when empty.
type Entry struct {
	ID          string    `yaml:"id"`
	Name        Localized `yaml:"name"`
	Description Localized `yaml:"description"`
	Color       Localized `yaml:"color"`
	Material    string    `yaml:"material"`
	Category    string    `yaml:"category"`
	Price       float64   `yaml:"price"`
}

// Input converts the entry to item input.
func (e Entry) Input() domitem.Input {
	return domitem.Input{
		Name:        domitem.Localized(e.Name),
		Description: domitem.Localized(e.Description),
		Color:       domitem.Localized(e.Color),
		Material:    e.Material,
		Category:    e.Category,
		Price:       e.Price,
	}
}

type file struct {
	Items []Entry `yaml:"items"`
}

// LoadFile reads a YAML catalog file.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	return f.Items, nil
}
