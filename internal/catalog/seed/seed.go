// Package seed holds the fallback catalog served when the catalog store is
// empty or unavailable.
package seed

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/fjod/snapeat/internal/catalog/domain"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type Catalog struct {
	Categories []domain.Category `yaml:"categories"`
	Products   []domain.Product  `yaml:"products"`
}

var (
	once    sync.Once
	catalog Catalog
	loadErr error
)

// Load parses the embedded catalog once and validates every product.
func Load() (Catalog, error) {
	once.Do(func() {
		catalog, loadErr = Parse(catalogYAML)
	})
	return catalog, loadErr
}

func Parse(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse seed catalog: %w", err)
	}
	for _, p := range c.Products {
		if err := p.Validate(); err != nil {
			return Catalog{}, fmt.Errorf("seed catalog: %w", err)
		}
	}
	return c, nil
}

// Products returns a copy so callers may modify the slice.
func Products() []domain.Product {
	c, err := Load()
	if err != nil {
		return nil
	}
	out := make([]domain.Product, len(c.Products))
	copy(out, c.Products)
	return out
}

func Categories() []domain.Category {
	c, err := Load()
	if err != nil {
		return nil
	}
	out := make([]domain.Category, len(c.Categories))
	copy(out, c.Categories)
	return out
}

func Product(id int64) (domain.Product, bool) {
	for _, p := range Products() {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}
