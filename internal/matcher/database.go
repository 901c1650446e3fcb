package matcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrEmptyDatabase is returned when an environmental database holds no
// usable products.
var ErrEmptyDatabase = errors.New("environmental database is empty")

// ErrClosed is returned by Match after Close.
var ErrClosed = errors.New("matcher is closed")

// Product is one entry of an environmental product database, e.g. a
// generic dataset for "Concrete C30/37" with its global warming potential.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Unit     string  `json:"unit"`    // declared unit, e.g. "m3" or "kg"
	GWP      float64 `json:"gwp"`     // kg CO2-eq per declared unit
	Density  float64 `json:"density"` // kg/m3, 0 when unknown
}

// LoadDatabase reads a JSON array of products from path. Entries without an
// id or name are dropped.
func LoadDatabase(path string) ([]Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read environmental database: %w", err)
	}
	return ParseDatabase(data)
}

// ParseDatabase decodes a JSON array of products.
func ParseDatabase(data []byte) ([]Product, error) {
	var raw []Product
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse environmental database: %w", err)
	}

	products := make([]Product, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, p := range raw {
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		if p.ID == "" || p.Name == "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		products = append(products, p)
	}

	if len(products) == 0 {
		return nil, ErrEmptyDatabase
	}
	return products, nil
}
