// Package catalog загружает тарифы услуг студии.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed pricing.yaml
var pricingYAML []byte

// Tier описывает один тариф.
type Tier struct {
	Key         string   `yaml:"key" json:"key"`
	Name        string   `yaml:"name" json:"name"`
	Price       float64  `yaml:"price" json:"price"`
	Description string   `yaml:"description" json:"description"`
	Features    []string `yaml:"features" json:"features"`
}

// Catalog группирует тарифы по направлениям.
type Catalog struct {
	Prototyping []Tier `yaml:"prototyping" json:"prototyping"`
	Consulting  []Tier `yaml:"consulting" json:"consulting"`
	Training    []Tier `yaml:"training" json:"training"`
}

// Load разбирает встроенный прайс-лист.
func Load() (*Catalog, error) {
	return Parse(pricingYAML)
}

// Parse разбирает прайс-лист из YAML и проверяет цены.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse pricing: %w", err)
	}

	for _, group := range [][]Tier{c.Prototyping, c.Consulting, c.Training} {
		for _, t := range group {
			if t.Key == "" || t.Price <= 0 {
				return nil, fmt.Errorf("invalid pricing tier %q", t.Name)
			}
		}
	}

	return &c, nil
}

// Find возвращает тариф по ключу.
func (c *Catalog) Find(key string) (Tier, bool) {
	for _, group := range [][]Tier{c.Prototyping, c.Consulting, c.Training} {
		for _, t := range group {
			if t.Key == key {
				return t, true
			}
		}
	}
	return Tier{}, false
}
