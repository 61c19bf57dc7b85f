package infra

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
)

// StaticCatalog is an in-process catalog for local runs and tests.
type StaticCatalog struct {
	mu       sync.RWMutex
	variants map[string]domain.Variant
}

func NewStaticCatalog(variants ...domain.Variant) *StaticCatalog {
	c := &StaticCatalog{variants: make(map[string]domain.Variant, len(variants))}
	for _, v := range variants {
		c.Put(v)
	}
	return c
}

func (c *StaticCatalog) Put(v domain.Variant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variants[v.ProductID+"/"+v.VariantID] = v
}

func (c *StaticCatalog) GetVariant(_ context.Context, productID, variantID string) (*domain.Variant, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.variants[productID+"/"+variantID]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

// SeedVariant is one entry of a catalog seed file: a variant plus its opening stock.
type SeedVariant struct {
	ProductID     string `yaml:"product_id"`
	VariantID     string `yaml:"variant_id"`
	ProductName   string `yaml:"product_name"`
	VariantName   string `yaml:"variant_name"`
	Weight        string `yaml:"weight"`
	SKU           string `yaml:"sku"`
	Price         string `yaml:"price"`
	OriginalPrice string `yaml:"original_price"`
	Inactive      bool   `yaml:"inactive"`
	Stock         int    `yaml:"stock"`
}

func (s SeedVariant) Variant() (domain.Variant, error) {
	price, err := decimal.NewFromString(s.Price)
	if err != nil {
		return domain.Variant{}, fmt.Errorf("variant %s price %q: %w", s.VariantID, s.Price, err)
	}

	original := price
	if s.OriginalPrice != "" {
		if original, err = decimal.NewFromString(s.OriginalPrice); err != nil {
			return domain.Variant{}, fmt.Errorf("variant %s original price %q: %w", s.VariantID, s.OriginalPrice, err)
		}
	}

	return domain.Variant{
		ProductID:     s.ProductID,
		VariantID:     s.VariantID,
		ProductName:   s.ProductName,
		VariantName:   s.VariantName,
		Weight:        s.Weight,
		SKU:           s.SKU,
		Price:         price,
		OriginalPrice: original,
		Active:        !s.Inactive,
	}, nil
}

// LoadSeedFile reads a YAML list of SeedVariant.
func LoadSeedFile(path string) ([]SeedVariant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	var seed struct {
		Variants []SeedVariant `yaml:"variants"`
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed YAML: %w", err)
	}

	return seed.Variants, nil
}
