// Package seed loads reference units, property definitions and sample products from YAML.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/buildledger/unitfilter/internal/domain"
	"github.com/buildledger/unitfilter/internal/platform/logger"
)

// File is the layout of a seed document
type File struct {
	Units      []domain.Unit               `yaml:"units"`
	Properties []domain.PropertyDefinition `yaml:"properties"`
	Products   []map[string]interface{}    `yaml:"products"`
}

// Targets are the stores a seed is written to; nil targets are skipped
type Targets struct {
	Units      domain.UnitCatalogRepository
	Properties domain.PropertyRepository
	Products   domain.ProductRepository
	// Normalize runs on each product before it is stored
	Normalize func(domain.Product) int
}

// Result counts what was written
type Result struct {
	Units      int
	Properties int
	Products   int
	Normalized int
}

// Load reads a seed file from disk
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a seed document
func Decode(r io.Reader) (*File, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return &file, nil
		}
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	return &file, nil
}

// ProductList converts the decoded product maps into domain products
func (f *File) ProductList() []domain.Product {
	out := make([]domain.Product, 0, len(f.Products))
	for _, p := range f.Products {
		out = append(out, domain.Product(p))
	}
	return out
}

// Apply upserts the seed into targets
func Apply(ctx context.Context, file *File, targets Targets, log *logger.Logger) (Result, error) {
	log = logger.OrNop(log).With("service", "Seed")
	var res Result

	if targets.Units != nil {
		for i := range file.Units {
			if err := targets.Units.Save(ctx, &file.Units[i]); err != nil {
				return res, fmt.Errorf("save unit %q: %w", file.Units[i].Code, err)
			}
			res.Units++
		}
	}

	if targets.Properties != nil {
		for i := range file.Properties {
			if err := targets.Properties.Save(ctx, &file.Properties[i]); err != nil {
				return res, fmt.Errorf("save property %q: %w", file.Properties[i].Key, err)
			}
			res.Properties++
		}
	}

	if targets.Products != nil && len(file.Products) > 0 {
		products := file.ProductList()
		if targets.Normalize != nil {
			for _, p := range products {
				res.Normalized += targets.Normalize(p)
			}
		}
		if err := targets.Products.Insert(ctx, products...); err != nil {
			return res, fmt.Errorf("insert products: %w", err)
		}
		res.Products = len(products)
	}

	log.Info("seed applied",
		"units", res.Units,
		"properties", res.Properties,
		"products", res.Products,
		"normalizedValues", res.Normalized,
	)
	return res, nil
}
