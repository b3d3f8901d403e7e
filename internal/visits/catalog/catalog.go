// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package catalog is the read-only product catalog the storefront prices.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// ErrNotFound is returned for an unknown product id.
var ErrNotFound = errors.New("product not found")

type Category struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

type Product struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	ImageURL    string  `yaml:"image_url" json:"image_url"`
	CategoryID  string  `yaml:"category_id" json:"category_id"`
	BasePrice   float64 `yaml:"base_price" json:"base_price"`
	Stock       int     `yaml:"stock" json:"stock"`
}

type seedFile struct {
	Categories []Category `yaml:"categories"`
	Products   []Product  `yaml:"products"`
}

// Catalog is immutable after load and safe for concurrent use.
type Catalog struct {
	categories []Category
	products   []Product
	byID       map[string]int
	catByID    map[string]int
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultSeed)
	if err != nil {
		panic(fmt.Sprintf("catalog: built-in seed: %v", err))
	}
	return c
}

// LoadFile reads a YAML seed from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load reads a YAML seed from r.
func Load(r io.Reader) (*Catalog, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse builds a catalog from YAML seed bytes. Product and category ids must
// be unique, prices finite and non-negative, and every category reference known.
func Parse(b []byte) (*Catalog, error) {
	var seed seedFile
	if err := yaml.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}
	cats := make(map[string]int, len(seed.Categories))
	for i, cat := range seed.Categories {
		if cat.ID == "" {
			return nil, fmt.Errorf("category %q: empty id", cat.Name)
		}
		if _, dup := cats[cat.ID]; dup {
			return nil, fmt.Errorf("category %q: duplicate id", cat.ID)
		}
		cats[cat.ID] = i
	}
	c := &Catalog{
		categories: seed.Categories,
		products:   seed.Products,
		byID:       make(map[string]int, len(seed.Products)),
		catByID:    cats,
	}
	for i, p := range seed.Products {
		switch {
		case p.ID == "":
			return nil, fmt.Errorf("product %q: empty id", p.Name)
		case p.BasePrice < 0 || math.IsNaN(p.BasePrice) || math.IsInf(p.BasePrice, 0):
			return nil, fmt.Errorf("product %q: invalid base price %v", p.ID, p.BasePrice)
		case p.Stock < 0:
			return nil, fmt.Errorf("product %q: negative stock", p.ID)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("product %q: duplicate id", p.ID)
		}
		if p.CategoryID != "" {
			if _, ok := cats[p.CategoryID]; !ok {
				return nil, fmt.Errorf("product %q: unknown category %q", p.ID, p.CategoryID)
			}
		}
		c.byID[p.ID] = i
	}
	return c, nil
}

// Product returns the product with the given id.
func (c *Catalog) Product(id string) (Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c.products[i], nil
}

// Categories returns all categories sorted by name.
func (c *Catalog) Categories() []Category {
	out := append([]Category(nil), c.categories...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// UnknownCategory stands in for a product without a known category.
var UnknownCategory = Category{Name: "Unknown"}

// CategoryOf returns the category p belongs to, or UnknownCategory.
func (c *Catalog) CategoryOf(p Product) Category {
	if i, ok := c.catByID[p.CategoryID]; ok {
		return c.categories[i]
	}
	return UnknownCategory
}

// Filter narrows a Search. The zero value matches every product.
type Filter struct {
	// Term matches product names case-insensitively as a substring.
	Term       string
	CategoryID string
	// MinPrice and MaxPrice bound the base price, inclusive. Nil is unbounded.
	MinPrice *float64
	MaxPrice *float64
	// InStock drops products with no stock.
	InStock bool
}

// Search returns products matching f in seed order.
func (c *Catalog) Search(f Filter) []Product {
	term := strings.ToLower(strings.TrimSpace(f.Term))
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		switch {
		case f.CategoryID != "" && p.CategoryID != f.CategoryID:
			continue
		case term != "" && !strings.Contains(strings.ToLower(p.Name), term):
			continue
		case f.MinPrice != nil && p.BasePrice < *f.MinPrice:
			continue
		case f.MaxPrice != nil && p.BasePrice > *f.MaxPrice:
			continue
		case f.InStock && p.Stock <= 0:
			continue
		}
		out = append(out, p)
	}
	return out
}

// Len returns the number of products.
func (c *Catalog) Len() int { return len(c.products) }
