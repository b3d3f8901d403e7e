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

// Package ecom holds the storefront's visit-based dynamic pricing primitives:
// the price adjuster and the viewer identity used to route visit tracking.
//
// The displayed price of a product grows linearly with the number of times the
// same viewer has looked at it:
//
//	adjusted = base + visits * increment
//
// Prices are carried at full float64 precision. Rounding to currency precision
// happens only at presentation time (see DisplayPrice).
package ecom

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// DefaultIncrement is the per-visit price increase, in currency units.
const DefaultIncrement = 0.5

// ErrInvalidInput reports a violated precondition of the price adjuster:
// a negative, NaN or infinite base price, or a negative visit count.
var ErrInvalidInput = errors.New("invalid input")

// Pricer derives display prices from a base price and a visit count.
// The zero value uses DefaultIncrement.
type Pricer struct {
	// Increment is added to the base price once per recorded visit.
	Increment float64
}

// NewPricer returns a Pricer using the given per-visit increment.
// A negative or non-finite increment is rejected.
func NewPricer(increment float64) (Pricer, error) {
	if increment < 0 || math.IsNaN(increment) || math.IsInf(increment, 0) {
		return Pricer{}, fmt.Errorf("increment %v: %w", increment, ErrInvalidInput)
	}
	return Pricer{Increment: increment}, nil
}

// increment returns the configured increment, falling back to the default for
// the zero value.
func (p Pricer) increment() float64 {
	if p.Increment == 0 {
		return DefaultIncrement
	}
	return p.Increment
}

// AdjustedPrice returns base + visits*increment.
//
// Negative inputs are rejected with ErrInvalidInput rather than clamped: they
// indicate a caller bug, not a runtime condition.
func (p Pricer) AdjustedPrice(base float64, visits int64) (float64, error) {
	if base < 0 || math.IsNaN(base) || math.IsInf(base, 0) {
		return 0, fmt.Errorf("base price %v: %w", base, ErrInvalidInput)
	}
	if visits < 0 {
		return 0, fmt.Errorf("visit count %d: %w", visits, ErrInvalidInput)
	}
	if visits == 0 {
		return base, nil
	}
	return base + float64(visits)*p.increment(), nil
}

// Quote computes a PriceQuote for itemID.
func (p Pricer) Quote(itemID string, base float64, visits int64) (PriceQuote, error) {
	adjusted, err := p.AdjustedPrice(base, visits)
	if err != nil {
		return PriceQuote{}, err
	}
	return PriceQuote{
		ItemID:        itemID,
		BasePrice:     base,
		VisitCount:    visits,
		Increment:     p.increment(),
		AdjustedPrice: adjusted,
	}, nil
}

// AdjustedPrice applies DefaultIncrement.
func AdjustedPrice(base float64, visits int64) (float64, error) {
	return Pricer{}.AdjustedPrice(base, visits)
}

// PriceQuote is a derived, never persisted, display price for one viewer.
type PriceQuote struct {
	ItemID        string  `json:"item_id"`
	BasePrice     float64 `json:"base_price"`
	VisitCount    int64   `json:"visit_count"`
	Increment     float64 `json:"increment"`
	AdjustedPrice float64 `json:"adjusted_price"`
}

// Surcharge is the amount added on top of the base price.
func (q PriceQuote) Surcharge() float64 { return q.AdjustedPrice - q.BasePrice }

// DisplayPrice formats a price with two decimals for presentation.
func DisplayPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', 2, 64)
}
