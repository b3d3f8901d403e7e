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

package core

import (
	"context"

	"github.com/sirupsen/logrus"

	ecom "github.com/Shakthi-16/ecom-project"
	"github.com/Shakthi-16/ecom-project/internal/visits/audit"
	"github.com/Shakthi-16/ecom-project/internal/visits/clientstore"
	"github.com/Shakthi-16/ecom-project/internal/visits/telemetry"
)

// VisitLog receives every recorded visit.
type VisitLog interface {
	Append(audit.Event)
}

// ViewResult is the outcome of a product view. Warnings lists tracking
// failures that were absorbed; the quote is always usable.
type ViewResult struct {
	Quote    ecom.PriceQuote `json:"quote"`
	Recorded bool            `json:"recorded"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Tracker runs the view flow: record the visit, read the count, price it.
// Tracking is best effort; only caller bugs (empty item, invalid price) fail a view.
type Tracker struct {
	counter *Counter
	pricer  ecom.Pricer
	log     logrus.FieldLogger
	audit   VisitLog
}

// TrackerOption customizes a Tracker.
type TrackerOption func(*Tracker)

// WithAuditLog forwards recorded visits to l.
func WithAuditLog(l VisitLog) TrackerOption {
	return func(t *Tracker) { t.audit = l }
}

// WithTrackerLogger sets the logger for degradation warnings.
func WithTrackerLogger(l logrus.FieldLogger) TrackerOption {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

// NewTracker builds a Tracker over counter using pricer.
func NewTracker(counter *Counter, pricer ecom.Pricer, opts ...TrackerOption) *Tracker {
	t := &Tracker{counter: counter, pricer: pricer, log: logrus.StandardLogger()}
	for _, o := range opts {
		o(t)
	}
	return t
}

// View records that who viewed itemID and returns the adjusted quote using the
// just-updated count. When the record succeeds but the count read fails, the
// recorded count is used; when both fail the view degrades to 0 visits.
func (t *Tracker) View(ctx context.Context, client clientstore.KV, who ecom.Identity, itemID string, basePrice float64) (ViewResult, error) {
	if err := t.validate(itemID, basePrice); err != nil {
		return ViewResult{}, err
	}
	var res ViewResult

	n, err := t.counter.RecordVisit(ctx, client, who, itemID)
	if err != nil {
		res.Warnings = append(res.Warnings, "visit not recorded: "+err.Error())
		t.entry(who, itemID).WithError(err).Warn("visit not recorded")
	} else {
		res.Recorded = true
		if t.audit != nil {
			userID, _ := who.ID()
			t.audit.Append(audit.NewEvent(who.Kind(), userID, itemID, n))
		}
	}

	count, err := t.counter.VisitCount(ctx, client, who, itemID)
	if err != nil {
		res.Warnings = append(res.Warnings, "visit count unavailable: "+err.Error())
		if res.Recorded {
			t.entry(who, itemID).WithError(err).Warn("visit count unavailable, pricing with recorded count")
			count = n
		} else {
			t.entry(who, itemID).WithError(err).Warn("visit count unavailable, pricing at 0 visits")
			count = 0
		}
	}
	q, err := t.pricer.Quote(itemID, basePrice, count)
	if err != nil {
		return ViewResult{}, err
	}
	res.Quote = q
	telemetry.ObserveQuote()
	recordQuote()
	return res, nil
}

// Quote prices itemID for who without recording a visit.
func (t *Tracker) Quote(ctx context.Context, client clientstore.KV, who ecom.Identity, itemID string, basePrice float64) (ViewResult, error) {
	if err := t.validate(itemID, basePrice); err != nil {
		return ViewResult{}, err
	}
	var res ViewResult
	count := t.count(ctx, client, who, itemID, &res)
	q, err := t.pricer.Quote(itemID, basePrice, count)
	if err != nil {
		return ViewResult{}, err
	}
	res.Quote = q
	telemetry.ObserveQuote()
	recordQuote()
	return res, nil
}

// Item is one product to price in a listing.
type Item struct {
	ID        string
	BasePrice float64
}

// QuoteAll prices items for who without recording visits. Durable reads share
// one store deadline for the whole listing, and after the first failed read the
// remaining items are priced at 0 visits without asking the store again.
// Results are in input order.
func (t *Tracker) QuoteAll(ctx context.Context, client clientstore.KV, who ecom.Identity, items []Item) ([]ViewResult, error) {
	for _, it := range items {
		if err := t.validate(it.ID, it.BasePrice); err != nil {
			return nil, err
		}
	}
	ctx, cancel := context.WithTimeout(ctx, t.counter.timeout)
	defer cancel()

	out := make([]ViewResult, 0, len(items))
	var storeErr error
	skipped := 0
	for _, it := range items {
		var res ViewResult
		var count int64
		if storeErr != nil {
			skipped++
			res.Warnings = []string{"visit count unavailable: " + storeErr.Error()}
		} else if n, err := t.counter.VisitCount(ctx, client, who, it.ID); err != nil {
			storeErr = err
			res.Warnings = []string{"visit count unavailable: " + err.Error()}
		} else {
			count = n
		}
		q, err := t.pricer.Quote(it.ID, it.BasePrice, count)
		if err != nil {
			return nil, err
		}
		res.Quote = q
		telemetry.ObserveQuote()
		recordQuote()
		out = append(out, res)
	}
	if storeErr != nil {
		t.log.WithError(storeErr).WithFields(logrus.Fields{
			"identity_kind": who.Kind(),
			"items":         len(items),
			"skipped":       skipped,
		}).Warn("visit counts unavailable, listing priced at 0 visits")
	}
	return out, nil
}

func (t *Tracker) validate(itemID string, basePrice float64) error {
	if itemID == "" {
		return ErrEmptyItem
	}
	_, err := t.pricer.AdjustedPrice(basePrice, 0)
	return err
}

func (t *Tracker) count(ctx context.Context, client clientstore.KV, who ecom.Identity, itemID string, res *ViewResult) int64 {
	n, err := t.counter.VisitCount(ctx, client, who, itemID)
	if err != nil {
		res.Warnings = append(res.Warnings, "visit count unavailable: "+err.Error())
		t.entry(who, itemID).WithError(err).Warn("visit count unavailable, pricing at 0 visits")
		return 0
	}
	return n
}

func (t *Tracker) entry(who ecom.Identity, itemID string) *logrus.Entry {
	return t.log.WithFields(logrus.Fields{"identity_kind": who.Kind(), "item_id": itemID})
}
