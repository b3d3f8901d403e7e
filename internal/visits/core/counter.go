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

// Package core implements visit tracking and the product view flow.
//
// Visits by signed-in viewers go to a durable store through one atomic upsert
// per view. Guest visits go to a client-local mapping shared by every guest of
// that client, where last-writer-wins across tabs is accepted.
package core

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	ecom "github.com/Shakthi-16/ecom-project"
	"github.com/Shakthi-16/ecom-project/internal/visits/clientstore"
	"github.com/Shakthi-16/ecom-project/internal/visits/persistence"
	"github.com/Shakthi-16/ecom-project/internal/visits/telemetry"
)

// DefaultStoreTimeout bounds each durable store round trip.
const DefaultStoreTimeout = 2 * time.Second

// Counter records and reads visit counts, routing on the viewer identity.
type Counter struct {
	store   persistence.Store
	timeout time.Duration
	log     logrus.FieldLogger
}

// CounterOption customizes a Counter.
type CounterOption func(*Counter)

// WithStoreTimeout sets the per-call durable store timeout.
func WithStoreTimeout(d time.Duration) CounterOption {
	return func(c *Counter) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for integrity and degradation warnings.
func WithLogger(l logrus.FieldLogger) CounterOption {
	return func(c *Counter) {
		if l != nil {
			c.log = l
		}
	}
}

// NewCounter creates a Counter over the durable store.
func NewCounter(store persistence.Store, opts ...CounterOption) *Counter {
	c := &Counter{store: store, timeout: DefaultStoreTimeout, log: logrus.StandardLogger()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// RecordVisit records that who viewed itemID and returns the resulting count.
//
// Guests: the mapping in client is incremented and written back; a malformed
// mapping is logged and replaced. Signed-in viewers: the durable record is
// upserted atomically. Write failures are returned, never swallowed; durable
// failures match ErrStoreUnavailable.
func (c *Counter) RecordVisit(ctx context.Context, client clientstore.KV, who ecom.Identity, itemID string) (int64, error) {
	if itemID == "" {
		return 0, ErrEmptyItem
	}
	userID, ok := who.ID()
	if !ok {
		return c.recordGuest(client, itemID)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()
	n, err := c.store.Increment(ctx, userID, itemID)
	telemetry.ObserveStoreLatency(telemetry.OpRecord, time.Since(start))
	if err != nil {
		telemetry.ObserveError(telemetry.OpRecord)
		recordStoreFailure()
		return 0, &StoreError{Op: "increment", Err: err}
	}
	telemetry.ObserveVisit(telemetry.PathIdentified, itemID)
	recordVisitOutcome(false)
	return n, nil
}

func (c *Counter) recordGuest(client clientstore.KV, itemID string) (int64, error) {
	if client == nil {
		return 0, ErrNoClientStore
	}
	visits, err := clientstore.LoadGuestVisits(client)
	if err != nil {
		c.warnMalformed(err, itemID)
	}
	visits[itemID]++
	dropped, err := clientstore.SaveGuestVisitsPruned(client, visits, itemID)
	if err != nil {
		return 0, err
	}
	if dropped > 0 {
		c.log.WithFields(logrus.Fields{"item_id": itemID, "dropped": dropped, "kept": len(visits)}).
			Warn("guest visit state over client size limit, dropped least-viewed items")
	}
	telemetry.ObserveVisit(telemetry.PathGuest, itemID)
	recordVisitOutcome(true)
	return visits[itemID], nil
}

// VisitCount returns how many times who has viewed itemID.
//
// Guests never get an error: an absent or malformed mapping counts as 0.
// Signed-in viewers get 0 when no record exists; when duplicates exist the
// oldest record is authoritative and an integrity warning is logged.
func (c *Counter) VisitCount(ctx context.Context, client clientstore.KV, who ecom.Identity, itemID string) (int64, error) {
	if itemID == "" {
		return 0, ErrEmptyItem
	}
	userID, ok := who.ID()
	if !ok {
		if client == nil {
			return 0, nil
		}
		visits, err := clientstore.LoadGuestVisits(client)
		if err != nil {
			c.warnMalformed(err, itemID)
			return 0, nil
		}
		return visits[itemID], nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()
	recs, err := c.store.Find(ctx, userID, itemID)
	telemetry.ObserveStoreLatency(telemetry.OpCount, time.Since(start))
	if err != nil {
		telemetry.ObserveError(telemetry.OpCount)
		recordStoreFailure()
		return 0, &StoreError{Op: "find", Err: err}
	}
	if len(recs) == 0 {
		return 0, nil
	}
	if len(recs) > 1 {
		telemetry.ObserveDuplicate()
		c.log.WithFields(logrus.Fields{
			"identity_id": userID,
			"item_id":     itemID,
			"records":     len(recs),
			"using":       recs[0].ID,
		}).WithError(ErrDuplicateRecord).Warn("integrity: more than one visit record for one identity and item")
	}
	if recs[0].VisitCount < 0 {
		c.log.WithFields(logrus.Fields{"identity_id": userID, "item_id": itemID, "record": recs[0].ID}).
			Warn("integrity: negative visit count, treating as 0")
		return 0, nil
	}
	return recs[0].VisitCount, nil
}

func (c *Counter) warnMalformed(err error, itemID string) {
	if !errors.Is(err, ErrMalformedLocalState) {
		return
	}
	telemetry.ObserveMalformedGuestState()
	c.log.WithError(err).WithField("item_id", itemID).Warn("guest visit state reset")
}
