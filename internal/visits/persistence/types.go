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

// Package persistence provides durable visit-counter stores for signed-in
// viewers: an in-process document store, Redis, and SQL (Postgres, SQLite,
// libSQL).
//
// Every adapter keys a visit record by a deterministic composite key derived
// from (identity id, item id). Recording a visit is a single atomic upsert on
// that key, so two concurrent first views of the same pair can never create
// two rows, and concurrent increments never lose updates.
package persistence

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// VisitRecord is the durable counter of one identity's views of one item.
//
// ID is an opaque row identifier assigned on creation and is distinct from
// the logical key (IdentityID, ItemID).
type VisitRecord struct {
	ID         string    `json:"id" db:"id"`
	IdentityID string    `json:"identity_id" db:"identity_id"`
	ItemID     string    `json:"item_id" db:"item_id"`
	VisitCount int64     `json:"visit_count" db:"visit_count"`
	CreatedAt  time.Time `json:"created_at" db:"-"`
}

// Store is the durable visit-counter capability consumed by the core.
//
// Increment must be atomic on the backend: it creates the record with a count
// of 1 when absent and otherwise adds exactly 1, returning the new count.
// Find returns every record matching the logical key, oldest first. More than
// one result means the backend holds duplicate rows for the key.
type Store interface {
	Increment(ctx context.Context, identityID, itemID string) (int64, error)
	Find(ctx context.Context, identityID, itemID string) ([]VisitRecord, error)
	Close() error
}

// RecordKey derives the deterministic composite key of (identityID, itemID).
// The identity id is length-prefixed, so no pair of ids can produce the same
// key regardless of the characters they contain.
func RecordKey(identityID, itemID string) string {
	var b strings.Builder
	b.Grow(len(identityID) + len(itemID) + 8)
	b.WriteString(strconv.Itoa(len(identityID)))
	b.WriteByte(':')
	b.WriteString(identityID)
	b.WriteByte(':')
	b.WriteString(itemID)
	return b.String()
}

// newRecordID returns a fresh opaque, lexically time-ordered row id.
func newRecordID() string { return ulid.Make().String() }

// DefaultTimeout bounds a store round trip when the caller did not set a deadline.
const DefaultTimeout = 5 * time.Second

// withDefaultTimeout applies d to ctx when ctx has no deadline.
func withDefaultTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok || d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
