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

package persistence

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process document store holding visit records.
//
// It mirrors the primitives of a hosted document database: search by field
// equality (Find), create a document (Create) and atomically increment a
// field (Increment). Increment upserts on the composite record key under a
// single lock, so it never produces duplicates on its own; Create exists to
// load legacy documents, which may include duplicate rows for one key.
type MemoryStore struct {
	mu    sync.Mutex
	docs  map[string]*VisitRecord // row id -> record
	byKey map[string][]string     // record key -> row ids, creation order
	now   func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:  make(map[string]*VisitRecord),
		byKey: make(map[string][]string),
		now:   time.Now,
	}
}

// Increment adds one visit to the record of (identityID, itemID), creating it
// with a count of 1 when absent. When legacy duplicates exist the oldest row
// receives the increment, matching the row Find reports first.
func (m *MemoryStore) Increment(ctx context.Context, identityID, itemID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	key := RecordKey(identityID, itemID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if ids := m.byKey[key]; len(ids) > 0 {
		doc := m.docs[ids[0]]
		for _, id := range ids[1:] {
			if d := m.docs[id]; olderThan(d, doc) {
				doc = d
			}
		}
		doc.VisitCount++
		return doc.VisitCount, nil
	}
	doc := &VisitRecord{
		ID:         newRecordID(),
		IdentityID: identityID,
		ItemID:     itemID,
		VisitCount: 1,
		CreatedAt:  m.now(),
	}
	m.docs[doc.ID] = doc
	m.byKey[key] = []string{doc.ID}
	return 1, nil
}

// Find returns copies of the records for (identityID, itemID), oldest first.
func (m *MemoryStore) Find(ctx context.Context, identityID, itemID string) ([]VisitRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	ids := m.byKey[RecordKey(identityID, itemID)]
	out := make([]VisitRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.docs[id])
	}
	m.mu.Unlock()
	sortRecords(out)
	return out, nil
}

// Create inserts rec as a new document without checking for an existing record
// of the same key and returns its row id. rec.ID and rec.CreatedAt are filled in
// when empty.
func (m *MemoryStore) Create(ctx context.Context, rec VisitRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if rec.ID == "" {
		rec.ID = newRecordID()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now()
	}
	key := RecordKey(rec.IdentityID, rec.ItemID)
	m.docs[rec.ID] = &rec
	m.byKey[key] = append(m.byKey[key], rec.ID)
	return rec.ID, nil
}

// Len returns the number of stored documents.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

// sortRecords orders records by creation time, then row id.
func sortRecords(recs []VisitRecord) {
	sort.SliceStable(recs, func(i, j int) bool { return olderThan(&recs[i], &recs[j]) })
}

func olderThan(a, b *VisitRecord) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
