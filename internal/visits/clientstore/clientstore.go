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

// Package clientstore models the client-local key-value storage that holds
// guest visit counts: one mapping per browser profile, shared by every guest
// using that profile.
package clientstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// GuestVisitsKey is the key the guest visit mapping is stored under.
const GuestVisitsKey = "guestVisits"

// ErrMalformedState reports a guest mapping that could not be decoded.
var ErrMalformedState = errors.New("clientstore: malformed guest visit state")

// ErrValueTooLarge is returned by a KV that cannot hold a value of that size.
var ErrValueTooLarge = errors.New("clientstore: value too large")

// KV is a client-local persistent string store.
type KV interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// LoadGuestVisits decodes the guest mapping (item id -> visit count).
// An absent mapping yields an empty map and no error. An undecodable one, or
// one holding negative counts, yields an empty map and ErrMalformedState so
// callers can log it and carry on.
func LoadGuestVisits(kv KV) (map[string]int64, error) {
	raw, ok := kv.Get(GuestVisitsKey)
	if !ok || raw == "" {
		return map[string]int64{}, nil
	}
	var m map[string]int64
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return map[string]int64{}, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	if m == nil {
		return map[string]int64{}, nil
	}
	for item, n := range m {
		if n < 0 {
			return map[string]int64{}, fmt.Errorf("%w: negative count for %q", ErrMalformedState, item)
		}
	}
	return m, nil
}

// SaveGuestVisits encodes m and writes it back.
func SaveGuestVisits(kv KV, m map[string]int64) error {
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode guest visits: %w", err)
	}
	return kv.Set(GuestVisitsKey, string(b))
}

// SaveGuestVisitsPruned writes m like SaveGuestVisits. While kv rejects the
// mapping with ErrValueTooLarge, the least-viewed item other than keep is
// removed from m (ties drop the larger id first) and the write is retried.
// It returns the number of items dropped.
func SaveGuestVisitsPruned(kv KV, m map[string]int64, keep string) (int, error) {
	err := SaveGuestVisits(kv, m)
	if !errors.Is(err, ErrValueTooLarge) {
		return 0, err
	}
	victims := make([]string, 0, len(m))
	for item := range m {
		if item != keep {
			victims = append(victims, item)
		}
	}
	sort.Slice(victims, func(i, j int) bool {
		if m[victims[i]] != m[victims[j]] {
			return m[victims[i]] < m[victims[j]]
		}
		return victims[i] > victims[j]
	})
	dropped := 0
	for _, item := range victims {
		delete(m, item)
		dropped++
		err = SaveGuestVisits(kv, m)
		if !errors.Is(err, ErrValueTooLarge) {
			return dropped, err
		}
	}
	return dropped, err
}

// Memory is an in-process KV for a single client. Safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory { return &Memory{data: make(map[string]string)} }

func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return nil
}
