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
	"errors"
	"fmt"

	"github.com/Shakthi-16/ecom-project/internal/visits/clientstore"
)

var (
	// ErrStoreUnavailable matches any failed or timed-out durable store call.
	ErrStoreUnavailable = errors.New("visit store unavailable")
	// ErrDuplicateRecord marks more than one durable record for one (identity, item) pair.
	ErrDuplicateRecord = errors.New("duplicate visit records")
	// ErrNoClientStore is returned when a guest visit arrives without a client-local store.
	ErrNoClientStore = errors.New("guest visit without a client store")
	// ErrEmptyItem rejects an empty item id.
	ErrEmptyItem = errors.New("empty item id")
	// ErrMalformedLocalState aliases the client store's decoding error.
	ErrMalformedLocalState = clientstore.ErrMalformedState
)

// StoreError wraps a durable store failure. It matches ErrStoreUnavailable and
// unwraps to the backend error (for example context.DeadlineExceeded).
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("visit store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }
