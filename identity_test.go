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

package ecom

import (
	"errors"
	"testing"
)

func TestIdentity_ZeroValueIsGuest(t *testing.T) {
	var id Identity
	if !id.IsGuest() {
		t.Fatalf("zero Identity should be guest")
	}
	if _, ok := id.ID(); ok {
		t.Fatalf("guest must not expose an id")
	}
	if id != Guest() {
		t.Fatalf("zero value and Guest() differ")
	}
}

// TestIdentity_LiteralGuestIsAUser ensures a principal literally named "guest"
// is never routed as the anonymous guest.
func TestIdentity_LiteralGuestIsAUser(t *testing.T) {
	id, err := Identified("guest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.IsGuest() {
		t.Fatalf("Identified(\"guest\") must not be the guest")
	}
	if id == Guest() {
		t.Fatalf("Identified(\"guest\") compares equal to Guest()")
	}
	if got, ok := id.ID(); !ok || got != "guest" {
		t.Fatalf("ID() = (%q, %v)", got, ok)
	}
	if id.Kind() != "identified" || Guest().Kind() != "guest" {
		t.Fatalf("unexpected kinds: %s / %s", id.Kind(), Guest().Kind())
	}
}

func TestIdentified_RejectsEmpty(t *testing.T) {
	if _, err := Identified(""); !errors.Is(err, ErrEmptyIdentity) {
		t.Fatalf("expected ErrEmptyIdentity, got %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("MustIdentified(\"\") should panic")
		}
	}()
	MustIdentified("")
}

func TestIdentity_String(t *testing.T) {
	if s := MustIdentified("u1").String(); s != "user(u1)" {
		t.Errorf("String() = %q", s)
	}
	if s := Guest().String(); s != "guest" {
		t.Errorf("String() = %q", s)
	}
}
