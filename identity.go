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
	"fmt"
)

// ErrEmptyIdentity is returned by Identified for an empty user id.
var ErrEmptyIdentity = errors.New("identity: empty user id")

// Identity is the viewer of a product: either the anonymous guest or a
// signed-in principal with a stable id.
//
// The zero value is the guest. Identified principals can only be built through
// Identified, so no user id (not even the literal "guest") can be mistaken for
// the guest and vice versa.
type Identity struct {
	id         string
	identified bool
}

// Guest returns the guest identity.
func Guest() Identity { return Identity{} }

// Identified returns the identity of a signed-in principal.
func Identified(id string) (Identity, error) {
	if id == "" {
		return Identity{}, ErrEmptyIdentity
	}
	return Identity{id: id, identified: true}, nil
}

// MustIdentified is like Identified but panics on an empty id. Intended for
// tests and static wiring.
func MustIdentified(id string) Identity {
	ident, err := Identified(id)
	if err != nil {
		panic(err)
	}
	return ident
}

// IsGuest reports whether the identity is the guest.
func (i Identity) IsGuest() bool { return !i.identified }

// ID returns the principal id and true for identified viewers, or "" and false
// for the guest.
func (i Identity) ID() (string, bool) { return i.id, i.identified }

// Kind is "guest" or "identified", for logs and metric labels.
func (i Identity) Kind() string {
	if i.identified {
		return "identified"
	}
	return "guest"
}

func (i Identity) String() string {
	if !i.identified {
		return "guest"
	}
	return fmt.Sprintf("user(%s)", i.id)
}
