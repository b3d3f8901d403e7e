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

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	ecom "github.com/Shakthi-16/ecom-project"
)

var (
	errMalformedAuth = errors.New("malformed authorization header")
	errNoSecret      = errors.New("bearer authentication is not configured")
)

type identityKey struct{}

// IdentityFrom returns the viewer identity attached by the identity
// middleware. Requests that never passed through it are guests.
func IdentityFrom(ctx context.Context) ecom.Identity {
	if who, ok := ctx.Value(identityKey{}).(ecom.Identity); ok {
		return who
	}
	return ecom.Guest()
}

// WithIdentity attaches who to ctx.
func WithIdentity(ctx context.Context, who ecom.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, who)
}

// resolveIdentity maps an Authorization header to a viewer identity.
// No header means guest. A bearer token must be an HS256 JWT signed with
// secret whose subject is the user id.
func resolveIdentity(r *http.Request, secret []byte) (ecom.Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ecom.Guest(), nil
	}
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ecom.Identity{}, errMalformedAuth
	}
	if len(secret) == 0 {
		return ecom.Identity{}, errNoSecret
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(header[len(prefix):]), claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return ecom.Identity{}, err
	}
	return ecom.Identified(claims.Subject)
}

// identityMiddleware resolves the viewer and rejects bad credentials with 401.
func (s *Server) identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		who, err := resolveIdentity(r, s.jwtSecret)
		if err != nil {
			s.log.WithError(err).WithField("path", r.URL.Path).Debug("rejected credentials")
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), who)))
	})
}
