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

package clientstore

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// CookieMaxAge is how long the browser keeps a client-local value.
const CookieMaxAge = 365 * 24 * time.Hour

// MaxCookieBytes bounds a cookie's name plus encoded value. Browsers drop
// cookies past 4096 bytes without telling the server.
const MaxCookieBytes = 4000

// Cookie is a KV scoped to one HTTP exchange: reads come from the request's
// cookies, writes become Set-Cookie headers on the response and are visible to
// later reads in the same exchange. The browser profile is the persistence
// layer, so state survives across requests without any server-side record.
type Cookie struct {
	r      *http.Request
	w      http.ResponseWriter
	prefix string
	secure bool

	mu      sync.Mutex
	written map[string]string
}

// NewCookie binds a KV to one request/response pair. Cookie names are prefix+key.
func NewCookie(w http.ResponseWriter, r *http.Request, prefix string, secure bool) *Cookie {
	return &Cookie{r: r, w: w, prefix: prefix, secure: secure, written: map[string]string{}}
}

func (c *Cookie) Get(key string) (string, bool) {
	c.mu.Lock()
	v, ok := c.written[key]
	c.mu.Unlock()
	if ok {
		return v, true
	}
	ck, err := c.r.Cookie(c.prefix + key)
	if err != nil {
		return "", false
	}
	b, err := base64.RawURLEncoding.DecodeString(ck.Value)
	if err != nil {
		// Return the raw value; the decoder upstream treats it as malformed state.
		return ck.Value, true
	}
	return string(b), true
}

// Set writes value as a cookie. Values the browser would drop are rejected
// with ErrValueTooLarge and nothing is written.
func (c *Cookie) Set(key, value string) error {
	name := c.prefix + key
	encoded := base64.RawURLEncoding.EncodeToString([]byte(value))
	if n := len(name) + len(encoded); n > MaxCookieBytes {
		return fmt.Errorf("%w: cookie %s is %d bytes, limit %d", ErrValueTooLarge, name, n, MaxCookieBytes)
	}
	c.mu.Lock()
	c.written[key] = value
	c.mu.Unlock()
	http.SetCookie(c.w, &http.Cookie{
		Name:     name,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(CookieMaxAge / time.Second),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
