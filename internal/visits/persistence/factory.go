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
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"                                // postgres driver
	_ "github.com/mattn/go-sqlite3"                      // sqlite3 driver
	_ "github.com/tursodatabase/libsql-client-go/libsql" // libsql driver
)

// Options selects and configures a store adapter.
type Options struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PostgresDSN string
	SQLitePath  string
	LibSQLURL   string
	LibSQLToken string

	// Timeout bounds each store round trip without a caller deadline.
	Timeout time.Duration
}

// BuildStore constructs the adapter named by adapter. SQL adapters get their
// schema created before returning.
func BuildStore(ctx context.Context, adapter string, opts Options) (Store, error) {
	switch adapter {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		if opts.RedisAddr == "" {
			return nil, errors.New("redis adapter requires a redis address")
		}
		return openRedis(ctx, opts)
	case "postgres":
		if opts.PostgresDSN == "" {
			return nil, errors.New("postgres adapter requires a DSN")
		}
		return openSQL(ctx, "postgres", opts.PostgresDSN, opts.Timeout)
	case "sqlite":
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join("data", "visits.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
		return openSQL(ctx, "sqlite3", path, opts.Timeout)
	case "libsql":
		if opts.LibSQLURL == "" {
			return nil, errors.New("libsql adapter requires a database URL")
		}
		dsn, err := libsqlDSN(opts.LibSQLURL, opts.LibSQLToken)
		if err != nil {
			return nil, err
		}
		return openSQL(ctx, "libsql", dsn, opts.Timeout)
	default:
		return nil, fmt.Errorf("unknown store adapter: %s", adapter)
	}
}

func openSQL(ctx context.Context, driver, dsn string, timeout time.Duration) (Store, error) {
	s, err := OpenSQLStore(ctx, driver, dsn, timeout)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// openRedis builds the Redis store and pings the server so a bad address fails
// at startup instead of on the first view.
func openRedis(ctx context.Context, opts Options) (Store, error) {
	client := NewGoRedisClient(opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	s := NewRedisStore(client, opts.Timeout)
	pctx, cancel := withDefaultTimeout(ctx, s.defaultTimeout)
	defer cancel()
	if err := client.Ping(pctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.RedisAddr, err)
	}
	return s, nil
}

// libsqlDSN adds the auth token to rawURL, keeping any query it already has.
func libsqlDSN(rawURL, token string) (string, error) {
	if token == "" {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse libsql url: %w", err)
	}
	q := u.Query()
	q.Set("authToken", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
