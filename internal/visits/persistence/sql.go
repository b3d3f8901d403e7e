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
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

func init() {
	// libSQL speaks SQLite's placeholder syntax.
	sqlx.BindDriver("libsql", sqlx.QUESTION)
}

// SQLStore keeps visit records in a "visits" table. The same statements run on
// Postgres, SQLite and libSQL; sqlx rebinds placeholders per driver.
//
// Schema:
//
//	visits(id TEXT PK, record_key TEXT UNIQUE, identity_id, item_id, visit_count, created_at)
//
// The UNIQUE record_key turns recording a visit into one upsert statement.
type SQLStore struct {
	db             *sqlx.DB
	defaultTimeout time.Duration
	now            func() time.Time
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sqlx.DB, timeout time.Duration) *SQLStore {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SQLStore{db: db, defaultTimeout: timeout, now: time.Now}
}

// OpenSQLStore opens driverName/dsn and verifies connectivity.
func OpenSQLStore(ctx context.Context, driverName, dsn string, timeout time.Duration) (*SQLStore, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	s := NewSQLStore(db, timeout)
	pctx, cancel := withDefaultTimeout(ctx, s.defaultTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driverName, err)
	}
	return s, nil
}

const (
	createVisitsTable = `CREATE TABLE IF NOT EXISTS visits (
	id          TEXT PRIMARY KEY,
	record_key  TEXT NOT NULL UNIQUE,
	identity_id TEXT NOT NULL,
	item_id     TEXT NOT NULL,
	visit_count BIGINT NOT NULL DEFAULT 0,
	created_at  BIGINT NOT NULL
)`
	createVisitsIndex = `CREATE INDEX IF NOT EXISTS visits_identity_item ON visits (identity_id, item_id)`

	upsertVisit = `INSERT INTO visits (id, record_key, identity_id, item_id, visit_count, created_at)
VALUES (?, ?, ?, ?, 1, ?)
ON CONFLICT (record_key) DO UPDATE SET visit_count = visits.visit_count + 1
RETURNING visit_count`

	selectVisits = `SELECT id, identity_id, item_id, visit_count, created_at FROM visits
WHERE identity_id = ? AND item_id = ?
ORDER BY created_at, id`
)

// EnsureSchema creates the visits table and its lookup index when missing.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	ctx, cancel := withDefaultTimeout(ctx, s.defaultTimeout)
	defer cancel()
	for _, stmt := range []string{createVisitsTable, createVisitsIndex} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Increment upserts the record and returns the stored count.
func (s *SQLStore) Increment(ctx context.Context, identityID, itemID string) (int64, error) {
	ctx, cancel := withDefaultTimeout(ctx, s.defaultTimeout)
	defer cancel()
	key := RecordKey(identityID, itemID)
	var n int64
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(upsertVisit),
		newRecordID(), key, identityID, itemID, s.now().UnixMilli()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("upsert visits(%s): %w", key, err)
	}
	return n, nil
}

type visitRow struct {
	ID         string `db:"id"`
	IdentityID string `db:"identity_id"`
	ItemID     string `db:"item_id"`
	VisitCount int64  `db:"visit_count"`
	CreatedAt  int64  `db:"created_at"`
}

// Find selects the records of the pair, oldest first.
func (s *SQLStore) Find(ctx context.Context, identityID, itemID string) ([]VisitRecord, error) {
	ctx, cancel := withDefaultTimeout(ctx, s.defaultTimeout)
	defer cancel()
	var rows []visitRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(selectVisits), identityID, itemID); err != nil {
		return nil, fmt.Errorf("select visits(%s): %w", RecordKey(identityID, itemID), err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	out := make([]VisitRecord, len(rows))
	for i, r := range rows {
		out[i] = VisitRecord{
			ID:         r.ID,
			IdentityID: r.IdentityID,
			ItemID:     r.ItemID,
			VisitCount: r.VisitCount,
			CreatedAt:  time.UnixMilli(r.CreatedAt),
		}
	}
	return out, nil
}

// Close closes the database handle.
func (s *SQLStore) Close() error { return s.db.Close() }
