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
	"strconv"
	"time"
)

// RedisClient is the subset of Redis commands the store relies on. It is
// satisfied by GoRedisClient and by fakes in tests.
type RedisClient interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Close() error
}

// RedisStore keeps one hash per (identity, item) pair at visit:<record key>.
type RedisStore struct {
	client         RedisClient
	defaultTimeout time.Duration
}

// NewRedisStore wraps client. timeout bounds calls whose context has no
// deadline; 0 selects DefaultTimeout.
func NewRedisStore(client RedisClient, timeout time.Duration) *RedisStore {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RedisStore{client: client, defaultTimeout: timeout}
}

// redisIncrementScript creates the hash on first use and increments the
// counter in the same server-side step.
const redisIncrementScript = `
local key = KEYS[1]
if redis.call('EXISTS', key) == 0 then
  redis.call('HSET', key, 'id', ARGV[1], 'identity_id', ARGV[2], 'item_id', ARGV[3], 'created_at', ARGV[4])
end
return redis.call('HINCRBY', key, 'visit_count', 1)
`

// RedisVisitKey is the hash key of the record for (identityID, itemID).
func RedisVisitKey(identityID, itemID string) string {
	return fmt.Sprintf("visit:%s", RecordKey(identityID, itemID))
}

// Increment runs the increment script and returns the new count.
func (r *RedisStore) Increment(ctx context.Context, identityID, itemID string) (int64, error) {
	ctx, cancel := withDefaultTimeout(ctx, r.defaultTimeout)
	defer cancel()
	key := RedisVisitKey(identityID, itemID)
	args := []interface{}{newRecordID(), identityID, itemID, time.Now().UnixMilli()}
	out, err := r.client.Eval(ctx, redisIncrementScript, []string{key}, args...)
	if err != nil {
		return 0, fmt.Errorf("redis eval key=%s: %w", key, err)
	}
	n, ok := out.(int64)
	if !ok {
		return 0, fmt.Errorf("redis eval key=%s: unexpected reply %T", key, out)
	}
	return n, nil
}

// Find returns the single record stored for the pair, or none.
func (r *RedisStore) Find(ctx context.Context, identityID, itemID string) ([]VisitRecord, error) {
	ctx, cancel := withDefaultTimeout(ctx, r.defaultTimeout)
	defer cancel()
	key := RedisVisitKey(identityID, itemID)
	fields, err := r.client.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("redis hgetall key=%s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	rec, err := parseRedisRecord(fields)
	if err != nil {
		return nil, fmt.Errorf("redis record key=%s: %w", key, err)
	}
	return []VisitRecord{rec}, nil
}

// Close closes the underlying client.
func (r *RedisStore) Close() error { return r.client.Close() }

func parseRedisRecord(fields map[string]string) (VisitRecord, error) {
	rec := VisitRecord{
		ID:         fields["id"],
		IdentityID: fields["identity_id"],
		ItemID:     fields["item_id"],
	}
	if v := fields["visit_count"]; v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return VisitRecord{}, fmt.Errorf("visit_count %q: %w", v, err)
		}
		rec.VisitCount = n
	}
	if v := fields["created_at"]; v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return VisitRecord{}, fmt.Errorf("created_at %q: %w", v, err)
		}
		rec.CreatedAt = time.UnixMilli(ms)
	}
	return rec, nil
}
