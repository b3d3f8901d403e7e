package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStore_DefaultMemory(t *testing.T) {
	s, err := BuildStore(context.Background(), "", Options{})
	require.NoError(t, err)
	_, ok := s.(*MemoryStore)
	assert.True(t, ok, "expected *MemoryStore, got %T", s)

	n, err := s.Increment(context.Background(), "u", "p")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestBuildStore_RedisRequiresAddr(t *testing.T) {
	_, err := BuildStore(context.Background(), "redis", Options{})
	assert.Error(t, err)
}

// Nothing listens on port 1, so the startup ping fails.
func TestBuildStore_RedisUnreachableFailsFast(t *testing.T) {
	start := time.Now()
	_, err := BuildStore(context.Background(), "redis", Options{RedisAddr: "127.0.0.1:1", Timeout: 500 * time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis 127.0.0.1:1")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestLibSQLDSN(t *testing.T) {
	tests := []struct {
		name, url, token, want string
	}{
		{"no token", "libsql://db.example.io", "", "libsql://db.example.io"},
		{"token", "libsql://db.example.io", "abc", "libsql://db.example.io?authToken=abc"},
		{"existing query", "libsql://db.example.io?tls=0", "abc", "libsql://db.example.io?authToken=abc&tls=0"},
		{"replaces token", "http://127.0.0.1:8080?authToken=old", "new", "http://127.0.0.1:8080?authToken=new"},
		{"escaped", "libsql://db.example.io", "a+b/c", "libsql://db.example.io?authToken=a%2Bb%2Fc"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := libsqlDSN(tc.url, tc.token)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := libsqlDSN("://bad", "abc")
	assert.Error(t, err)
}

func TestBuildStore_SQLAdaptersRequireDSN(t *testing.T) {
	_, err := BuildStore(context.Background(), "postgres", Options{})
	assert.Error(t, err)
	_, err = BuildStore(context.Background(), "libsql", Options{})
	assert.Error(t, err)
}

func TestBuildStore_UnknownAdapter(t *testing.T) {
	_, err := BuildStore(context.Background(), "does-not-exist", Options{})
	assert.EqualError(t, err, "unknown store adapter: does-not-exist")
}
