package audit

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSink_AppendReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visits.jsonl")
	s, err := NewFileSink(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())

	s.Append(NewEvent("guest", "", "shoe-1", 1))
	s.Append(NewEvent("identified", "u-1", "shoe-1", 4))
	require.NoError(t, s.Flush())
	require.NoError(t, s.Close())

	got, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "guest", got[0].IdentityKind)
	assert.Empty(t, got[0].IdentityID)
	assert.Equal(t, "u-1", got[1].IdentityID)
	assert.Equal(t, int64(4), got[1].VisitCount)
	assert.NotEqual(t, got[0].ID, got[1].ID)
	assert.False(t, got[1].Time.IsZero())
}

func TestFileSink_AppendsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visits.jsonl")
	for i := 0; i < 2; i++ {
		s, err := NewFileSink(path)
		require.NoError(t, err)
		s.Append(NewEvent("guest", "", "hat", int64(i+1)))
		require.NoError(t, s.Close())
	}
	got, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[1].VisitCount)
}

func TestReadAll_SkipsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visits.jsonl")
	content := `{"id":"a","identity_kind":"guest","item_id":"x","visit_count":1}
not json
{"id":"b","identity_kind":"guest","item_id":"y","visit_count":2}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	got, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "y", got[1].ItemID)
}

func TestReadAll_MissingFile(t *testing.T) {
	_, err := ReadAll(filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.Error(t, err)
}

var errDiskFull = errors.New("no space left on device")

type fullDisk struct{}

func (fullDisk) Write([]byte) (int, error) { return 0, errDiskFull }

func TestFileSink_WriteFailuresAreLoggedAndCounted(t *testing.T) {
	logger, hook := test.NewNullLogger()
	path := filepath.Join(t.TempDir(), "visits.jsonl")
	s, err := NewFileSink(path, WithLogger(logger))
	require.NoError(t, err)
	s.w = bufio.NewWriterSize(fullDisk{}, 16)
	s.flushEvery = 0

	s.Append(NewEvent("identified", "u-1", "shoe-1", 1))
	s.Append(NewEvent("identified", "u-1", "shoe-1", 2))

	assert.Equal(t, int64(2), s.Failed())
	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, logrus.ErrorLevel, entries[0].Level)
	assert.Equal(t, "audit event not written", entries[0].Message)
	assert.ErrorIs(t, entries[0].Data[logrus.ErrorKey].(error), errDiskFull)
	assert.Equal(t, path, entries[0].Data["path"])

	assert.ErrorIs(t, s.Close(), errDiskFull)
}

func TestFileSink_HealthyWritesDoNotCountFailures(t *testing.T) {
	logger, hook := test.NewNullLogger()
	s, err := NewFileSink(filepath.Join(t.TempDir(), "visits.jsonl"), WithLogger(logger))
	require.NoError(t, err)
	s.Append(NewEvent("guest", "", "hat", 1))
	require.NoError(t, s.Close())
	assert.Zero(t, s.Failed())
	assert.Empty(t, hook.AllEntries())
}
