package core

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ecom "github.com/Shakthi-16/ecom-project"
	"github.com/Shakthi-16/ecom-project/internal/visits/clientstore"
	"github.com/Shakthi-16/ecom-project/internal/visits/persistence"
)

func TestTotals_CountOutcomes(t *testing.T) {
	resetTotals()
	t.Cleanup(resetTotals)

	tr, _ := newTestTracker(persistence.NewMemoryStore())
	ctx := context.Background()
	_, err := tr.View(ctx, clientstore.NewMemory(), ecom.Guest(), "a", 1)
	require.NoError(t, err)
	_, err = tr.View(ctx, nil, ecom.MustIdentified("u"), "a", 1)
	require.NoError(t, err)

	bad, _ := newTestTracker(failingStore{})
	_, err = bad.View(ctx, nil, ecom.MustIdentified("u"), "a", 1)
	require.NoError(t, err)

	got := CurrentTotals()
	assert.Equal(t, Totals{GuestVisits: 1, IdentifiedVisits: 1, StoreFailures: 2, Quotes: 3}, got)
}

func TestPrintSummary_IncludesSettings(t *testing.T) {
	resetTotals()
	t.Cleanup(resetTotals)

	SetSettingFloat64("price_increment", 0.5)
	SetSettingDuration("store_timeout", 2*time.Second)
	SetSettingBool("telemetry", false)
	SetSettingInt64("top_n", 10)
	SetSetting("store", "memory")

	logger, hook := test.NewNullLogger()
	PrintSummary(logger)

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "final visit metrics", entries[0].Message)
	assert.Equal(t, int64(0), entries[0].Data["quotes"])
	assert.Equal(t, "settings", entries[1].Message)
	assert.Equal(t, "0.5", entries[1].Data["price_increment"])
	assert.Equal(t, "2s", entries[1].Data["store_timeout"])
	assert.Equal(t, "false", entries[1].Data["telemetry"])
	assert.Equal(t, "10", entries[1].Data["top_n"])
	assert.Equal(t, "memory", entries[1].Data["store"])
}

func TestPrintSummary_NoSettings(t *testing.T) {
	resetTotals()
	logger, hook := test.NewNullLogger()
	PrintSummary(logger)
	assert.Len(t, hook.AllEntries(), 1)
}
