package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ecom "github.com/Shakthi-16/ecom-project"
	"github.com/Shakthi-16/ecom-project/internal/visits/audit"
	"github.com/Shakthi-16/ecom-project/internal/visits/clientstore"
	"github.com/Shakthi-16/ecom-project/internal/visits/persistence"
)

type captureLog struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *captureLog) Append(ev audit.Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func newTestTracker(store persistence.Store, opts ...TrackerOption) (*Tracker, *test.Hook) {
	logger, hook := test.NewNullLogger()
	c := NewCounter(store, WithLogger(logger), WithStoreTimeout(50*time.Millisecond))
	opts = append([]TrackerOption{WithTrackerLogger(logger)}, opts...)
	return NewTracker(c, ecom.Pricer{}, opts...), hook
}

func TestTracker_ViewPricesWithUpdatedCount(t *testing.T) {
	tr, _ := newTestTracker(persistence.NewMemoryStore())
	who := ecom.MustIdentified("alice")
	ctx := context.Background()

	want := []string{"200.49", "200.99", "201.49"}
	for _, w := range want {
		res, err := tr.View(ctx, nil, who, "headphones", 199.99)
		require.NoError(t, err)
		assert.True(t, res.Recorded)
		assert.Empty(t, res.Warnings)
		assert.Equal(t, w, ecom.DisplayPrice(res.Quote.AdjustedPrice))
	}
}

func TestTracker_GuestFirstViewAlreadyCounts(t *testing.T) {
	tr, _ := newTestTracker(persistence.NewMemoryStore())
	res, err := tr.View(context.Background(), clientstore.NewMemory(), ecom.Guest(), "tshirt", 24.99)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Quote.VisitCount)
	assert.Equal(t, "25.49", ecom.DisplayPrice(res.Quote.AdjustedPrice))
}

func TestTracker_QuoteDoesNotRecord(t *testing.T) {
	tr, _ := newTestTracker(persistence.NewMemoryStore())
	kv := clientstore.NewMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := tr.Quote(ctx, kv, ecom.Guest(), "tshirt", 24.99)
		require.NoError(t, err)
		assert.Equal(t, int64(0), res.Quote.VisitCount)
		assert.Equal(t, 24.99, res.Quote.AdjustedPrice)
		assert.False(t, res.Recorded)
	}
}

func TestTracker_StoreFailureDegradesToBasePrice(t *testing.T) {
	tr, hook := newTestTracker(failingStore{})
	res, err := tr.View(context.Background(), nil, ecom.MustIdentified("bob"), "watch", 299.99)
	require.NoError(t, err)
	assert.False(t, res.Recorded)
	assert.Len(t, res.Warnings, 2)
	assert.Equal(t, int64(0), res.Quote.VisitCount)
	assert.Equal(t, 299.99, res.Quote.AdjustedPrice)

	var warns int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warns++
		}
	}
	assert.Equal(t, 2, warns)
}

func TestTracker_SlowStoreDegrades(t *testing.T) {
	tr, _ := newTestTracker(stallingStore{})
	res, err := tr.View(context.Background(), nil, ecom.MustIdentified("bob"), "watch", 10)
	require.NoError(t, err)
	assert.Equal(t, float64(10), res.Quote.AdjustedPrice)
	assert.NotEmpty(t, res.Warnings)
}

func TestTracker_InvalidInputIsRejectedBeforeRecording(t *testing.T) {
	store := persistence.NewMemoryStore()
	tr, _ := newTestTracker(store)
	ctx := context.Background()

	_, err := tr.View(ctx, nil, ecom.MustIdentified("carol"), "bag", -1)
	assert.ErrorIs(t, err, ecom.ErrInvalidInput)
	assert.Equal(t, 0, store.Len())

	_, err = tr.View(ctx, nil, ecom.MustIdentified("carol"), "", 5)
	assert.ErrorIs(t, err, ErrEmptyItem)
}

func TestTracker_AuditReceivesRecordedVisits(t *testing.T) {
	capture := &captureLog{}
	tr, _ := newTestTracker(persistence.NewMemoryStore(), WithAuditLog(capture))
	ctx := context.Background()

	_, err := tr.View(ctx, clientstore.NewMemory(), ecom.Guest(), "shoe-1", 129.99)
	require.NoError(t, err)
	_, err = tr.View(ctx, nil, ecom.MustIdentified("dave"), "shoe-1", 129.99)
	require.NoError(t, err)
	_, err = tr.Quote(ctx, nil, ecom.MustIdentified("dave"), "shoe-1", 129.99)
	require.NoError(t, err)

	require.Len(t, capture.events, 2)
	assert.Equal(t, "guest", capture.events[0].IdentityKind)
	assert.Empty(t, capture.events[0].IdentityID)
	assert.Equal(t, "identified", capture.events[1].IdentityKind)
	assert.Equal(t, "dave", capture.events[1].IdentityID)
	assert.Equal(t, int64(1), capture.events[1].VisitCount)
}

func TestTracker_FailedRecordIsNotAudited(t *testing.T) {
	capture := &captureLog{}
	tr, _ := newTestTracker(failingStore{}, WithAuditLog(capture))
	_, err := tr.View(context.Background(), nil, ecom.MustIdentified("erin"), "lamp", 1)
	require.NoError(t, err)
	assert.Empty(t, capture.events)
}

// readFailingStore records visits but fails every read.
type readFailingStore struct{ *persistence.MemoryStore }

func (readFailingStore) Find(context.Context, string, string) ([]persistence.VisitRecord, error) {
	return nil, errBackend
}

func TestTracker_ViewFallsBackToRecordedCount(t *testing.T) {
	tr, _ := newTestTracker(readFailingStore{persistence.NewMemoryStore()})
	who := ecom.MustIdentified("gina")
	ctx := context.Background()

	var res ViewResult
	var err error
	for i := 0; i < 2; i++ {
		res, err = tr.View(ctx, nil, who, "headphones", 199.99)
		require.NoError(t, err)
	}
	assert.True(t, res.Recorded)
	assert.Len(t, res.Warnings, 1)
	assert.Equal(t, int64(2), res.Quote.VisitCount)
	assert.Equal(t, "200.99", ecom.DisplayPrice(res.Quote.AdjustedPrice))
}

func TestTracker_QuoteAllPricesInOrder(t *testing.T) {
	tr, _ := newTestTracker(persistence.NewMemoryStore())
	who := ecom.MustIdentified("hank")
	ctx := context.Background()
	_, err := tr.View(ctx, nil, who, "b", 10)
	require.NoError(t, err)

	got, err := tr.QuoteAll(ctx, nil, who, []Item{{ID: "a", BasePrice: 5}, {ID: "b", BasePrice: 10}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 5.0, got[0].Quote.AdjustedPrice)
	assert.Equal(t, 10.5, got[1].Quote.AdjustedPrice)
	assert.Empty(t, got[0].Warnings)
	assert.Empty(t, got[1].Warnings)
}

func TestTracker_QuoteAllSharesOneStoreDeadline(t *testing.T) {
	tr, hook := newTestTracker(stallingStore{})
	items := make([]Item, 10)
	for i := range items {
		items[i] = Item{ID: string(rune('a' + i)), BasePrice: 1}
	}

	start := time.Now()
	got, err := tr.QuoteAll(context.Background(), nil, ecom.MustIdentified("ivy"), items)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 150*time.Millisecond)

	require.Len(t, got, len(items))
	for _, res := range got {
		assert.Equal(t, 1.0, res.Quote.AdjustedPrice)
		assert.Len(t, res.Warnings, 1)
	}
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, 9, hook.LastEntry().Data["skipped"])
}

func TestTracker_QuoteAllRejectsInvalidItems(t *testing.T) {
	tr, _ := newTestTracker(persistence.NewMemoryStore())
	_, err := tr.QuoteAll(context.Background(), nil, ecom.Guest(), []Item{{ID: "a", BasePrice: 1}, {ID: "", BasePrice: 1}})
	assert.ErrorIs(t, err, ErrEmptyItem)
}
