package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestObserve_DisabledIsNoop(t *testing.T) {
	Enable(Config{Enabled: false})
	before := testutil.ToFloat64(quotesTotal)
	ObserveQuote()
	if got := testutil.ToFloat64(quotesTotal); got != before {
		t.Fatalf("quotesTotal changed while disabled: %v -> %v", before, got)
	}
}

func TestObserve_Counters(t *testing.T) {
	Enable(Config{Enabled: true})
	t.Cleanup(func() { Enable(Config{Enabled: false}) })

	beforeGuest := testutil.ToFloat64(visitsRecorded.WithLabelValues(PathGuest))
	ObserveVisit(PathGuest, "shoe-1")
	if d := testutil.ToFloat64(visitsRecorded.WithLabelValues(PathGuest)) - beforeGuest; d != 1 {
		t.Fatalf("guest visits delta = %v, want 1", d)
	}

	beforeErr := testutil.ToFloat64(visitErrors.WithLabelValues(OpRecord))
	ObserveError(OpRecord)
	ObserveError(OpRecord)
	if d := testutil.ToFloat64(visitErrors.WithLabelValues(OpRecord)) - beforeErr; d != 2 {
		t.Fatalf("record errors delta = %v, want 2", d)
	}

	beforeDup := testutil.ToFloat64(duplicateRecords)
	ObserveDuplicate()
	if d := testutil.ToFloat64(duplicateRecords) - beforeDup; d != 1 {
		t.Fatalf("duplicate delta = %v, want 1", d)
	}

	beforeBad := testutil.ToFloat64(malformedGuestState)
	ObserveMalformedGuestState()
	if d := testutil.ToFloat64(malformedGuestState) - beforeBad; d != 1 {
		t.Fatalf("malformed delta = %v, want 1", d)
	}

	ObserveStoreLatency(OpCount, 3*time.Millisecond)
	if n := testutil.CollectAndCount(storeLatency); n == 0 {
		t.Fatalf("expected latency histogram series")
	}
}

func TestPublishSnapshot_TopItems(t *testing.T) {
	logger, hook := test.NewNullLogger()
	Enable(Config{Enabled: true, TopN: 2, Logger: logger})
	t.Cleanup(func() { Enable(Config{Enabled: false}) })
	snapshotTop(0, 0) // drain counts left by other tests

	for i := 0; i < 3; i++ {
		ObserveVisit(PathIdentified, "snap-a")
	}
	ObserveVisit(PathIdentified, "snap-b")
	ObserveVisit(PathGuest, "snap-b")
	ObserveVisit(PathGuest, "snap-c")

	top := publishSnapshot()
	if len(top) != 2 {
		t.Fatalf("expected 2 rows, got %d: %+v", len(top), top)
	}
	if top[0].ItemID != "snap-a" || top[0].Views != 3 {
		t.Fatalf("unexpected top row: %+v", top[0])
	}
	if top[1].ItemID != "snap-b" || top[1].Views != 2 {
		t.Fatalf("unexpected second row: %+v", top[1])
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.InfoLevel || entry.Data["top_item"] != "snap-a" {
		t.Fatalf("unexpected log entry: %+v", entry)
	}

	// Counters reset after a snapshot.
	if again := snapshotTop(0, time.Hour); len(again) != 0 {
		t.Fatalf("expected empty snapshot after reset, got %+v", again)
	}
}

func TestExporterLoop_StartStop(t *testing.T) {
	logger, _ := test.NewNullLogger()
	Enable(Config{Enabled: true, LogInterval: 5 * time.Millisecond, Logger: logger})
	time.Sleep(20 * time.Millisecond)
	Enable(Config{Enabled: false})
	exporterMu.Lock()
	running := exporterStop != nil
	exporterMu.Unlock()
	if running {
		t.Fatalf("exporter should be stopped")
	}
}
