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

package telemetry

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// itemAgg holds per-item view counts for the current summary interval.
type itemAgg struct {
	views      atomic.Int64
	lastUpdate atomic.Int64 // unix nano
}

var (
	agg sync.Map // map[string]*itemAgg

	exporterMu   sync.Mutex
	exporterStop chan struct{}
	exporterDone chan struct{}
	currCfg      atomic.Value // Config
)

// ItemViews is one row of the top-items summary.
type ItemViews struct {
	ItemID string
	Views  int64
}

func startOrUpdateExporter(cfg Config) {
	exporterMu.Lock()
	defer exporterMu.Unlock()

	currCfg.Store(cfg)

	if exporterStop != nil {
		close(exporterStop)
		<-exporterDone
		exporterStop, exporterDone = nil, nil
	}
	if !cfg.Enabled || cfg.LogInterval <= 0 {
		return
	}
	exporterStop = make(chan struct{})
	exporterDone = make(chan struct{})
	go exporterLoop(cfg.LogInterval, exporterStop, exporterDone)
}

func exporterLoop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			publishSnapshot()
		case <-stop:
			return
		}
	}
}

// publishSnapshot logs the top items viewed since the previous snapshot and
// resets their counters. Items idle for two intervals are dropped.
func publishSnapshot() []ItemViews {
	cfg, _ := currCfg.Load().(Config)
	top := snapshotTop(cfg.TopN, 2*cfg.LogInterval)
	if cfg.Logger == nil {
		return top
	}
	fields := logrus.Fields{"items": len(top)}
	if len(top) > 0 {
		fields["top_item"] = top[0].ItemID
		fields["top_views"] = top[0].Views
	}
	cfg.Logger.WithFields(fields).Info("top viewed items")
	return top
}

func snapshotTop(n int, idleTTL time.Duration) []ItemViews {
	rows := make([]ItemViews, 0, 64)
	var tracked int
	cutoff := int64(0)
	if idleTTL > 0 {
		cutoff = time.Now().Add(-idleTTL).UnixNano()
	}
	agg.Range(func(k, v any) bool {
		ia := v.(*itemAgg)
		views := ia.views.Swap(0)
		if views == 0 && ia.lastUpdate.Load() < cutoff {
			agg.Delete(k)
			return true
		}
		tracked++
		if views > 0 {
			rows = append(rows, ItemViews{ItemID: k.(string), Views: views})
		}
		return true
	})
	itemsTracked.Set(float64(tracked))

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Views == rows[j].Views {
			return rows[i].ItemID < rows[j].ItemID
		}
		return rows[i].Views > rows[j].Views
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

func exporterRecordView(itemID string) {
	if itemID == "" {
		return
	}
	ia := getAgg(itemID)
	ia.views.Add(1)
	ia.lastUpdate.Store(time.Now().UnixNano())
}

func getAgg(itemID string) *itemAgg {
	if v, ok := agg.Load(itemID); ok {
		return v.(*itemAgg)
	}
	actual, _ := agg.LoadOrStore(itemID, &itemAgg{})
	return actual.(*itemAgg)
}
