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

package core

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Process-level totals for the end-of-process summary. Independent of the
// Prometheus module so the summary is available with telemetry off.
var (
	guestVisits      atomic.Int64
	identifiedVisits atomic.Int64
	storeFailures    atomic.Int64
	quotesServed     atomic.Int64

	settingsMu sync.RWMutex
	settings   = make(map[string]string)
)

func recordVisitOutcome(guest bool) {
	if guest {
		guestVisits.Add(1)
		return
	}
	identifiedVisits.Add(1)
}

func recordStoreFailure() { storeFailures.Add(1) }

func recordQuote() { quotesServed.Add(1) }

// SetSetting captures a runtime configuration knob for the final summary.
func SetSetting(name, value string) {
	settingsMu.Lock()
	settings[name] = value
	settingsMu.Unlock()
}

func SetSettingInt64(name string, v int64)            { SetSetting(name, fmt.Sprintf("%d", v)) }
func SetSettingDuration(name string, d time.Duration) { SetSetting(name, d.String()) }
func SetSettingFloat64(name string, f float64)        { SetSetting(name, fmt.Sprintf("%g", f)) }
func SetSettingBool(name string, b bool)              { SetSetting(name, fmt.Sprintf("%t", b)) }

// Totals is a snapshot of the process-level counters.
type Totals struct {
	GuestVisits      int64
	IdentifiedVisits int64
	StoreFailures    int64
	Quotes           int64
}

// CurrentTotals returns the counters accumulated so far.
func CurrentTotals() Totals {
	return Totals{
		GuestVisits:      guestVisits.Load(),
		IdentifiedVisits: identifiedVisits.Load(),
		StoreFailures:    storeFailures.Load(),
		Quotes:           quotesServed.Load(),
	}
}

func settingsSnapshot() map[string]string {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	out := make(map[string]string, len(settings))
	for k, v := range settings {
		out[k] = v
	}
	return out
}

// PrintSummary logs the totals and captured settings, one entry each.
func PrintSummary(log logrus.FieldLogger) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	t := CurrentTotals()
	log.WithFields(logrus.Fields{
		"guest_visits":      t.GuestVisits,
		"identified_visits": t.IdentifiedVisits,
		"store_failures":    t.StoreFailures,
		"quotes":            t.Quotes,
	}).Info("final visit metrics")

	snap := settingsSnapshot()
	if len(snap) == 0 {
		return
	}
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make(logrus.Fields, len(keys))
	for _, k := range keys {
		fields[k] = snap[k]
	}
	log.WithFields(fields).Info("settings")
}

// resetTotals clears counters and settings. Tests only.
func resetTotals() {
	guestVisits.Store(0)
	identifiedVisits.Store(0)
	storeFailures.Store(0)
	quotesServed.Store(0)
	settingsMu.Lock()
	for k := range settings {
		delete(settings, k)
	}
	settingsMu.Unlock()
}
