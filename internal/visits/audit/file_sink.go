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

// Package audit appends recorded visits to a JSONL log for later replay.
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event is one recorded visit.
type Event struct {
	ID           string    `json:"id"`
	Time         time.Time `json:"time"`
	IdentityKind string    `json:"identity_kind"`
	IdentityID   string    `json:"identity_id,omitempty"`
	ItemID       string    `json:"item_id"`
	VisitCount   int64     `json:"visit_count"`
}

// NewEvent stamps a fresh event id and time.
func NewEvent(kind, identityID, itemID string, count int64) Event {
	return Event{
		ID:           uuid.NewString(),
		Time:         time.Now().UTC(),
		IdentityKind: kind,
		IdentityID:   identityID,
		ItemID:       itemID,
		VisitCount:   count,
	}
}

// FileSink appends events to a JSONL file. Writes are buffered and flushed at
// most every flushEvery, on Flush, and on Close.
// Write failures are logged and counted; Append never blocks a view on them.
type FileSink struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string
	log  logrus.FieldLogger

	flushEvery time.Duration
	lastFlush  time.Time
	failed     atomic.Int64
}

// SinkOption customizes a FileSink.
type SinkOption func(*FileSink)

// WithLogger sets the logger for write failures.
func WithLogger(l logrus.FieldLogger) SinkOption {
	return func(s *FileSink) {
		if l != nil {
			s.log = l
		}
	}
}

// NewFileSink opens (or creates) path for appending.
func NewFileSink(path string, opts ...SinkOption) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	s := &FileSink{
		f:          f,
		w:          bufio.NewWriterSize(f, 64<<10),
		path:       path,
		log:        logrus.StandardLogger(),
		flushEvery: 100 * time.Millisecond,
		lastFlush:  time.Now(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Path returns the file the sink writes to.
func (s *FileSink) Path() string { return s.path }

// Failed returns how many events were not written, or written but not flushed.
func (s *FileSink) Failed() int64 { return s.failed.Load() }

func (s *FileSink) Append(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := json.NewEncoder(s.w).Encode(&ev); err != nil {
		s.fail(err, "encode", ev)
		return
	}
	if time.Since(s.lastFlush) > s.flushEvery {
		if err := s.w.Flush(); err != nil {
			s.fail(err, "flush", ev)
		}
		s.lastFlush = time.Now()
	}
}

func (s *FileSink) fail(err error, op string, ev Event) {
	n := s.failed.Add(1)
	s.log.WithError(err).WithFields(logrus.Fields{
		"path":     s.path,
		"op":       op,
		"event_id": ev.ID,
		"failed":   n,
	}).Error("audit event not written")
}

func (s *FileSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFlush = time.Now()
	return s.w.Flush()
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.w.Flush(), s.f.Close())
}

// ReadAll reads every well-formed event from a log written by FileSink.
// Lines that fail to decode are skipped.
func ReadAll(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err == nil {
			out = append(out, e)
		}
	}
	return out, scanner.Err()
}
