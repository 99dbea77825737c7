// Copyright (c) 2026 Tigera, Inc. All rights reserved.
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

package logutils

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Summarizer collects the operations recorded during each batch (a rules file
// load, a pcap replay) and periodically logs a one-line summary instead of a
// line per operation.
type Summarizer struct {
	lock        sync.Mutex
	lastLogTime time.Time
	interval    time.Duration

	currentBatch *batch
	batches      []*batch
	loopName     string
}

type batch struct {
	Operations map[string]int
	Duration   time.Duration
}

func newBatch() *batch {
	return &batch{Operations: map[string]int{}}
}

func (b *batch) String() string {
	names := make([]string, 0, len(b.Operations))
	for name := range b.Operations {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		if n := b.Operations[name]; n > 1 {
			parts = append(parts, fmt.Sprintf("%s(x%d)", name, n))
		} else {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, ",")
}

func NewSummarizer(loopName string) *Summarizer {
	return &Summarizer{
		currentBatch: newBatch(),
		lastLogTime:  time.Now(),
		interval:     time.Minute,
		loopName:     loopName,
	}
}

func (l *Summarizer) RecordOperation(name string) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.currentBatch.Operations[name]++
}

// EndOfBatch should be called once the batch is done; it logs a summary if
// enough time has passed since the last one, or always at debug level.
func (l *Summarizer) EndOfBatch(duration time.Duration) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.currentBatch.Duration = duration
	l.batches = append(l.batches, l.currentBatch)
	l.currentBatch = newBatch()
	if time.Since(l.lastLogTime) > l.interval || logrus.IsLevelEnabled(logrus.DebugLevel) {
		l.doLog()
		l.batches = l.batches[:0]
		l.lastLogTime = time.Now()
	}
}

// Flush logs a summary of any batches not yet reported.
func (l *Summarizer) Flush() {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.doLog()
	l.batches = l.batches[:0]
	l.lastLogTime = time.Now()
}

func (l *Summarizer) doLog() {
	numBatches := len(l.batches)
	var longest *batch
	var sumOfDurations time.Duration
	for _, b := range l.batches {
		sumOfDurations += b.Duration
		if longest == nil || b.Duration > longest.Duration {
			longest = b
		}
	}
	if longest == nil {
		return
	}
	avgDuration := (sumOfDurations / time.Duration(numBatches)).Round(time.Microsecond)
	logrus.Infof("Summarising %d %s over %v: avg=%v longest=%v (%v)",
		numBatches, l.loopName, time.Since(l.lastLogTime).Round(100*time.Millisecond), avgDuration,
		longest.Duration.Round(time.Microsecond), longest)
}
