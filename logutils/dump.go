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
	"context"
	"os"
	"os/signal"
	"runtime/debug"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DumpHeapMemoryProfile writes a heap profile to fileName, if it is set.  A
// "<timestamp>" in the name is replaced with the current time.
func DumpHeapMemoryProfile(fileName string) error {
	if fileName == "" {
		return nil
	}
	if strings.Contains(fileName, "<timestamp>") {
		timestamp := time.Now().Format("2006-01-02-15:04:05")
		fileName = strings.Replace(fileName, "<timestamp>", timestamp, 1)
	}
	logCxt := log.WithField("file", fileName)
	logCxt.Info("Writing memory profile...")

	f, err := os.Create(fileName)
	if err != nil {
		return errors.Wrap(err, "could not create memory profile file")
	}
	defer f.Close()

	// Return whatever scratch space the set loading used before measuring.
	debug.FreeOSMemory()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return errors.Wrap(err, "could not write memory profile")
	}
	logCxt.Info("Finished writing memory profile")
	return nil
}

// DumpHeapMemoryOnSignal writes a heap profile each time SIGUSR1 is received,
// until ctx is done.
func DumpHeapMemoryOnSignal(ctx context.Context, fileName string) {
	if fileName == "" {
		return
	}
	usr1SignalChan := make(chan os.Signal, 1)
	signal.Notify(usr1SignalChan, syscall.SIGUSR1)
	go func() {
		defer signal.Stop(usr1SignalChan)
		for {
			select {
			case <-ctx.Done():
				return
			case <-usr1SignalChan:
				if err := DumpHeapMemoryProfile(fileName); err != nil {
					log.WithError(err).Error("Failed to dump heap profile.")
				}
			}
		}
	}()
}
