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
	"io"
	"os"
	"path"
	"sync"

	"github.com/mipearson/rfw"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/projectcalico/lbipset/config"
)

var counterLogErrors = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "lbipset_log_errors",
	Help: "Number of errors encountered while logging.",
})

func init() {
	prometheus.MustRegister(counterLogErrors)
}

// ConfigureEarlyLogging enables early logging to screen if it is enabled by either the
// LBIPSET_EARLYLOGSEVERITYSCREEN or LBIPSET_LOG_LEVEL environment variable.
func ConfigureEarlyLogging() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	// First try the early-only environment variable.  Since the normal
	// config processing doesn't know about that variable, normal config
	// will override it once it's loaded.
	rawLogLevel := os.Getenv(config.EnvPrefix + "_EARLYLOGSEVERITYSCREEN")
	if rawLogLevel == "" {
		rawLogLevel = os.Getenv(config.EnvPrefix + "_LOG_LEVEL")
	}

	// Default to logging errors.
	logLevelScreen := log.ErrorLevel
	if rawLogLevel != "" {
		parsedLevel, err := log.ParseLevel(rawLogLevel)
		if err == nil {
			logLevelScreen = parsedLevel
		} else {
			log.WithError(err).Error("Failed to parse early log level, defaulting to error.")
		}
	}
	log.SetLevel(logLevelScreen)
	log.Debugf("Early screen log level set to %v", logLevelScreen)
}

// ConfigureLogging uses the resolved configuration to complete the logging
// configuration.  Each target is a hook with its own level, so a verbose log
// file doesn't make the screen verbose too.
func ConfigureLogging(cfg *config.Config) error {
	logLevelScreen := SafeParseLogLevel(cfg.LogLevel)
	mostVerboseLevel := logLevelScreen

	hooks := []*streamHook{
		newStreamHook(logLevelScreen, os.Stderr, log.StandardLogger().Formatter),
	}

	// File target.
	if cfg.LogFilePath != "" {
		if err := os.MkdirAll(path.Dir(cfg.LogFilePath), 0o755); err != nil {
			log.WithError(err).WithField("file", cfg.LogFilePath).Error("Failed to create log file directory.")
			return err
		}
		rotAwareFile, err := rfw.Open(cfg.LogFilePath, 0o644)
		if err != nil {
			log.WithError(err).WithField("file", cfg.LogFilePath).Error("Failed to open log file.")
			return err
		}
		logLevelFile := SafeParseLogLevel(cfg.LogLevelFile)
		hooks = append(hooks, newStreamHook(logLevelFile, rotAwareFile,
			&log.TextFormatter{FullTimestamp: true, DisableColors: true}))
		if logLevelFile > mostVerboseLevel {
			mostVerboseLevel = logLevelFile
		}
	}

	// Disable all more-verbose levels using the global setting, this ensures that debug logs
	// are filtered out as early as possible.
	log.SetLevel(mostVerboseLevel)
	for _, h := range hooks {
		log.AddHook(h)
	}
	// The hooks above do all the writing.
	log.SetOutput(io.Discard)
	return nil
}

// SafeParseLogLevel parses a string version of a logrus log level, defaulting
// to logrus.PanicLevel on failure.
func SafeParseLogLevel(logLevel string) log.Level {
	defaultedLevel := log.PanicLevel
	if logLevel != "" {
		parsedLevel, err := log.ParseLevel(logLevel)
		if err == nil {
			defaultedLevel = parsedLevel
		} else {
			log.WithField("raw level", logLevel).Warn(
				"Failed to parse log level, defaulting to panic.")
		}
	}
	return defaultedLevel
}

// streamHook writes entries at or above its level to one destination.
type streamHook struct {
	level     log.Level
	out       io.Writer
	formatter log.Formatter
	lock      sync.Mutex
}

func newStreamHook(level log.Level, out io.Writer, formatter log.Formatter) *streamHook {
	return &streamHook{
		level:     level,
		out:       out,
		formatter: formatter,
	}
}

func (h *streamHook) Levels() []log.Level {
	return log.AllLevels[:h.level+1]
}

func (h *streamHook) Fire(entry *log.Entry) error {
	b, err := h.formatter.Format(entry)
	if err != nil {
		counterLogErrors.Inc()
		return err
	}
	h.lock.Lock()
	defer h.lock.Unlock()
	if _, err := h.out.Write(b); err != nil {
		counterLogErrors.Inc()
		return err
	}
	return nil
}
