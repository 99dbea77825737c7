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

// Package config holds the process configuration, which is read from the
// environment, and the rules file that describes the IP sets to build.
package config

import (
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// EnvPrefix is prepended, with an underscore, to every environment variable name.
const EnvPrefix = "LBIPSET"

type Config struct {
	// LogLevel is the screen log level.
	LogLevel string `json:"log_level" envconfig:"LOG_LEVEL" default:"info"`

	// LogFilePath, if set, enables logging to the given file at LogLevelFile.  The file
	// is reopened if it is rotated underneath us.
	LogFilePath  string `json:"log_file" envconfig:"LOG_FILE"`
	LogLevelFile string `json:"log_level_file" envconfig:"LOG_LEVEL_FILE" default:"info"`

	// HashSize and MaxElem are the defaults for sets that don't specify their own.
	HashSize uint32 `json:"hash_size" envconfig:"HASH_SIZE" default:"1024"`
	MaxElem  uint32 `json:"max_elem" envconfig:"MAX_ELEM" default:"65536"`

	// RulesFile is the path of the YAML file listing the sets and their members.
	RulesFile string `json:"rules_file" envconfig:"RULES_FILE"`

	// PortDirection selects which L4 port of a packet is matched: "src" or "dst".
	PortDirection string `json:"port_direction" envconfig:"PORT_DIRECTION" default:"src"`

	// DebugMemoryProfilePath, if set, is where a heap profile is written after a
	// classify run and on SIGUSR1.  "<timestamp>" is replaced with the current time.
	DebugMemoryProfilePath string `json:"debug_memory_profile_path" envconfig:"DEBUG_MEMORY_PROFILE"`
}

// ConfigFromEnv loads the configuration from LBIPSET_* environment variables.
func ConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load configuration from environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.WithField("cfg", cfg).Debug("Loaded configuration")
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrapf(err, "invalid %s_LOG_LEVEL", EnvPrefix)
	}
	if c.LogFilePath != "" {
		if _, err := log.ParseLevel(c.LogLevelFile); err != nil {
			return errors.Wrapf(err, "invalid %s_LOG_LEVEL_FILE", EnvPrefix)
		}
	}
	if c.HashSize == 0 {
		return errors.Errorf("%s_HASH_SIZE must be positive", EnvPrefix)
	}
	if c.MaxElem == 0 {
		return errors.Errorf("%s_MAX_ELEM must be positive", EnvPrefix)
	}
	switch c.PortDirection {
	case "src", "dst":
	default:
		return errors.Errorf("%s_PORT_DIRECTION must be \"src\" or \"dst\", not %q", EnvPrefix, c.PortDirection)
	}
	return nil
}
