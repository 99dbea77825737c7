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

package commands

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/projectcalico/lbipset/config"
	"github.com/projectcalico/lbipset/ipsets"
	"github.com/projectcalico/lbipset/logutils"
)

var (
	cfg       *config.Config
	rulesFile string
)

var rootCmd = &cobra.Command{
	Use:   "lbipset",
	Short: "Build and query load-balancer IP sets",
	Long: `lbipset builds the IP sets described by a rules file and queries them,
either with entries given on the command line or with packets read from a
capture file.  Settings are read from LBIPSET_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logutils.ConfigureEarlyLogging()
		var err error
		if cfg, err = config.ConfigFromEnv(); err != nil {
			log.WithError(err).Error("Failed to load configuration.")
			return err
		}
		if rulesFile != "" {
			cfg.RulesFile = rulesFile
		}
		return logutils.ConfigureLogging(cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rulesFile, "rules", "r", "",
		"rules file, overrides LBIPSET_RULES_FILE")
}

func Execute() error {
	return rootCmd.Execute()
}

// loadSets builds a manager holding the sets from the configured rules file.
func loadSets() (*ipsets.Manager, error) {
	if cfg.RulesFile == "" {
		return nil, errors.New("no rules file: set LBIPSET_RULES_FILE or pass --rules")
	}
	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	summarizer := logutils.NewSummarizer("rules loads")
	mgr := ipsets.NewManager(nil, summarizer)
	start := time.Now()
	err = rules.Apply(mgr, cfg)
	summarizer.EndOfBatch(time.Since(start))
	summarizer.Flush()
	if err != nil {
		return nil, errors.WithMessage(err, "failed to apply rules")
	}
	log.WithField("numSets", mgr.Len()).Info("Loaded IP sets")
	return mgr, nil
}
