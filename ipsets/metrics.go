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

package ipsets

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	gaugeVecNumSets = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lbipset_sets",
		Help: "Number of active IP sets.",
	}, []string{"ip_version", "type"})
	countVecCommands = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lbipset_commands",
		Help: "Number of set commands processed, by operation and result.",
	}, []string{"op", "result"})
	countVecResizes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lbipset_table_resizes",
		Help: "Number of times a set's hash table has grown.",
	}, []string{"type"})
	countVecVerdicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lbipset_packet_verdicts",
		Help: "Number of packets classified, by set and verdict.",
	}, []string{"set", "verdict"})
)

func init() {
	prometheus.MustRegister(gaugeVecNumSets)
	prometheus.MustRegister(countVecCommands)
	prometheus.MustRegister(countVecResizes)
	prometheus.MustRegister(countVecVerdicts)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrExist):
		return "exist"
	case errors.Is(err, ErrNotFound):
		return "not-found"
	case errors.Is(err, ErrExhausted):
		return "exhausted"
	case errors.Is(err, ErrFamilyMismatch):
		return "family-mismatch"
	case errors.Is(err, ErrInvalidValue):
		return "invalid"
	}
	return "error"
}
