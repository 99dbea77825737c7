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
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gopacket/gopacket/pcapgo"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/projectcalico/lbipset/ipsets"
	"github.com/projectcalico/lbipset/logutils"
	"github.com/projectcalico/lbipset/pktinfo"
)

// directionFlag lets --direction be validated while flags are parsed.
type directionFlag ipsets.PortDirection

var _ pflag.Value = (*directionFlag)(nil)

func (d *directionFlag) String() string {
	return ipsets.PortDirection(*d).String()
}

func (d *directionFlag) Set(s string) error {
	dir, err := ipsets.ParsePortDirection(s)
	if err != nil {
		return err
	}
	*d = directionFlag(dir)
	return nil
}

func (d *directionFlag) Type() string {
	return "src|dst"
}

var (
	classifyDirection directionFlag
	classifyMetrics   bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify <pcap-file> [set...]",
	Short: "Match the packets in a capture file against IP sets",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := ipsets.PortDirection(classifyDirection)
		if !cmd.Flags().Changed("direction") {
			var err error
			if dir, err = ipsets.ParsePortDirection(cfg.PortDirection); err != nil {
				return err
			}
		}

		mgr, err := loadSets()
		if err != nil {
			return err
		}
		sets, err := selectSets(mgr, args[1:])
		if err != nil {
			return err
		}
		logutils.DumpHeapMemoryOnSignal(cmd.Context(), cfg.DebugMemoryProfilePath)

		f, err := os.Open(args[0])
		if err != nil {
			return errors.Wrap(err, "failed to open capture")
		}
		defer f.Close()

		res, err := classify(f, sets, dir)
		if err != nil {
			return err
		}
		res.write(cmd.OutOrStdout())
		if classifyMetrics {
			if err := writeMetrics(cmd.OutOrStdout(), prometheus.DefaultGatherer); err != nil {
				return err
			}
		}

		if err := logutils.DumpHeapMemoryProfile(cfg.DebugMemoryProfilePath); err != nil {
			log.WithError(err).Error("Failed to dump heap profile.")
		}
		return nil
	},
}

func init() {
	classifyCmd.Flags().VarP(&classifyDirection, "direction", "d",
		"which packet port to match, overrides LBIPSET_PORT_DIRECTION")
	classifyCmd.Flags().BoolVar(&classifyMetrics, "metrics", false,
		"print the lbipset metrics in Prometheus text format afterwards")
	rootCmd.AddCommand(classifyCmd)
}

// writeMetrics prints our own metric families; the Go runtime ones are noise here.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return errors.Wrap(err, "failed to gather metrics")
	}
	for _, mf := range mfs {
		if !strings.HasPrefix(mf.GetName(), "lbipset_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

type classifyResult struct {
	packets     int
	undecodable int
	matchers    []*ipsets.Matcher
	// counts[i][v] is the number of packets set i gave verdict v.
	counts [][3]int
}

// classify reads a pcap stream and runs every decodable packet past each set.
func classify(r io.Reader, sets []ipsets.Set, dir ipsets.PortDirection) (*classifyResult, error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read capture header")
	}
	res := &classifyResult{counts: make([][3]int, len(sets))}
	for _, s := range sets {
		res.matchers = append(res.matchers, ipsets.NewMatcher(s, dir))
	}

	start := time.Now()
	var hdr ipsets.PacketHeader
	for {
		data, _, err := pr.ReadPacketData()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrapf(err, "failed to read packet %d", res.packets+1)
		}
		res.packets++
		if err := pktinfo.Decode(data, pr.LinkType(), &hdr); err != nil {
			log.WithError(err).WithField("packet", res.packets).Debug("Skipping packet")
			res.undecodable++
			continue
		}
		for i, m := range res.matchers {
			res.counts[i][m.Match(&hdr)]++
		}
	}
	log.WithFields(log.Fields{
		"packets":     res.packets,
		"undecodable": res.undecodable,
		"duration":    time.Since(start),
	}).Info("Finished classifying capture")
	return res, nil
}

func (r *classifyResult) write(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetCaption(true, "packets read: "+strconv.Itoa(r.packets)+", not IP: "+strconv.Itoa(r.undecodable))
	table.SetHeader([]string{"SET", "DIRECTION", "ACCEPT", "REJECT", "NO MATCH"})
	var rows [][]string
	for i, m := range r.matchers {
		rows = append(rows, []string{
			m.Set().Name(),
			m.Direction().String(),
			strconv.Itoa(r.counts[i][ipsets.Accept]),
			strconv.Itoa(r.counts[i][ipsets.Reject]),
			strconv.Itoa(r.counts[i][ipsets.NoMatch]),
		})
	}
	table.AppendBulk(rows)
	table.Render()
}
