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
	"fmt"
	"io"
	"net/netip"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go4.org/netipx"

	"github.com/projectcalico/lbipset/ip"
	"github.com/projectcalico/lbipset/iprange"
)

var decomposeCmd = &cobra.Command{
	Use:   "decompose <from>-<to> | <from> <to> | <cidr>",
	Short: "Print the CIDR blocks that exactly cover an address range",
	Args:  cobra.RangeArgs(1, 2),
	// Pure computation; no configuration needed.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := parseRangeArgs(args)
		if err != nil {
			return err
		}
		return writeBlocks(cmd.OutOrStdout(), r)
	},
}

func init() {
	rootCmd.AddCommand(decomposeCmd)
}

func parseRangeArgs(args []string) (netipx.IPRange, error) {
	var s string
	if len(args) == 2 {
		s = args[0] + "-" + args[1]
	} else {
		s = args[0]
	}
	if !strings.Contains(s, "-") {
		pfx, err := netip.ParsePrefix(s)
		if err != nil {
			return netipx.IPRange{}, errors.Errorf("%q is neither a range nor a CIDR", s)
		}
		return netipx.RangeOfPrefix(pfx.Masked()), nil
	}
	r, err := netipx.ParseIPRange(s)
	if err != nil {
		return netipx.IPRange{}, errors.Wrap(err, "bad range")
	}
	return r, nil
}

func writeBlocks(w io.Writer, r netipx.IPRange) error {
	if r.From().Is4() {
		return writeBlocksOf[ip.V4Addr](w, r.From(), r.To())
	}
	return writeBlocksOf[ip.V6Addr](w, r.From(), r.To())
}

func writeBlocksOf[A ip.Fixed[A]](w io.Writer, from, to netip.Addr) error {
	f, ok := ip.FixedFrom[A](from)
	if !ok {
		return errors.Errorf("%s is not an %s address", from, ip.FamilyFor[A]())
	}
	t, ok := ip.FixedFrom[A](to)
	if !ok {
		return errors.Errorf("%s is not an %s address", to, ip.FamilyFor[A]())
	}
	blocks, err := iprange.Decompose(f, t)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		if _, err := fmt.Fprintln(w, b); err != nil {
			return err
		}
	}
	return nil
}
