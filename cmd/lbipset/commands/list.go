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
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/projectcalico/lbipset/ipsets"
)

var listMembers bool

var listCmd = &cobra.Command{
	Use:   "list [set...]",
	Short: "List the IP sets built from the rules file",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := loadSets()
		if err != nil {
			return err
		}
		sets, err := selectSets(mgr, args)
		if err != nil {
			return err
		}
		writeHeaders(cmd.OutOrStdout(), sets)
		if listMembers {
			for _, s := range sets {
				writeMembers(cmd.OutOrStdout(), s)
			}
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVarP(&listMembers, "members", "m", false, "also list each set's members")
	rootCmd.AddCommand(listCmd)
}

// selectSets returns the named sets, or all of them in name order.
func selectSets(mgr *ipsets.Manager, names []string) ([]ipsets.Set, error) {
	var sets []ipsets.Set
	if len(names) == 0 {
		for s := range mgr.Sets() {
			sets = append(sets, s)
		}
		return sets, nil
	}
	for _, name := range names {
		s, err := mgr.Get(name)
		if err != nil {
			return nil, err
		}
		sets = append(sets, s)
	}
	return sets, nil
}

func writeHeaders(w io.Writer, sets []ipsets.Set) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"NAME", "TYPE", "FAMILY", "HASHSIZE", "MAXELEM", "ENTRIES", "RECORD BYTES", "COMMENT"})

	var rows [][]string
	for _, s := range sets {
		h := s.Header()
		rows = append(rows, []string{
			h.Name,
			h.Type,
			h.Family.String(),
			strconv.Itoa(h.HashSize),
			strconv.FormatUint(uint64(h.MaxElem), 10),
			strconv.Itoa(h.Entries),
			strconv.Itoa(h.RecordSize),
			strconv.FormatBool(h.Comment),
		})
	}
	table.AppendBulk(rows)
	table.Render()
}

func writeMembers(w io.Writer, s ipsets.Set) {
	fmt.Fprintf(w, "\nMembers of %s:\n", s.Name())
	for m := range s.Members() {
		fmt.Fprintf(w, "  %s\n", m)
	}
}
