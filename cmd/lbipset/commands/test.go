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

	"github.com/spf13/cobra"

	"github.com/projectcalico/lbipset/config"
	"github.com/projectcalico/lbipset/ipsets"
)

var testCmd = &cobra.Command{
	Use:   "test <set> <entry>",
	Short: "Test whether an entry is in a set",
	Long: `Test whether an entry is in a set.  The entry uses the same syntax as the
rules file; an address without a prefix is tested as a single host.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := loadSets()
		if err != nil {
			return err
		}
		v, err := testEntry(mgr, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(testCmd)
}

func testEntry(mgr *ipsets.Manager, setName, entry string) (ipsets.Verdict, error) {
	h, err := mgr.Header(setName)
	if err != nil {
		return ipsets.NoMatch, err
	}
	p, err := config.ParseEntry(h.Type, entry)
	if err != nil {
		return ipsets.NoMatch, err
	}
	p.Op = ipsets.OpTest
	return mgr.Do(setName, p)
}
