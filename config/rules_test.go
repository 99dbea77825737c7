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

package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/projectcalico/lbipset/config"
	"github.com/projectcalico/lbipset/ip"
	"github.com/projectcalico/lbipset/ipsets"
)

const rulesYAML = `
sets:
- name: lb-allow
  type: hash:net,port,net
  comment: true
  members:
  - 10.0.0.0-10.0.0.3,tcp:80-81,192.168.1.0/24
  - entry: 10.0.0.2,tcp:80,192.168.1.0/24
    nomatch: true
    comment: maintenance
- name: lb-v6
  type: hash:net
  family: inet6
  hashSize: 16
  members:
  - 2001:db8::/48
`

var _ = Describe("Rules", func() {
	It("should parse scalar and mapping members", func() {
		rules, err := ParseRules([]byte(rulesYAML))
		Expect(err).NotTo(HaveOccurred())
		Expect(rules.Sets).To(HaveLen(2))
		Expect(rules.Sets[0].Members).To(Equal([]MemberRule{
			{Entry: "10.0.0.0-10.0.0.3,tcp:80-81,192.168.1.0/24"},
			{Entry: "10.0.0.2,tcp:80,192.168.1.0/24", NoMatch: true, Comment: "maintenance"},
		}))
		Expect(rules.Sets[1].Family).To(Equal("inet6"))
		Expect(rules.Sets[1].HashSize).To(BeEquivalentTo(16))
	})

	DescribeTable("should reject bad files",
		func(data string) {
			_, err := ParseRules([]byte(data))
			Expect(err).To(HaveOccurred())
		},
		Entry("unknown field", "sets:\n- name: a\n  type: hash:net\n  colour: red\n"),
		Entry("missing name", "sets:\n- type: hash:net\n"),
		Entry("duplicate name", "sets:\n- name: a\n  type: hash:net\n- name: a\n  type: hash:net\n"),
		Entry("bad family", "sets:\n- name: a\n  type: hash:net\n  family: ipx\n"),
		Entry("not YAML", "sets: [\n"),
	)

	It("should load from a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "rules.yaml")
		Expect(os.WriteFile(path, []byte(rulesYAML), 0o644)).To(Succeed())
		rules, err := LoadRules(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(rules.Sets).To(HaveLen(2))

		_, err = LoadRules(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
		Expect(err).To(HaveOccurred())
	})

	Describe("Apply", func() {
		var (
			mgr *ipsets.Manager
			cfg *Config
		)

		BeforeEach(func() {
			mgr = ipsets.NewManager(nil, nil)
			cfg = &Config{HashSize: 64, MaxElem: 1000}
			rules, err := ParseRules([]byte(rulesYAML))
			Expect(err).NotTo(HaveOccurred())
			Expect(rules.Apply(mgr, cfg)).To(Succeed())
		})

		test := func(set, entry string) ipsets.Verdict {
			h, err := mgr.Header(set)
			Expect(err).NotTo(HaveOccurred())
			p, err := ParseEntry(h.Type, entry)
			Expect(err).NotTo(HaveOccurred())
			p.Op = ipsets.OpTest
			v, err := mgr.Do(set, p)
			Expect(err).NotTo(HaveOccurred())
			return v
		}

		It("should create the sets with defaults from the config", func() {
			Expect(mgr.Len()).To(Equal(2))

			h, err := mgr.Header("lb-allow")
			Expect(err).NotTo(HaveOccurred())
			Expect(h.Family).To(Equal(ip.FamilyV4))
			Expect(h.HashSize).To(Equal(64))
			Expect(h.MaxElem).To(BeEquivalentTo(1000))
			Expect(h.Comment).To(BeTrue())
			// One /30 per port, plus the nomatch host.
			Expect(h.Entries).To(Equal(3))

			h, err = mgr.Header("lb-v6")
			Expect(err).NotTo(HaveOccurred())
			Expect(h.Family).To(Equal(ip.FamilyV6))
			Expect(h.HashSize).To(Equal(16))
			Expect(h.Entries).To(Equal(1))
		})

		It("should honour nomatch members", func() {
			Expect(test("lb-allow", "10.0.0.1,tcp:81,192.168.1.200")).To(Equal(ipsets.Accept))
			Expect(test("lb-allow", "10.0.0.2,tcp:80,192.168.1.200")).To(Equal(ipsets.Reject))
			Expect(test("lb-allow", "10.0.0.2,tcp:81,192.168.1.200")).To(Equal(ipsets.Accept))
			Expect(test("lb-allow", "10.0.0.4,tcp:80,192.168.1.200")).To(Equal(ipsets.NoMatch))
			Expect(test("lb-v6", "2001:db8:0:ffff::1")).To(Equal(ipsets.Accept))
		})

		It("should fail if a set already exists", func() {
			rules, err := ParseRules([]byte(rulesYAML))
			Expect(err).NotTo(HaveOccurred())
			Expect(rules.Apply(mgr, cfg)).To(MatchError(ipsets.ErrSetExists))
		})
	})

	It("should report bad members with the set name", func() {
		rules, err := ParseRules([]byte("sets:\n- name: a\n  type: hash:net\n  members:\n  - 2001:db8::/32\n"))
		Expect(err).NotTo(HaveOccurred())
		err = rules.Apply(ipsets.NewManager(nil, nil), nil)
		Expect(err).To(MatchError(ipsets.ErrFamilyMismatch))
	})
})
