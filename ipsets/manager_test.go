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

package ipsets_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/projectcalico/lbipset/ip"
	. "github.com/projectcalico/lbipset/ipsets"
)

type recordingOpRecorder struct {
	ops []string
}

func (r *recordingOpRecorder) RecordOperation(name string) {
	r.ops = append(r.ops, name)
}

var _ = Describe("Manager", func() {
	var mgr *Manager
	var recorder *recordingOpRecorder

	BeforeEach(func() {
		recorder = &recordingOpRecorder{}
		mgr = NewManager(NewRegistry(), recorder)
	})

	It("mainline: should create, use and destroy sets", func() {
		_, err := mgr.Create("acl", "hash:net,port,net", CreateOptions{Family: ip.FamilyV4})
		Expect(err).NotTo(HaveOccurred())

		_, err = mgr.Do("acl", npnParam(OpAdd, "10.0.0.0/24", "10.1.0.0/24", ProtoTCP, 80, 80))
		Expect(err).NotTo(HaveOccurred())
		Expect(mgr.Do("acl", npnParam(OpTest, "10.0.0.1", "10.1.0.1", ProtoTCP, 80, 80))).To(Equal(Accept))
		_, err = mgr.Do("acl", npnParam(OpDel, "10.0.0.0/24", "10.1.0.0/24", ProtoTCP, 80, 80))
		Expect(err).NotTo(HaveOccurred())
		Expect(mgr.Do("acl", npnParam(OpTest, "10.0.0.1", "10.1.0.1", ProtoTCP, 80, 80))).To(Equal(NoMatch))

		h, err := mgr.Header("acl")
		Expect(err).NotTo(HaveOccurred())
		Expect(h.Name).To(Equal("acl"))
		Expect(h.Entries).To(BeZero())

		Expect(mgr.Flush("acl")).To(Succeed())
		Expect(mgr.Destroy("acl")).To(Succeed())
		_, err = mgr.Get("acl")
		Expect(err).To(MatchError(ErrNoSuchSet))
		Expect(recorder.ops).To(Equal([]string{"create", "add", "del", "flush", "destroy"}))
	})

	It("should list sets in name order", func() {
		for _, name := range []string{"zeta", "alpha", "mid"} {
			_, err := mgr.Create(name, "hash:net", CreateOptions{Family: ip.FamilyV4})
			Expect(err).NotTo(HaveOccurred())
		}
		var names []string
		for s := range mgr.Sets() {
			names = append(names, s.Name())
		}
		Expect(names).To(Equal([]string{"alpha", "mid", "zeta"}))
		Expect(mgr.Len()).To(Equal(3))
	})

	It("should reject bad creates", func() {
		_, err := mgr.Create("acl", "hash:foo", CreateOptions{Family: ip.FamilyV4})
		Expect(err).To(MatchError(ErrUnknownType))
		_, err = mgr.Create(strings.Repeat("n", MaxIPSetNameLength+1), "hash:net", CreateOptions{Family: ip.FamilyV4})
		Expect(err).To(MatchError(ErrInvalidValue))
		_, err = mgr.Create("acl", "hash:net", CreateOptions{})
		Expect(err).To(MatchError(ErrInvalidValue))

		_, err = mgr.Create("acl", "hash:net", CreateOptions{Family: ip.FamilyV6})
		Expect(err).NotTo(HaveOccurred())
		_, err = mgr.Create("acl", "hash:net", CreateOptions{Family: ip.FamilyV6})
		Expect(err).To(MatchError(ErrSetExists))
	})

	It("should report missing sets", func() {
		_, err := mgr.Do("nope", netParam(OpTest, "10.0.0.1"))
		Expect(err).To(MatchError(ErrNoSuchSet))
		Expect(mgr.Destroy("nope")).To(MatchError(ErrNoSuchSet))
		Expect(mgr.Flush("nope")).To(MatchError(ErrNoSuchSet))
	})

	It("should count command results", func() {
		_, err := mgr.Create("counted", "hash:net", CreateOptions{Family: ip.FamilyV4})
		Expect(err).NotTo(HaveOccurred())
		before := CommandCount(OpAdd, "exist")
		_, err = mgr.Do("counted", netParam(OpAdd, "10.0.0.0/8"))
		Expect(err).NotTo(HaveOccurred())
		_, err = mgr.Do("counted", netParam(OpAdd, "10.0.0.0/8"))
		Expect(err).To(MatchError(ErrExist))
		Expect(CommandCount(OpAdd, "exist")).To(Equal(before + 1))
	})
})

var _ = Describe("Registry", func() {
	It("should hold the built-in types", func() {
		r := NewRegistry()
		Expect(r.Types()).To(Equal([]string{"hash:ip,port", "hash:net", "hash:net,port,net"}))
		t, err := r.Get("hash:net,port,net")
		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(BeIdenticalTo(HashNetPortNet))
	})

	It("should refuse duplicate registrations", func() {
		r := NewRegistry()
		Expect(r.Register(HashNet)).To(HaveOccurred())
	})
})

var _ = DescribeTable("Member.String",
	func(m Member, expected string) {
		Expect(m.String()).To(Equal(expected))
	},
	Entry("net,port,net", Member{Addr: addr("10.0.0.0"), Cidr: 24, Addr2: addr("10.1.0.0"), Cidr2: 16, Proto: ProtoTCP, Port: 80},
		"10.0.0.0/24,tcp:80,10.1.0.0/16"),
	Entry("ip,port", Member{Addr: addr("10.0.0.1"), Cidr: 32, Proto: ProtoUDP, Port: 53}, "10.0.0.1,udp:53"),
	Entry("net", Member{Addr: addr("dead::"), Cidr: 16}, "dead::/16"),
	Entry("flags", Member{Addr: addr("10.0.0.0"), Cidr: 8, NoMatch: true, Comment: `a "b"`}, `10.0.0.0/8 nomatch comment "a \"b\""`),
	Entry("numeric proto", Member{Addr: addr("10.0.0.1"), Cidr: 32, Proto: 99, Port: 1}, "10.0.0.1,99:1"),
)

var _ = DescribeTable("ParseProto",
	func(in string, expected uint8, ok bool) {
		p, err := ParseProto(in)
		if !ok {
			Expect(err).To(MatchError(ErrInvalidValue))
			return
		}
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(expected))
	},
	Entry("tcp", "tcp", ProtoTCP, true),
	Entry("upper", "UDP", ProtoUDP, true),
	Entry("icmpv6 alias", "ipv6-icmp", ProtoICMPv6, true),
	Entry("number", "47", uint8(47), true),
	Entry("zero", "0", uint8(0), false),
	Entry("junk", "tcpx", uint8(0), false),
)
