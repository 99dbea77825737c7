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
	"net/netip"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/projectcalico/lbipset/config"
	"github.com/projectcalico/lbipset/ip"
	"github.com/projectcalico/lbipset/ipsets"
)

var _ = Describe("ParseEntry", func() {
	a := netip.MustParseAddr

	DescribeTable("valid entries",
		func(typeName, entry string, expected ipsets.Param) {
			expected.Op = ipsets.OpAdd
			p, err := ParseEntry(typeName, entry)
			Expect(err).NotTo(HaveOccurred())
			Expect(*p).To(Equal(expected))
		},
		Entry("net,port,net with CIDRs", "hash:net,port,net", "10.0.0.0/24,tcp:80-81,192.168.0.0/16", ipsets.Param{
			Family: ip.FamilyV4,
			Net:    ipsets.NetRange{Min: a("10.0.0.0"), Prefix: 24},
			Net2:   ipsets.NetRange{Min: a("192.168.0.0"), Prefix: 16},
			Proto:  ipsets.ProtoTCP,
			Ports:  ipsets.PortRange{Min: 80, Max: 81},
		}),
		Entry("net,port,net with a range and /0", "hash:net,port,net", "10.0.0.1-10.0.0.9,udp:53,0.0.0.0/0", ipsets.Param{
			Family: ip.FamilyV4,
			Net:    ipsets.NetRange{Min: a("10.0.0.1"), Max: a("10.0.0.9")},
			Net2:   ipsets.NetRange{Min: a("0.0.0.0"), Max: a("255.255.255.255")},
			Proto:  ipsets.ProtoUDP,
			Ports:  ipsets.PortRange{Min: 53, Max: 53},
		}),
		Entry("default proto", "hash:net,port,net", "10.0.0.0/8,8080,10.0.0.0/8", ipsets.Param{
			Family: ip.FamilyV4,
			Net:    ipsets.NetRange{Min: a("10.0.0.0"), Prefix: 8},
			Net2:   ipsets.NetRange{Min: a("10.0.0.0"), Prefix: 8},
			Proto:  ipsets.ProtoTCP,
			Ports:  ipsets.PortRange{Min: 8080, Max: 8080},
		}),
		Entry("IPv6 with ICMPv6 type/code", "hash:net,port,net", "2001:db8::/32,icmpv6:128/0,2001:db8:1::1", ipsets.Param{
			Family: ip.FamilyV6,
			Net:    ipsets.NetRange{Min: a("2001:db8::"), Prefix: 32},
			Net2:   ipsets.NetRange{Min: a("2001:db8:1::1")},
			Proto:  ipsets.ProtoICMPv6,
			Ports:  ipsets.PortRange{Min: 128 << 8, Max: 128 << 8},
		}),
		Entry("net with flags", "hash:net", `10.0.0.0/8 nomatch comment "not this one"`, ipsets.Param{
			Family:  ip.FamilyV4,
			Net:     ipsets.NetRange{Min: a("10.0.0.0"), Prefix: 8},
			NoMatch: true,
			Comment: "not this one",
		}),
		Entry("ip,port", "hash:ip,port", "10.0.0.1,sctp:9000", ipsets.Param{
			Family: ip.FamilyV4,
			Net:    ipsets.NetRange{Min: a("10.0.0.1")},
			Proto:  ipsets.ProtoSCTP,
			Ports:  ipsets.PortRange{Min: 9000, Max: 9000},
		}),
	)

	DescribeTable("invalid entries",
		func(typeName, entry string) {
			_, err := ParseEntry(typeName, entry)
			Expect(err).To(HaveOccurred())
		},
		Entry("unknown type", "hash:mac", "10.0.0.1"),
		Entry("missing field", "hash:net,port,net", "10.0.0.0/8,tcp:80"),
		Entry("extra field", "hash:net", "10.0.0.0/8,tcp:80"),
		Entry("bad address", "hash:net", "10.0.0.300"),
		Entry("bad CIDR", "hash:net", "10.0.0.0/33"),
		Entry("bad range", "hash:net", "10.0.0.9-10.0.0.1"),
		Entry("bad proto", "hash:ip,port", "10.0.0.1,gre:80"),
		Entry("port too big", "hash:ip,port", "10.0.0.1,tcp:70000"),
		Entry("bad ICMP code", "hash:ip,port", "10.0.0.1,icmp:8/300"),
		Entry("trailing junk", "hash:net", "10.0.0.0/8 please"),
		Entry("unquoted comment", "hash:net", "10.0.0.0/8 comment hello"),
	)

	It("should round-trip listed members", func() {
		set, err := ipsets.HashNetPortNet.Create("rt", ipsets.CreateOptions{Family: ip.FamilyV4, Comment: true})
		Expect(err).NotTo(HaveOccurred())
		p, err := ParseEntry(set.Header().Type, `10.0.0.0-10.0.0.5,udp:53,192.168.0.0/16 comment "dns"`)
		Expect(err).NotTo(HaveOccurred())
		Expect(set.Add(p)).To(Succeed())

		var n int
		for m := range set.Members() {
			n++
			q, err := ParseEntry(set.Header().Type, m.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(q.Comment).To(Equal("dns"))
			q.Op = ipsets.OpTest
			Expect(set.Test(q)).To(Equal(ipsets.Accept), "member %s", m)
		}
		Expect(n).To(Equal(set.Len()))
	})
})
