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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/projectcalico/lbipset/ip"
	. "github.com/projectcalico/lbipset/ipsets"
)

var _ = Describe("PacketHeader", func() {
	It("should read ports from the start of the L4 header", func() {
		hdr := &PacketHeader{}
		hdr.SetPortsFromL4([]byte{0x01, 0xbb, 0xc3, 0x50, 0xff, 0xff})
		Expect(hdr.SrcPort).To(Equal(uint16(443)))
		Expect(hdr.DstPort).To(Equal(uint16(50000)))
		Expect(hdr.Port(SrcPort)).To(Equal(uint16(443)))
		Expect(hdr.Port(DstPort)).To(Equal(uint16(50000)))
	})

	It("should use the ICMP type/code word in both directions", func() {
		for _, proto := range []uint8{ProtoICMP, ProtoICMPv6} {
			hdr := &PacketHeader{Proto: proto}
			// Echo request, code 0, then the checksum.
			hdr.SetPortsFromL4([]byte{0x08, 0x00, 0xf7, 0xfe, 0, 1, 0, 1})
			Expect(hdr.Port(SrcPort)).To(Equal(uint16(0x0800)))
			Expect(hdr.Port(DstPort)).To(Equal(uint16(0x0800)))
		}
	})

	It("should zero the ports of a truncated header", func() {
		hdr := &PacketHeader{SrcPort: 1, DstPort: 2}
		hdr.SetPortsFromL4([]byte{0x01, 0xbb})
		Expect(hdr.SrcPort).To(BeZero())
		Expect(hdr.DstPort).To(BeZero())
	})

	DescribeTable("ParsePortDirection",
		func(in string, expected PortDirection, ok bool) {
			d, err := ParsePortDirection(in)
			if !ok {
				Expect(err).To(HaveOccurred())
				return
			}
			Expect(err).NotTo(HaveOccurred())
			Expect(d).To(Equal(expected))
			Expect(d.String()).To(Equal(map[PortDirection]string{SrcPort: "src", DstPort: "dst"}[d]))
		},
		Entry("src", "src", SrcPort, true),
		Entry("default", "", SrcPort, true),
		Entry("dst", "dst", DstPort, true),
		Entry("bad", "both", SrcPort, false),
	)
})

var _ = Describe("Matcher", func() {
	It("should count verdicts per set", func() {
		set := mustCreate(HashNetPortNet, "matcher-test", CreateOptions{Family: ip.FamilyV4})
		Expect(set.Add(npnParam(OpAdd, "10.0.0.0/8", "10.0.0.0/8", ProtoTCP, 80, 80))).To(Succeed())
		deny := npnParam(OpAdd, "10.6.6.6", "10.0.0.0/8", ProtoTCP, 80, 80)
		deny.NoMatch = true
		Expect(set.Add(deny)).To(Succeed())

		m := NewMatcher(set, DstPort)
		Expect(m.Set()).To(BeIdenticalTo(set))
		Expect(m.Match(packet("10.1.1.1", "10.2.2.2", ProtoTCP, 1234, 80))).To(Equal(Accept))
		Expect(m.Match(packet("10.6.6.6", "10.2.2.2", ProtoTCP, 1234, 80))).To(Equal(Reject))
		Expect(m.Match(packet("10.1.1.1", "10.2.2.2", ProtoTCP, 1234, 81))).To(Equal(NoMatch))
		Expect(m.Match(packet("10.1.1.1", "10.2.2.2", ProtoTCP, 1234, 81))).To(Equal(NoMatch))

		Expect(VerdictCount("matcher-test", Accept)).To(Equal(1.0))
		Expect(VerdictCount("matcher-test", Reject)).To(Equal(1.0))
		Expect(VerdictCount("matcher-test", NoMatch)).To(Equal(2.0))
	})

	It("should match ICMP entries in either direction", func() {
		set := mustCreate(HashNetPortNet, "matcher-icmp", CreateOptions{Family: ip.FamilyV4})
		Expect(set.Add(npnParam(OpAdd, "10.0.0.0/8", "10.0.0.0/8", ProtoICMP, 0x0800, 0x0800))).To(Succeed())
		ports := mustCreate(HashIPPort, "matcher-icmp-ip", CreateOptions{Family: ip.FamilyV4})
		Expect(ports.Add(&Param{
			Op:     OpAdd,
			Family: ip.FamilyV4,
			Net:    netArg("10.2.2.2"),
			Proto:  ProtoICMP,
			Ports:  PortRange{Min: 0x0800, Max: 0x0800},
		})).To(Succeed())

		// The second word of an ICMP header is its checksum.
		echo := packet("10.1.1.1", "10.2.2.2", ProtoICMP, 0x0800, 0xf7fe)
		for _, dir := range []PortDirection{SrcPort, DstPort} {
			Expect(set.TestPacket(echo, dir)).To(Equal(Accept), "direction %v", dir)
		}
		Expect(ports.TestPacket(echo, DstPort)).To(Equal(Accept))
		Expect(ports.TestPacket(echo, SrcPort)).To(Equal(NoMatch))
	})
})
