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

func ipPortParam(op Op, addrs string, proto uint8, minPort, maxPort uint16) *Param {
	n := netArg(addrs)
	return &Param{Op: op, Family: familyOf(n), Net: n, Proto: proto, Ports: PortRange{Min: minPort, Max: maxPort}}
}

var _ = Describe("hash:ip,port", func() {
	var set Set

	BeforeEach(func() {
		set = mustCreate(HashIPPort, "vips", CreateOptions{Family: ip.FamilyV4})
	})

	It("should store every address of a range", func() {
		Expect(HashIPPort.NetCount()).To(BeZero())
		Expect(HashIPPort.RecordSize(ip.FamilyV6)).To(Equal(19))

		Expect(set.Add(ipPortParam(OpAdd, "10.0.0.1-10.0.0.3", ProtoTCP, 80, 80))).To(Succeed())
		Expect(members(set)).To(ConsistOf("10.0.0.1,tcp:80", "10.0.0.2,tcp:80", "10.0.0.3,tcp:80"))
		Expect(set.Add(ipPortParam(OpAdd, "10.0.1.0/30", ProtoUDP, 53, 53))).To(Succeed())
		Expect(set.Len()).To(Equal(7))
	})

	It("should match the destination side when asked", func() {
		Expect(set.Add(ipPortParam(OpAdd, "10.0.0.1", ProtoTCP, 443, 443))).To(Succeed())
		hdr := packet("192.168.0.1", "10.0.0.1", ProtoTCP, 50000, 443)
		Expect(set.TestPacket(hdr, DstPort)).To(Equal(Accept))
		Expect(set.TestPacket(hdr, SrcPort)).To(Equal(NoMatch))
		Expect(set.Test(ipPortParam(OpTest, "10.0.0.1", ProtoTCP, 443, 443))).To(Equal(Accept))
		Expect(set.Test(ipPortParam(OpTest, "10.0.0.1", ProtoUDP, 443, 443))).To(Equal(NoMatch))
	})

	It("should only test single addresses", func() {
		Expect(set.Add(ipPortParam(OpAdd, "10.0.0.0-10.0.0.3", ProtoTCP, 443, 443))).To(Succeed())
		Expect(set.Test(ipPortParam(OpTest, "10.0.0.2/32", ProtoTCP, 443, 443))).To(Equal(Accept))
		_, err := set.Test(ipPortParam(OpTest, "10.0.0.0-10.0.0.3", ProtoTCP, 443, 443))
		Expect(err).To(MatchError(ErrInvalidValue))
		_, err = set.Test(ipPortParam(OpTest, "10.0.0.0/30", ProtoTCP, 443, 443))
		Expect(err).To(MatchError(ErrInvalidValue))
	})

	It("should refuse oversized ranges", func() {
		err := set.Add(ipPortParam(OpAdd, "10.0.0.0/8", ProtoTCP, 80, 80))
		Expect(err).To(MatchError(ErrInvalidValue))
		Expect(set.Len()).To(BeZero())
	})
})
