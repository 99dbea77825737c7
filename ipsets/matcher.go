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
	"encoding/binary"
	"net/netip"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// PortDirection selects which side of a packet a set's single address or port
// field is matched against.  hash:net,port,net always matches the source
// address to its first network and the destination to its second; only its
// port follows the direction.
type PortDirection uint8

const (
	SrcPort PortDirection = iota
	DstPort
)

func (d PortDirection) String() string {
	if d == DstPort {
		return "dst"
	}
	return "src"
}

func ParsePortDirection(s string) (PortDirection, error) {
	switch s {
	case "src", "":
		return SrcPort, nil
	case "dst":
		return DstPort, nil
	}
	return SrcPort, errors.Errorf("unknown port direction %q", s)
}

// PacketHeader is the part of a packet the sets look at.  It is filled in by
// the packet parser.
type PacketHeader struct {
	Src, Dst netip.Addr
	Proto    uint8
	SrcPort  uint16
	DstPort  uint16
}

func (h *PacketHeader) Addr(dir PortDirection) netip.Addr {
	if dir == DstPort {
		return h.Dst
	}
	return h.Src
}

// Port returns the port matched in the given direction.  ICMP has no ports; its
// type/code word, which SetPortsFromL4 leaves in SrcPort, is used either way.
func (h *PacketHeader) Port(dir PortDirection) uint16 {
	if dir == DstPort && h.Proto != ProtoICMP && h.Proto != ProtoICMPv6 {
		return h.DstPort
	}
	return h.SrcPort
}

// SetPortsFromL4 reads the two 16-bit words at the start of the L4 header, which
// are the source and destination ports for TCP, UDP, UDP-Lite and SCTP.  For
// ICMP the first word is type and code and lands in SrcPort; DstPort gets the
// checksum and is never matched.  A truncated header leaves the ports zero.
func (h *PacketHeader) SetPortsFromL4(l4 []byte) {
	if len(l4) < 4 {
		h.SrcPort, h.DstPort = 0, 0
		return
	}
	h.SrcPort = binary.BigEndian.Uint16(l4[0:2])
	h.DstPort = binary.BigEndian.Uint16(l4[2:4])
}

// Matcher is a set bound to a port direction, for use on the packet path.  The
// verdict counters are resolved up front so Match doesn't look up labels.
type Matcher struct {
	set      Set
	dir      PortDirection
	verdicts [3]prometheus.Counter
}

func NewMatcher(set Set, dir PortDirection) *Matcher {
	m := &Matcher{set: set, dir: dir}
	for _, v := range []Verdict{NoMatch, Accept, Reject} {
		m.verdicts[v] = countVecVerdicts.WithLabelValues(set.Name(), v.String())
	}
	return m
}

func (m *Matcher) Set() Set {
	return m.set
}

func (m *Matcher) Direction() PortDirection {
	return m.dir
}

func (m *Matcher) Match(hdr *PacketHeader) Verdict {
	v := m.set.TestPacket(hdr, m.dir)
	m.verdicts[v].Inc()
	return v
}
