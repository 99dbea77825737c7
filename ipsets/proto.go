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
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/projectcalico/lbipset/ip"
)

const (
	ProtoICMP    uint8 = unix.IPPROTO_ICMP
	ProtoTCP     uint8 = unix.IPPROTO_TCP
	ProtoUDP     uint8 = unix.IPPROTO_UDP
	ProtoICMPv6  uint8 = unix.IPPROTO_ICMPV6
	ProtoSCTP    uint8 = unix.IPPROTO_SCTP
	ProtoUDPLite uint8 = unix.IPPROTO_UDPLITE
)

var protoNames = map[uint8]string{
	ProtoICMP:    "icmp",
	ProtoTCP:     "tcp",
	ProtoUDP:     "udp",
	ProtoICMPv6:  "icmpv6",
	ProtoSCTP:    "sctp",
	ProtoUDPLite: "udplite",
}

// ProtoName returns the name used in entry strings, or the number for
// protocols without one.
func ProtoName(proto uint8) string {
	if name, ok := protoNames[proto]; ok {
		return name
	}
	return strconv.Itoa(int(proto))
}

// ParseProto accepts a protocol name or number.
func ParseProto(s string) (uint8, error) {
	s = strings.ToLower(s)
	for proto, name := range protoNames {
		if name == s {
			return proto, nil
		}
	}
	if s == "ipv6-icmp" {
		return ProtoICMPv6, nil
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || n == 0 {
		return 0, invalid("proto", s)
	}
	return uint8(n), nil
}

// validProto reports whether elements of the given family may carry proto.
// ICMP belongs to IPv4 and ICMPv6 to IPv6; 0 is never valid.
func validProto(f ip.Family, proto uint8) bool {
	switch proto {
	case ProtoTCP, ProtoUDP, ProtoSCTP, ProtoUDPLite:
		return true
	case ProtoICMP:
		return f == ip.FamilyV4
	case ProtoICMPv6:
		return f == ip.FamilyV6
	}
	return false
}
