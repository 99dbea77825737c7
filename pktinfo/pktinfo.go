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

// Package pktinfo extracts the fields the IP sets match on from decoded
// packets.
package pktinfo

import (
	"net"
	"net/netip"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/pkg/errors"

	"github.com/projectcalico/lbipset/ip"
	"github.com/projectcalico/lbipset/ipsets"
)

var ErrNoNetworkLayer = errors.New("packet has no IPv4 or IPv6 layer")

// l4Protos maps the transport layers we know how to read ports from to their
// IP protocol numbers.
var l4Protos = map[gopacket.LayerType]uint8{
	layers.LayerTypeTCP:     ipsets.ProtoTCP,
	layers.LayerTypeUDP:     ipsets.ProtoUDP,
	layers.LayerTypeUDPLite: ipsets.ProtoUDPLite,
	layers.LayerTypeSCTP:    ipsets.ProtoSCTP,
	layers.LayerTypeICMPv4:  ipsets.ProtoICMP,
	layers.LayerTypeICMPv6:  ipsets.ProtoICMPv6,
}

// FromPacket fills hdr from a decoded packet.  The addresses come from the
// first IP layer; the protocol and ports from the first transport or ICMP layer
// after it.  A packet with no transport layer, or a fragment that doesn't carry
// one, gets the IP protocol number and zero ports.
func FromPacket(pkt gopacket.Packet, hdr *ipsets.PacketHeader) error {
	*hdr = ipsets.PacketHeader{}

	var ipLayer gopacket.Layer
	switch {
	case pkt.Layer(layers.LayerTypeIPv4) != nil:
		ipLayer = pkt.Layer(layers.LayerTypeIPv4)
		ip4 := ipLayer.(*layers.IPv4)
		hdr.Src = addrFromIP(ip4.SrcIP)
		hdr.Dst = addrFromIP(ip4.DstIP)
		hdr.Proto = uint8(ip4.Protocol)
	case pkt.Layer(layers.LayerTypeIPv6) != nil:
		ipLayer = pkt.Layer(layers.LayerTypeIPv6)
		ip6 := ipLayer.(*layers.IPv6)
		hdr.Src = addrFromIP6(ip6.SrcIP)
		hdr.Dst = addrFromIP6(ip6.DstIP)
		hdr.Proto = uint8(ip6.NextHeader)
	default:
		return ErrNoNetworkLayer
	}

	seenIP := false
	for _, l := range pkt.Layers() {
		if l == ipLayer {
			seenIP = true
			continue
		}
		if !seenIP {
			continue
		}
		if proto, ok := l4Protos[l.LayerType()]; ok {
			hdr.Proto = proto
			hdr.SetPortsFromL4(l.LayerContents())
			break
		}
	}
	return nil
}

// Decode decodes raw packet bytes starting at the given link layer and fills
// hdr.  The bytes must not be modified while hdr is in use.
func Decode(data []byte, first gopacket.Decoder, hdr *ipsets.PacketHeader) error {
	pkt := gopacket.NewPacket(data, first, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	if errLayer := pkt.ErrorLayer(); errLayer != nil && pkt.NetworkLayer() == nil {
		return errors.Wrap(errLayer.Error(), "failed to decode packet")
	}
	return FromPacket(pkt, hdr)
}

// addrFromIP returns the zero Addr for a malformed address, which no set
// matches.
func addrFromIP(netIP net.IP) netip.Addr {
	a := ip.FromNetIP(netIP)
	if a == nil {
		return netip.Addr{}
	}
	return a.AsNetipAddr()
}

// addrFromIP6 keeps IPv4-mapped addresses in the IPv6 family; only IPv6 sets can
// match them.
func addrFromIP6(netIP net.IP) netip.Addr {
	a, ok := netip.AddrFromSlice(netIP)
	if !ok || !a.Is6() {
		return netip.Addr{}
	}
	return a
}
