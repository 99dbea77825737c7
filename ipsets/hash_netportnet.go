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

	"github.com/cespare/xxhash/v2"

	"github.com/projectcalico/lbipset/ip"
)

// HashNetPortNet stores (source network, protocol:port, destination network)
// triples.  A packet's source address is matched against the first network and
// its destination address against the second.
var HashNetPortNet Type = &hashType{
	name:     "hash:net,port,net",
	netCount: 2,
	// ip1, cidr1, ip2, cidr2, proto, port.
	recordSize: [2]int{4 + 1 + 4 + 1 + 1 + 2, 16 + 1 + 16 + 1 + 1 + 2},
	create: func(t *hashType, name string, opts CreateOptions) Set {
		if opts.Family == ip.FamilyV6 {
			return newHashSet[netPortNetKey[ip.V6Addr]](t, name, opts, netPortNetV6{})
		}
		return newHashSet[netPortNetKey[ip.V4Addr]](t, name, opts, netPortNetV4{})
	},
}

type netPortNetKey[A ip.Fixed[A]] struct {
	ip1   A
	ip2   A
	port  uint16
	cidr1 uint8
	cidr2 uint8
	proto uint8
}

// netPortNet holds the family-independent part of the element; the variants
// below add the hash.
type netPortNet[A ip.Fixed[A]] struct{}

func (netPortNet[A]) Equal(a, b netPortNetKey[A]) bool {
	return a == b
}

func (netPortNet[A]) Netmask(k netPortNetKey[A], field int, prefix uint8) netPortNetKey[A] {
	if field == 0 {
		k.ip1 = k.ip1.Masked(prefix)
		k.cidr1 = prefix
	} else {
		k.ip2 = k.ip2.Masked(prefix)
		k.cidr2 = prefix
	}
	return k
}

func (netPortNet[A]) Prefix(k netPortNetKey[A], field int) uint8 {
	if field == 0 {
		return k.cidr1
	}
	return k.cidr2
}

func (netPortNet[A]) expand(p *Param, fn func(netPortNetKey[A]) error) error {
	blocks1, err := netBlocks[A]("net", p.Net)
	if err != nil {
		return err
	}
	blocks2, err := netBlocks[A]("net2", p.Net2)
	if err != nil {
		return err
	}
	if err := validatePorts(p.Ports); err != nil {
		return err
	}
	if !validProto(ip.FamilyFor[A](), p.Proto) {
		return invalid("proto", p.Proto)
	}

	k := netPortNetKey[A]{proto: p.Proto}
	for ip1, cidr1 := range blocks1 {
		k.ip1, k.cidr1 = ip1, cidr1
		for ip2, cidr2 := range blocks2 {
			k.ip2, k.cidr2 = ip2, cidr2
			err = forEachPort(p.Ports, func(port uint16) error {
				k.port = port
				return fn(k)
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (netPortNet[A]) testKey(p *Param) (k netPortNetKey[A], err error) {
	if k.ip1, k.cidr1, err = testNet[A]("net", p.Net); err != nil {
		return
	}
	if k.ip2, k.cidr2, err = testNet[A]("net2", p.Net2); err != nil {
		return
	}
	if !validProto(ip.FamilyFor[A](), p.Proto) {
		return k, invalid("proto", p.Proto)
	}
	k.proto = p.Proto
	k.port = p.Ports.Min
	return k, nil
}

func (netPortNet[A]) packetKey(hdr PacketHeader, dir PortDirection) (k netPortNetKey[A], ok bool) {
	if k.ip1, ok = ip.FixedFrom[A](hdr.Src); !ok {
		return
	}
	if k.ip2, ok = ip.FixedFrom[A](hdr.Dst); !ok {
		return
	}
	k.cidr1 = k.ip1.Width()
	k.cidr2 = k.ip2.Width()
	k.proto = hdr.Proto
	k.port = hdr.Port(dir)
	return k, true
}

func (netPortNet[A]) member(k netPortNetKey[A]) Member {
	return Member{
		Addr:  k.ip1.AsNetipAddr(),
		Cidr:  k.cidr1,
		Addr2: k.ip2.AsNetipAddr(),
		Cidr2: k.cidr2,
		Proto: k.proto,
		Port:  k.port,
	}
}

type netPortNetV4 struct {
	netPortNet[ip.V4Addr]
}

func (netPortNetV4) Hash(k netPortNetKey[ip.V4Addr], mask uint32) uint32 {
	return (k.ip1.AsUint32()*31 + k.ip2.AsUint32()*31 +
		(uint32(k.port)<<16 | uint32(k.cidr1)<<8 | uint32(k.cidr2))) & mask
}

type netPortNetV6 struct {
	netPortNet[ip.V6Addr]
}

func (netPortNetV6) Hash(k netPortNetKey[ip.V6Addr], mask uint32) uint32 {
	var buf [16 + 1 + 16 + 1 + 1 + 2]byte
	copy(buf[0:16], k.ip1[:])
	buf[16] = k.cidr1
	copy(buf[17:33], k.ip2[:])
	buf[33] = k.cidr2
	buf[34] = k.proto
	binary.BigEndian.PutUint16(buf[35:37], k.port)
	return fold(xxhash.Sum64(buf[:])) & mask
}

func fold(h uint64) uint32 {
	return uint32(h>>32) ^ uint32(h)
}
