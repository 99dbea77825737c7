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
	"github.com/cespare/xxhash/v2"

	"github.com/projectcalico/lbipset/ip"
)

// HashNet stores networks.  A packet is matched on its source address, or its
// destination address when testing in the DstPort direction.
var HashNet Type = &hashType{
	name:       "hash:net",
	netCount:   1,
	recordSize: [2]int{4 + 1, 16 + 1},
	create: func(t *hashType, name string, opts CreateOptions) Set {
		if opts.Family == ip.FamilyV6 {
			return newHashSet[netKey[ip.V6Addr]](t, name, opts, netV6{})
		}
		return newHashSet[netKey[ip.V4Addr]](t, name, opts, netV4{})
	},
}

type netKey[A ip.Fixed[A]] struct {
	ip   A
	cidr uint8
}

type netElem[A ip.Fixed[A]] struct{}

func (netElem[A]) Equal(a, b netKey[A]) bool {
	return a == b
}

func (netElem[A]) Netmask(k netKey[A], _ int, prefix uint8) netKey[A] {
	return netKey[A]{ip: k.ip.Masked(prefix), cidr: prefix}
}

func (netElem[A]) Prefix(k netKey[A], _ int) uint8 {
	return k.cidr
}

func (netElem[A]) expand(p *Param, fn func(netKey[A]) error) error {
	blocks, err := netBlocks[A]("net", p.Net)
	if err != nil {
		return err
	}
	for addr, cidr := range blocks {
		if err := fn(netKey[A]{ip: addr, cidr: cidr}); err != nil {
			return err
		}
	}
	return nil
}

func (netElem[A]) testKey(p *Param) (k netKey[A], err error) {
	k.ip, k.cidr, err = testNet[A]("net", p.Net)
	return
}

func (netElem[A]) packetKey(hdr PacketHeader, dir PortDirection) (k netKey[A], ok bool) {
	if k.ip, ok = ip.FixedFrom[A](hdr.Addr(dir)); !ok {
		return
	}
	k.cidr = k.ip.Width()
	return k, true
}

func (netElem[A]) member(k netKey[A]) Member {
	return Member{Addr: k.ip.AsNetipAddr(), Cidr: k.cidr}
}

type netV4 struct {
	netElem[ip.V4Addr]
}

func (netV4) Hash(k netKey[ip.V4Addr], mask uint32) uint32 {
	return (k.ip.AsUint32()*31 + uint32(k.cidr)) & mask
}

type netV6 struct {
	netElem[ip.V6Addr]
}

func (netV6) Hash(k netKey[ip.V6Addr], mask uint32) uint32 {
	var buf [16 + 1]byte
	copy(buf[0:16], k.ip[:])
	buf[16] = k.cidr
	return fold(xxhash.Sum64(buf[:])) & mask
}
