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
	"github.com/projectcalico/lbipset/iprange"
)

// MaxAddrRange is the largest address range a single command may add to or
// delete from a set of individual addresses.
const MaxAddrRange = 65536

// HashIPPort stores (address, protocol:port) pairs.  A packet's source address
// and port are matched, or the destination ones in the DstPort direction.
var HashIPPort Type = &hashType{
	name:       "hash:ip,port",
	netCount:   0,
	recordSize: [2]int{4 + 1 + 2, 16 + 1 + 2},
	create: func(t *hashType, name string, opts CreateOptions) Set {
		if opts.Family == ip.FamilyV6 {
			return newHashSet[ipPortKey[ip.V6Addr]](t, name, opts, ipPortV6{})
		}
		return newHashSet[ipPortKey[ip.V4Addr]](t, name, opts, ipPortV4{})
	},
}

type ipPortKey[A ip.Fixed[A]] struct {
	ip    A
	port  uint16
	proto uint8
}

type ipPort[A ip.Fixed[A]] struct{}

func (ipPort[A]) Equal(a, b ipPortKey[A]) bool {
	return a == b
}

// Netmask and Prefix are never called for a set without network fields.
func (ipPort[A]) Netmask(k ipPortKey[A], _ int, _ uint8) ipPortKey[A] {
	return k
}

func (ipPort[A]) Prefix(k ipPortKey[A], _ int) uint8 {
	return k.ip.Width()
}

func (ipPort[A]) expand(p *Param, fn func(ipPortKey[A]) error) error {
	from, to, err := rangeBounds[A]("ip", p.Net)
	if err != nil {
		return err
	}
	if p.Net.Prefix != 0 {
		from, to = iprange.MaskRange(from, p.Net.Prefix)
	}
	switch size := iprange.Size(from, to); {
	case size == 0:
		return invalid("ip range", p.Net.Min.String()+"-"+p.Net.Max.String())
	case size > MaxAddrRange:
		return invalid("ip range size", size)
	}
	if err := validatePorts(p.Ports); err != nil {
		return err
	}
	if !validProto(ip.FamilyFor[A](), p.Proto) {
		return invalid("proto", p.Proto)
	}

	k := ipPortKey[A]{proto: p.Proto}
	for addr := range iprange.Addrs(from, to) {
		k.ip = addr
		err = forEachPort(p.Ports, func(port uint16) error {
			k.port = port
			return fn(k)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (ipPort[A]) testKey(p *Param) (k ipPortKey[A], err error) {
	from, to, err := rangeBounds[A]("ip", p.Net)
	if err != nil {
		return k, err
	}
	if p.Net.Prefix != 0 {
		from, to = iprange.MaskRange(from, p.Net.Prefix)
	}
	// Only a single address can be tested.
	if from != to {
		return k, invalid("ip", p.Net.Min.String()+"-"+p.Net.Max.String())
	}
	k.ip = from
	if !validProto(ip.FamilyFor[A](), p.Proto) {
		return k, invalid("proto", p.Proto)
	}
	k.proto = p.Proto
	k.port = p.Ports.Min
	return k, nil
}

func (ipPort[A]) packetKey(hdr PacketHeader, dir PortDirection) (k ipPortKey[A], ok bool) {
	if k.ip, ok = ip.FixedFrom[A](hdr.Addr(dir)); !ok {
		return
	}
	k.proto = hdr.Proto
	k.port = hdr.Port(dir)
	return k, true
}

func (ipPort[A]) member(k ipPortKey[A]) Member {
	return Member{
		Addr:  k.ip.AsNetipAddr(),
		Cidr:  k.ip.Width(),
		Proto: k.proto,
		Port:  k.port,
	}
}

type ipPortV4 struct {
	ipPort[ip.V4Addr]
}

func (ipPortV4) Hash(k ipPortKey[ip.V4Addr], mask uint32) uint32 {
	return (k.ip.AsUint32()*31 + (uint32(k.port)<<16 | uint32(k.proto))) & mask
}

type ipPortV6 struct {
	ipPort[ip.V6Addr]
}

func (ipPortV6) Hash(k ipPortKey[ip.V6Addr], mask uint32) uint32 {
	var buf [16 + 1 + 2]byte
	copy(buf[0:16], k.ip[:])
	buf[16] = k.proto
	binary.BigEndian.PutUint16(buf[17:19], k.port)
	return fold(xxhash.Sum64(buf[:])) & mask
}
