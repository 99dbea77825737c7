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

// The ip package contains yet another IP address (and CIDR) type :-).   The
// types differ from the ones in the net package in that they are backed by
// fixed-sized arrays of the appropriate size.  The key advantage of
// using a fixed-size array is that it makes the types comparable so they can
// be embedded in hash set elements and compared with ==.  In addition, they
// can be converted to net.IP by slicing and to netip.Addr without allocation.
package ip

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// Addr represents either an IPv4 or IPv6 IP address.
type Addr interface {
	// Version returns the IP version; 4 or 6.
	Version() uint8
	// AsNetIP returns a net.IP, which is backed by/shares storage with
	// this object.
	AsNetIP() net.IP
	// AsNetipAddr returns the address as a netip.Addr value.
	AsNetipAddr() netip.Addr
	String() string
}

// Fixed is satisfied by the array-backed address types.  It lets the set
// elements and the range decomposer be written once for both families; the
// width-specific arithmetic lives behind Bits/WithBits.
type Fixed[A any] interface {
	comparable
	Addr
	// Width returns the number of bits in the address: 32 or 128.
	Width() uint8
	// Masked returns the address with all bits beyond prefix cleared.
	Masked(prefix uint8) A
	// Bits returns the address as a 128-bit unsigned integer, split into
	// high and low words.  IPv4 addresses only use the low 32 bits.
	Bits() (hi, lo uint64)
	// WithBits builds an address of the receiver's type from a 128-bit value.
	// The receiver's own value is ignored.
	WithBits(hi, lo uint64) A
}

func assertFixed[A Fixed[A]]() {}

var (
	_ = assertFixed[V4Addr]
	_ = assertFixed[V6Addr]
)

type V4Addr [4]byte

func (a V4Addr) Version() uint8 {
	return 4
}

func (a V4Addr) Width() uint8 {
	return 32
}

func (a V4Addr) AsNetIP() net.IP {
	return net.IP(a[0:net.IPv4len])
}

func (a V4Addr) AsNetipAddr() netip.Addr {
	return netip.AddrFrom4(a)
}

// AsUint32 returns the address in host order, i.e. 10.0.0.1 is 0x0a000001.
func (a V4Addr) AsUint32() uint32 {
	return binary.BigEndian.Uint32(a[:])
}

func (a V4Addr) Masked(prefix uint8) V4Addr {
	return V4AddrFromUint32(a.AsUint32() & v4Mask(prefix))
}

func (a V4Addr) Bits() (hi, lo uint64) {
	return 0, uint64(a.AsUint32())
}

func (a V4Addr) WithBits(_, lo uint64) V4Addr {
	return V4AddrFromUint32(uint32(lo))
}

func (a V4Addr) String() string {
	return a.AsNetipAddr().String()
}

func V4AddrFromUint32(u uint32) (a V4Addr) {
	binary.BigEndian.PutUint32(a[:], u)
	return
}

func v4Mask(prefix uint8) uint32 {
	if prefix == 0 {
		return 0
	}
	if prefix >= 32 {
		return ^uint32(0)
	}
	return ^uint32(0) << (32 - prefix)
}

type V6Addr [16]byte

func (a V6Addr) Version() uint8 {
	return 6
}

func (a V6Addr) Width() uint8 {
	return 128
}

func (a V6Addr) AsNetIP() net.IP {
	return net.IP(a[0:net.IPv6len])
}

func (a V6Addr) AsNetipAddr() netip.Addr {
	return netip.AddrFrom16(a)
}

func (a V6Addr) Bits() (hi, lo uint64) {
	return binary.BigEndian.Uint64(a[0:8]), binary.BigEndian.Uint64(a[8:16])
}

func (a V6Addr) WithBits(hi, lo uint64) (out V6Addr) {
	binary.BigEndian.PutUint64(out[0:8], hi)
	binary.BigEndian.PutUint64(out[8:16], lo)
	return
}

func (a V6Addr) Masked(prefix uint8) V6Addr {
	hi, lo := a.Bits()
	mhi, mlo := v6Mask(prefix)
	return a.WithBits(hi&mhi, lo&mlo)
}

func (a V6Addr) String() string {
	return a.AsNetipAddr().String()
}

func v6Mask(prefix uint8) (hi, lo uint64) {
	switch {
	case prefix == 0:
		return 0, 0
	case prefix < 64:
		return ^uint64(0) << (64 - prefix), 0
	case prefix == 64:
		return ^uint64(0), 0
	case prefix < 128:
		return ^uint64(0), ^uint64(0) << (128 - prefix)
	default:
		return ^uint64(0), ^uint64(0)
	}
}

// FromNetipAddr converts a netip.Addr to our Addr type.  IPv4-mapped IPv6
// addresses are unmapped.  Returns nil for the zero/invalid address.
func FromNetipAddr(a netip.Addr) Addr {
	if !a.IsValid() {
		return nil
	}
	a = a.Unmap()
	if a.Is4() {
		return V4Addr(a.As4())
	}
	return V6Addr(a.As16())
}

func FromNetIP(netIP net.IP) Addr {
	if v4 := netIP.To4(); v4 != nil {
		var a V4Addr
		copy(a[:], v4)
		return a
	}
	if len(netIP) == net.IPv6len {
		var a V6Addr
		copy(a[:], netIP)
		return a
	}
	return nil
}

// FromString parses an IPv4 or IPv6 address.  Returns nil on failure.
func FromString(s string) Addr {
	a, err := netip.ParseAddr(s)
	if err != nil {
		return nil
	}
	return FromNetipAddr(a)
}

// CIDR represents either an IPv4 or IPv6 CIDR.
type CIDR interface {
	Version() uint8
	Addr() Addr
	Prefix() uint8
	Contains(addr Addr) bool
	String() string
}

type V4CIDR struct {
	addr   V4Addr
	prefix uint8
}

func NewV4CIDR(addr V4Addr, prefix uint8) V4CIDR {
	return V4CIDR{addr: addr.Masked(prefix), prefix: prefix}
}

func (c V4CIDR) Version() uint8 {
	return 4
}

func (c V4CIDR) Addr() Addr {
	return c.addr
}

func (c V4CIDR) Prefix() uint8 {
	return c.prefix
}

func (c V4CIDR) Contains(addr Addr) bool {
	a, ok := addr.(V4Addr)
	return ok && a.Masked(c.prefix) == c.addr
}

func (c V4CIDR) String() string {
	return fmt.Sprintf("%s/%d", c.addr, c.prefix)
}

type V6CIDR struct {
	addr   V6Addr
	prefix uint8
}

func NewV6CIDR(addr V6Addr, prefix uint8) V6CIDR {
	return V6CIDR{addr: addr.Masked(prefix), prefix: prefix}
}

func (c V6CIDR) Version() uint8 {
	return 6
}

func (c V6CIDR) Addr() Addr {
	return c.addr
}

func (c V6CIDR) Prefix() uint8 {
	return c.prefix
}

func (c V6CIDR) Contains(addr Addr) bool {
	a, ok := addr.(V6Addr)
	return ok && a.Masked(c.prefix) == c.addr
}

func (c V6CIDR) String() string {
	return fmt.Sprintf("%s/%d", c.addr, c.prefix)
}

// ParseCIDROrIP parses a CIDR, or a bare IP, which is treated as a single-host
// CIDR.  The address is masked to the prefix.
func ParseCIDROrIP(s string) (CIDR, error) {
	if !strings.Contains(s, "/") {
		a, err := netip.ParseAddr(s)
		if err != nil {
			return nil, err
		}
		s = netip.PrefixFrom(a, a.BitLen()).String()
	}
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return nil, err
	}
	addr := p.Masked().Addr()
	if addr.Is4() {
		return NewV4CIDR(V4Addr(addr.As4()), uint8(p.Bits())), nil
	}
	return NewV6CIDR(V6Addr(addr.As16()), uint8(p.Bits())), nil
}

func MustParseCIDROrIP(s string) CIDR {
	c, err := ParseCIDROrIP(s)
	if err != nil {
		panic(fmt.Sprintf("failed to parse CIDR %q: %v", s, err))
	}
	return c
}
