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

package ip

import (
	"fmt"
	"net/netip"

	"golang.org/x/sys/unix"
)

// Family is an address family, numerically equal to the AF_* constant so it can be
// handed to the dataplane unchanged.
type Family uint8

const (
	FamilyUnspec Family = unix.AF_UNSPEC
	FamilyV4     Family = unix.AF_INET
	FamilyV6     Family = unix.AF_INET6
)

// String returns the name the ipset command uses for the family.
func (f Family) String() string {
	switch f {
	case FamilyV4:
		return "inet"
	case FamilyV6:
		return "inet6"
	}
	return fmt.Sprintf("<unknown-family(%d)>", uint8(f))
}

func (f Family) IsValid() bool {
	return f == FamilyV4 || f == FamilyV6
}

// Width returns the address width in bits, or 0 for an invalid family.
func (f Family) Width() uint8 {
	switch f {
	case FamilyV4:
		return 32
	case FamilyV6:
		return 128
	}
	return 0
}

func ParseFamily(s string) (Family, error) {
	switch s {
	case "inet", "ipv4", "4", "":
		return FamilyV4, nil
	case "inet6", "ipv6", "6":
		return FamilyV6, nil
	}
	return FamilyUnspec, fmt.Errorf("unknown address family %q", s)
}

// FamilyOf returns the family an entry address belongs to; IPv4-mapped IPv6
// addresses count as IPv4, matching FromNetipAddr.
func FamilyOf(a netip.Addr) Family {
	if !a.IsValid() {
		return FamilyUnspec
	}
	if a.Unmap().Is4() {
		return FamilyV4
	}
	return FamilyV6
}

// FamilyFor returns the family of the given fixed address type.
func FamilyFor[A Fixed[A]]() Family {
	var zero A
	if zero.Width() == 32 {
		return FamilyV4
	}
	return FamilyV6
}

// FixedFrom converts a netip.Addr to the fixed address type A.  The second return
// value is false if the address is not of A's family.  An IPv4-mapped IPv6
// address is an IPv6 address here, as it is on the wire; callers that want it
// treated as IPv4 unmap it first.
func FixedFrom[A Fixed[A]](a netip.Addr) (out A, ok bool) {
	if out.Width() == 32 {
		if !a.Is4() {
			return out, false
		}
		return out.WithBits(V4Addr(a.As4()).Bits()), true
	}
	if !a.Is6() {
		return out, false
	}
	v6 := V6Addr(a.As16())
	return out.WithBits(v6.Bits()), true
}
