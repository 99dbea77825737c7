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

// Package ipsets implements hash-type IP sets for classifying load-balancer
// traffic.  A set is created from a registered Type, is populated by add and
// delete commands carrying address ranges, port ranges and a protocol, and is
// queried per packet through TestPacket without taking locks.
package ipsets

import (
	"iter"
	"net/netip"

	"github.com/projectcalico/lbipset/ip"
)

// MaxIPSetNameLength is the longest set name the manager accepts.
const MaxIPSetNameLength = 31

// MaxCommentLen is the longest comment stored with an element, in bytes.
// Longer comments are truncated.
const MaxCommentLen = 31

type Op uint8

const (
	OpAdd Op = iota
	OpDel
	OpTest
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpDel:
		return "del"
	case OpTest:
		return "test"
	}
	return "unknown"
}

// Verdict is the set-level outcome of a test.
type Verdict uint8

const (
	NoMatch Verdict = iota
	Accept
	Reject
)

func (v Verdict) String() string {
	switch v {
	case NoMatch:
		return "no-match"
	case Accept:
		return "accept"
	case Reject:
		return "reject"
	}
	return "unknown"
}

// NetRange is an address argument of a command.  If Prefix is non-zero the
// command names the single network Min/Prefix and Max is ignored.  Otherwise
// [Min, Max] is an inclusive range; an invalid Max means Max == Min.  A test
// asks about a single host when Max is unset, and about the whole range when it
// is exactly one network.
type NetRange struct {
	Min, Max netip.Addr
	Prefix   uint8
}

// PortRange is an inclusive range of ports.  For ICMP the "port" is the
// type/code word, type in the high byte.
type PortRange struct {
	Min, Max uint16
}

// Param is one control-plane command.
type Param struct {
	Op     Op
	Family ip.Family
	Net    NetRange
	Net2   NetRange
	Ports  PortRange
	Proto  uint8

	// Add only.
	Comment   string
	NoMatch   bool
	Overwrite bool
}

// Member is the display form of a stored element.  Fields a set type doesn't
// have are left zero.
type Member struct {
	Addr    netip.Addr
	Cidr    uint8
	Addr2   netip.Addr
	Cidr2   uint8
	Proto   uint8
	Port    uint16
	NoMatch bool
	Comment string
}

// CreateOptions are the per-set settings given when a set is created.
type CreateOptions struct {
	Family ip.Family
	// HashSize is the initial bucket count, rounded up to a power of two.
	HashSize uint32
	// MaxElem is the maximum number of elements.
	MaxElem uint32
	// Comment enables storing a comment with each element.
	Comment bool
}

// Header describes a set for listing.
type Header struct {
	Name       string
	Type       string
	Family     ip.Family
	HashSize   int
	MaxElem    uint32
	Entries    int
	RecordSize int
	Comment    bool
}

// Set is a live IP set.  Add, Del, Flush and Destroy are serialised per set;
// Test, TestPacket and Members may run concurrently with them and with each
// other.
type Set interface {
	Name() string
	Header() Header

	Add(p *Param) error
	Del(p *Param) error
	Test(p *Param) (Verdict, error)
	// TestPacket classifies a packet.  It never blocks, allocates or fails; a
	// header of the wrong family is simply not matched.
	TestPacket(hdr *PacketHeader, dir PortDirection) Verdict

	Flush()
	Destroy()
	Len() int
	Members() iter.Seq[Member]
}

// Type is a set type such as "hash:net,port,net".
type Type interface {
	Name() string
	// NetCount is the number of network (prefix-carrying) fields in an element.
	NetCount() int
	// RecordSize is the number of identity bytes hashed per element.
	RecordSize(f ip.Family) int
	// Create builds an empty set, choosing the IPv4 or IPv6 variant once.
	Create(name string, opts CreateOptions) (Set, error)
}
