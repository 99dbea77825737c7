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

// Package iprange turns arbitrary inclusive address ranges into the minimal
// ordered list of aligned CIDR blocks covering them.  The hash sets store
// networks, so every range given to an add or delete command goes through here.
package iprange

import (
	"fmt"
	"iter"
	"math"

	"github.com/pkg/errors"

	"github.com/projectcalico/lbipset/ip"
)

var ErrInvalidRange = errors.New("range start is after range end")

// Block is an aligned CIDR block: Addr has no bits set beyond Prefix.
type Block[A ip.Fixed[A]] struct {
	Addr   A
	Prefix uint8
}

func (b Block[A]) String() string {
	return fmt.Sprintf("%s/%d", b.Addr, b.Prefix)
}

func toUint128[A ip.Fixed[A]](a A) uint128 {
	hi, lo := a.Bits()
	return uint128{hi: hi, lo: lo}
}

func fromUint128[A ip.Fixed[A]](u uint128) A {
	var zero A
	return zero.WithBits(u.hi, u.lo)
}

// Blocks yields, lazily and in ascending order, the shortest sequence of aligned
// blocks whose union is exactly [from, to].  At each step the largest block that
// starts at the cursor and does not pass to is emitted.  Nothing is yielded if
// from is after to.
func Blocks[A ip.Fixed[A]](from, to A) iter.Seq2[A, uint8] {
	return func(yield func(A, uint8) bool) {
		var zero A
		width := int(zero.Width())
		cur, end := toUint128(from), toUint128(to)
		// One past the top of the address space; only reachable for IPv4 since the
		// IPv6 cursor reports the wrap as a carry instead.
		top := lowOnes(width)
		for cur.cmp(end) <= 0 {
			hostBits := min(cur.trailingZeros(), width)
			for hostBits > 0 && cur.or(lowOnes(hostBits)).cmp(end) > 0 {
				hostBits--
			}
			if !yield(fromUint128[A](cur), uint8(width-hostBits)) || hostBits == width {
				return
			}
			next, carry := cur.add(lowOnes(hostBits).inc())
			if carry || next.cmp(top) > 0 {
				return
			}
			cur = next
		}
	}
}

// Decompose returns the blocks produced by Blocks as a slice.
func Decompose[A ip.Fixed[A]](from, to A) ([]Block[A], error) {
	if toUint128(from).cmp(toUint128(to)) > 0 {
		return nil, errors.Wrapf(ErrInvalidRange, "%s-%s", from, to)
	}
	var out []Block[A]
	for addr, prefix := range Blocks(from, to) {
		out = append(out, Block[A]{Addr: addr, Prefix: prefix})
	}
	return out, nil
}

// MaskRange returns the first and last addresses of the prefix-length block
// containing addr.
func MaskRange[A ip.Fixed[A]](addr A, prefix uint8) (from, to A) {
	from = addr.Masked(prefix)
	hostBits := int(from.Width()) - int(prefix)
	return from, fromUint128[A](toUint128(from).or(lowOnes(hostBits)))
}

// Addrs yields every address in [from, to] in ascending order.
func Addrs[A ip.Fixed[A]](from, to A) iter.Seq[A] {
	return func(yield func(A) bool) {
		cur, end := toUint128(from), toUint128(to)
		for cur.cmp(end) <= 0 {
			if !yield(fromUint128[A](cur)) || cur == end {
				return
			}
			cur = cur.inc()
		}
	}
}

// Size returns the number of addresses in [from, to], saturating at
// math.MaxUint64.  It is 0 if from is after to.
func Size[A ip.Fixed[A]](from, to A) uint64 {
	f, t := toUint128(from), toUint128(to)
	if f.cmp(t) > 0 {
		return 0
	}
	d := t.sub(f)
	if d.hi != 0 || d.lo == math.MaxUint64 {
		return math.MaxUint64
	}
	return d.lo + 1
}
