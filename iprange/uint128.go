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

package iprange

import "math/bits"

// uint128 is the cursor type for the decomposer.  Both address families are
// widened to it so the block arithmetic is written once.
type uint128 struct {
	hi, lo uint64
}

func (u uint128) cmp(v uint128) int {
	switch {
	case u.hi < v.hi:
		return -1
	case u.hi > v.hi:
		return 1
	case u.lo < v.lo:
		return -1
	case u.lo > v.lo:
		return 1
	}
	return 0
}

// add returns u+v and whether the sum carried out of bit 127.
func (u uint128) add(v uint128) (uint128, bool) {
	lo, c := bits.Add64(u.lo, v.lo, 0)
	hi, c := bits.Add64(u.hi, v.hi, c)
	return uint128{hi: hi, lo: lo}, c != 0
}

func (u uint128) or(v uint128) uint128 {
	return uint128{hi: u.hi | v.hi, lo: u.lo | v.lo}
}

// trailingZeros returns the number of trailing zero bits, 128 for zero.
func (u uint128) trailingZeros() int {
	if u.lo != 0 {
		return bits.TrailingZeros64(u.lo)
	}
	if u.hi != 0 {
		return 64 + bits.TrailingZeros64(u.hi)
	}
	return 128
}

// lowOnes returns a value with the low n bits set.
func lowOnes(n int) uint128 {
	switch {
	case n <= 0:
		return uint128{}
	case n < 64:
		return uint128{lo: 1<<uint(n) - 1}
	case n == 64:
		return uint128{lo: ^uint64(0)}
	case n < 128:
		return uint128{hi: 1<<uint(n-64) - 1, lo: ^uint64(0)}
	}
	return uint128{hi: ^uint64(0), lo: ^uint64(0)}
}

func (u uint128) inc() uint128 {
	v, _ := u.add(uint128{lo: 1})
	return v
}

// sub returns u-v; the caller guarantees u >= v.
func (u uint128) sub(v uint128) uint128 {
	lo, b := bits.Sub64(u.lo, v.lo, 0)
	hi, _ := bits.Sub64(u.hi, v.hi, b)
	return uint128{hi: hi, lo: lo}
}
