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
	"iter"
	"unicode/utf8"

	"github.com/projectcalico/lbipset/ip"
	"github.com/projectcalico/lbipset/iprange"
)

// netBlocks validates an address argument of an add or delete and returns the
// blocks it covers: the single masked network for an explicit prefix,
// otherwise the decomposition of the range.
func netBlocks[A ip.Fixed[A]](field string, r NetRange) (iter.Seq2[A, uint8], error) {
	from, to, err := rangeBounds[A](field, r)
	if err != nil {
		return nil, err
	}
	if r.Prefix != 0 {
		from, _ = iprange.MaskRange(from, r.Prefix)
		prefix := r.Prefix
		return func(yield func(A, uint8) bool) {
			yield(from, prefix)
		}, nil
	}
	if from.AsNetipAddr().Compare(to.AsNetipAddr()) > 0 {
		return nil, invalid(field+" range", r.Min.String()+"-"+r.Max.String())
	}
	return iprange.Blocks(from, to), nil
}

func rangeBounds[A ip.Fixed[A]](field string, r NetRange) (from, to A, err error) {
	if !r.Min.IsValid() {
		return from, to, invalid(field, "missing address")
	}
	var ok bool
	if from, ok = ip.FixedFrom[A](r.Min); !ok {
		return from, to, familyMismatch(field, r.Min)
	}
	to = from
	if r.Max.IsValid() {
		if to, ok = ip.FixedFrom[A](r.Max); !ok {
			return from, to, familyMismatch(field, r.Max)
		}
	}
	if r.Prefix > from.Width() {
		return from, to, invalid(field+" prefix", r.Prefix)
	}
	return from, to, nil
}

// testNet returns the network a test command asks about: the masked network
// for an explicit prefix, a single host for a bare address, or the range when
// it is exactly one aligned block (0.0.0.0-255.255.255.255 is the /0).  Any
// other range can't be asked about as a whole.
func testNet[A ip.Fixed[A]](field string, r NetRange) (A, uint8, error) {
	from, to, err := rangeBounds[A](field, r)
	if err != nil {
		return from, 0, err
	}
	if r.Prefix != 0 {
		return from.Masked(r.Prefix), r.Prefix, nil
	}
	if from == to {
		return from, from.Width(), nil
	}
	if blocks, err := iprange.Decompose(from, to); err == nil && len(blocks) == 1 {
		return blocks[0].Addr, blocks[0].Prefix, nil
	}
	return from, 0, invalid(field+" range", r.Min.String()+"-"+r.Max.String())
}

func truncateComment(s string) string {
	if len(s) <= MaxCommentLen {
		return s
	}
	s = s[:MaxCommentLen]
	// Don't leave half a rune behind.
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
