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

// Package hashtable is the storage engine behind every hash-type IP set.  It is
// a chained hash table whose element layout, hash function and equality are
// supplied by a Variant, so one implementation serves all set types and both
// address families.
//
// Readers never lock.  Each bucket chain is an immutable slice that a writer
// replaces wholesale; the bucket array and the per-field prefix index are
// published through atomic pointers and a payload is swapped as a unit.  Writers
// are serialised by a mutex owned by the table.
package hashtable

import (
	"iter"
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultHashSize = 1024
	DefaultMaxElem  = 65536

	// maxBuckets bounds growth; past this point chains just get longer.
	maxBuckets = 1 << 24
	// MaxNetFields is the largest number of network fields a key may have.
	MaxNetFields = 2
)

var (
	ErrExist     = errors.New("element already exists")
	ErrNotFound  = errors.New("element not found")
	ErrExhausted = errors.New("set is full")
)

// Result is the outcome of comparing a lookup key with the stored elements.
type Result uint8

const (
	// Unequal means no stored element matched.
	Unequal Result = iota
	// EqualAccept means an element matched and it is not negated.
	EqualAccept
	// EqualReject means an element matched and it carries the nomatch flag.
	EqualReject
)

func (r Result) String() string {
	switch r {
	case Unequal:
		return "unequal"
	case EqualAccept:
		return "equal-accept"
	case EqualReject:
		return "equal-reject"
	}
	return "unknown"
}

// Payload is the mutable part of an element.  It is never modified in place;
// an update stores a new Payload.
type Payload struct {
	Comment string
	NoMatch bool
}

// Variant supplies the per-type, per-family behaviour of a key.  Keys are passed
// by value so that keys built on the packet path stay on the stack.
type Variant[K any] interface {
	// Hash returns the bucket index of k; the result must already be masked.
	Hash(k K, mask uint32) uint32
	// Equal compares the identity fields of two keys.
	Equal(a, b K) bool
	// Netmask returns k with network field masked to prefix.
	Netmask(k K, field int, prefix uint8) K
	// Prefix returns the prefix length of network field.
	Prefix(k K, field int) uint8
}

type Options struct {
	// HashSize is the initial number of buckets, rounded up to a power of two.
	HashSize uint32
	// MaxElem is the maximum number of elements the table accepts.
	MaxElem uint32
	// NetCount is the number of network fields in the key (0, 1 or 2).
	NetCount int
	// Width is the address width of the network fields, 32 or 128.
	Width uint8
	// OnResize, if non-nil, is called with the table's write lock held after the
	// bucket array has grown.
	OnResize func(oldBuckets, newBuckets int)
	// Name is used for logging only.
	Name string
}

type entry[K any] struct {
	key     K
	payload atomic.Pointer[Payload]
}

type chain[K any] []*entry[K]

type bucketArray[K any] struct {
	chains []atomic.Pointer[chain[K]]
	mask   uint32
}

func newBucketArray[K any](n uint32) *bucketArray[K] {
	return &bucketArray[K]{
		chains: make([]atomic.Pointer[chain[K]], n),
		mask:   n - 1,
	}
}

// prefixIndex is the published, read-only view of which prefix lengths are
// present in each network field, longest first.
type prefixIndex struct {
	fields [MaxNetFields][]uint8
}

type Table[K any] struct {
	variant  Variant[K]
	hashSize uint32
	maxElem  uint32
	netCount int
	width    uint8
	onResize func(oldBuckets, newBuckets int)
	logCxt   *log.Entry

	buckets  atomic.Pointer[bucketArray[K]]
	prefixes atomic.Pointer[prefixIndex]
	count    atomic.Uint32

	// Writer-only state, guarded by lock.
	lock       sync.Mutex
	prefixRefs [MaxNetFields][]uint32
	prefixBits [MaxNetFields]*bitset.BitSet
}

func New[K any](variant Variant[K], opts Options) *Table[K] {
	if opts.HashSize == 0 {
		opts.HashSize = DefaultHashSize
	}
	if opts.MaxElem == 0 {
		opts.MaxElem = DefaultMaxElem
	}
	if opts.NetCount < 0 || opts.NetCount > MaxNetFields {
		log.WithField("netCount", opts.NetCount).Panic("Unsupported number of network fields")
	}
	t := &Table[K]{
		variant:  variant,
		hashSize: RoundUpPow2(opts.HashSize),
		maxElem:  opts.MaxElem,
		netCount: opts.NetCount,
		width:    opts.Width,
		onResize: opts.OnResize,
		logCxt:   log.WithField("table", opts.Name),
	}
	for f := 0; f < t.netCount; f++ {
		t.prefixRefs[f] = make([]uint32, int(t.width)+1)
		t.prefixBits[f] = bitset.New(uint(t.width) + 1)
	}
	t.buckets.Store(newBucketArray[K](t.hashSize))
	t.prefixes.Store(&prefixIndex{})
	return t
}

// RoundUpPow2 returns the smallest power of two >= n, capped at the maximum
// bucket count.
func RoundUpPow2(n uint32) uint32 {
	if n <= 1 {
		return 1
	}
	if n >= maxBuckets {
		return maxBuckets
	}
	return 1 << bits.Len32(n-1)
}

func (t *Table[K]) Len() int {
	return int(t.count.Load())
}

func (t *Table[K]) Buckets() int {
	return len(t.buckets.Load().chains)
}

func (t *Table[K]) MaxElem() uint32 {
	return t.maxElem
}

// Add inserts k with the given payload.  If an element with the same identity
// exists, its payload is replaced when overwrite is set or when the nomatch flag
// differs; otherwise ErrExist is returned.  A replacement does not change Len.
func (t *Table[K]) Add(k K, payload Payload, overwrite bool) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	b := t.buckets.Load()
	slot := &b.chains[t.variant.Hash(k, b.mask)]
	var old chain[K]
	if c := slot.Load(); c != nil {
		old = *c
	}
	for _, e := range old {
		if !t.variant.Equal(e.key, k) {
			continue
		}
		if !overwrite && e.payload.Load().NoMatch == payload.NoMatch {
			return ErrExist
		}
		e.payload.Store(&payload)
		return nil
	}

	if t.count.Load() >= t.maxElem {
		return ErrExhausted
	}
	e := &entry[K]{key: k}
	e.payload.Store(&payload)
	updated := make(chain[K], len(old), len(old)+1)
	copy(updated, old)
	updated = append(updated, e)
	slot.Store(&updated)
	t.count.Add(1)
	t.refPrefixes(k, 1)

	if n := uint32(len(b.chains)); t.count.Load() > n/4*3 && n < maxBuckets {
		t.grow(b)
	}
	return nil
}

// Del removes the element with k's identity.  The payload is not compared.
func (t *Table[K]) Del(k K) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	b := t.buckets.Load()
	slot := &b.chains[t.variant.Hash(k, b.mask)]
	c := slot.Load()
	if c == nil {
		return ErrNotFound
	}
	old := *c
	for i, e := range old {
		if !t.variant.Equal(e.key, k) {
			continue
		}
		if len(old) == 1 {
			slot.Store(nil)
		} else {
			updated := make(chain[K], 0, len(old)-1)
			updated = append(updated, old[:i]...)
			updated = append(updated, old[i+1:]...)
			slot.Store(&updated)
		}
		t.count.Add(^uint32(0))
		t.refPrefixes(e.key, -1)
		return nil
	}
	return ErrNotFound
}

// Lookup checks for an element with exactly k's identity.
func (t *Table[K]) Lookup(k K) Result {
	b := t.buckets.Load()
	c := b.chains[t.variant.Hash(k, b.mask)].Load()
	if c == nil {
		return Unequal
	}
	for _, e := range *c {
		if t.variant.Equal(e.key, k) {
			if e.payload.Load().NoMatch {
				return EqualReject
			}
			return EqualAccept
		}
	}
	return Unequal
}

// Test checks whether k is covered by a stored element.  For keys with network
// fields every combination of stored prefix lengths that is no longer than k's
// own prefix is tried, longest first, and the first element found decides.
func (t *Table[K]) Test(k K) Result {
	switch t.netCount {
	case 0:
		return t.Lookup(k)
	case 1:
		idx := t.prefixes.Load()
		limit := t.variant.Prefix(k, 0)
		for _, p := range idx.fields[0] {
			if p > limit {
				continue
			}
			if r := t.Lookup(t.variant.Netmask(k, 0, p)); r != Unequal {
				return r
			}
		}
		return Unequal
	}
	idx := t.prefixes.Load()
	limit1, limit2 := t.variant.Prefix(k, 0), t.variant.Prefix(k, 1)
	for _, p1 := range idx.fields[0] {
		if p1 > limit1 {
			continue
		}
		k1 := t.variant.Netmask(k, 0, p1)
		for _, p2 := range idx.fields[1] {
			if p2 > limit2 {
				continue
			}
			if r := t.Lookup(t.variant.Netmask(k1, 1, p2)); r != Unequal {
				return r
			}
		}
	}
	return Unequal
}

// Flush removes every element and shrinks the table back to its initial size.
func (t *Table[K]) Flush() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.buckets.Store(newBucketArray[K](t.hashSize))
	for f := 0; f < t.netCount; f++ {
		clear(t.prefixRefs[f])
		t.prefixBits[f].ClearAll()
	}
	t.prefixes.Store(&prefixIndex{})
	t.count.Store(0)
}

// All iterates over the elements of one published snapshot of the table, bucket
// by bucket and in insertion order within a bucket.  Writers may run
// concurrently; elements they add or remove after the snapshot was taken may or
// may not be seen.
func (t *Table[K]) All() iter.Seq2[K, Payload] {
	return func(yield func(K, Payload) bool) {
		b := t.buckets.Load()
		for i := range b.chains {
			c := b.chains[i].Load()
			if c == nil {
				continue
			}
			for _, e := range *c {
				if !yield(e.key, *e.payload.Load()) {
					return
				}
			}
		}
	}
}

// grow doubles the bucket array, rehashing every live element exactly once.
// The new array is fully built before it is published.  Called with the lock
// held.
func (t *Table[K]) grow(old *bucketArray[K]) {
	oldLen := len(old.chains)
	nb := newBucketArray[K](uint32(oldLen) * 2)
	staged := make([]chain[K], len(nb.chains))
	for i := range old.chains {
		c := old.chains[i].Load()
		if c == nil {
			continue
		}
		for _, e := range *c {
			h := t.variant.Hash(e.key, nb.mask)
			staged[h] = append(staged[h], e)
		}
	}
	for i := range staged {
		if staged[i] != nil {
			nb.chains[i].Store(&staged[i])
		}
	}
	t.buckets.Store(nb)

	if log.IsLevelEnabled(log.DebugLevel) {
		t.logCxt.WithFields(log.Fields{
			"oldBuckets": oldLen,
			"newBuckets": len(nb.chains),
			"count":      t.count.Load(),
		}).Debug("Grew hash table")
	}
	if t.onResize != nil {
		t.onResize(oldLen, len(nb.chains))
	}
}

// refPrefixes adjusts the reference counts of k's network prefixes and
// republishes the prefix index if the set of present prefixes changed.  Called
// with the lock held.
func (t *Table[K]) refPrefixes(k K, delta int) {
	changed := false
	for f := 0; f < t.netCount; f++ {
		p := t.variant.Prefix(k, f)
		refs := t.prefixRefs[f]
		if int(p) >= len(refs) {
			log.WithFields(log.Fields{"field": f, "prefix": p}).Panic("Prefix beyond address width")
		}
		if delta > 0 {
			refs[p]++
			if refs[p] == 1 {
				t.prefixBits[f].Set(uint(p))
				changed = true
			}
		} else {
			refs[p]--
			if refs[p] == 0 {
				t.prefixBits[f].Clear(uint(p))
				changed = true
			}
		}
	}
	if !changed {
		return
	}
	idx := &prefixIndex{}
	for f := 0; f < t.netCount; f++ {
		present := make([]uint8, 0, t.prefixBits[f].Count())
		for p, ok := t.prefixBits[f].NextSet(0); ok; p, ok = t.prefixBits[f].NextSet(p + 1) {
			present = append(present, uint8(p))
		}
		// Longest first.
		for i, j := 0, len(present)-1; i < j; i, j = i+1, j-1 {
			present[i], present[j] = present[j], present[i]
		}
		idx.fields[f] = present
	}
	t.prefixes.Store(idx)
}
