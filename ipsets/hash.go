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
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/projectcalico/lbipset/hashtable"
	"github.com/projectcalico/lbipset/ip"
)

// element is the per-type, per-family half of a hash set: the key layout and
// its hashing (through hashtable.Variant) plus the translation of commands and
// packets into keys.
type element[K any] interface {
	hashtable.Variant[K]

	// expand validates p and calls fn for each key an add or delete covers,
	// stopping at the first error.  Validation is complete before fn is first
	// called, so a rejected command never changes the set.
	expand(p *Param, fn func(K) error) error
	// testKey returns the key a test command looks up.
	testKey(p *Param) (K, error)
	// packetKey returns the key for a packet, with every network field at full
	// width.  False if the header is of another family.
	packetKey(hdr PacketHeader, dir PortDirection) (K, bool)
	// member converts a key to its display form.
	member(k K) Member
}

// hashType is the Type for all the hash:* sets; the per-type parts are the
// element implementations.
type hashType struct {
	name       string
	netCount   int
	recordSize [2]int
	create     func(t *hashType, name string, opts CreateOptions) Set
}

var _ Type = (*hashType)(nil)

func (t *hashType) Name() string {
	return t.name
}

func (t *hashType) String() string {
	return t.name
}

func (t *hashType) NetCount() int {
	return t.netCount
}

func (t *hashType) RecordSize(f ip.Family) int {
	switch f {
	case ip.FamilyV4:
		return t.recordSize[0]
	case ip.FamilyV6:
		return t.recordSize[1]
	}
	return 0
}

func (t *hashType) Create(name string, opts CreateOptions) (Set, error) {
	if !opts.Family.IsValid() {
		return nil, invalid("family", opts.Family)
	}
	if opts.HashSize == 0 {
		opts.HashSize = hashtable.DefaultHashSize
	}
	if opts.MaxElem == 0 {
		opts.MaxElem = hashtable.DefaultMaxElem
	}
	return t.create(t, name, opts), nil
}

type hashSet[K any] struct {
	name    string
	typ     *hashType
	family  ip.Family
	comment bool

	elem  element[K]
	table *hashtable.Table[K]

	// writeLock orders add, delete and flush against Destroy, so nothing lands
	// in the table once it has been destroyed.  Readers don't take it.
	writeLock sync.Mutex
	destroyed atomic.Bool

	logCxt *log.Entry
}

func newHashSet[K any](t *hashType, name string, opts CreateOptions, elem element[K]) *hashSet[K] {
	s := &hashSet[K]{
		name:    name,
		typ:     t,
		family:  opts.Family,
		comment: opts.Comment,
		elem:    elem,
		logCxt: log.WithFields(log.Fields{
			"setName": name,
			"type":    t.name,
			"family":  opts.Family,
		}),
	}
	resizes := countVecResizes.WithLabelValues(t.name)
	s.table = hashtable.New[K](elem, hashtable.Options{
		HashSize: opts.HashSize,
		MaxElem:  opts.MaxElem,
		NetCount: t.netCount,
		Width:    opts.Family.Width(),
		Name:     name,
		OnResize: func(oldBuckets, newBuckets int) {
			resizes.Inc()
		},
	})
	return s
}

func (s *hashSet[K]) Name() string {
	return s.name
}

func (s *hashSet[K]) Len() int {
	return s.table.Len()
}

func (s *hashSet[K]) Header() Header {
	return Header{
		Name:       s.name,
		Type:       s.typ.name,
		Family:     s.family,
		HashSize:   s.table.Buckets(),
		MaxElem:    s.table.MaxElem(),
		Entries:    s.table.Len(),
		RecordSize: s.typ.RecordSize(s.family),
		Comment:    s.comment,
	}
}

func (s *hashSet[K]) check(p *Param) error {
	if s.destroyed.Load() {
		return ErrDestroyed
	}
	if p.Family != s.family {
		return familyMismatch("family", p.Family)
	}
	return nil
}

func (s *hashSet[K]) Add(p *Param) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	if err := s.check(p); err != nil {
		return s.done(OpAdd, 0, err)
	}
	payload := hashtable.Payload{NoMatch: p.NoMatch}
	if s.comment {
		payload.Comment = truncateComment(p.Comment)
	}
	applied := 0
	err := s.elem.expand(p, func(k K) error {
		if err := s.table.Add(k, payload, p.Overwrite); err != nil {
			return err
		}
		applied++
		return nil
	})
	return s.done(OpAdd, applied, err)
}

func (s *hashSet[K]) Del(p *Param) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	if err := s.check(p); err != nil {
		return s.done(OpDel, 0, err)
	}
	applied := 0
	err := s.elem.expand(p, func(k K) error {
		if err := s.table.Del(k); err != nil {
			return err
		}
		applied++
		return nil
	})
	return s.done(OpDel, applied, err)
}

// done records the outcome of an add or delete.  Elements applied before a
// failure stay applied.
func (s *hashSet[K]) done(op Op, applied int, err error) error {
	countVecCommands.WithLabelValues(op.String(), resultLabel(err)).Inc()
	if err == nil {
		if log.IsLevelEnabled(log.DebugLevel) {
			s.logCxt.WithFields(log.Fields{"op": op, "elements": applied}).Debug("Applied command")
		}
		return nil
	}
	if applied > 0 {
		s.logCxt.WithError(err).WithFields(log.Fields{
			"op":      op,
			"applied": applied,
		}).Warn("Command failed part way through; earlier elements remain applied")
	}
	return errors.WithMessagef(err, "%s %s", op, s.name)
}

func (s *hashSet[K]) Test(p *Param) (Verdict, error) {
	if err := s.check(p); err != nil {
		return NoMatch, s.done(OpTest, 0, err)
	}
	k, err := s.elem.testKey(p)
	if err != nil {
		return NoMatch, s.done(OpTest, 0, err)
	}
	countVecCommands.WithLabelValues(OpTest.String(), "ok").Inc()
	return verdictOf(s.table.Test(k)), nil
}

func (s *hashSet[K]) TestPacket(hdr *PacketHeader, dir PortDirection) Verdict {
	k, ok := s.elem.packetKey(*hdr, dir)
	if !ok {
		return NoMatch
	}
	return verdictOf(s.table.Test(k))
}

func (s *hashSet[K]) Flush() {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	s.table.Flush()
	s.logCxt.Debug("Flushed set")
}

// Destroy empties the set and makes further commands fail.  An add already in
// progress finishes first; concurrent packet tests see an empty set.
func (s *hashSet[K]) Destroy() {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	s.destroyed.Store(true)
	s.table.Flush()
	s.logCxt.Debug("Destroyed set")
}

func (s *hashSet[K]) Members() iter.Seq[Member] {
	return func(yield func(Member) bool) {
		for k, payload := range s.table.All() {
			m := s.elem.member(k)
			m.NoMatch = payload.NoMatch
			m.Comment = payload.Comment
			if !yield(m) {
				return
			}
		}
	}
}

func verdictOf(r hashtable.Result) Verdict {
	switch r {
	case hashtable.EqualAccept:
		return Accept
	case hashtable.EqualReject:
		return Reject
	}
	return NoMatch
}
