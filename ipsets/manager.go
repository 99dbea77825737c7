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

	"github.com/google/btree"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// OpRecorder is told about each command the manager applies, for example by a
// logutils.Summarizer that logs per-batch summaries.
type OpRecorder interface {
	RecordOperation(name string)
}

// Manager processes control-plane commands against a collection of named sets.
// The name index has its own lock; each set serialises its own writers, so
// commands on different sets don't contend and the packet path, which holds Set
// or Matcher references directly, never touches the manager.
type Manager struct {
	registry   *Registry
	opRecorder OpRecorder

	lock  sync.RWMutex
	sets  map[string]Set
	names *btree.BTreeG[string]
}

func NewManager(registry *Registry, opRecorder OpRecorder) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Manager{
		registry:   registry,
		opRecorder: opRecorder,
		sets:       map[string]Set{},
		names:      btree.NewG(8, func(a, b string) bool { return a < b }),
	}
}

func (m *Manager) Registry() *Registry {
	return m.registry
}

func (m *Manager) recordOp(name string) {
	if m.opRecorder != nil {
		m.opRecorder.RecordOperation(name)
	}
}

func (m *Manager) Create(name, typeName string, opts CreateOptions) (Set, error) {
	if name == "" || len(name) > MaxIPSetNameLength {
		return nil, invalid("name", name)
	}
	t, err := m.registry.Get(typeName)
	if err != nil {
		return nil, err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	if _, ok := m.sets[name]; ok {
		return nil, &FieldError{Field: "name", Value: name, Err: ErrSetExists}
	}
	s, err := t.Create(name, opts)
	if err != nil {
		return nil, errors.WithMessagef(err, "create %s", name)
	}
	m.sets[name] = s
	m.names.ReplaceOrInsert(name)
	gaugeVecNumSets.WithLabelValues(versionLabel(s), typeName).Inc()
	m.recordOp("create")
	log.WithFields(log.Fields{
		"setName": name,
		"type":    typeName,
		"family":  opts.Family,
	}).Info("Created IP set")
	return s, nil
}

func (m *Manager) Destroy(name string) error {
	m.lock.Lock()
	s, ok := m.sets[name]
	if ok {
		delete(m.sets, name)
		m.names.Delete(name)
	}
	m.lock.Unlock()

	if !ok {
		return &FieldError{Field: "name", Value: name, Err: ErrNoSuchSet}
	}
	s.Destroy()
	gaugeVecNumSets.WithLabelValues(versionLabel(s), s.Header().Type).Dec()
	m.recordOp("destroy")
	log.WithField("setName", name).Info("Destroyed IP set")
	return nil
}

func (m *Manager) Get(name string) (Set, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	s, ok := m.sets[name]
	if !ok {
		return nil, &FieldError{Field: "name", Value: name, Err: ErrNoSuchSet}
	}
	return s, nil
}

func (m *Manager) Flush(name string) error {
	s, err := m.Get(name)
	if err != nil {
		return err
	}
	s.Flush()
	m.recordOp("flush")
	return nil
}

func (m *Manager) Header(name string) (Header, error) {
	s, err := m.Get(name)
	if err != nil {
		return Header{}, err
	}
	return s.Header(), nil
}

// Do applies an add, delete or test command to the named set.  The verdict is
// only meaningful for OpTest.
func (m *Manager) Do(name string, p *Param) (Verdict, error) {
	s, err := m.Get(name)
	if err != nil {
		return NoMatch, err
	}
	switch p.Op {
	case OpAdd:
		m.recordOp("add")
		return NoMatch, s.Add(p)
	case OpDel:
		m.recordOp("del")
		return NoMatch, s.Del(p)
	case OpTest:
		return s.Test(p)
	}
	return NoMatch, invalid("op", p.Op)
}

// Sets iterates over a snapshot of the sets in name order.
func (m *Manager) Sets() iter.Seq[Set] {
	m.lock.RLock()
	sets := make([]Set, 0, m.names.Len())
	m.names.Ascend(func(name string) bool {
		sets = append(sets, m.sets[name])
		return true
	})
	m.lock.RUnlock()

	return func(yield func(Set) bool) {
		for _, s := range sets {
			if !yield(s) {
				return
			}
		}
	}
}

func (m *Manager) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.sets)
}

func versionLabel(s Set) string {
	if s.Header().Family.Width() == 128 {
		return "6"
	}
	return "4"
}
