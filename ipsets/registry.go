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
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// A Registry maps set type names to Types.  Each Manager owns one, so there is
// no process-wide table to initialise.
type Registry struct {
	lock  sync.RWMutex
	types map[string]Type
}

// NewRegistry returns a registry holding the built-in types.
func NewRegistry() *Registry {
	r := &Registry{types: map[string]Type{}}
	for _, t := range []Type{HashNetPortNet, HashNet, HashIPPort} {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *Registry) Register(t Type) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.types[t.Name()]; ok {
		return errors.Errorf("set type %q already registered", t.Name())
	}
	r.types[t.Name()] = t
	return nil
}

func (r *Registry) Get(name string) (Type, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	t, ok := r.types[name]
	if !ok {
		return nil, &FieldError{Field: "type", Value: name, Err: ErrUnknownType}
	}
	return t, nil
}

// Types returns the registered type names in order.
func (r *Registry) Types() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
