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

package config

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/projectcalico/lbipset/ip"
	"github.com/projectcalico/lbipset/ipsets"
)

// Rules is the contents of a rules file:
//
//	sets:
//	- name: lb-allow
//	  type: hash:net,port,net
//	  family: inet
//	  comment: true
//	  members:
//	  - 10.0.0.0/24,tcp:80-81,192.168.0.0/16
//	  - entry: 10.1.0.0/16,udp:53,0.0.0.0/0
//	    nomatch: true
//	    comment: dns
type Rules struct {
	Sets []SetRule `yaml:"sets"`
}

type SetRule struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Family string `yaml:"family,omitempty"`

	// HashSize and MaxElem fall back to the process configuration when zero.
	HashSize uint32 `yaml:"hashSize,omitempty"`
	MaxElem  uint32 `yaml:"maxElem,omitempty"`
	Comment  bool   `yaml:"comment,omitempty"`

	Members []MemberRule `yaml:"members"`
}

// MemberRule is one set member.  In the file it is either a bare entry string
// or a mapping with the entry and its flags.
type MemberRule struct {
	Entry   string `yaml:"entry"`
	NoMatch bool   `yaml:"nomatch,omitempty"`
	Comment string `yaml:"comment,omitempty"`
}

func (m *MemberRule) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*m = MemberRule{Entry: node.Value}
		return nil
	}
	type plain MemberRule
	return node.Decode((*plain)(m))
}

// LoadRules reads and parses the rules file at path.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read rules file")
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "rules file %s", path)
	}
	return rules, nil
}

func ParseRules(data []byte) (*Rules, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var rules Rules
	if err := dec.Decode(&rules); err != nil {
		return nil, errors.Wrap(err, "failed to parse rules")
	}
	seen := map[string]bool{}
	for i, s := range rules.Sets {
		if s.Name == "" {
			return nil, errors.Errorf("set %d has no name", i)
		}
		if seen[s.Name] {
			return nil, errors.Errorf("set %s listed twice", s.Name)
		}
		seen[s.Name] = true
		if _, err := ip.ParseFamily(s.Family); err != nil {
			return nil, errors.WithMessagef(err, "set %s", s.Name)
		}
	}
	return &rules, nil
}

// Apply creates the sets in the manager and adds their members.  cfg supplies
// the default hash size and element limit.  It stops at the first failure; sets
// already created are left in place.
func (r *Rules) Apply(mgr *ipsets.Manager, cfg *Config) error {
	for _, s := range r.Sets {
		logCxt := log.WithFields(log.Fields{"setName": s.Name, "type": s.Type})
		family, err := ip.ParseFamily(s.Family)
		if err != nil {
			return errors.WithMessagef(err, "set %s", s.Name)
		}
		opts := ipsets.CreateOptions{
			Family:   family,
			HashSize: s.HashSize,
			MaxElem:  s.MaxElem,
			Comment:  s.Comment,
		}
		if opts.HashSize == 0 && cfg != nil {
			opts.HashSize = cfg.HashSize
		}
		if opts.MaxElem == 0 && cfg != nil {
			opts.MaxElem = cfg.MaxElem
		}
		if _, err := mgr.Create(s.Name, s.Type, opts); err != nil {
			return err
		}

		for _, m := range s.Members {
			p, err := ParseEntry(s.Type, m.Entry)
			if err != nil {
				return errors.WithMessagef(err, "set %s", s.Name)
			}
			p.NoMatch = p.NoMatch || m.NoMatch
			if m.Comment != "" {
				p.Comment = m.Comment
			}
			// Overlapping ranges in a hand-written file are not worth failing over.
			p.Overwrite = true
			if _, err := mgr.Do(s.Name, p); err != nil {
				return err
			}
		}
		logCxt.WithField("numMembers", len(s.Members)).Debug("Loaded set from rules")
	}
	return nil
}
