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
	"net/netip"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go4.org/netipx"

	"github.com/projectcalico/lbipset/ip"
	"github.com/projectcalico/lbipset/ipsets"
)

// ParseEntry parses a member in the entry syntax of the given set type into an
// add command:
//
//	hash:net,port,net  net,proto:port[-port],net
//	hash:net           net
//	hash:ip,port       net,proto:port[-port]
//
// where net is an address, a CIDR or an "a-b" range.  The proto may be omitted,
// in which case tcp is assumed; for icmp and icmpv6 the port is "type/code".
// The entry may be followed by "nomatch" and by comment "text", in the form
// ipsets.Member prints.
func ParseEntry(typeName, entry string) (*ipsets.Param, error) {
	p := &ipsets.Param{Op: ipsets.OpAdd}

	rest := strings.TrimSpace(entry)
	if idx := strings.Index(rest, " comment "); idx >= 0 {
		c, err := strconv.Unquote(strings.TrimSpace(rest[idx+len(" comment "):]))
		if err != nil {
			return nil, errors.Wrapf(err, "bad comment in entry %q", entry)
		}
		p.Comment = c
		rest = rest[:idx]
	}
	fields := strings.Fields(rest)
	switch {
	case len(fields) == 2 && fields[1] == "nomatch":
		p.NoMatch = true
	case len(fields) != 1:
		return nil, errors.Errorf("malformed entry %q", entry)
	}

	parts := strings.Split(fields[0], ",")
	var err error
	switch typeName {
	case ipsets.HashNetPortNet.Name():
		if len(parts) != 3 {
			return nil, errors.Errorf("entry %q: want net,proto:port,net", entry)
		}
		if p.Net, err = parseNet(parts[0]); err != nil {
			return nil, err
		}
		if p.Proto, p.Ports, err = parsePorts(parts[1]); err != nil {
			return nil, err
		}
		if p.Net2, err = parseNet(parts[2]); err != nil {
			return nil, err
		}
	case ipsets.HashNet.Name():
		if len(parts) != 1 {
			return nil, errors.Errorf("entry %q: want net", entry)
		}
		if p.Net, err = parseNet(parts[0]); err != nil {
			return nil, err
		}
	case ipsets.HashIPPort.Name():
		if len(parts) != 2 {
			return nil, errors.Errorf("entry %q: want ip,proto:port", entry)
		}
		if p.Net, err = parseNet(parts[0]); err != nil {
			return nil, err
		}
		if p.Proto, p.Ports, err = parsePorts(parts[1]); err != nil {
			return nil, err
		}
	default:
		return nil, &ipsets.FieldError{Field: "type", Value: typeName, Err: ipsets.ErrUnknownType}
	}
	p.Family = ip.FamilyOf(p.Net.Min)
	return p, nil
}

// parseNet accepts an address, a CIDR or an inclusive "a-b" range.  A /0 CIDR
// can't be expressed as a prefix (zero means "no prefix") so it becomes the
// equivalent full range.
func parseNet(s string) (ipsets.NetRange, error) {
	switch {
	case strings.Contains(s, "-"):
		r, err := netipx.ParseIPRange(s)
		if err != nil {
			return ipsets.NetRange{}, errors.Wrapf(err, "bad address range %q", s)
		}
		return ipsets.NetRange{Min: r.From().Unmap(), Max: r.To().Unmap()}, nil
	case strings.Contains(s, "/"):
		cidr, err := ip.ParseCIDROrIP(s)
		if err != nil {
			return ipsets.NetRange{}, errors.Wrapf(err, "bad CIDR %q", s)
		}
		addr := cidr.Addr().AsNetipAddr()
		if cidr.Prefix() == 0 {
			return ipsets.NetRange{Min: addr, Max: netipx.PrefixLastIP(netip.PrefixFrom(addr, 0))}, nil
		}
		return ipsets.NetRange{Min: addr, Prefix: cidr.Prefix()}, nil
	}
	a := ip.FromString(s)
	if a == nil {
		return ipsets.NetRange{}, errors.Errorf("bad address %q", s)
	}
	return ipsets.NetRange{Min: a.AsNetipAddr()}, nil
}

func parsePorts(s string) (proto uint8, ports ipsets.PortRange, err error) {
	proto = ipsets.ProtoTCP
	if protoStr, portStr, ok := strings.Cut(s, ":"); ok {
		if proto, err = ipsets.ParseProto(protoStr); err != nil {
			return
		}
		s = portStr
	}

	if proto == ipsets.ProtoICMP || proto == ipsets.ProtoICMPv6 {
		if typ, code, ok := strings.Cut(s, "/"); ok {
			var t, c uint64
			if t, err = strconv.ParseUint(typ, 10, 8); err != nil {
				return proto, ports, errors.Wrapf(err, "bad ICMP type %q", typ)
			}
			if c, err = strconv.ParseUint(code, 10, 8); err != nil {
				return proto, ports, errors.Wrapf(err, "bad ICMP code %q", code)
			}
			word := uint16(t)<<8 | uint16(c)
			return proto, ipsets.PortRange{Min: word, Max: word}, nil
		}
	}

	minStr, maxStr, isRange := strings.Cut(s, "-")
	if ports.Min, err = parsePort(minStr); err != nil {
		return
	}
	ports.Max = ports.Min
	if isRange {
		if ports.Max, err = parsePort(maxStr); err != nil {
			return
		}
	}
	return proto, ports, nil
}

func parsePort(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, errors.Wrapf(err, "bad port %q", s)
	}
	return uint16(n), nil
}
