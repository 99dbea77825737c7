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
	"fmt"
	"strconv"
	"strings"
)

// String renders the member in the entry syntax the rules file uses:
// "net,proto:port,net" for hash:net,port,net, "ip,proto:port" for hash:ip,port
// and "net" for hash:net, followed by any flags.
func (m Member) String() string {
	var sb strings.Builder
	switch {
	case m.Addr2.IsValid():
		fmt.Fprintf(&sb, "%s/%d,%s:%d,%s/%d", m.Addr, m.Cidr, ProtoName(m.Proto), m.Port, m.Addr2, m.Cidr2)
	case m.Proto != 0:
		fmt.Fprintf(&sb, "%s,%s:%d", m.Addr, ProtoName(m.Proto), m.Port)
	default:
		fmt.Fprintf(&sb, "%s/%d", m.Addr, m.Cidr)
	}
	if m.NoMatch {
		sb.WriteString(" nomatch")
	}
	if m.Comment != "" {
		sb.WriteString(" comment ")
		sb.WriteString(strconv.Quote(m.Comment))
	}
	return sb.String()
}
