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

func validatePorts(r PortRange) error {
	if r.Min > r.Max {
		return invalid("port range", r)
	}
	return nil
}

// forEachPort calls fn for every port in r, stopping at the first error.  The
// counter is wider than a port so a range ending at 65535 terminates.
func forEachPort(r PortRange, fn func(port uint16) error) error {
	for p := uint32(r.Min); p <= uint32(r.Max); p++ {
		if err := fn(uint16(p)); err != nil {
			return err
		}
	}
	return nil
}
