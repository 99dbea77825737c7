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

	"github.com/pkg/errors"

	"github.com/projectcalico/lbipset/hashtable"
)

var (
	ErrFamilyMismatch = errors.New("address family mismatch")
	ErrInvalidValue   = errors.New("invalid value")
	ErrUnknownType    = errors.New("unknown set type")
	ErrSetExists      = errors.New("set already exists")
	ErrNoSuchSet      = errors.New("no such set")
	ErrDestroyed      = errors.New("set has been destroyed")

	ErrExist     = hashtable.ErrExist
	ErrNotFound  = hashtable.ErrNotFound
	ErrExhausted = hashtable.ErrExhausted
)

// FieldError attaches the offending command field to one of the sentinel
// errors above.
type FieldError struct {
	Field string
	Value any
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %v: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func invalid(field string, value any) error {
	return &FieldError{Field: field, Value: value, Err: ErrInvalidValue}
}

func familyMismatch(field string, value any) error {
	return &FieldError{Field: field, Value: value, Err: ErrFamilyMismatch}
}
