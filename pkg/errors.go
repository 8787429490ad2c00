// Copyright (c) Bas van Beek 2022.
// Copyright (c) Tetrate, Inc 2021.
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

// Package pkg holds primitives shared by all packages of this module.
package pkg

import (
	"errors"
)

// FlagErr is the format used to report a flag level validation error. The
// first argument is the flag name, the second the underlying error.
const FlagErr = "--%s error: %w"

// ErrRequired is returned when a mandatory value was not provided.
const ErrRequired Error = "required"

// Error allows for creating constant errors instead of sentinel ones.
type Error string

// Error implements error.
func (e Error) Error() string {
	return string(e)
}

// HasError checks if the provided error is, or wraps, the target error. Next
// to the standard unwrap chain it also descends into multi errors so a single
// failed validation can be found within an aggregated Validate result.
func HasError(err, target error) bool {
	if err == nil || target == nil {
		return err == target
	}
	if errors.Is(err, target) {
		return true
	}
	switch e := err.(type) {
	case interface{ WrappedErrors() []error }:
		for _, inner := range e.WrappedErrors() {
			if HasError(inner, target) {
				return true
			}
		}
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if HasError(inner, target) {
				return true
			}
		}
	}
	if inner := errors.Unwrap(err); inner != nil {
		return HasError(inner, target)
	}
	return false
}
