// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

package entropy

import "fmt"

// ConfigError reports an out-of-range constructor argument. It is returned,
// never panicked, so that callers can validate configuration before any
// allocation takes place.
type ConfigError struct {
	Field string
	Value int
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("entropy: invalid %s=%d: %s", e.Field, e.Value, e.Msg)
}

// invariantViolation reports a broken internal invariant detected mid-Update.
// These indicate a bug in this package, not a runtime condition a caller can
// recover from; Update panics with one rather than returning an error, the
// same way the reference C implementation calls fatal()/exit(1) on the same
// conditions.
type invariantViolation struct {
	Invariant string
	Detail    string
}

func (e *invariantViolation) Error() string {
	return fmt.Sprintf("entropy: internal invariant violated (%s): %s", e.Invariant, e.Detail)
}

func panicInvariant(invariant, format string, args ...interface{}) {
	panic(&invariantViolation{Invariant: invariant, Detail: fmt.Sprintf(format, args...)})
}
