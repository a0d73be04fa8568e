// Copyright 2022 Metalake Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package db

import "errors"

var (
	// ErrConflict is the optimistic commit race: the base version was no
	// longer the head. Retryable.
	ErrConflict = errors.New("db: commit conflict")

	// ErrTooManyRetries wraps a conflict that survived the retry budget.
	ErrTooManyRetries = errors.New("db: commit retry budget exhausted")

	ErrClosed = errors.New("db: closed")

	// ErrCorrupted means the durable log does not form a gap-free version
	// sequence and the engine refuses to open.
	ErrCorrupted = errors.New("db: corrupted log")
)
