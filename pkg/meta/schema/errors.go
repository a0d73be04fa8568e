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

package schema

import "errors"

var (
	ErrIncompatible   = errors.New("schema: incompatible change")
	ErrDupColumn      = errors.New("schema: duplicate column")
	ErrColumnNotFound = errors.New("schema: column not found")
	ErrNotFound       = errors.New("schema: not found")
)
