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

package snapshot

import "errors"

var (
	ErrNotFound    = errors.New("snapshot: not found")
	ErrDupFile     = errors.New("snapshot: file already in manifest")
	ErrFileMissing = errors.New("snapshot: file not in parent manifest")
	ErrDupVersion  = errors.New("snapshot: version already installed")
)
