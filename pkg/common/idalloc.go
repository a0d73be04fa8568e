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

package common

import (
	"sync/atomic"
)

// IdAllocator hands out monotonically increasing ids starting from
// start+1. It is shared by the schema registry and the file registry.
type IdAllocator struct {
	id uint64
}

func NewIdAllocator(start uint64) *IdAllocator {
	return &IdAllocator{id: start}
}

func (alloc *IdAllocator) Alloc() uint64 {
	return atomic.AddUint64(&alloc.id, 1)
}

func (alloc *IdAllocator) Get() uint64 {
	return atomic.LoadUint64(&alloc.id)
}

// SetStart moves the allocator forward during replay. It never moves
// backwards.
func (alloc *IdAllocator) SetStart(start uint64) {
	for {
		curr := atomic.LoadUint64(&alloc.id)
		if start <= curr {
			return
		}
		if atomic.CompareAndSwapUint64(&alloc.id, curr, start) {
			return
		}
	}
}
