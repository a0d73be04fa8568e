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

import (
	"sync"
)

// Registry holds every schema version of one table. Entries are append
// only; Evolve is the only writer and snapshots reference entries by id
// forever.
type Registry struct {
	mu       sync.RWMutex
	schemas  map[uint64]*Schema
	latestId uint64
}

func NewRegistry(initial *Schema) *Registry {
	reg := &Registry{
		schemas: make(map[uint64]*Schema),
	}
	if initial != nil {
		if initial.Id == 0 {
			initial.Id = 1
		}
		reg.schemas[initial.Id] = initial
		reg.latestId = initial.Id
	}
	return reg
}

func (reg *Registry) Get(id uint64) (*Schema, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	s, ok := reg.schemas[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (reg *Registry) Latest() *Schema {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.schemas[reg.latestId]
}

// Evolve applies change to the latest schema and registers the result
// under the next schema id.
func (reg *Registry) Evolve(change *Change) (*Schema, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	curr := reg.schemas[reg.latestId]
	next, err := curr.Apply(reg.latestId+1, change)
	if err != nil {
		return nil, err
	}
	reg.schemas[next.Id] = next
	reg.latestId = next.Id
	return next, nil
}

// View returns every schema version in id order, for checkpointing.
func (reg *Registry) View() []*Schema {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	schemas := make([]*Schema, 0, len(reg.schemas))
	for id := uint64(1); id <= reg.latestId; id++ {
		if s, ok := reg.schemas[id]; ok {
			schemas = append(schemas, s)
		}
	}
	return schemas
}

// Restore registers a replayed schema version without validation against
// the change that produced it. Used only while rebuilding from the log.
func (reg *Registry) Restore(s *Schema) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.schemas[s.Id] = s
	if s.Id > reg.latestId {
		reg.latestId = s.Id
	}
}
