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

// Package catalog maps table names to their current version pointer and
// schema id. The pointer is the engine's single mutual exclusion point:
// concurrent commits race on a compare-and-swap over it, and exactly one
// wins per version.
package catalog

import (
	"strings"
	"sync"
	"sync/atomic"
)

// Entry is one table's mutable head. version is only ever advanced through
// CAS; everything else a snapshot needs lives in immutable structures
// elsewhere.
type Entry struct {
	name     string
	version  uint64
	schemaId uint64
}

func (e *Entry) Name() string { return e.name }

// CurrentVersion is 0 until the first commit.
func (e *Entry) CurrentVersion() uint64 {
	return atomic.LoadUint64(&e.version)
}

func (e *Entry) SchemaId() uint64 {
	return atomic.LoadUint64(&e.schemaId)
}

// CAS advances the version pointer iff it still equals expected.
func (e *Entry) CAS(expected, next uint64) bool {
	return atomic.CompareAndSwapUint64(&e.version, expected, next)
}

// SetSchemaId publishes a new current schema. Called only by the winning
// committer of a schema change, after its CAS.
func (e *Entry) SetSchemaId(id uint64) {
	atomic.StoreUint64(&e.schemaId, id)
}

type Catalog struct {
	mu     sync.RWMutex
	tables map[string]*Entry
}

func NewCatalog() *Catalog {
	return &Catalog{
		tables: make(map[string]*Entry),
	}
}

// ValidTableName rejects names that would collide with the durable key
// layout. Callers persisting records before registration check this first.
func ValidTableName(name string) error {
	if name == "" || strings.ContainsRune(name, '/') {
		return ErrBadTableName
	}
	return nil
}

// CreateTable registers an empty table at version 0 with schemaId as its
// initial schema.
func (c *Catalog) CreateTable(name string, schemaId uint64) (*Entry, error) {
	if err := ValidTableName(name); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tables[name]; ok {
		return nil, ErrDuplicate
	}
	entry := &Entry{name: name, schemaId: schemaId}
	c.tables[name] = entry
	return entry, nil
}

func (c *Catalog) Resolve(name string) (*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.tables[name]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

// Advance is the CAS commit point: it moves the pointer from expected to
// next or reports the race.
func (c *Catalog) Advance(name string, expected, next uint64) error {
	entry, err := c.Resolve(name)
	if err != nil {
		return err
	}
	if !entry.CAS(expected, next) {
		return ErrCASFailure
	}
	return nil
}

func (c *Catalog) TableNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	return names
}

// Restore registers a replayed table at a known head. Used only while
// rebuilding from the log or a checkpoint.
func (c *Catalog) Restore(name string, version, schemaId uint64) *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := &Entry{name: name, version: version, schemaId: schemaId}
	c.tables[name] = entry
	return entry
}
