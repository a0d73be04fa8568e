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

package catalog

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogCreateResolve(t *testing.T) {
	c := NewCatalog()
	entry, err := c.CreateTable("events", 1)
	assert.Nil(t, err)
	assert.Equal(t, "events", entry.Name())
	assert.Equal(t, uint64(0), entry.CurrentVersion())
	assert.Equal(t, uint64(1), entry.SchemaId())

	_, err = c.CreateTable("events", 1)
	assert.ErrorIs(t, err, ErrDuplicate)
	_, err = c.CreateTable("", 1)
	assert.ErrorIs(t, err, ErrBadTableName)
	_, err = c.CreateTable("a/b", 1)
	assert.ErrorIs(t, err, ErrBadTableName)

	got, err := c.Resolve("events")
	assert.Nil(t, err)
	assert.Equal(t, entry, got)
	_, err = c.Resolve("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"events"}, c.TableNames())
}

func TestCatalogAdvance(t *testing.T) {
	c := NewCatalog()
	entry, err := c.CreateTable("events", 1)
	assert.Nil(t, err)

	assert.Nil(t, c.Advance("events", 0, 1))
	assert.Equal(t, uint64(1), entry.CurrentVersion())
	assert.ErrorIs(t, c.Advance("events", 0, 1), ErrCASFailure)
	assert.ErrorIs(t, c.Advance("nope", 0, 1), ErrNotFound)
}

// Concurrent committers racing the same expected version: exactly one CAS
// wins per version.
func TestCatalogAdvanceRace(t *testing.T) {
	c := NewCatalog()
	entry, err := c.CreateTable("events", 1)
	assert.Nil(t, err)

	workers := 8
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Advance("events", 0, 1); err == nil {
				atomic.AddInt32(&wins, 1)
			} else {
				assert.ErrorIs(t, err, ErrCASFailure)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
	assert.Equal(t, uint64(1), entry.CurrentVersion())
}

func TestCatalogRestore(t *testing.T) {
	c := NewCatalog()
	entry := c.Restore("events", 7, 3)
	assert.Equal(t, uint64(7), entry.CurrentVersion())
	assert.Equal(t, uint64(3), entry.SchemaId())
	got, err := c.Resolve("events")
	assert.Nil(t, err)
	assert.Equal(t, entry, got)
}
