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

import (
	"sync"
	"time"

	"github.com/metalakehq/metalake/pkg/common"
	"github.com/metalakehq/metalake/pkg/meta/catalog"
	"github.com/metalakehq/metalake/pkg/meta/schema"
	"github.com/metalakehq/metalake/pkg/meta/snapshot"
)

// tableMeta bundles one table's in-memory state. commitMu serializes the
// publish sequence of winning committers; readers never take it. The
// catalog entry's CAS remains the commit point a stale base fails on.
type tableMeta struct {
	name    string
	entry   *catalog.Entry
	schemas *schema.Registry
	snaps   *snapshot.Manager
	fileIds *common.IdAllocator

	commitMu sync.Mutex
	// lastTs keeps commit timestamps strictly increasing even when the
	// clock stalls, so timestamp time travel stays aligned with versions.
	lastTs int64
	// ckptVersion is the newest version covered by a durable checkpoint.
	ckptVersion uint64
}

func newTableMeta(name string, entry *catalog.Entry, initial *schema.Schema) *tableMeta {
	return &tableMeta{
		name:    name,
		entry:   entry,
		schemas: schema.NewRegistry(initial),
		snaps:   snapshot.NewManager(),
		fileIds: common.NewIdAllocator(0),
	}
}

// nextTs is called with commitMu held.
func (meta *tableMeta) nextTs() int64 {
	ts := time.Now().UnixMicro()
	if ts <= meta.lastTs {
		ts = meta.lastTs + 1
	}
	meta.lastTs = ts
	return ts
}

func (meta *tableMeta) observeTs(ts int64) {
	if ts > meta.lastTs {
		meta.lastTs = ts
	}
}
