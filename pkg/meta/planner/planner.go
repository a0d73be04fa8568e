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

// Package planner is the read path: it resolves a requested version or
// timestamp to the applicable snapshot and returns the data files to scan.
// A plan pins its snapshot; later commits never disturb it.
package planner

import (
	"errors"
	"time"

	"github.com/metalakehq/metalake/pkg/meta/catalog"
	"github.com/metalakehq/metalake/pkg/meta/schema"
	"github.com/metalakehq/metalake/pkg/meta/snapshot"
)

var ErrBadAsOf = errors.New("planner: at most one of version and timestamp")

// AsOf names a point in a table's history. The zero value means the
// current head.
type AsOf struct {
	Version   uint64
	Timestamp int64
}

func AsOfVersion(version uint64) AsOf {
	return AsOf{Version: version}
}

// AsOfTime resolves history by commit timestamp. The zero time (and any
// instant whose UnixMicro is 0) collapses into the zero AsOf and resolves
// the current head; commit timestamps are always positive.
func AsOfTime(t time.Time) AsOf {
	return AsOf{Timestamp: t.UnixMicro()}
}

func AsOfHead() AsOf {
	return AsOf{}
}

// MetaSource hands the planner a table's snapshot sequence and schema
// registry. The engine facade implements it.
type MetaSource interface {
	SnapshotManager(table string) (*snapshot.Manager, error)
	SchemaRegistry(table string) (*schema.Registry, error)
}

// ScanPlan is the resolved read: the pinned snapshot, the schema valid at
// its creation, and the manifest with per-file stats.
type ScanPlan struct {
	Table    string
	Snapshot *snapshot.Snapshot
	Schema   *schema.Schema
	Files    []*snapshot.FileMeta
}

func (p *ScanPlan) TotalRows() uint64 {
	var rows uint64
	for _, f := range p.Files {
		rows += f.Rows
	}
	return rows
}

func (p *ScanPlan) TotalBytes() uint64 {
	var size uint64
	for _, f := range p.Files {
		size += f.Size
	}
	return size
}

type Planner struct {
	catalog *catalog.Catalog
	source  MetaSource
}

func NewPlanner(c *catalog.Catalog, source MetaSource) *Planner {
	return &Planner{catalog: c, source: source}
}

// Plan resolves the nearest snapshot at or before asOf. It fails with
// snapshot.ErrNotFound when no snapshot existed yet at that point, and
// catalog.ErrNotFound for an unknown table.
func (p *Planner) Plan(table string, asOf AsOf) (*ScanPlan, error) {
	if asOf.Version != 0 && asOf.Timestamp != 0 {
		return nil, ErrBadAsOf
	}
	entry, err := p.catalog.Resolve(table)
	if err != nil {
		return nil, err
	}
	mgr, err := p.source.SnapshotManager(table)
	if err != nil {
		return nil, err
	}
	var snap *snapshot.Snapshot
	switch {
	case asOf.Timestamp != 0:
		snap, err = mgr.NearestAt(asOf.Timestamp)
	case asOf.Version != 0:
		snap, err = mgr.Nearest(asOf.Version)
	default:
		head := entry.CurrentVersion()
		if head == 0 {
			return nil, snapshot.ErrNotFound
		}
		snap, err = mgr.Get(head)
	}
	if err != nil {
		return nil, err
	}
	reg, err := p.source.SchemaRegistry(table)
	if err != nil {
		return nil, err
	}
	sch, err := reg.Get(snap.SchemaId())
	if err != nil {
		return nil, err
	}
	files, err := mgr.Files(snap)
	if err != nil {
		return nil, err
	}
	return &ScanPlan{
		Table:    table,
		Snapshot: snap,
		Schema:   sch,
		Files:    files,
	}, nil
}
