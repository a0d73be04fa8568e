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

import (
	"sync"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/google/btree"
)

// FileDelta is the manifest change carried by one commit.
type FileDelta struct {
	Added   []*FileMeta `json:"added,omitempty"`
	Removed []uint64    `json:"removed,omitempty"`
}

type snapshotNode struct {
	snap *Snapshot
}

func (n *snapshotNode) Less(than btree.Item) bool {
	return n.snap.version < than.(*snapshotNode).snap.version
}

// Manager owns one table's snapshot sequence and its file registry. Create
// builds a candidate without publishing it; Install publishes a committed
// snapshot. The commit pipeline guarantees Install is called in version
// order with no gaps.
type Manager struct {
	mu    sync.RWMutex
	tree  *btree.BTree
	files map[uint64]*FileMeta
}

func NewManager() *Manager {
	return &Manager{
		tree:  btree.New(8),
		files: make(map[uint64]*FileMeta),
	}
}

// Create builds the candidate snapshot parent ± delta. parent is nil for
// the first commit of a table. The candidate is invisible to readers until
// Install.
func (mgr *Manager) Create(parent *Snapshot, delta *FileDelta, version, schemaId uint64, ts int64) (*Snapshot, error) {
	files := roaring64.NewBitmap()
	parentVersion := uint64(0)
	if parent != nil {
		files = parent.files.Clone()
		parentVersion = parent.version
	}
	for _, id := range delta.Removed {
		if !files.Contains(id) {
			return nil, ErrFileMissing
		}
		files.Remove(id)
	}
	for _, f := range delta.Added {
		if files.Contains(f.Id) {
			return nil, ErrDupFile
		}
		files.Add(f.Id)
	}
	return &Snapshot{
		version:       version,
		parentVersion: parentVersion,
		timestamp:     ts,
		schemaId:      schemaId,
		files:         files,
	}, nil
}

// Install publishes snap and registers the files the commit added.
func (mgr *Manager) Install(snap *Snapshot, added []*FileMeta) error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if mgr.tree.Get(&snapshotNode{snap: snap}) != nil {
		return ErrDupVersion
	}
	for _, f := range added {
		mgr.files[f.Id] = f
	}
	mgr.tree.ReplaceOrInsert(&snapshotNode{snap: snap})
	return nil
}

// RestoreFiles preloads the file registry from a checkpoint.
func (mgr *Manager) RestoreFiles(files []*FileMeta) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	for _, f := range files {
		mgr.files[f.Id] = f
	}
}

func (mgr *Manager) Get(version uint64) (*Snapshot, error) {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	item := mgr.tree.Get(&snapshotNode{snap: &Snapshot{version: version}})
	if item == nil {
		return nil, ErrNotFound
	}
	return item.(*snapshotNode).snap, nil
}

// Nearest resolves the newest snapshot with version <= the requested one.
func (mgr *Manager) Nearest(version uint64) (*Snapshot, error) {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	var found *Snapshot
	pivot := &snapshotNode{snap: &Snapshot{version: version}}
	mgr.tree.DescendLessOrEqual(pivot, func(item btree.Item) bool {
		found = item.(*snapshotNode).snap
		return false
	})
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// NearestAt resolves the newest snapshot committed at or before ts.
// Timestamps increase with versions, so the first qualifying node on the
// way down is the answer.
func (mgr *Manager) NearestAt(ts int64) (*Snapshot, error) {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	var found *Snapshot
	mgr.tree.Descend(func(item btree.Item) bool {
		snap := item.(*snapshotNode).snap
		if snap.timestamp <= ts {
			found = snap
			return false
		}
		return true
	})
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (mgr *Manager) Head() *Snapshot {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	var head *Snapshot
	mgr.tree.Descend(func(item btree.Item) bool {
		head = item.(*snapshotNode).snap
		return false
	})
	return head
}

func (mgr *Manager) GetFile(id uint64) (*FileMeta, error) {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	f, ok := mgr.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	return f, nil
}

// Files resolves a snapshot's manifest to file metadata.
func (mgr *Manager) Files(snap *Snapshot) ([]*FileMeta, error) {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	refs := make([]*FileMeta, 0, snap.files.GetCardinality())
	it := snap.files.Iterator()
	for it.HasNext() {
		id := it.Next()
		f, ok := mgr.files[id]
		if !ok {
			return nil, ErrNotFound
		}
		refs = append(refs, f)
	}
	return refs, nil
}

// PruneBefore drops every snapshot older than horizon except the head and
// garbage collects files no surviving manifest references. It returns the
// pruned versions and the dropped file ids so callers can erase the durable
// records too.
func (mgr *Manager) PruneBefore(horizon int64) (versions []uint64, droppedFiles []uint64) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	var head *Snapshot
	mgr.tree.Descend(func(item btree.Item) bool {
		head = item.(*snapshotNode).snap
		return false
	})
	if head == nil {
		return nil, nil
	}
	victims := make([]*Snapshot, 0)
	mgr.tree.Ascend(func(item btree.Item) bool {
		snap := item.(*snapshotNode).snap
		if snap.version == head.version || snap.timestamp >= horizon {
			return false
		}
		victims = append(victims, snap)
		return true
	})
	if len(victims) == 0 {
		return nil, nil
	}
	for _, snap := range victims {
		mgr.tree.Delete(&snapshotNode{snap: snap})
		versions = append(versions, snap.version)
	}
	referenced := roaring64.NewBitmap()
	mgr.tree.Ascend(func(item btree.Item) bool {
		referenced.Or(item.(*snapshotNode).snap.files)
		return true
	})
	for id := range mgr.files {
		if !referenced.Contains(id) {
			delete(mgr.files, id)
			droppedFiles = append(droppedFiles, id)
		}
	}
	return versions, droppedFiles
}

func (mgr *Manager) NumSnapshots() int {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	return mgr.tree.Len()
}

// View returns every installed snapshot in version order plus the file
// registry, for checkpointing.
func (mgr *Manager) View() ([]*Snapshot, []*FileMeta) {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	snaps := make([]*Snapshot, 0, mgr.tree.Len())
	mgr.tree.Ascend(func(item btree.Item) bool {
		snaps = append(snaps, item.(*snapshotNode).snap)
		return true
	})
	files := make([]*FileMeta, 0, len(mgr.files))
	for _, f := range mgr.files {
		files = append(files, f)
	}
	return snaps, files
}
