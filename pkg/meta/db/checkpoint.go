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
	"encoding/json"
	"time"

	"github.com/metalakehq/metalake/pkg/logutil"
	"github.com/metalakehq/metalake/pkg/meta/schema"
	"github.com/metalakehq/metalake/pkg/meta/snapshot"
)

// ckptView is one table's full durable state cut. Replay starts from Head
// instead of version 1 when a checkpoint exists.
type ckptView struct {
	Head       uint64               `json:"head"`
	SchemaId   uint64               `json:"schema"`
	LastTs     int64                `json:"lastts"`
	NextFileId uint64               `json:"nextfile"`
	Schemas    []*schema.Schema     `json:"schemas"`
	Snapshots  []*snapshot.Snapshot `json:"snapshots"`
	Files      []*snapshot.FileMeta `json:"files"`
}

// Checkpoint persists a state cut for every table that moved since its
// last checkpoint.
func (db *DB) Checkpoint() error {
	if db.IsClosed() {
		return ErrClosed
	}
	db.mu.RLock()
	metas := make([]*tableMeta, 0, len(db.tables))
	for _, meta := range db.tables {
		metas = append(metas, meta)
	}
	db.mu.RUnlock()
	for _, meta := range metas {
		meta.commitMu.Lock()
		err := db.checkpointLocked(meta)
		meta.commitMu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// checkpointLocked writes the cut under commitMu, so the view is a
// consistent prefix of the commit sequence.
func (db *DB) checkpointLocked(meta *tableMeta) error {
	head := meta.entry.CurrentVersion()
	if head == 0 || head == meta.ckptVersion {
		return nil
	}
	snaps, files := meta.snaps.View()
	view := &ckptView{
		Head:       head,
		SchemaId:   meta.entry.SchemaId(),
		LastTs:     meta.lastTs,
		NextFileId: meta.fileIds.Get(),
		Schemas:    meta.schemas.View(),
		Snapshots:  snaps,
		Files:      files,
	}
	buf, err := json.Marshal(view)
	if err != nil {
		return err
	}
	if err = db.kv.Set(ckptKey(meta.name), buf); err != nil {
		return err
	}
	meta.ckptVersion = head
	logutil.Infof("%s | checkpointed | head=v%d | %d snapshots", meta.name, head, len(snaps))
	return nil
}

// ExpireSnapshots prunes snapshots older than the retention horizon,
// keeping the head, then erases their log entries. The checkpoint written
// first keeps replay intact.
func (db *DB) ExpireSnapshots() error {
	if db.IsClosed() {
		return ErrClosed
	}
	if db.opts.Retention <= 0 {
		return nil
	}
	horizon := time.Now().Add(-db.opts.Retention).UnixMicro()
	db.mu.RLock()
	metas := make([]*tableMeta, 0, len(db.tables))
	for _, meta := range db.tables {
		metas = append(metas, meta)
	}
	db.mu.RUnlock()
	for _, meta := range metas {
		if err := db.expireTable(meta, horizon); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) expireTable(meta *tableMeta, horizon int64) error {
	meta.commitMu.Lock()
	defer meta.commitMu.Unlock()
	versions, droppedFiles := meta.snaps.PruneBefore(horizon)
	if len(versions) == 0 {
		return nil
	}
	// the checkpoint no longer contains the victims, so the erased log
	// entries are never needed again
	meta.ckptVersion = 0
	if err := db.checkpointLocked(meta); err != nil {
		return err
	}
	if err := db.log.EraseMany(meta.name, versions); err != nil {
		return err
	}
	logutil.Infof("%s | expired %d snapshots, %d files", meta.name, len(versions), len(droppedFiles))
	return nil
}
