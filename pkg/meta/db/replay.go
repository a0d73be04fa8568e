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

	"github.com/metalakehq/metalake/pkg/logutil"
	"github.com/metalakehq/metalake/pkg/meta/snapshot"
	"github.com/metalakehq/metalake/pkg/meta/txnlog"
)

// replay rebuilds the in-memory state at open: for every registered table,
// restore the newest checkpoint if one exists, then re-apply the log
// entries after it in version order.
func (db *DB) replay() error {
	itr, err := db.kv.NewIterator([]byte("t/"))
	if err != nil {
		return err
	}
	defer itr.Close()
	for ; itr.Valid(); itr.Next() {
		var rec tableRecord
		if err := json.Unmarshal(itr.Value(), &rec); err != nil {
			return err
		}
		if err := db.replayTable(&rec); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) replayTable(rec *tableRecord) error {
	meta := newTableMeta(rec.Name, nil, rec.Schema)
	head := uint64(0)

	buf, err := db.kv.Get(ckptKey(rec.Name))
	if err != nil {
		return err
	}
	if buf != nil {
		var view ckptView
		if err = json.Unmarshal(buf, &view); err != nil {
			return err
		}
		for _, s := range view.Schemas {
			meta.schemas.Restore(s)
		}
		meta.snaps.RestoreFiles(view.Files)
		for _, snap := range view.Snapshots {
			if err = meta.snaps.Install(snap, nil); err != nil {
				return err
			}
		}
		head = view.Head
		meta.observeTs(view.LastTs)
		meta.fileIds.SetStart(view.NextFileId)
		meta.ckptVersion = view.Head
	}

	replayed := 0
	err = db.log.Replay(rec.Name, head+1, func(e *txnlog.LogEntry) (bool, error) {
		if e.Version != head+1 {
			logutil.Errorf("%s | v%d follows v%d in the log", rec.Name, e.Version, head)
			return false, ErrCorrupted
		}
		if err := db.replayEntry(meta, e); err != nil {
			return false, err
		}
		head = e.Version
		replayed++
		return true, nil
	})
	if err != nil {
		return err
	}

	schemaId := meta.schemas.Latest().Id
	meta.entry = db.catalog.Restore(rec.Name, head, schemaId)
	db.mu.Lock()
	db.tables[rec.Name] = meta
	db.mu.Unlock()

	if ptrVersion, _, err := db.readPointer(rec.Name); err == nil && ptrVersion != head && head > 0 {
		// the log won a race the pointer write lost, likely a crash
		// between the two; the log is the source of truth
		if err := db.writePointer(rec.Name, head, schemaId); err != nil {
			return err
		}
	}
	logutil.Infof("%s | replayed | head=v%d | %d entries after checkpoint", rec.Name, head, replayed)
	return nil
}

// replayEntry re-applies one committed entry. File and schema ids were
// already allocated by the original commit and are taken as recorded.
func (db *DB) replayEntry(meta *tableMeta, e *txnlog.LogEntry) error {
	op, err := e.Operation()
	if err != nil {
		return err
	}
	schemaId := meta.schemas.Latest().Id
	var delta snapshot.FileDelta
	switch o := op.(type) {
	case *txnlog.AddFiles:
		for _, f := range o.Files {
			meta.fileIds.SetStart(f.Id)
		}
		delta.Added = o.Files
		delta.Removed = o.Removed
	case *txnlog.RemoveFiles:
		delta.Removed = o.FileIds
	case *txnlog.SchemaChange:
		newSchema, err := meta.schemas.Evolve(o.Change)
		if err != nil {
			return err
		}
		schemaId = newSchema.Id
	default:
		return txnlog.ErrBadPayload
	}
	var parent *snapshot.Snapshot
	if e.Version > 1 {
		if parent, err = meta.snaps.Get(e.Version - 1); err != nil {
			return err
		}
	}
	snap, err := meta.snaps.Create(parent, &delta, e.Version, schemaId, e.CommitTS)
	if err != nil {
		return err
	}
	if err = meta.snaps.Install(snap, delta.Added); err != nil {
		return err
	}
	meta.observeTs(e.CommitTS)
	return nil
}
