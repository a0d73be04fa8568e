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
	"context"
	"errors"

	"github.com/metalakehq/metalake/pkg/common"
	"github.com/metalakehq/metalake/pkg/logutil"
	"github.com/metalakehq/metalake/pkg/meta/schema"
	"github.com/metalakehq/metalake/pkg/meta/snapshot"
	"github.com/metalakehq/metalake/pkg/meta/txnlog"
)

// CommitAt attempts one commit against base. It fails with ErrConflict
// when base is no longer the head; the caller re-reads and retries. Schema
// validation errors are never retryable and surface immediately.
//
// The publish sequence of a winning commit: durable log append, snapshot
// install, schema publish, pointer CAS, durable pointer write. commitMu
// serializes winners; losers are rejected on the base check and never reach
// the publish sequence, so the CAS below cannot fail.
func (db *DB) CommitAt(table string, base uint64, op txnlog.Operation) (uint64, error) {
	if db.IsClosed() {
		return 0, ErrClosed
	}
	meta, err := db.getTable(table)
	if err != nil {
		return 0, err
	}
	meta.commitMu.Lock()
	defer meta.commitMu.Unlock()

	head := meta.entry.CurrentVersion()
	if base != head {
		return 0, ErrConflict
	}
	next := head + 1
	ts := meta.nextTs()
	schemaId := meta.entry.SchemaId()

	var delta snapshot.FileDelta
	var newSchema *schema.Schema
	switch o := op.(type) {
	case *txnlog.AddFiles:
		for _, f := range o.Files {
			if f.Id == 0 {
				f.Id = meta.fileIds.Alloc()
			} else {
				meta.fileIds.SetStart(f.Id)
			}
		}
		delta.Added = o.Files
		delta.Removed = o.Removed
	case *txnlog.RemoveFiles:
		delta.Removed = o.FileIds
	case *txnlog.SchemaChange:
		curr := meta.schemas.Latest()
		if newSchema, err = curr.Apply(curr.Id+1, o.Change); err != nil {
			return 0, err
		}
		schemaId = newSchema.Id
	default:
		return 0, txnlog.ErrBadPayload
	}

	var parent *snapshot.Snapshot
	if head > 0 {
		if parent, err = meta.snaps.Get(head); err != nil {
			return 0, err
		}
	}
	snap, err := meta.snaps.Create(parent, &delta, next, schemaId, ts)
	if err != nil {
		return 0, err
	}
	entry, err := txnlog.NewLogEntry(next, op, ts)
	if err != nil {
		return 0, err
	}
	if err = db.log.Append(table, entry); err != nil {
		return 0, err
	}
	if err = meta.snaps.Install(snap, delta.Added); err != nil {
		return 0, err
	}
	if newSchema != nil {
		meta.schemas.Restore(newSchema)
		meta.entry.SetSchemaId(newSchema.Id)
	}
	if err = db.catalog.Advance(table, head, next); err != nil {
		logutil.Errorf("%s | v%d | pointer moved outside commit path", table, next)
		return 0, err
	}
	if err = db.writePointer(table, next, schemaId); err != nil {
		return 0, err
	}
	logutil.Debugf("%s | v%d | %s | committed", table, next, op.Kind())
	return next, nil
}

// Commit re-reads the head and retries CommitAt on conflicts, with bounded
// exponential backoff. Exceeding the budget surfaces ErrTooManyRetries.
func (db *DB) Commit(ctx context.Context, table string, op txnlog.Operation) (uint64, error) {
	var committed uint64
	err := common.DoBoundedRetry(ctx, func() error {
		meta, err := db.getTable(table)
		if err != nil {
			return err
		}
		base := meta.entry.CurrentVersion()
		v, err := db.CommitAt(table, base, op)
		if err == nil {
			committed = v
		}
		return err
	}, func(err error) bool {
		return errors.Is(err, ErrConflict)
	}, db.opts.CommitMaxRetries, db.opts.CommitBackoff)
	if errors.Is(err, ErrConflict) {
		return 0, ErrTooManyRetries
	}
	return committed, err
}
