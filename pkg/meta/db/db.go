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

// Package db is the engine facade: it owns the durable store, wires the
// transaction log, the snapshot managers, the catalog and the planner
// together, and runs the background checkpoint and retention jobs.
package db

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/metalakehq/metalake/pkg/common"
	"github.com/metalakehq/metalake/pkg/logutil"
	"github.com/metalakehq/metalake/pkg/meta/catalog"
	"github.com/metalakehq/metalake/pkg/meta/planner"
	"github.com/metalakehq/metalake/pkg/meta/schema"
	"github.com/metalakehq/metalake/pkg/meta/snapshot"
	"github.com/metalakehq/metalake/pkg/meta/store"
	"github.com/metalakehq/metalake/pkg/meta/txnlog"
)

type DB struct {
	common.ClosedState
	dir  string
	opts *Options

	kv      store.KV
	log     *txnlog.Log
	catalog *catalog.Catalog
	planner *planner.Planner

	mu     sync.RWMutex
	tables map[string]*tableMeta

	pool   *ants.Pool
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// tableRecord is the durable registration of a table and its initial
// schema. Everything after creation lives in the log.
type tableRecord struct {
	Name   string         `json:"name"`
	Schema *schema.Schema `json:"schema"`
}

func tableKey(name string) []byte { return append([]byte("t/"), name...) }
func ptrKey(name string) []byte   { return append([]byte("c/"), name...) }
func ckptKey(name string) []byte  { return append([]byte("k/"), name...) }

func Open(dir string, opts *Options) (*DB, error) {
	opts = opts.fillDefaults()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	kv, err := store.NewPebbleKV(filepath.Join(dir, "meta"))
	if err != nil {
		return nil, err
	}
	db := &DB{
		dir:     dir,
		opts:    opts,
		kv:      kv,
		log:     txnlog.NewLog(kv),
		catalog: catalog.NewCatalog(),
		tables:  make(map[string]*tableMeta),
		stopCh:  make(chan struct{}),
	}
	db.planner = planner.NewPlanner(db.catalog, db)
	if err = db.replay(); err != nil {
		kv.Close()
		return nil, err
	}
	if db.pool, err = ants.NewPool(opts.WorkerPoolSize); err != nil {
		kv.Close()
		return nil, err
	}
	db.startBackground()
	logutil.Infof("%s | opened | %d tables", dir, len(db.tables))
	return db, nil
}

func (db *DB) Close() error {
	if !db.TryClose() {
		return nil
	}
	close(db.stopCh)
	db.wg.Wait()
	db.pool.Release()
	return db.kv.Close()
}

// CreateTable registers a new empty table at version 0. The initial schema
// becomes schema version 1. The durable record is written before the
// catalog registration, so a failed write never leaves a phantom table.
func (db *DB) CreateTable(name string, initial *schema.Schema) (*catalog.Entry, error) {
	if db.IsClosed() {
		return nil, ErrClosed
	}
	if !initial.Valid() {
		return nil, schema.ErrIncompatible
	}
	if err := catalog.ValidTableName(name); err != nil {
		return nil, err
	}
	initial.Id = 1
	buf, err := json.Marshal(&tableRecord{Name: name, Schema: initial})
	if err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, err = db.catalog.Resolve(name); err == nil {
		return nil, catalog.ErrDuplicate
	}
	if err = db.kv.Set(tableKey(name), buf); err != nil {
		return nil, err
	}
	entry, err := db.catalog.CreateTable(name, initial.Id)
	if err != nil {
		return nil, err
	}
	db.tables[name] = newTableMeta(name, entry, initial)
	logutil.Infof("%s | table created | schema v%d", name, initial.Id)
	return entry, nil
}

func (db *DB) Catalog() *catalog.Catalog {
	return db.catalog
}

// Resolve returns the table's catalog entry.
func (db *DB) Resolve(name string) (*catalog.Entry, error) {
	return db.catalog.Resolve(name)
}

func (db *DB) getTable(name string) (*tableMeta, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	meta, ok := db.tables[name]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return meta, nil
}

// SnapshotManager implements planner.MetaSource.
func (db *DB) SnapshotManager(table string) (*snapshot.Manager, error) {
	meta, err := db.getTable(table)
	if err != nil {
		return nil, err
	}
	return meta.snaps, nil
}

// SchemaRegistry implements planner.MetaSource.
func (db *DB) SchemaRegistry(table string) (*schema.Registry, error) {
	meta, err := db.getTable(table)
	if err != nil {
		return nil, err
	}
	return meta.schemas, nil
}

// Plan resolves the data files to scan as of a version or timestamp.
func (db *DB) Plan(table string, asOf planner.AsOf) (*planner.ScanPlan, error) {
	if db.IsClosed() {
		return nil, ErrClosed
	}
	return db.planner.Plan(table, asOf)
}

// writePointer persists the catalog head, the durable analogue of the
// atomically replaced pointer file. The log stays the source of truth;
// replay rewrites a lagging pointer.
func (db *DB) writePointer(table string, version, schemaId uint64) error {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], version)
	binary.BigEndian.PutUint64(buf[8:], schemaId)
	return db.kv.Set(ptrKey(table), buf[:])
}

func (db *DB) readPointer(table string) (version, schemaId uint64, err error) {
	buf, err := db.kv.Get(ptrKey(table))
	if err != nil || buf == nil {
		return 0, 0, err
	}
	return binary.BigEndian.Uint64(buf[:8]), binary.BigEndian.Uint64(buf[8:]), nil
}
