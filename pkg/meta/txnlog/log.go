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

package txnlog

import (
	"encoding/binary"

	"github.com/metalakehq/metalake/pkg/meta/store"
)

// Log persists entries in the backing KV, one synced record per version,
// keyed so an iterator over a table's prefix yields version order.
type Log struct {
	kv store.KV
}

func NewLog(kv store.KV) *Log {
	return &Log{kv: kv}
}

func entryKey(table string, version uint64) []byte {
	key := make([]byte, 0, len(table)+11)
	key = append(key, 'l', '/')
	key = append(key, table...)
	key = append(key, '/')
	var ver [8]byte
	binary.BigEndian.PutUint64(ver[:], version)
	return append(key, ver[:]...)
}

func tablePrefix(table string) []byte {
	key := make([]byte, 0, len(table)+3)
	key = append(key, 'l', '/')
	key = append(key, table...)
	return append(key, '/')
}

func (l *Log) Append(table string, e *LogEntry) error {
	buf, err := encodeEntry(e)
	if err != nil {
		return err
	}
	return l.kv.Set(entryKey(table, e.Version), buf)
}

func (l *Log) Load(table string, version uint64) (*LogEntry, error) {
	buf, err := l.kv.Get(entryKey(table, version))
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return nil, ErrNotFound
	}
	return decodeEntry(buf)
}

// Replay feeds every entry of table with version >= from to fn, in version
// order. fn returning false stops the walk.
func (l *Log) Replay(table string, from uint64, fn func(*LogEntry) (bool, error)) error {
	itr, err := l.kv.NewIterator(tablePrefix(table))
	if err != nil {
		return err
	}
	defer itr.Close()
	for ; itr.Valid(); itr.Next() {
		key := itr.Key()
		version := binary.BigEndian.Uint64(key[len(key)-8:])
		if version < from {
			continue
		}
		e, err := decodeEntry(itr.Value())
		if err != nil {
			return err
		}
		more, err := fn(e)
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return nil
}

// Erase drops the durable record of one version. Only the retention job
// calls this, and never for the head.
func (l *Log) Erase(table string, version uint64) error {
	return l.kv.Del(entryKey(table, version))
}

// EraseMany drops a set of versions in one atomic batch, so a crash mid
// retention never leaves a partially erased log.
func (l *Log) EraseMany(table string, versions []uint64) error {
	if len(versions) == 0 {
		return nil
	}
	bat, err := l.kv.NewBatch()
	if err != nil {
		return err
	}
	for _, version := range versions {
		if err = bat.Del(entryKey(table, version)); err != nil {
			bat.Cancel()
			return err
		}
	}
	return bat.Commit()
}
