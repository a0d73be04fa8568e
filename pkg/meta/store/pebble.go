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

package store

import (
	"github.com/cockroachdb/pebble"
)

type pbKV struct {
	db *pebble.DB
}

type pbBatch struct {
	db  *pebble.DB
	bat *pebble.Batch
}

type pbIterator struct {
	itr *pebble.Iterator
}

// NewPebbleKV opens (or creates) a pebble store under name.
func NewPebbleKV(name string) (KV, error) {
	db, err := pebble.Open(name, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &pbKV{db: db}, nil
}

func (kv *pbKV) Close() error {
	return kv.db.Close()
}

func (kv *pbKV) Set(k, v []byte) error {
	return kv.db.Set(k, v, pebble.Sync)
}

func (kv *pbKV) Get(k []byte) ([]byte, error) {
	v, c, err := kv.db.Get(k)
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r := make([]byte, len(v))
	copy(r, v)
	c.Close()
	return r, nil
}

func (kv *pbKV) Del(k []byte) error {
	return kv.db.Delete(k, pebble.Sync)
}

func (kv *pbKV) NewBatch() (Batch, error) {
	return &pbBatch{db: kv.db, bat: kv.db.NewBatch()}, nil
}

func (kv *pbKV) NewIterator(prefix []byte) (Iterator, error) {
	itr := kv.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	itr.First()
	return &pbIterator{itr: itr}, nil
}

func (b *pbBatch) Set(k, v []byte) error {
	return b.bat.Set(k, v, nil)
}

func (b *pbBatch) Del(k []byte) error {
	return b.bat.Delete(k, nil)
}

func (b *pbBatch) Commit() error {
	return b.bat.Commit(pebble.Sync)
}

func (b *pbBatch) Cancel() error {
	return b.bat.Close()
}

func (itr *pbIterator) Close() error {
	itr.itr.Close()
	return nil
}

func (itr *pbIterator) Next() error {
	itr.itr.Next()
	return nil
}

func (itr *pbIterator) Valid() bool {
	return itr.itr.Valid()
}

func (itr *pbIterator) Key() []byte {
	return itr.itr.Key()
}

func (itr *pbIterator) Value() []byte {
	return itr.itr.Value()
}

// upperBound returns the smallest key greater than every key having prefix
// b, or nil when the prefix is all 0xff.
func upperBound(b []byte) []byte {
	end := make([]byte, len(b))
	copy(end, b)
	for i := len(end) - 1; i >= 0; i-- {
		end[i] = end[i] + 1
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
