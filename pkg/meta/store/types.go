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

// Package store wraps the durable key-value backend holding the transaction
// log, the catalog pointers and the checkpoints. Everything above it talks
// to the KV interface, never to pebble directly.
package store

// KV is the durable backend. Get returns (nil, nil) for a missing key.
type KV interface {
	Close() error
	Set(k, v []byte) error
	Get(k []byte) ([]byte, error)
	Del(k []byte) error
	NewBatch() (Batch, error)
	NewIterator(prefix []byte) (Iterator, error)
}

// Batch groups writes committed atomically and synced to disk together.
type Batch interface {
	Set(k, v []byte) error
	Del(k []byte) error
	Commit() error
	Cancel() error
}

// Iterator walks all keys sharing the prefix passed to NewIterator, in key
// order. It starts positioned on the first key.
type Iterator interface {
	Close() error
	Next() error
	Valid() bool
	Key() []byte
	Value() []byte
}
