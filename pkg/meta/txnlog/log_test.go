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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalakehq/metalake/pkg/meta/schema"
	"github.com/metalakehq/metalake/pkg/meta/snapshot"
	"github.com/metalakehq/metalake/pkg/meta/store"
)

func newTestLog(t *testing.T) *Log {
	kv, err := store.NewPebbleKV(t.TempDir())
	require.Nil(t, err)
	t.Cleanup(func() {
		assert.Nil(t, kv.Close())
	})
	return NewLog(kv)
}

func addFilesOp(ids ...uint64) *AddFiles {
	op := &AddFiles{}
	for _, id := range ids {
		op.Files = append(op.Files, &snapshot.FileMeta{Id: id, Path: "f", Rows: 1, Size: 1})
	}
	return op
}

func TestLogAppendLoad(t *testing.T) {
	log := newTestLog(t)
	e1, err := NewLogEntry(1, addFilesOp(1, 2), 100)
	assert.Nil(t, err)
	assert.Nil(t, log.Append("events", e1))

	got, err := log.Load("events", 1)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), got.Version)
	assert.Equal(t, OpAddFiles, got.Kind)
	assert.Equal(t, int64(100), got.CommitTS)

	op, err := got.Operation()
	assert.Nil(t, err)
	files := op.(*AddFiles).Files
	assert.Equal(t, 2, len(files))
	assert.Equal(t, uint64(2), files[1].Id)

	_, err = log.Load("events", 9)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = log.Load("other", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogReplayOrder(t *testing.T) {
	log := newTestLog(t)
	// append out of key-insertion order on purpose, iteration is by key
	for _, v := range []uint64{3, 1, 2} {
		e, err := NewLogEntry(v, addFilesOp(v), int64(v*10))
		assert.Nil(t, err)
		assert.Nil(t, log.Append("events", e))
	}
	e, err := NewLogEntry(1, addFilesOp(9), 5)
	assert.Nil(t, err)
	assert.Nil(t, log.Append("other", e))

	var versions []uint64
	assert.Nil(t, log.Replay("events", 1, func(e *LogEntry) (bool, error) {
		versions = append(versions, e.Version)
		return true, nil
	}))
	assert.Equal(t, []uint64{1, 2, 3}, versions)

	versions = versions[:0]
	assert.Nil(t, log.Replay("events", 3, func(e *LogEntry) (bool, error) {
		versions = append(versions, e.Version)
		return true, nil
	}))
	assert.Equal(t, []uint64{3}, versions)
}

func TestLogErase(t *testing.T) {
	log := newTestLog(t)
	for v := uint64(1); v <= 3; v++ {
		e, err := NewLogEntry(v, &RemoveFiles{FileIds: []uint64{v}}, int64(v))
		assert.Nil(t, err)
		assert.Nil(t, log.Append("events", e))
	}
	assert.Nil(t, log.Erase("events", 2))

	var versions []uint64
	assert.Nil(t, log.Replay("events", 1, func(e *LogEntry) (bool, error) {
		versions = append(versions, e.Version)
		return true, nil
	}))
	assert.Equal(t, []uint64{1, 3}, versions)

	assert.Nil(t, log.EraseMany("events", []uint64{1, 3}))
	assert.Nil(t, log.EraseMany("events", nil))
	versions = versions[:0]
	assert.Nil(t, log.Replay("events", 1, func(e *LogEntry) (bool, error) {
		versions = append(versions, e.Version)
		return true, nil
	}))
	assert.Equal(t, 0, len(versions))
}

func TestEntryCodec(t *testing.T) {
	// a wide AddFiles payload compresses, a tiny one stays raw; both round
	// trip through the same decoder
	big, err := NewLogEntry(1, addFilesOp(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12), 1)
	assert.Nil(t, err)
	small, err := NewLogEntry(2, &RemoveFiles{FileIds: []uint64{1}}, 2)
	assert.Nil(t, err)
	for _, e := range []*LogEntry{big, small} {
		buf, err := encodeEntry(e)
		assert.Nil(t, err)
		got, err := decodeEntry(buf)
		assert.Nil(t, err)
		assert.Equal(t, e.Version, got.Version)
		assert.Equal(t, e.Kind, got.Kind)
		assert.Equal(t, e.CommitTS, got.CommitTS)
	}
	buf, err := encodeEntry(big)
	assert.Nil(t, err)
	assert.Equal(t, codecLZ4, buf[0])

	_, err = decodeEntry([]byte{9, 1, 'x'})
	assert.ErrorIs(t, err, ErrBadCodec)
	_, err = decodeEntry(nil)
	assert.ErrorIs(t, err, ErrBadCodec)

	// a corrupted header claiming an absurd decoded length is rejected
	// instead of allocated
	huge := []byte{codecLZ4}
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], 1<<40)
	huge = append(huge, lenBuf[:n]...)
	huge = append(huge, 'x')
	_, err = decodeEntry(huge)
	assert.ErrorIs(t, err, ErrBadCodec)
}

func TestSchemaChangeOp(t *testing.T) {
	change := &schema.Change{Kind: schema.AddColumn, Name: "c", Type: schema.TInt32, Nullable: true}
	e, err := NewLogEntry(1, &SchemaChange{Change: change}, 1)
	assert.Nil(t, err)
	op, err := e.Operation()
	assert.Nil(t, err)
	assert.Equal(t, "c", op.(*SchemaChange).Change.Name)

	e.Kind = OpKind(99)
	_, err = e.Operation()
	assert.ErrorIs(t, err, ErrBadPayload)
}
