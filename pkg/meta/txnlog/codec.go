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
	"encoding/json"
	"sync"

	"github.com/pierrec/lz4"
)

const (
	codecRaw byte = iota
	codecLZ4
)

// maxEntrySize bounds the decoded length claimed by a stored record, so a
// corrupted header cannot demand an arbitrary allocation.
const maxEntrySize = 64 << 20

var htPool = sync.Pool{
	New: func() interface{} {
		return make([]int, 1<<16)
	},
}

// encodeEntry marshals e and lz4-compresses the result. Incompressible
// entries are stored raw. Layout: [codec byte][uvarint raw length][body].
func encodeEntry(e *LogEntry) ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	head := make([]byte, 1+binary.MaxVarintLen64)
	n := binary.PutUvarint(head[1:], uint64(len(raw)))
	head = head[:1+n]

	ht := htPool.Get().([]int)
	defer htPool.Put(ht)
	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))
	sz, err := lz4.CompressBlock(raw, compressed, ht)
	if err != nil || sz == 0 || sz >= len(raw) {
		head[0] = codecRaw
		return append(head, raw...), nil
	}
	head[0] = codecLZ4
	return append(head, compressed[:sz]...), nil
}

func decodeEntry(buf []byte) (*LogEntry, error) {
	if len(buf) < 2 {
		return nil, ErrBadCodec
	}
	codec := buf[0]
	rawLen, n := binary.Uvarint(buf[1:])
	if n <= 0 || rawLen > maxEntrySize {
		return nil, ErrBadCodec
	}
	body := buf[1+n:]
	var raw []byte
	switch codec {
	case codecRaw:
		raw = body
	case codecLZ4:
		raw = make([]byte, rawLen)
		sz, err := lz4.UncompressBlock(body, raw)
		if err != nil {
			return nil, err
		}
		raw = raw[:sz]
	default:
		return nil, ErrBadCodec
	}
	e := new(LogEntry)
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, err
	}
	return e, nil
}
