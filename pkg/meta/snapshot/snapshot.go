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

// Package snapshot tracks the immutable, append-only sequence of table
// snapshots. A snapshot pins a version, a schema id and a manifest (the set
// of live data file ids, kept as a 64-bit roaring bitmap). Snapshots never
// change after installation; readers resolve one and are unaffected by
// later commits.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/RoaringBitmap/roaring/roaring64"
)

type Snapshot struct {
	version       uint64
	parentVersion uint64
	timestamp     int64
	schemaId      uint64
	files         *roaring64.Bitmap
}

func (s *Snapshot) Version() uint64       { return s.version }
func (s *Snapshot) ParentVersion() uint64 { return s.parentVersion }
func (s *Snapshot) Timestamp() int64      { return s.timestamp }
func (s *Snapshot) SchemaId() uint64      { return s.schemaId }

func (s *Snapshot) Contains(fileId uint64) bool {
	return s.files.Contains(fileId)
}

func (s *Snapshot) NumFiles() uint64 {
	return s.files.GetCardinality()
}

// FileIds returns the manifest as a sorted slice. The snapshot keeps no
// reference to the returned slice.
func (s *Snapshot) FileIds() []uint64 {
	return s.files.ToArray()
}

func (s *Snapshot) String() string {
	return fmt.Sprintf("Snapshot[v=%d,parent=%d,schema=%d,files=%d]",
		s.version, s.parentVersion, s.schemaId, s.files.GetCardinality())
}

// snapshotJSON is the checkpoint wire form of a snapshot.
type snapshotJSON struct {
	Version       uint64 `json:"version"`
	ParentVersion uint64 `json:"parent"`
	Timestamp     int64  `json:"ts"`
	SchemaId      uint64 `json:"schema"`
	Files         []byte `json:"files"`
}

func (s *Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.files.WriteTo(&buf); err != nil {
		return nil, err
	}
	return json.Marshal(&snapshotJSON{
		Version:       s.version,
		ParentVersion: s.parentVersion,
		Timestamp:     s.timestamp,
		SchemaId:      s.schemaId,
		Files:         buf.Bytes(),
	})
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var js snapshotJSON
	if err := json.Unmarshal(data, &js); err != nil {
		return err
	}
	files := roaring64.NewBitmap()
	if _, err := files.ReadFrom(bytes.NewReader(js.Files)); err != nil {
		return err
	}
	s.version = js.Version
	s.parentVersion = js.ParentVersion
	s.timestamp = js.Timestamp
	s.schemaId = js.SchemaId
	s.files = files
	return nil
}
