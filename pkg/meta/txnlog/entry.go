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

// Package txnlog records each committed change as an immutable, totally
// ordered log entry, one durable record per version. The log is the source
// of truth at open time: replaying it in version order rebuilds snapshots,
// schemas and catalog pointers.
package txnlog

import (
	"encoding/json"
	"fmt"

	"github.com/metalakehq/metalake/pkg/meta/schema"
	"github.com/metalakehq/metalake/pkg/meta/snapshot"
)

type OpKind uint8

const (
	OpAddFiles OpKind = iota + 1
	OpRemoveFiles
	OpSchemaChange
)

func (k OpKind) String() string {
	switch k {
	case OpAddFiles:
		return "ADD_FILES"
	case OpRemoveFiles:
		return "REMOVE_FILES"
	case OpSchemaChange:
		return "SCHEMA_CHANGE"
	}
	return "UNKNOWN"
}

// Operation is a proposed change. The payload types are the only three
// commit kinds the engine knows.
type Operation interface {
	Kind() OpKind
}

// AddFiles appends data files. A rewrite commit lists the files it
// replaces in Removed; both sides apply atomically in one version.
type AddFiles struct {
	Files   []*snapshot.FileMeta `json:"files"`
	Removed []uint64             `json:"removed,omitempty"`
}

func (op *AddFiles) Kind() OpKind { return OpAddFiles }

type RemoveFiles struct {
	FileIds []uint64 `json:"fileids"`
}

func (op *RemoveFiles) Kind() OpKind { return OpRemoveFiles }

type SchemaChange struct {
	Change *schema.Change `json:"change"`
}

func (op *SchemaChange) Kind() OpKind { return OpSchemaChange }

// LogEntry is one committed change. Version totally orders entries;
// successful commits advance it by exactly 1.
type LogEntry struct {
	Version  uint64          `json:"version"`
	Kind     OpKind          `json:"kind"`
	Payload  json.RawMessage `json:"payload"`
	CommitTS int64           `json:"committs"`
}

func NewLogEntry(version uint64, op Operation, commitTS int64) (*LogEntry, error) {
	payload, err := json.Marshal(op)
	if err != nil {
		return nil, err
	}
	return &LogEntry{
		Version:  version,
		Kind:     op.Kind(),
		Payload:  payload,
		CommitTS: commitTS,
	}, nil
}

// Operation decodes the payload back into its typed form.
func (e *LogEntry) Operation() (Operation, error) {
	var op Operation
	switch e.Kind {
	case OpAddFiles:
		op = new(AddFiles)
	case OpRemoveFiles:
		op = new(RemoveFiles)
	case OpSchemaChange:
		op = new(SchemaChange)
	default:
		return nil, ErrBadPayload
	}
	if err := json.Unmarshal(e.Payload, op); err != nil {
		return nil, ErrBadPayload
	}
	return op, nil
}

func (e *LogEntry) String() string {
	return fmt.Sprintf("LogEntry[v=%d,%s,ts=%d]", e.Version, e.Kind, e.CommitTS)
}
