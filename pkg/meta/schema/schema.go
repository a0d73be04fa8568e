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

// Package schema models table schemas and their additive evolution. A table
// accumulates schema versions; every snapshot pins the schema id that was
// current when it was committed, so readers of old snapshots keep seeing
// the columns valid at that point. Column ids are never reused.
package schema

import (
	"encoding/json"
	"fmt"
)

type ColDef struct {
	// Id identifies the column across the whole history of the table.
	Id       uint32 `json:"id"`
	Idx      int    `json:"idx"`
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Nullable bool   `json:"nullable"`
}

type Schema struct {
	Id        uint64         `json:"id"`
	ColDefs   []*ColDef      `json:"cols"`
	NameIndex map[string]int `json:"nindex"`
	// NextColId carries forward through evolution so dropped column ids
	// stay retired.
	NextColId uint32 `json:"nextcol"`
}

func NewEmptySchema() *Schema {
	return &Schema{
		ColDefs:   make([]*ColDef, 0),
		NameIndex: make(map[string]int),
	}
}

func (s *Schema) AppendCol(name string, typ Type, nullable bool) *ColDef {
	colDef := &ColDef{
		Id:       s.NextColId,
		Name:     name,
		Type:     typ,
		Nullable: nullable,
		Idx:      len(s.ColDefs),
	}
	s.NextColId++
	s.ColDefs = append(s.ColDefs, colDef)
	s.NameIndex[name] = colDef.Idx
	return colDef
}

func (s *Schema) String() string {
	buf, _ := json.Marshal(s)
	return string(buf)
}

func (s *Schema) Valid() bool {
	if s == nil {
		return false
	}
	if len(s.ColDefs) == 0 {
		return false
	}
	names := make(map[string]bool)
	ids := make(map[uint32]bool)
	for idx, colDef := range s.ColDefs {
		if idx != colDef.Idx {
			return false
		}
		if colDef.Id >= s.NextColId {
			return false
		}
		if names[colDef.Name] || ids[colDef.Id] {
			return false
		}
		names[colDef.Name] = true
		ids[colDef.Id] = true
	}
	return true
}

// GetColIdx returns column index for the given column name
// if found, otherwise returns -1.
func (s *Schema) GetColIdx(attr string) int {
	idx, ok := s.NameIndex[attr]
	if !ok {
		return -1
	}
	return idx
}

func (s *Schema) GetColById(id uint32) *ColDef {
	for _, colDef := range s.ColDefs {
		if colDef.Id == id {
			return colDef
		}
	}
	return nil
}

func (s *Schema) Clone() *Schema {
	cloned := &Schema{
		Id:        s.Id,
		ColDefs:   make([]*ColDef, 0, len(s.ColDefs)),
		NameIndex: make(map[string]int),
		NextColId: s.NextColId,
	}
	for _, colDef := range s.ColDefs {
		def := *colDef
		cloned.ColDefs = append(cloned.ColDefs, &def)
		cloned.NameIndex[def.Name] = def.Idx
	}
	return cloned
}

func MockSchema(colCnt int) *Schema {
	schema := NewEmptySchema()
	prefix := "mock_"
	for i := 0; i < colCnt; i++ {
		schema.AppendCol(fmt.Sprintf("%s%d", prefix, i), TInt32, true)
	}
	return schema
}
