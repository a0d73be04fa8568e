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

package schema

type ChangeKind uint8

const (
	AddColumn ChangeKind = iota
	RenameColumn
	DropColumn
)

func (k ChangeKind) String() string {
	switch k {
	case AddColumn:
		return "ADD_COLUMN"
	case RenameColumn:
		return "RENAME_COLUMN"
	case DropColumn:
		return "DROP_COLUMN"
	}
	return "UNKNOWN"
}

// Change is one evolution step. AddColumn uses Name/Type/Nullable;
// RenameColumn uses ColId/NewName; DropColumn uses ColId.
type Change struct {
	Kind     ChangeKind `json:"kind"`
	Name     string     `json:"name,omitempty"`
	Type     Type       `json:"type,omitempty"`
	Nullable bool       `json:"nullable,omitempty"`
	ColId    uint32     `json:"colid,omitempty"`
	NewName  string     `json:"newname,omitempty"`
}

// Apply produces the schema that results from change, leaving the receiver
// untouched. Evolution is metadata-only: added columns must be nullable
// since existing data files are never rewritten.
func (s *Schema) Apply(newId uint64, change *Change) (*Schema, error) {
	next := s.Clone()
	next.Id = newId
	switch change.Kind {
	case AddColumn:
		if change.Name == "" {
			return nil, ErrIncompatible
		}
		if next.GetColIdx(change.Name) >= 0 {
			return nil, ErrDupColumn
		}
		if !change.Nullable {
			return nil, ErrIncompatible
		}
		next.AppendCol(change.Name, change.Type, change.Nullable)
	case RenameColumn:
		colDef := next.GetColById(change.ColId)
		if colDef == nil {
			return nil, ErrColumnNotFound
		}
		if change.NewName == "" || change.NewName == colDef.Name {
			return nil, ErrIncompatible
		}
		if next.GetColIdx(change.NewName) >= 0 {
			return nil, ErrDupColumn
		}
		delete(next.NameIndex, colDef.Name)
		colDef.Name = change.NewName
		next.NameIndex[colDef.Name] = colDef.Idx
	case DropColumn:
		colDef := next.GetColById(change.ColId)
		if colDef == nil {
			return nil, ErrColumnNotFound
		}
		if len(next.ColDefs) == 1 {
			return nil, ErrIncompatible
		}
		next.ColDefs = append(next.ColDefs[:colDef.Idx], next.ColDefs[colDef.Idx+1:]...)
		delete(next.NameIndex, colDef.Name)
		for idx, def := range next.ColDefs {
			def.Idx = idx
			next.NameIndex[def.Name] = idx
		}
	default:
		return nil, ErrIncompatible
	}
	return next, nil
}
