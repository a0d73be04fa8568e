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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchema(t *testing.T) {
	schema0 := MockSchema(2)
	assert.False(t, (*Schema)(nil).Valid())
	assert.False(t, NewEmptySchema().Valid())
	assert.True(t, schema0.Valid())
	assert.Equal(t, -1, schema0.GetColIdx("xxxx"))
	assert.Equal(t, 0, schema0.GetColIdx("mock_0"))
	assert.Equal(t, "mock_1", schema0.Clone().ColDefs[1].Name)

	schema1 := MockSchema(2)
	schema1.ColDefs[0].Idx = 1
	assert.False(t, schema1.Valid())
	schema1.ColDefs[0].Idx = 0
	schema1.ColDefs[0].Name = schema1.ColDefs[1].Name
	assert.False(t, schema1.Valid())
}

func TestSchemaApplyAdd(t *testing.T) {
	schema0 := MockSchema(2)
	schema0.Id = 1
	next, err := schema0.Apply(2, &Change{Kind: AddColumn, Name: "added", Type: TVarchar, Nullable: true})
	assert.Nil(t, err)
	assert.Equal(t, uint64(2), next.Id)
	assert.Equal(t, 3, len(next.ColDefs))
	assert.Equal(t, 2, next.GetColIdx("added"))
	// the old version is untouched
	assert.Equal(t, 2, len(schema0.ColDefs))

	_, err = schema0.Apply(2, &Change{Kind: AddColumn, Name: "mock_0", Type: TInt32, Nullable: true})
	assert.ErrorIs(t, err, ErrDupColumn)
	// added columns must be nullable, data files are never rewritten
	_, err = schema0.Apply(2, &Change{Kind: AddColumn, Name: "strict", Type: TInt32, Nullable: false})
	assert.ErrorIs(t, err, ErrIncompatible)
}

func TestSchemaApplyRename(t *testing.T) {
	schema0 := MockSchema(2)
	schema0.Id = 1
	colId := schema0.ColDefs[0].Id
	next, err := schema0.Apply(2, &Change{Kind: RenameColumn, ColId: colId, NewName: "renamed"})
	assert.Nil(t, err)
	assert.Equal(t, 0, next.GetColIdx("renamed"))
	assert.Equal(t, -1, next.GetColIdx("mock_0"))
	assert.Equal(t, colId, next.ColDefs[0].Id)

	_, err = schema0.Apply(2, &Change{Kind: RenameColumn, ColId: 99, NewName: "x"})
	assert.ErrorIs(t, err, ErrColumnNotFound)
	_, err = schema0.Apply(2, &Change{Kind: RenameColumn, ColId: colId, NewName: "mock_1"})
	assert.ErrorIs(t, err, ErrDupColumn)
}

func TestSchemaApplyDrop(t *testing.T) {
	schema0 := MockSchema(3)
	schema0.Id = 1
	dropped := schema0.ColDefs[1].Id
	next, err := schema0.Apply(2, &Change{Kind: DropColumn, ColId: dropped})
	assert.Nil(t, err)
	assert.Equal(t, 2, len(next.ColDefs))
	assert.True(t, next.Valid())
	assert.Nil(t, next.GetColById(dropped))

	// the dropped id stays retired: a later add gets a fresh id
	next2, err := next.Apply(3, &Change{Kind: AddColumn, Name: "later", Type: TInt64, Nullable: true})
	assert.Nil(t, err)
	added := next2.ColDefs[len(next2.ColDefs)-1]
	assert.NotEqual(t, dropped, added.Id)

	one := MockSchema(1)
	one.Id = 1
	_, err = one.Apply(2, &Change{Kind: DropColumn, ColId: one.ColDefs[0].Id})
	assert.ErrorIs(t, err, ErrIncompatible)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(MockSchema(2))
	assert.Equal(t, uint64(1), reg.Latest().Id)

	next, err := reg.Evolve(&Change{Kind: AddColumn, Name: "added", Type: TInt8, Nullable: true})
	assert.Nil(t, err)
	assert.Equal(t, uint64(2), next.Id)
	assert.Equal(t, uint64(2), reg.Latest().Id)

	// old versions remain resolvable forever
	old, err := reg.Get(1)
	assert.Nil(t, err)
	assert.Equal(t, 2, len(old.ColDefs))
	assert.Equal(t, -1, old.GetColIdx("added"))

	_, err = reg.Get(42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, len(reg.View()))
}
