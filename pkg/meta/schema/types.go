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

type Type uint16

const (
	TBool Type = iota
	TInt8
	TInt16
	TInt32
	TInt64
	TUint8
	TUint16
	TUint32
	TUint64
	TFloat32
	TFloat64
	TDate
	TDatetime
	TVarchar
	TChar
	TDecimal
)

var typeNames = map[Type]string{
	TBool:     "bool",
	TInt8:     "int8",
	TInt16:    "int16",
	TInt32:    "int32",
	TInt64:    "int64",
	TUint8:    "uint8",
	TUint16:   "uint16",
	TUint32:   "uint32",
	TUint64:   "uint64",
	TFloat32:  "float32",
	TFloat64:  "float64",
	TDate:     "date",
	TDatetime: "datetime",
	TVarchar:  "varchar",
	TChar:     "char",
	TDecimal:  "decimal",
}

func (t Type) String() string {
	name, ok := typeNames[t]
	if !ok {
		return "unknown"
	}
	return name
}
