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

package snapshot

import (
	"github.com/axiomhq/hyperloglog"
)

// FileMeta describes one immutable data file referenced by manifests. The
// engine never opens the file; writers report the stats at add time.
type FileMeta struct {
	Id   uint64 `json:"id"`
	Path string `json:"path"`
	Rows uint64 `json:"rows"`
	Size uint64 `json:"size"`
	// KeySketch is a serialized hyperloglog sketch of the file's keys,
	// empty when the writer supplied none.
	KeySketch []byte `json:"sketch,omitempty"`
}

// DistinctKeys estimates the distinct key count from the sketch, 0 when no
// sketch was recorded.
func (f *FileMeta) DistinctKeys() uint64 {
	if len(f.KeySketch) == 0 {
		return 0
	}
	sk := hyperloglog.New14()
	if err := sk.UnmarshalBinary(f.KeySketch); err != nil {
		return 0
	}
	return sk.Estimate()
}

// KeySketchBuilder accumulates keys while a writer produces a data file.
type KeySketchBuilder struct {
	sk *hyperloglog.Sketch
}

func NewKeySketchBuilder() *KeySketchBuilder {
	return &KeySketchBuilder{sk: hyperloglog.New14()}
}

func (b *KeySketchBuilder) Add(key []byte) {
	b.sk.Insert(key)
}

func (b *KeySketchBuilder) Build() []byte {
	buf, err := b.sk.MarshalBinary()
	if err != nil {
		return nil
	}
	return buf
}
