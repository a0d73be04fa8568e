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

package config

import (
	"time"

	"github.com/BurntSushi/toml"

	"github.com/metalakehq/metalake/pkg/logutil"
)

// MetaParameters of the metadata engine
type MetaParameters struct {
	//data-dir holds the transaction log, the catalog pointers and the
	//checkpoints
	DataDir string `toml:"data-dir"`

	//max commit attempts before a conflict is surfaced to the caller
	CommitMaxRetries int `toml:"commit-max-retries"`

	//initial backoff between commit retries, doubled per attempt
	CommitBackoffMS int `toml:"commit-backoff-ms"`

	//interval between background checkpoints, 0 disables them
	CheckpointIntervalSec int `toml:"checkpoint-interval-sec"`

	//snapshots older than this horizon are expired by the retention job,
	//0 disables expiry
	RetentionHours int `toml:"retention-hours"`

	//size of the background worker pool
	WorkerPoolSize int `toml:"worker-pool-size"`

	Log logutil.LogConfig `toml:"log"`
}

func NewDefaultParameters() *MetaParameters {
	return &MetaParameters{
		DataDir:               "./meta-data",
		CommitMaxRetries:      8,
		CommitBackoffMS:       2,
		CheckpointIntervalSec: 60,
		RetentionHours:        0,
		WorkerPoolSize:        4,
		Log: logutil.LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadParametersFromFile overlays values from the toml file on top of
// params. Keys missing from the file keep their defaults.
func LoadParametersFromFile(configFile string, params *MetaParameters) error {
	_, err := toml.DecodeFile(configFile, params)
	return err
}

func (params *MetaParameters) CommitBackoff() time.Duration {
	return time.Duration(params.CommitBackoffMS) * time.Millisecond
}

func (params *MetaParameters) CheckpointInterval() time.Duration {
	return time.Duration(params.CheckpointIntervalSec) * time.Second
}

func (params *MetaParameters) RetentionHorizon() time.Duration {
	return time.Duration(params.RetentionHours) * time.Hour
}
