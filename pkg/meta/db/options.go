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

package db

import (
	"time"

	"github.com/metalakehq/metalake/pkg/config"
)

type Options struct {
	// CommitMaxRetries bounds the automatic retry loop around conflicting
	// commits.
	CommitMaxRetries int
	// CommitBackoff is the initial backoff between retries, doubled per
	// attempt.
	CommitBackoff time.Duration
	// CheckpointInterval between background checkpoints. 0 disables the
	// background job; Checkpoint can still be called directly.
	CheckpointInterval time.Duration
	// Retention is the time-travel horizon. 0 keeps every snapshot.
	Retention time.Duration
	// WorkerPoolSize of the background job pool.
	WorkerPoolSize int
}

func (opts *Options) fillDefaults() *Options {
	if opts == nil {
		opts = new(Options)
	}
	if opts.CommitMaxRetries <= 0 {
		opts.CommitMaxRetries = 8
	}
	if opts.CommitBackoff <= 0 {
		opts.CommitBackoff = 2 * time.Millisecond
	}
	if opts.WorkerPoolSize <= 0 {
		opts.WorkerPoolSize = 4
	}
	return opts
}

// OptionsFromParameters maps the toml configuration onto engine options.
func OptionsFromParameters(params *config.MetaParameters) *Options {
	return &Options{
		CommitMaxRetries:   params.CommitMaxRetries,
		CommitBackoff:      params.CommitBackoff(),
		CheckpointInterval: params.CheckpointInterval(),
		Retention:          params.RetentionHorizon(),
		WorkerPoolSize:     params.WorkerPoolSize,
	}
}
