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

	"github.com/metalakehq/metalake/pkg/logutil"
)

// startBackground drives periodic checkpoints and retention on the worker
// pool. Jobs touching different tables run concurrently on the pool;
// commitMu keeps each table's jobs and commits serialized.
func (db *DB) startBackground() {
	if db.opts.CheckpointInterval <= 0 {
		return
	}
	db.wg.Add(1)
	go func() {
		defer db.wg.Done()
		ticker := time.NewTicker(db.opts.CheckpointInterval)
		defer ticker.Stop()
		for {
			select {
			case <-db.stopCh:
				return
			case <-ticker.C:
				// jobs join the waitgroup so Close drains them before the
				// store goes away; pool.Release alone does not wait for a
				// worker mid-job
				db.wg.Add(1)
				err := db.pool.Submit(func() {
					defer db.wg.Done()
					if err := db.Checkpoint(); err != nil && err != ErrClosed {
						logutil.Errorf("checkpoint: %v", err)
					}
					if err := db.ExpireSnapshots(); err != nil && err != ErrClosed {
						logutil.Errorf("retention: %v", err)
					}
				})
				if err != nil {
					db.wg.Done()
					logutil.Warnf("background submit: %v", err)
				}
			}
		}
	}()
}
