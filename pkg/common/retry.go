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

package common

import (
	"context"
	"time"
)

type RetryOp = func() error

// IsRetryable reports whether DoBoundedRetry should try op again after err.
type IsRetryable = func(err error) bool

// DoBoundedRetry runs op up to maxTries times, doubling the backoff after
// each failed attempt. It stops early when ctx is canceled or when retryable
// rejects the error. The last error is returned when the budget runs out.
func DoBoundedRetry(ctx context.Context, op RetryOp, retryable IsRetryable, maxTries int, backoff time.Duration) (err error) {
	for i := 0; i < maxTries; i++ {
		if err = ctx.Err(); err != nil {
			return
		}
		if err = op(); err == nil {
			return
		}
		if retryable != nil && !retryable(err) {
			return
		}
		if i == maxTries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < time.Second {
			backoff *= 2
		}
	}
	return
}
