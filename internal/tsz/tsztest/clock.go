// Copyright 2024 Google LLC
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

// Package tsztest provides test doubles shared across the tsz packages, mirroring the
// way the original implementation kept a #[cfg(test)] MockClock alongside the
// production Clock.
package tsztest

import (
	"sync"
	"time"
)

// MockClock is a Clock whose time only moves when Advance is called explicitly.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock returns a MockClock starting at the Unix epoch, matching the default
// used by the original implementation's test clock.
func NewMockClock() *MockClock {
	return &MockClock{now: time.Unix(0, 0).UTC()}
}

// NewMockClockAt returns a MockClock starting at the given time.
func NewMockClockAt(start time.Time) *MockClock {
	return &MockClock{now: start}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the mock clock forward by delta.
func (c *MockClock) Advance(delta time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(delta)
}
