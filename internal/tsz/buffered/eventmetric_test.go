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

package buffered_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/tsdb2/tsz/internal/tsz"
	"github.com/tsdb2/tsz/internal/tsz/buffered"
	"github.com/tsdb2/tsz/internal/tsz/tsztest"
)

func TestBufferedEventMetricRecordFlushesOnGet(t *testing.T) {
	x := tsz.NewExporter(tsztest.NewMockClock(), nil)
	manager := buffered.NewMetricManager()
	m := buffered.NewEventMetricWithExporter(x, manager, "latency", tsz.MetricConfig{})

	labels := tsz.NewFieldMap()
	fields := tsz.NewFieldMap()
	m.Record(1.0, labels, fields)
	m.RecordMany(2.0, 2, labels, fields)

	d, ok := m.Get(labels, fields)
	assert.Assert(t, ok, "Get should find the flushed Distribution")
	assert.Equal(t, d.Count(), uint64(3))
}

func TestBufferedEventMetricGetSeesSiblingInstancesOfSameName(t *testing.T) {
	x := tsz.NewExporter(tsztest.NewMockClock(), nil)
	manager := buffered.NewMetricManager()
	a := buffered.NewEventMetricWithExporter(x, manager, "shared_latency", tsz.MetricConfig{})
	b := buffered.NewEventMetricWithExporter(x, manager, "shared_latency", tsz.MetricConfig{})

	labels := tsz.NewFieldMap()
	fields := tsz.NewFieldMap()
	a.Record(1.0, labels, fields)
	b.Record(2.0, labels, fields)

	// Both EventMetric instances share the "shared_latency" metric name, so a.Get must
	// flush b's pending sample too instead of only its own.
	d, ok := a.Get(labels, fields)
	assert.Assert(t, ok)
	assert.Equal(t, d.Count(), uint64(2))
}

func TestBufferedEventMetricGetOrEmpty(t *testing.T) {
	x := tsz.NewExporter(tsztest.NewMockClock(), nil)
	manager := buffered.NewMetricManager()
	m := buffered.NewEventMetricWithExporter(x, manager, "latency", tsz.MetricConfig{})
	d := m.GetOrEmpty(tsz.NewFieldMap(), tsz.NewFieldMap())
	assert.Assert(t, d.IsEmpty(), "GetOrEmpty on an unset cell should return an empty Distribution")
}

func TestBufferedEventMetricForcesUserTimestamps(t *testing.T) {
	x := tsz.NewExporter(tsztest.NewMockClock(), nil)
	manager := buffered.NewMetricManager()
	m := buffered.NewEventMetricWithExporter(x, manager, "latency", tsz.MetricConfig{})
	assert.Assert(t, m.Config().UserTimestamps, "buffered EventMetric should force UserTimestamps=true")
	assert.Assert(t, !m.Config().Bucketer.IsZero(), "buffered EventMetric should fill in a default Bucketer when none was configured")
}
