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

func TestBufferedCounterGetFlushesPendingIncrements(t *testing.T) {
	x := tsz.NewExporter(tsztest.NewMockClock(), nil)
	manager := buffered.NewMetricManager()
	c := buffered.NewCounterWithExporter(x, manager, "requests_total", tsz.MetricConfig{})

	labels := tsz.NewFieldMap(tsz.Field("host", tsz.StrValue("a")))
	fields := tsz.NewFieldMap()

	c.IncrementBy(10, labels, fields)
	c.IncrementBy(5, labels, fields)

	assert.Equal(t, c.GetOrZero(labels, fields), int64(15), "Get must flush pending increments first")
}

func TestBufferedCounterForcesUserTimestampsAndCumulative(t *testing.T) {
	x := tsz.NewExporter(tsztest.NewMockClock(), nil)
	manager := buffered.NewMetricManager()
	c := buffered.NewCounterWithExporter(x, manager, "m", tsz.MetricConfig{})
	assert.Assert(t, c.Config().Cumulative, "buffered Counter should force Cumulative=true")
	assert.Assert(t, c.Config().UserTimestamps, "buffered Counter should force UserTimestamps=true")
}

func TestBufferedCounterGetSeesSiblingInstancesOfSameName(t *testing.T) {
	x := tsz.NewExporter(tsztest.NewMockClock(), nil)
	manager := buffered.NewMetricManager()
	a := buffered.NewCounterWithExporter(x, manager, "shared", tsz.MetricConfig{})
	b := buffered.NewCounterWithExporter(x, manager, "shared", tsz.MetricConfig{})

	labels := tsz.NewFieldMap()
	fields := tsz.NewFieldMap()
	a.IncrementBy(1, labels, fields)
	b.IncrementBy(1, labels, fields)

	// Both Counter instances share the "shared" metric name, so a.Get must flush b's
	// pending increment too instead of only its own.
	assert.Equal(t, a.GetOrZero(labels, fields), int64(2))
}

func TestBufferedCounterAccumulatesAcrossMultipleFieldSets(t *testing.T) {
	x := tsz.NewExporter(tsztest.NewMockClock(), nil)
	manager := buffered.NewMetricManager()
	c := buffered.NewCounterWithExporter(x, manager, "responses", tsz.MetricConfig{})

	labels := tsz.NewFieldMap()
	okFields := tsz.NewFieldMap(tsz.Field("code", tsz.StrValue("ok")))
	errFields := tsz.NewFieldMap(tsz.Field("code", tsz.StrValue("err")))

	c.Increment(labels, okFields)
	c.Increment(labels, okFields)
	c.Increment(labels, errFields)

	assert.Equal(t, c.GetOrZero(labels, okFields), int64(2))
	assert.Equal(t, c.GetOrZero(labels, errFields), int64(1))
}
