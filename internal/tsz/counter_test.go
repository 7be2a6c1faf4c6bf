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

package tsz_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/tsdb2/tsz/internal/tsz"
	"github.com/tsdb2/tsz/internal/tsz/tsztest"
)

func TestCounterIncrementAndGet(t *testing.T) {
	x := tsz.NewExporter(tsztest.NewMockClock(), nil)
	c := tsz.NewCounterWithExporter(x, "requests_total", tsz.MetricConfig{})

	labels := tsz.NewFieldMap(tsz.Field("host", tsz.StrValue("a")))
	fields := tsz.NewFieldMap()

	c.Increment(labels, fields)
	c.IncrementBy(4, labels, fields)

	assert.Equal(t, c.GetOrZero(labels, fields), int64(5))
}

func TestCounterGetOrZeroOnUnsetCell(t *testing.T) {
	x := tsz.NewExporter(tsztest.NewMockClock(), nil)
	c := tsz.NewCounterWithExporter(x, "requests_total", tsz.MetricConfig{})
	labels := tsz.NewFieldMap()
	assert.Equal(t, c.GetOrZero(labels, tsz.NewFieldMap()), int64(0))
}

func TestCounterForcesCumulativeAndClearsBucketer(t *testing.T) {
	x := tsz.NewExporter(tsztest.NewMockClock(), nil)
	custom := tsz.MetricConfig{}.SetCumulative(false).SetBucketer(tsz.FixedWidth(1.0, 10))
	c := tsz.NewCounterWithExporter(x, "m", custom)
	assert.Assert(t, c.Config().Cumulative, "Counter should force Cumulative=true regardless of the supplied config")
	assert.Assert(t, c.Config().Bucketer.IsZero(), "Counter should clear any configured Bucketer")
}

func TestCounterDelete(t *testing.T) {
	x := tsz.NewExporter(tsztest.NewMockClock(), nil)
	c := tsz.NewCounterWithExporter(x, "m", tsz.MetricConfig{})
	labels := tsz.NewFieldMap()
	fields := tsz.NewFieldMap()
	c.Increment(labels, fields)
	assert.Assert(t, c.Delete(labels, fields), "Delete should report the cell existed")
	assert.Equal(t, c.GetOrZero(labels, fields), int64(0))
}
