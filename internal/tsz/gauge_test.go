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
	"math"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/tsdb2/tsz/internal/tsz"
	"github.com/tsdb2/tsz/internal/tsz/tsztest"
)

func TestGaugeSetAndGetInt(t *testing.T) {
	x := tsz.NewExporter(tsztest.NewMockClock(), nil)
	g := tsz.NewGaugeWithExporter[int64](x, "queue_depth", tsz.MetricConfig{})
	labels := tsz.NewFieldMap()
	fields := tsz.NewFieldMap()

	assert.NilError(t, g.Set(42, labels, fields))
	got, ok := g.Get(labels, fields)
	assert.Assert(t, ok)
	assert.Equal(t, got, int64(42))
}

func TestGaugeSetOverwritesPreviousValue(t *testing.T) {
	x := tsz.NewExporter(tsztest.NewMockClock(), nil)
	g := tsz.NewGaugeWithExporter[bool](x, "healthy", tsz.MetricConfig{})
	labels := tsz.NewFieldMap()
	fields := tsz.NewFieldMap()

	assert.NilError(t, g.Set(true, labels, fields))
	assert.NilError(t, g.Set(false, labels, fields))
	got, _ := g.Get(labels, fields)
	assert.Equal(t, got, false)
}

func TestGaugeFloatRejectsNonFinite(t *testing.T) {
	x := tsz.NewExporter(tsztest.NewMockClock(), nil)
	g := tsz.NewGaugeWithExporter[float64](x, "ratio", tsz.MetricConfig{})
	err := g.Set(math.NaN(), tsz.NewFieldMap(), tsz.NewFieldMap())
	assert.Assert(t, err != nil, "Set(NaN) should fail")
}

func TestGaugeGetOrZeroOnUnsetCell(t *testing.T) {
	x := tsz.NewExporter(tsztest.NewMockClock(), nil)
	g := tsz.NewGaugeWithExporter[string](x, "label", tsz.MetricConfig{})
	assert.Equal(t, g.GetOrZero(tsz.NewFieldMap(), tsz.NewFieldMap()), "")
}

func TestGaugeImposesNoConfigOverrides(t *testing.T) {
	x := tsz.NewExporter(tsztest.NewMockClock(), nil)
	custom := tsz.MetricConfig{}.SetCumulative(true).SetBucketer(tsz.FixedWidth(1.0, 10))
	g := tsz.NewGaugeWithExporter[int64](x, "m", custom)
	assert.Assert(t, g.Config().Cumulative, "Gauge should pass Cumulative through unmodified")
	assert.Assert(t, !g.Config().Bucketer.IsZero(), "Gauge should pass a configured Bucketer through unmodified")
}
