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

package tsz

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestMetricConfigBuildersAreImmutable(t *testing.T) {
	base := MetricConfig{}
	withCumulative := base.SetCumulative(true)
	assert.Assert(t, !base.Cumulative, "SetCumulative should return a modified copy, not mutate the receiver")
	assert.Assert(t, withCumulative.Cumulative, "SetCumulative(true) should set Cumulative on the returned copy")
}

func TestMetricConfigEqualComparesBucketerIdentity(t *testing.T) {
	a := MetricConfig{}.SetBucketer(FixedWidth(1.0, 5))
	b := MetricConfig{}.SetBucketer(FixedWidth(1.0, 5))
	c := MetricConfig{}.SetBucketer(FixedWidth(2.0, 5))
	assert.Assert(t, a.Equal(b), "configs referencing the same canonical bucketer should be Equal")
	assert.Assert(t, !a.Equal(c), "configs referencing different bucketers should not be Equal")
}

func TestMetricConfigClearBucketer(t *testing.T) {
	c := MetricConfig{}.SetBucketer(FixedWidth(1.0, 5)).ClearBucketer()
	assert.Assert(t, c.Bucketer.IsZero(), "ClearBucketer should reset Bucketer to the zero value")
}
