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

// MetricConfig is a fluent-built value type describing how a metric behaves: whether
// its cells are cumulative (monotonically increasing) or gauge-like, whether stable
// (unchanged) cells are skipped on export, whether the exporter reports deltas instead
// of absolute values, whether callers supply their own timestamps, and which Bucketer
// (if any) its cells use. Equality compares all fields, including bucketer identity
// (pointer equality via BucketerRef).
type MetricConfig struct {
	Cumulative      bool
	SkipStableCells bool
	DeltaMode       bool
	UserTimestamps  bool
	Bucketer        BucketerRef
}

func (c MetricConfig) SetCumulative(value bool) MetricConfig {
	c.Cumulative = value
	return c
}

func (c MetricConfig) SetSkipStableCells(value bool) MetricConfig {
	c.SkipStableCells = value
	return c
}

func (c MetricConfig) SetDeltaMode(value bool) MetricConfig {
	c.DeltaMode = value
	return c
}

func (c MetricConfig) SetUserTimestamps(value bool) MetricConfig {
	c.UserTimestamps = value
	return c
}

func (c MetricConfig) SetBucketer(bucketer *Bucketer) MetricConfig {
	c.Bucketer = RefOf(bucketer)
	return c
}

func (c MetricConfig) ClearBucketer() MetricConfig {
	c.Bucketer = BucketerRef{}
	return c
}

func (c MetricConfig) Equal(other MetricConfig) bool {
	return c.Cumulative == other.Cumulative &&
		c.SkipStableCells == other.SkipStableCells &&
		c.DeltaMode == other.DeltaMode &&
		c.UserTimestamps == other.UserTimestamps &&
		c.Bucketer.Equal(other.Bucketer)
}
