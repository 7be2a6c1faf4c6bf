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

import "sync"

// Counter is a cumulative integer metric façade. It forces Cumulative=true and clears
// any configured Bucketer on construction, self-registers against the Exporter
// idempotently on first use, and forwards every operation to it.
type Counter struct {
	name     string
	config   MetricConfig
	exporter *Exporter

	once sync.Once
}

// NewCounter returns a Counter backed by DefaultExporter(). config's Cumulative flag
// is forced true and its Bucketer is cleared, matching the original façade's
// constructor overrides.
func NewCounter(name string, config MetricConfig) *Counter {
	return NewCounterWithExporter(DefaultExporter(), name, config)
}

func NewCounterWithExporter(exporter *Exporter, name string, config MetricConfig) *Counter {
	config.Cumulative = true
	config.Bucketer = BucketerRef{}
	return &Counter{name: name, config: config, exporter: exporter}
}

func (c *Counter) Name() string         { return c.name }
func (c *Counter) Config() MetricConfig { return c.config }

func (c *Counter) register() {
	c.once.Do(func() {
		c.exporter.DefineMetricRedundant(c.name, c.config)
	})
}

func (c *Counter) Get(entityLabels, metricFields FieldMap) (int64, bool) {
	c.register()
	return c.exporter.GetInt(entityLabels, c.name, metricFields)
}

func (c *Counter) GetOrZero(entityLabels, metricFields FieldMap) int64 {
	v, _ := c.Get(entityLabels, metricFields)
	return v
}

func (c *Counter) IncrementBy(delta int64, entityLabels, metricFields FieldMap) {
	c.register()
	c.exporter.AddToInt(entityLabels, c.name, delta, metricFields)
}

func (c *Counter) Increment(entityLabels, metricFields FieldMap) {
	c.IncrementBy(1, entityLabels, metricFields)
}

func (c *Counter) Delete(entityLabels, metricFields FieldMap) bool {
	c.register()
	_, ok := c.exporter.DeleteValue(entityLabels, c.name, metricFields)
	return ok
}

func (c *Counter) DeleteEntity(entityLabels FieldMap) bool {
	c.register()
	return c.exporter.DeleteMetricFromEntity(entityLabels, c.name)
}
