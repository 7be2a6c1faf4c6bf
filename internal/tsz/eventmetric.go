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

// EventMetric is a cumulative Distribution metric façade. It forces Cumulative=true and,
// if the supplied config carries no Bucketer, fills in DefaultBucketerRef() so every
// EventMetric always records into a concrete bucketer.
type EventMetric struct {
	name     string
	config   MetricConfig
	exporter *Exporter

	once sync.Once
}

func NewEventMetric(name string, config MetricConfig) *EventMetric {
	return NewEventMetricWithExporter(DefaultExporter(), name, config)
}

func NewEventMetricWithExporter(exporter *Exporter, name string, config MetricConfig) *EventMetric {
	config.Cumulative = true
	if config.Bucketer.IsZero() {
		config.Bucketer = DefaultBucketerRef()
	}
	return &EventMetric{name: name, config: config, exporter: exporter}
}

func (m *EventMetric) Name() string         { return m.name }
func (m *EventMetric) Config() MetricConfig { return m.config }

func (m *EventMetric) register() {
	m.once.Do(func() {
		m.exporter.DefineMetricRedundant(m.name, m.config)
	})
}

func (m *EventMetric) Get(entityLabels, metricFields FieldMap) (*Distribution, bool) {
	m.register()
	return m.exporter.GetDistribution(entityLabels, m.name, metricFields)
}

// GetOrEmpty returns the recorded Distribution, or a freshly-allocated empty one over
// this metric's configured bucketer if no value has been recorded yet.
func (m *EventMetric) GetOrEmpty(entityLabels, metricFields FieldMap) *Distribution {
	if d, ok := m.Get(entityLabels, metricFields); ok {
		return d
	}
	return NewDistribution(m.config.Bucketer)
}

func (m *EventMetric) Record(sample float64, entityLabels, metricFields FieldMap) {
	m.RecordMany(sample, 1, entityLabels, metricFields)
}

func (m *EventMetric) RecordMany(sample float64, times uint64, entityLabels, metricFields FieldMap) {
	m.register()
	m.exporter.AddToDistribution(entityLabels, m.name, sample, times, metricFields, m.config.Bucketer)
}

func (m *EventMetric) Delete(entityLabels, metricFields FieldMap) bool {
	m.register()
	_, ok := m.exporter.DeleteValue(entityLabels, m.name, metricFields)
	return ok
}

func (m *EventMetric) DeleteEntity(entityLabels FieldMap) bool {
	m.register()
	return m.exporter.DeleteMetricFromEntity(entityLabels, m.name)
}
