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

package buffered

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tsdb2/tsz/internal/tsz"
)

type pendingDistribution struct {
	fields tsz.FieldMap
	delta  *tsz.Distribution
}

type entityDistributions struct {
	labels tsz.FieldMap
	cells  map[string]*pendingDistribution
}

// EventMetric is a buffered cumulative Distribution metric façade: RecordMany
// accumulates samples into a local Distribution per (entity, metric_fields) coordinate,
// merged into the Exporter only when the owning MetricManager flushes it. Like the
// buffered Counter, it forces UserTimestamps=true.
type EventMetric struct {
	id       string
	name     string
	config   tsz.MetricConfig
	exporter *tsz.Exporter
	manager  *MetricManager

	registerOnce sync.Once

	mu       sync.Mutex
	entities map[string]*entityDistributions
}

func NewEventMetric(name string, config tsz.MetricConfig) *EventMetric {
	return NewEventMetricWithExporter(tsz.DefaultExporter(), DefaultMetricManager(), name, config)
}

func NewEventMetricWithExporter(exporter *tsz.Exporter, manager *MetricManager, name string, config tsz.MetricConfig) *EventMetric {
	config.Cumulative = true
	config.UserTimestamps = true
	if config.Bucketer.IsZero() {
		config.Bucketer = tsz.DefaultBucketerRef()
	}
	return &EventMetric{
		id:       uuid.NewString(),
		name:     name,
		config:   config,
		exporter: exporter,
		manager:  manager,
		entities: map[string]*entityDistributions{},
	}
}

func (m *EventMetric) Name() string             { return m.name }
func (m *EventMetric) Config() tsz.MetricConfig { return m.config }

// ID returns the instance identity EventMetric registered itself under with its
// MetricManager, for use with MetricManager.UnregisterMetric.
func (m *EventMetric) ID() string { return m.id }

func (m *EventMetric) register() {
	m.registerOnce.Do(func() {
		m.exporter.DefineMetricRedundant(m.name, m.config)
		m.manager.RegisterMetric(m)
	})
}

func (m *EventMetric) Record(sample float64, entityLabels, metricFields tsz.FieldMap) {
	m.RecordMany(sample, 1, entityLabels, metricFields)
}

func (m *EventMetric) RecordMany(sample float64, times uint64, entityLabels, metricFields tsz.FieldMap) {
	m.register()
	m.mu.Lock()
	defer m.mu.Unlock()
	ekey := entityLabels.Key()
	ent, ok := m.entities[ekey]
	if !ok {
		ent = &entityDistributions{labels: entityLabels, cells: map[string]*pendingDistribution{}}
		m.entities[ekey] = ent
	}
	fkey := metricFields.Key()
	p, ok := ent.cells[fkey]
	if !ok {
		p = &pendingDistribution{fields: metricFields, delta: tsz.NewDistribution(m.config.Bucketer)}
		ent.cells[fkey] = p
	}
	p.delta.RecordMany(sample, times)
}

// Get flushes every buffered EventMetric instance sharing this name, not just this one,
// before reading, so callers observe every sibling instance's writes.
func (m *EventMetric) Get(entityLabels, metricFields tsz.FieldMap) (*tsz.Distribution, bool) {
	m.register()
	return m.manager.GetDistribution(m.exporter, entityLabels, m.name, metricFields)
}

func (m *EventMetric) GetOrEmpty(entityLabels, metricFields tsz.FieldMap) *tsz.Distribution {
	if d, ok := m.Get(entityLabels, metricFields); ok {
		return d
	}
	return tsz.NewDistribution(m.config.Bucketer)
}

func (m *EventMetric) flush() {
	m.mu.Lock()
	entities := m.entities
	m.entities = map[string]*entityDistributions{}
	m.mu.Unlock()
	for _, ent := range entities {
		if len(ent.cells) == 0 {
			continue
		}
		deltas := make([]tsz.DistributionDelta, 0, len(ent.cells))
		for _, p := range ent.cells {
			deltas = append(deltas, tsz.DistributionDelta{Fields: p.fields, Delta: p.delta})
		}
		// A merge error (e.g. an incompatible bucketer after a config change) has no
		// caller to return to from a background flush; it only ever affects the one
		// cell that failed, so the rest of the batch still applies. Still log it, since
		// a silent drop would otherwise hide a persistently misconfigured bucketer.
		if err := m.exporter.AddDistributionDeltas(ent.labels, m.name, deltas); err != nil {
			m.exporter.Logger().Errorf("tsz: buffered EventMetric %q flush: %v", m.name, err)
		}
	}
}
