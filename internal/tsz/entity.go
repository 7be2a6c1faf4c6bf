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
	"sync"
	"sync/atomic"
	"time"
)

// cell is the engine-internal value/timestamp record backing one (entity, metric,
// metric_fields) coordinate.
type cell struct {
	value           Value
	startTimestamp  time.Time
	updateTimestamp time.Time
}

// cellRecord pairs a cell with the metric_fields FieldMap it was stored under, since the
// map key is a canonical string encoding of the FieldMap rather than the FieldMap
// itself (Go maps require comparable keys; FieldMap holds a slice and isn't one).
type cellRecord struct {
	fields FieldMap
	cell   cell
}

// metricEngine is the engine-internal representation of one named metric within one
// entity: an unordered set of cells keyed by metric_fields.
type metricEngine struct {
	name  string
	cells map[string]*cellRecord
}

func newMetricEngine(name string) *metricEngine {
	return &metricEngine{name: name, cells: map[string]*cellRecord{}}
}

func (m *metricEngine) isEmpty() bool { return len(m.cells) == 0 }

func (m *metricEngine) getValue(fields FieldMap) (Value, bool) {
	if r, ok := m.cells[fields.Key()]; ok {
		return r.cell.value, true
	}
	return Value{}, false
}

func (m *metricEngine) setValue(value Value, fields FieldMap, now time.Time) {
	key := fields.Key()
	if r, ok := m.cells[key]; ok {
		r.cell.value = value
		r.cell.updateTimestamp = now
		return
	}
	m.cells[key] = &cellRecord{fields: fields, cell: cell{value: value, startTimestamp: now, updateTimestamp: now}}
}

func (m *metricEngine) addToInt(delta int64, fields FieldMap, now time.Time) {
	key := fields.Key()
	if r, ok := m.cells[key]; ok {
		r.cell.value = NewIntValue(r.cell.value.Int() + delta)
		r.cell.updateTimestamp = now
		return
	}
	m.cells[key] = &cellRecord{fields: fields, cell: cell{value: NewIntValue(delta), startTimestamp: now, updateTimestamp: now}}
}

func (m *metricEngine) addToDistribution(sample float64, times uint64, fields FieldMap, bucketer BucketerRef, now time.Time) {
	key := fields.Key()
	if r, ok := m.cells[key]; ok {
		r.cell.value.Distribution().RecordMany(sample, times)
		r.cell.updateTimestamp = now
		return
	}
	d := NewDistribution(bucketer)
	d.RecordMany(sample, times)
	m.cells[key] = &cellRecord{fields: fields, cell: cell{value: NewDistributionValue(d), startTimestamp: now, updateTimestamp: now}}
}

func (m *metricEngine) mergeDistributionDelta(delta *Distribution, fields FieldMap, now time.Time) error {
	key := fields.Key()
	if r, ok := m.cells[key]; ok {
		if err := r.cell.value.Distribution().Add(delta); err != nil {
			return err
		}
		r.cell.updateTimestamp = now
		return nil
	}
	m.cells[key] = &cellRecord{fields: fields, cell: cell{value: NewDistributionValue(delta.Clone()), startTimestamp: now, updateTimestamp: now}}
	return nil
}

func (m *metricEngine) deleteValue(fields FieldMap) (Value, bool) {
	key := fields.Key()
	r, ok := m.cells[key]
	if !ok {
		return Value{}, false
	}
	delete(m.cells, key)
	return r.cell.value, true
}

// Entity holds every metric recorded against one set of entity labels. Entities are
// shared between concurrent writers (reference-counted via pinCount) and are garbage
// collected by the owning Exporter once they hold no metrics and no writer has them
// pinned.
type Entity struct {
	parent   *Exporter
	labels   FieldMap
	pinCount atomic.Int64

	mu      sync.Mutex
	metrics map[string]*metricEngine
}

func newEntity(parent *Exporter, labels FieldMap) *Entity {
	return &Entity{parent: parent, labels: labels, metrics: map[string]*metricEngine{}}
}

func (e *Entity) isPinned() bool { return e.pinCount.Load() > 0 }

func (e *Entity) pin() { e.pinCount.Add(1) }

// unpin decrements the pin count and reports whether this call brought it to zero.
func (e *Entity) unpin() bool { return e.pinCount.Add(-1) == 0 }

func (e *Entity) getValue(metricName string, fields FieldMap) (Value, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.metrics[metricName]
	if !ok {
		return Value{}, false
	}
	return m.getValue(fields)
}

func (e *Entity) setValue(metricName string, value Value, fields FieldMap, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.metrics[metricName]
	if !ok {
		m = newMetricEngine(metricName)
		e.metrics[metricName] = m
	}
	m.setValue(value, fields, now)
}

func (e *Entity) addToInt(metricName string, delta int64, fields FieldMap, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.metrics[metricName]
	if !ok {
		m = newMetricEngine(metricName)
		e.metrics[metricName] = m
	}
	m.addToInt(delta, fields, now)
}

func (e *Entity) addToDistribution(metricName string, sample float64, times uint64, fields FieldMap, bucketer BucketerRef, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.metrics[metricName]
	if !ok {
		m = newMetricEngine(metricName)
		e.metrics[metricName] = m
	}
	m.addToDistribution(sample, times, fields, bucketer, now)
}

func (e *Entity) mergeDistributionDelta(metricName string, delta *Distribution, fields FieldMap, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.metrics[metricName]
	if !ok {
		m = newMetricEngine(metricName)
		e.metrics[metricName] = m
	}
	return m.mergeDistributionDelta(delta, fields, now)
}

func (e *Entity) deleteValue(metricName string, fields FieldMap) (Value, bool) {
	e.mu.Lock()
	m, ok := e.metrics[metricName]
	var value Value
	var found bool
	if ok {
		value, found = m.deleteValue(fields)
		if m.isEmpty() {
			delete(e.metrics, metricName)
		}
	}
	empty := len(e.metrics) == 0
	e.mu.Unlock()
	if empty && !e.isPinned() {
		e.parent.removeEntity(e.labels)
	}
	return value, found
}

func (e *Entity) deleteMetric(metricName string) bool {
	e.mu.Lock()
	_, existed := e.metrics[metricName]
	delete(e.metrics, metricName)
	empty := len(e.metrics) == 0
	e.mu.Unlock()
	if empty && !e.isPinned() {
		e.parent.removeEntity(e.labels)
	}
	return existed
}

func (e *Entity) clear() {
	e.mu.Lock()
	e.metrics = map[string]*metricEngine{}
	e.mu.Unlock()
	if !e.isPinned() {
		e.parent.removeEntity(e.labels)
	}
}

// EntityPin is a scoped handle taken for the duration of every mutating operation:
// constructing it (via Exporter.pinEntity) increments the entity's pin count, and
// Unpin decrements it. Pinning blocks the GC step from removing an entity that a
// writer is still using. Callers must defer Unpin immediately after obtaining a pin,
// since Go has no destructors to do it automatically.
type EntityPin struct {
	entity *Entity
}

func newEntityPin(e *Entity) *EntityPin {
	e.pin()
	return &EntityPin{entity: e}
}

func (p *EntityPin) Unpin() { p.entity.unpin() }
