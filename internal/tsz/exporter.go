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

	"go.uber.org/multierr"
)

// Logger is the minimal structured-logging surface the Exporter needs. It is
// satisfied structurally by *log.ZapStructuredLogger from this module's internal/log
// package (see DESIGN.md) without internal/tsz importing it directly, keeping the
// engine independently testable.
type Logger interface {
	Errorf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Errorf(string, ...any) {}

// Exporter is the authoritative, thread-safe, two-level store holding cells keyed by
// (entity_labels, metric_name, metric_fields), with per-cell start/update timestamps
// and a pinning/GC discipline for empty entities. It also owns the process-wide
// metric-name -> MetricConfig registry that backs DefineMetric/DefineMetricRedundant.
type Exporter struct {
	clock  Clock
	logger Logger

	mu       sync.Mutex
	entities map[string]*Entity

	configMu      sync.Mutex
	metricConfigs map[string]MetricConfig
}

// Logger returns the Logger this Exporter was constructed with, for callers (such as the
// buffered package) that need to report their own errors through the same sink.
func (x *Exporter) Logger() Logger {
	return x.logger
}

// NewExporter constructs an Exporter. A nil logger is replaced with a no-op logger.
func NewExporter(clock Clock, logger Logger) *Exporter {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Exporter{
		clock:         clock,
		logger:        logger,
		entities:      map[string]*Entity{},
		metricConfigs: map[string]MetricConfig{},
	}
}

// DefineMetric registers name with config. If name is already registered with a
// different config, DefineMetric leaves the existing registration in place and returns
// *AlreadyDefinedError. Registering the same name with an identical config is a no-op.
func (x *Exporter) DefineMetric(name string, config MetricConfig) error {
	x.configMu.Lock()
	defer x.configMu.Unlock()
	if existing, ok := x.metricConfigs[name]; ok {
		if existing.Equal(config) {
			return nil
		}
		return &AlreadyDefinedError{Name: name}
	}
	x.metricConfigs[name] = config
	return nil
}

// DefineMetricRedundant is the self-registration entry point metric façades call on
// first use. Unlike DefineMetric it never returns an error: if name is already
// registered with a conflicting config, the existing registration wins and the
// conflict is only logged, since a façade constructor has no error return to surface it
// through (see tsz/counter.go and friends).
func (x *Exporter) DefineMetricRedundant(name string, config MetricConfig) {
	x.configMu.Lock()
	defer x.configMu.Unlock()
	if existing, ok := x.metricConfigs[name]; ok {
		if !existing.Equal(config) {
			x.logger.Errorf("tsz: metric %q redefined with a different config; keeping the original registration", name)
		}
		return
	}
	x.metricConfigs[name] = config
}

// GetMetricConfig returns the config name was registered with, if any.
func (x *Exporter) GetMetricConfig(name string) (MetricConfig, bool) {
	x.configMu.Lock()
	defer x.configMu.Unlock()
	c, ok := x.metricConfigs[name]
	return c, ok
}

func (x *Exporter) getEphemeralEntity(labels FieldMap) *Entity {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.entities[labels.Key()]
}

// pinEntity returns a pin on the entity for labels, creating it if absent. Callers
// must call pin.Unpin() (typically via defer) once the mutation is complete.
func (x *Exporter) pinEntity(labels FieldMap) *EntityPin {
	x.mu.Lock()
	defer x.mu.Unlock()
	key := labels.Key()
	e, ok := x.entities[key]
	if !ok {
		e = newEntity(x, labels)
		x.entities[key] = e
	}
	return newEntityPin(e)
}

// removeEntity drops the entity for labels from the entity set, but only if it is
// unpinned at the time of the call — re-checked under the entities-set lock to avoid a
// race against a concurrent pinEntity call.
func (x *Exporter) removeEntity(labels FieldMap) {
	x.mu.Lock()
	defer x.mu.Unlock()
	key := labels.Key()
	if e, ok := x.entities[key]; ok && !e.isPinned() {
		delete(x.entities, key)
	}
}

// Touch ensures an entity exists for labels without writing any metric into it,
// announcing the entity's presence ahead of its first metric write. Releasing the pin
// does not trigger garbage collection, so the entity stays in the entity set (empty and
// unpinned) until a DeleteEntity, or a later delete that leaves it empty, removes it.
func (x *Exporter) Touch(labels FieldMap) {
	pin := x.pinEntity(labels)
	pin.Unpin()
}

func (x *Exporter) GetValue(entityLabels FieldMap, metricName string, metricFields FieldMap) (Value, bool) {
	e := x.getEphemeralEntity(entityLabels)
	if e == nil {
		return Value{}, false
	}
	return e.getValue(metricName, metricFields)
}

func (x *Exporter) GetBool(entityLabels FieldMap, metricName string, metricFields FieldMap) (bool, bool) {
	v, ok := x.GetValue(entityLabels, metricName, metricFields)
	if !ok {
		return false, false
	}
	return v.Bool(), true
}

func (x *Exporter) GetInt(entityLabels FieldMap, metricName string, metricFields FieldMap) (int64, bool) {
	v, ok := x.GetValue(entityLabels, metricName, metricFields)
	if !ok {
		return 0, false
	}
	return v.Int(), true
}

func (x *Exporter) GetFloat(entityLabels FieldMap, metricName string, metricFields FieldMap) (float64, bool) {
	v, ok := x.GetValue(entityLabels, metricName, metricFields)
	if !ok {
		return 0, false
	}
	return v.Float(), true
}

func (x *Exporter) GetString(entityLabels FieldMap, metricName string, metricFields FieldMap) (string, bool) {
	v, ok := x.GetValue(entityLabels, metricName, metricFields)
	if !ok {
		return "", false
	}
	return v.Str(), true
}

func (x *Exporter) GetDistribution(entityLabels FieldMap, metricName string, metricFields FieldMap) (*Distribution, bool) {
	v, ok := x.GetValue(entityLabels, metricName, metricFields)
	if !ok {
		return nil, false
	}
	return v.Distribution(), true
}

func (x *Exporter) SetValue(entityLabels FieldMap, metricName string, value Value, metricFields FieldMap) {
	now := x.clock.Now()
	pin := x.pinEntity(entityLabels)
	defer pin.Unpin()
	pin.entity.setValue(metricName, value, metricFields, now)
}

func (x *Exporter) SetBool(entityLabels FieldMap, metricName string, value bool, metricFields FieldMap) {
	x.SetValue(entityLabels, metricName, NewBoolValue(value), metricFields)
}

func (x *Exporter) SetInt(entityLabels FieldMap, metricName string, value int64, metricFields FieldMap) {
	x.SetValue(entityLabels, metricName, NewIntValue(value), metricFields)
}

func (x *Exporter) SetFloat(entityLabels FieldMap, metricName string, value float64, metricFields FieldMap) error {
	v, err := NewFloatValue(value)
	if err != nil {
		return err
	}
	x.SetValue(entityLabels, metricName, v, metricFields)
	return nil
}

func (x *Exporter) SetString(entityLabels FieldMap, metricName string, value string, metricFields FieldMap) {
	x.SetValue(entityLabels, metricName, NewStrValue(value), metricFields)
}

func (x *Exporter) SetDistribution(entityLabels FieldMap, metricName string, value *Distribution, metricFields FieldMap) {
	x.SetValue(entityLabels, metricName, NewDistributionValue(value), metricFields)
}

func (x *Exporter) AddToInt(entityLabels FieldMap, metricName string, delta int64, metricFields FieldMap) {
	now := x.clock.Now()
	pin := x.pinEntity(entityLabels)
	defer pin.Unpin()
	pin.entity.addToInt(metricName, delta, metricFields, now)
}

// AddToDistribution records sample times times into the cell's Distribution, creating
// the cell (and its Distribution, over bucketer) if absent.
func (x *Exporter) AddToDistribution(entityLabels FieldMap, metricName string, sample float64, times uint64, metricFields FieldMap, bucketer BucketerRef) {
	now := x.clock.Now()
	pin := x.pinEntity(entityLabels)
	defer pin.Unpin()
	pin.entity.addToDistribution(metricName, sample, times, metricFields, bucketer, now)
}

// IntDelta is one (metric_fields, delta) pair in a batch applied by AddIntDeltas.
type IntDelta struct {
	Fields FieldMap
	Delta  int64
}

// AddIntDeltas applies a batch of per-metric_fields integer deltas against one entity
// in a single pinned section, as used by buffered Counter's periodic flush.
func (x *Exporter) AddIntDeltas(entityLabels FieldMap, metricName string, deltas []IntDelta) {
	now := x.clock.Now()
	pin := x.pinEntity(entityLabels)
	defer pin.Unpin()
	for _, d := range deltas {
		pin.entity.addToInt(metricName, d.Delta, d.Fields, now)
	}
}

// DistributionDelta is one (metric_fields, delta) pair in a batch applied by
// AddDistributionDeltas.
type DistributionDelta struct {
	Fields FieldMap
	Delta  *Distribution
}

// AddDistributionDeltas merges a batch of per-metric_fields Distribution deltas into
// one entity's cells in a single pinned section, as used by buffered EventMetric's
// periodic flush. The returned error, if non-nil, aggregates every per-cell failure
// (e.g. *IncompatibleBucketersError) via multierr; cells that merged successfully keep
// their merged state regardless.
func (x *Exporter) AddDistributionDeltas(entityLabels FieldMap, metricName string, deltas []DistributionDelta) error {
	now := x.clock.Now()
	pin := x.pinEntity(entityLabels)
	defer pin.Unpin()
	var err error
	for _, d := range deltas {
		if mergeErr := pin.entity.mergeDistributionDelta(metricName, d.Delta, d.Fields, now); mergeErr != nil {
			err = multierr.Append(err, mergeErr)
		}
	}
	return err
}

func (x *Exporter) DeleteValue(entityLabels FieldMap, metricName string, metricFields FieldMap) (Value, bool) {
	e := x.getEphemeralEntity(entityLabels)
	if e == nil {
		return Value{}, false
	}
	return e.deleteValue(metricName, metricFields)
}

func (x *Exporter) DeleteMetricFromEntity(entityLabels FieldMap, metricName string) bool {
	e := x.getEphemeralEntity(entityLabels)
	if e == nil {
		return false
	}
	return e.deleteMetric(metricName)
}

// DeleteMetric removes metricName from every entity currently tracked. Per-entity
// deletions are independent; a panic in one (there should be none under normal use)
// would not be caught here, consistent with the rest of tsz treating such failures as
// programmer errors rather than recoverable data errors.
func (x *Exporter) DeleteMetric(metricName string) {
	x.mu.Lock()
	entities := make([]*Entity, 0, len(x.entities))
	for _, e := range x.entities {
		entities = append(entities, e)
	}
	x.mu.Unlock()
	for _, e := range entities {
		e.deleteMetric(metricName)
	}
}

func (x *Exporter) DeleteEntity(entityLabels FieldMap) bool {
	e := x.getEphemeralEntity(entityLabels)
	if e == nil {
		return false
	}
	e.clear()
	return true
}

// Clear removes every tracked entity. Exposed for tests.
func (x *Exporter) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entities = map[string]*Entity{}
}

var (
	defaultExporterOnce sync.Once
	defaultExporter     *Exporter
)

// DefaultExporter returns the process-wide singleton Exporter that façades register
// against by default.
func DefaultExporter() *Exporter {
	defaultExporterOnce.Do(func() {
		defaultExporter = NewExporter(RealClock{}, nil)
	})
	return defaultExporter
}
