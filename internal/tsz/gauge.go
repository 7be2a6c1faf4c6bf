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

// GaugeValue is the set of scalar types a Gauge can hold. Distribution gauges have no
// equivalent here — recording a distribution over time is EventMetric's job, not a
// point-in-time Set, so Gauge is restricted to the four non-aggregating scalar kinds.
type GaugeValue interface {
	bool | int64 | float64 | string
}

// Gauge is a single-valued metric façade generic over GaugeValue, collapsing what the
// original four per-type gauge implementations shared into one generic type. Unlike
// Counter and EventMetric, it imposes no overrides on the supplied MetricConfig; callers
// who want a non-cumulative gauge configure that themselves.
type Gauge[V GaugeValue] struct {
	name     string
	config   MetricConfig
	exporter *Exporter

	once sync.Once
}

func NewGauge[V GaugeValue](name string, config MetricConfig) *Gauge[V] {
	return NewGaugeWithExporter[V](DefaultExporter(), name, config)
}

func NewGaugeWithExporter[V GaugeValue](exporter *Exporter, name string, config MetricConfig) *Gauge[V] {
	return &Gauge[V]{name: name, config: config, exporter: exporter}
}

func (g *Gauge[V]) Name() string         { return g.name }
func (g *Gauge[V]) Config() MetricConfig { return g.config }

func (g *Gauge[V]) register() {
	g.once.Do(func() {
		g.exporter.DefineMetricRedundant(g.name, g.config)
	})
}

func (g *Gauge[V]) Get(entityLabels, metricFields FieldMap) (V, bool) {
	g.register()
	value, ok := g.exporter.GetValue(entityLabels, g.name, metricFields)
	if !ok {
		var zero V
		return zero, false
	}
	return gaugeValueFrom[V](value), true
}

func (g *Gauge[V]) GetOrZero(entityLabels, metricFields FieldMap) V {
	v, _ := g.Get(entityLabels, metricFields)
	return v
}

// Set stores value for (entityLabels, metricFields). The only failure mode is a
// non-finite float64 when V is float64; every other GaugeValue type cannot fail.
func (g *Gauge[V]) Set(value V, entityLabels, metricFields FieldMap) error {
	g.register()
	v, err := gaugeValueTo(value)
	if err != nil {
		return err
	}
	g.exporter.SetValue(entityLabels, g.name, v, metricFields)
	return nil
}

func (g *Gauge[V]) Delete(entityLabels, metricFields FieldMap) bool {
	g.register()
	_, ok := g.exporter.DeleteValue(entityLabels, g.name, metricFields)
	return ok
}

func (g *Gauge[V]) DeleteEntity(entityLabels FieldMap) bool {
	g.register()
	return g.exporter.DeleteMetricFromEntity(entityLabels, g.name)
}

func gaugeValueTo[V GaugeValue](value V) (Value, error) {
	switch v := any(value).(type) {
	case bool:
		return NewBoolValue(v), nil
	case int64:
		return NewIntValue(v), nil
	case float64:
		return NewFloatValue(v)
	case string:
		return NewStrValue(v), nil
	default:
		panic("tsz: unsupported gauge value type")
	}
}

func gaugeValueFrom[V GaugeValue](value Value) V {
	var zero V
	switch any(zero).(type) {
	case bool:
		return any(value.Bool()).(V)
	case int64:
		return any(value.Int()).(V)
	case float64:
		return any(value.Float()).(V)
	case string:
		return any(value.Str()).(V)
	default:
		panic("tsz: unsupported gauge value type")
	}
}
