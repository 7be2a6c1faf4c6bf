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

type pendingInt struct {
	fields tsz.FieldMap
	delta  int64
}

type entityInts struct {
	labels tsz.FieldMap
	cells  map[string]*pendingInt
}

// Counter is a buffered cumulative integer metric façade: IncrementBy accumulates
// locally and is only applied to the Exporter when the owning MetricManager flushes it.
// Unlike the non-buffered tsz.Counter, it forces UserTimestamps=true, since flushed
// deltas are applied well after the increment actually happened.
type Counter struct {
	id       string
	name     string
	config   tsz.MetricConfig
	exporter *tsz.Exporter
	manager  *MetricManager

	registerOnce sync.Once

	mu       sync.Mutex
	entities map[string]*entityInts
}

func NewCounter(name string, config tsz.MetricConfig) *Counter {
	return NewCounterWithExporter(tsz.DefaultExporter(), DefaultMetricManager(), name, config)
}

func NewCounterWithExporter(exporter *tsz.Exporter, manager *MetricManager, name string, config tsz.MetricConfig) *Counter {
	config.Cumulative = true
	config.UserTimestamps = true
	config.Bucketer = tsz.BucketerRef{}
	return &Counter{
		id:       uuid.NewString(),
		name:     name,
		config:   config,
		exporter: exporter,
		manager:  manager,
		entities: map[string]*entityInts{},
	}
}

func (c *Counter) Name() string             { return c.name }
func (c *Counter) Config() tsz.MetricConfig { return c.config }

// ID returns the instance identity Counter registered itself under with its
// MetricManager, for use with MetricManager.UnregisterMetric.
func (c *Counter) ID() string { return c.id }

func (c *Counter) register() {
	c.registerOnce.Do(func() {
		c.exporter.DefineMetricRedundant(c.name, c.config)
		c.manager.RegisterMetric(c)
	})
}

func (c *Counter) IncrementBy(delta int64, entityLabels, metricFields tsz.FieldMap) {
	c.register()
	c.mu.Lock()
	defer c.mu.Unlock()
	ekey := entityLabels.Key()
	ent, ok := c.entities[ekey]
	if !ok {
		ent = &entityInts{labels: entityLabels, cells: map[string]*pendingInt{}}
		c.entities[ekey] = ent
	}
	fkey := metricFields.Key()
	if p, ok := ent.cells[fkey]; ok {
		p.delta += delta
		return
	}
	ent.cells[fkey] = &pendingInt{fields: metricFields, delta: delta}
}

func (c *Counter) Increment(entityLabels, metricFields tsz.FieldMap) {
	c.IncrementBy(1, entityLabels, metricFields)
}

// Get flushes every buffered Counter instance sharing this name, not just this one,
// before reading, so callers observe every sibling instance's writes even though flush
// is otherwise only driven by the MetricManager's ticker.
func (c *Counter) Get(entityLabels, metricFields tsz.FieldMap) (int64, bool) {
	c.register()
	return c.manager.GetInt(c.exporter, entityLabels, c.name, metricFields)
}

func (c *Counter) GetOrZero(entityLabels, metricFields tsz.FieldMap) int64 {
	v, _ := c.Get(entityLabels, metricFields)
	return v
}

func (c *Counter) flush() {
	c.mu.Lock()
	entities := c.entities
	c.entities = map[string]*entityInts{}
	c.mu.Unlock()
	for _, ent := range entities {
		if len(ent.cells) == 0 {
			continue
		}
		deltas := make([]tsz.IntDelta, 0, len(ent.cells))
		for _, p := range ent.cells {
			deltas = append(deltas, tsz.IntDelta{Fields: p.fields, Delta: p.delta})
		}
		c.exporter.AddIntDeltas(ent.labels, c.name, deltas)
	}
}
