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

// Package buffered provides local-accumulation variants of the Counter and EventMetric
// façades from the parent tsz package: increments and records accumulate in memory and
// are only applied to an Exporter when a MetricManager flushes them, trading immediate
// visibility for reduced contention on hot metrics.
package buffered

import (
	"sync"
	"time"

	"github.com/tsdb2/tsz/internal/tsz"
)

// FlushPeriod is the interval at which a MetricManager flushes every metric registered
// with it.
const FlushPeriod = 60 * time.Second

// Metric is implemented by every buffered façade registered with a MetricManager.
type Metric interface {
	ID() string
	Name() string
	flush()
}

// MetricManager periodically flushes every metric registered with it, and lets callers
// read a consistent value across every buffered instance sharing a metric name. Buffered
// façades may be instantiated more than once per name (e.g. one per goroutine pool), so
// the registry groups instances by name rather than keeping a flat id -> Metric map: a
// GetInt/GetDistribution for a name must flush every instance registered under it, not
// just the one instance a caller happens to hold, before reading the Exporter.
//
// A stdlib time.Ticker already drops ticks that arrive while the previous one is still
// being serviced rather than queuing them up, so the skip-missed-ticks behavior the
// buffered façades need falls directly out of using one; Start's loop only has to stop
// cleanly.
type MetricManager struct {
	mu      sync.Mutex
	metrics map[string]map[string]Metric

	startOnce sync.Once
	stop      chan struct{}
}

func NewMetricManager() *MetricManager {
	return &MetricManager{metrics: map[string]map[string]Metric{}}
}

// RegisterMetric adds metric to the set of instances registered under its name,
// replacing any previously registered instance with the same id.
func (m *MetricManager) RegisterMetric(metric Metric) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byName, ok := m.metrics[metric.Name()]
	if !ok {
		byName = map[string]Metric{}
		m.metrics[metric.Name()] = byName
	}
	byName[metric.ID()] = metric
}

func (m *MetricManager) UnregisterMetric(metric Metric) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byName, ok := m.metrics[metric.Name()]
	if !ok {
		return
	}
	delete(byName, metric.ID())
	if len(byName) == 0 {
		delete(m.metrics, metric.Name())
	}
}

// Start launches the background flush loop, if it isn't already running. Safe to call
// more than once; only the first call has any effect.
func (m *MetricManager) Start() {
	m.startOnce.Do(func() {
		m.stop = make(chan struct{})
		go m.run()
	})
}

// Stop terminates the background flush loop. MetricManager cannot be restarted after
// Stop; construct a new one instead.
func (m *MetricManager) Stop() {
	if m.stop != nil {
		close(m.stop)
	}
}

func (m *MetricManager) run() {
	ticker := time.NewTicker(FlushPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.FlushAll()
		case <-m.stop:
			return
		}
	}
}

// FlushAll flushes every registered metric immediately, across every name. Exposed for
// tests and for callers that want a deterministic flush point instead of waiting on
// FlushPeriod.
func (m *MetricManager) FlushAll() {
	for _, metric := range m.snapshot("") {
		metric.flush()
	}
}

// snapshot returns the metrics registered under name, or every registered metric if name
// is empty, without holding the lock while they flush.
func (m *MetricManager) snapshot(name string) []Metric {
	m.mu.Lock()
	defer m.mu.Unlock()
	if name != "" {
		byName := m.metrics[name]
		metrics := make([]Metric, 0, len(byName))
		for _, metric := range byName {
			metrics = append(metrics, metric)
		}
		return metrics
	}
	var metrics []Metric
	for _, byName := range m.metrics {
		for _, metric := range byName {
			metrics = append(metrics, metric)
		}
	}
	return metrics
}

// GetInt flushes every buffered instance registered under metricName and then reads the
// resulting value from exporter, so the result reflects every sibling instance's pending
// writes, not just one caller's.
func (m *MetricManager) GetInt(exporter *tsz.Exporter, entityLabels tsz.FieldMap, metricName string, metricFields tsz.FieldMap) (int64, bool) {
	for _, metric := range m.snapshot(metricName) {
		metric.flush()
	}
	return exporter.GetInt(entityLabels, metricName, metricFields)
}

// GetDistribution flushes every buffered instance registered under metricName and then
// reads the resulting value from exporter, so the result reflects every sibling
// instance's pending writes, not just one caller's.
func (m *MetricManager) GetDistribution(exporter *tsz.Exporter, entityLabels tsz.FieldMap, metricName string, metricFields tsz.FieldMap) (*tsz.Distribution, bool) {
	for _, metric := range m.snapshot(metricName) {
		metric.flush()
	}
	return exporter.GetDistribution(entityLabels, metricName, metricFields)
}

var (
	defaultManagerOnce sync.Once
	defaultManager     *MetricManager
)

// DefaultMetricManager returns the process-wide singleton MetricManager that buffered
// façades register against by default, starting its flush loop on first use.
func DefaultMetricManager() *MetricManager {
	defaultManagerOnce.Do(func() {
		defaultManager = NewMetricManager()
		defaultManager.Start()
	})
	return defaultManager
}
