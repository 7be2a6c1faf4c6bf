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

// Package rpcserver exposes tsz.Exporter over a network boundary: a real gRPC listener
// carrying the standard health-checking service, plus the domain-specific collection
// and configuration RPCs as plain Go interfaces backed directly by an Exporter and an
// in-memory ModuleStore. Generating real tsz/tsdb2 protobuf service stubs would require
// protoc and a .proto schema neither of which are available here, so the domain RPCs
// are modeled as Go interfaces rather than fabricated generated code; see DESIGN.md.
package rpcserver

import (
	"fmt"

	"github.com/tsdb2/tsz/internal/tsz"
)

// MetricSpec is the wire-shaped description of a metric definition, as carried by
// DefineMetrics/ForceDefineMetrics/ReadSchedules and by a stored Module's metric list.
type MetricSpec struct {
	Name   string `validate:"required"`
	Config tsz.MetricConfig
}

// MetricWrite is one metric write applied to an entity by WriteEntity.
type MetricWrite struct {
	MetricName   string
	MetricFields tsz.FieldMap
	Value        tsz.Value
}

// CollectionHandler is the domain RPC surface a TimeSeriesService (the collection side
// of the original tsz_collection_server.TszCollection service) exposes: defining
// metrics, writing values into an entity, listing known metric schedules, and
// announcing a target entity ahead of its first write.
type CollectionHandler interface {
	DefineMetrics(specs []MetricSpec) error
	WriteEntity(entityLabels tsz.FieldMap, writes []MetricWrite) error
	ReadSchedules() []MetricSpec
	WriteTarget(entityLabels tsz.FieldMap) error
}

// ExporterCollectionHandler is the production CollectionHandler, backed directly by a
// tsz.Exporter.
type ExporterCollectionHandler struct {
	exporter *tsz.Exporter
	store    *ModuleStore
}

func NewExporterCollectionHandler(exporter *tsz.Exporter) *ExporterCollectionHandler {
	return &ExporterCollectionHandler{exporter: exporter}
}

// DefineMetrics registers every spec, stopping at (and returning) the first conflict.
// Metrics already registered with an identical config are left alone.
func (h *ExporterCollectionHandler) DefineMetrics(specs []MetricSpec) error {
	for _, spec := range specs {
		if err := h.exporter.DefineMetric(spec.Name, spec.Config); err != nil {
			return fmt.Errorf("define metric %q: %w", spec.Name, err)
		}
	}
	return nil
}

// WriteEntity applies every write to the same entity. A metric name absent from the
// registry is still accepted: the Exporter creates cells lazily, matching the rest of
// tsz's write-path behavior.
func (h *ExporterCollectionHandler) WriteEntity(entityLabels tsz.FieldMap, writes []MetricWrite) error {
	for _, w := range writes {
		h.exporter.SetValue(entityLabels, w.MetricName, w.Value, w.MetricFields)
	}
	return nil
}

// ReadSchedules has no equivalent exporter-wide registry query yet (the registry lives
// inside tsz.Exporter, unexported); this handler answers from its own ModuleStore view
// instead, attached via SetStore.
func (h *ExporterCollectionHandler) ReadSchedules() []MetricSpec {
	if h.store == nil {
		return nil
	}
	return h.store.AllMetricSpecs()
}

// SetStore attaches the ModuleStore ReadSchedules answers from. It is separate from the
// constructor; cmd/tszd/main.go calls it right after constructing the handler.
func (h *ExporterCollectionHandler) SetStore(store *ModuleStore) {
	h.store = store
}

// WriteTarget ensures entityLabels exists as a pinned-then-released entity so that a
// discovery-time "this target exists" announcement shows up even before its first
// metric write. The empty entity stays in the Exporter until it is deleted (see
// Exporter.Touch).
func (h *ExporterCollectionHandler) WriteTarget(entityLabels tsz.FieldMap) error {
	h.exporter.Touch(entityLabels)
	return nil
}
