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

package rpcserver

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tsdb2/tsz/internal/tsz"
)

// Module is a named bundle of metric definitions — the unit the original config
// service's GetModule/SetModule/DeleteModule RPCs operate on. Grouping metric specs into
// modules lets a deployment store or delete a whole set of related metric definitions
// in one call instead of one metric at a time.
type Module struct {
	Name    string       `validate:"required"`
	Metrics []MetricSpec `validate:"dive"`
}

var validate = validator.New()

// ModuleStore is the in-memory backing store for the ConfigService RPCs: GetModule,
// SetModule, DeleteModule, and the metric-discovery view ReadSchedules answers from.
type ModuleStore struct {
	mu      sync.RWMutex
	modules map[string]*Module
}

func NewModuleStore() *ModuleStore {
	return &ModuleStore{modules: map[string]*Module{}}
}

func (s *ModuleStore) GetModule(name string) (*Module, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.modules[name]
	return m, ok
}

// SetModule validates module and stores it, replacing any prior module of the same
// name wholesale.
func (s *ModuleStore) SetModule(module *Module) error {
	if err := validate.Struct(module); err != nil {
		return fmt.Errorf("invalid module %q: %w", module.Name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules[module.Name] = module
	return nil
}

func (s *ModuleStore) DeleteModule(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.modules[name]; !ok {
		return false
	}
	delete(s.modules, name)
	return true
}

// AllMetricSpecs flattens every module's metric specs into one slice, the view
// ExporterCollectionHandler.ReadSchedules exposes over the collection RPC surface.
func (s *ModuleStore) AllMetricSpecs() []MetricSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var specs []MetricSpec
	for _, m := range s.modules {
		specs = append(specs, m.Metrics...)
	}
	return specs
}

// ConfigService is the domain RPC surface the original config_service_server.ConfigService
// exposes: defining metrics (optionally forcing past a conflict), and managing modules.
type ConfigService interface {
	DefineMetrics(specs []MetricSpec) error
	ForceDefineMetrics(specs []MetricSpec) error
	GetModule(name string) (*Module, bool)
	SetModule(module *Module) error
	DeleteModule(name string) bool
}

// ExporterConfigService is the production ConfigService, backed by a tsz.Exporter for
// the live metric registry and a ModuleStore for module bookkeeping.
type ExporterConfigService struct {
	exporter *tsz.Exporter
	store    *ModuleStore
}

func NewExporterConfigService(exporter *tsz.Exporter, store *ModuleStore) *ExporterConfigService {
	return &ExporterConfigService{exporter: exporter, store: store}
}

// DefineMetrics registers every spec, failing on the first name already registered
// with a conflicting config.
func (s *ExporterConfigService) DefineMetrics(specs []MetricSpec) error {
	for _, spec := range specs {
		if err := s.exporter.DefineMetric(spec.Name, spec.Config); err != nil {
			return fmt.Errorf("define metric %q: %w", spec.Name, err)
		}
	}
	return nil
}

// ForceDefineMetrics registers every spec via DefineMetricRedundant, which never
// errors: an existing conflicting registration wins and the conflict is only logged by
// the Exporter.
func (s *ExporterConfigService) ForceDefineMetrics(specs []MetricSpec) error {
	for _, spec := range specs {
		s.exporter.DefineMetricRedundant(spec.Name, spec.Config)
	}
	return nil
}

func (s *ExporterConfigService) GetModule(name string) (*Module, bool) {
	return s.store.GetModule(name)
}

// SetModule stores module and immediately force-defines every metric it lists against
// the live Exporter, so a module takes effect as soon as it's set rather than only at
// next restart.
func (s *ExporterConfigService) SetModule(module *Module) error {
	if err := s.store.SetModule(module); err != nil {
		return err
	}
	return s.ForceDefineMetrics(module.Metrics)
}

func (s *ExporterConfigService) DeleteModule(name string) bool {
	return s.store.DeleteModule(name)
}
