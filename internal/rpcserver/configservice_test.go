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

package rpcserver_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/tsdb2/tsz/internal/rpcserver"
	"github.com/tsdb2/tsz/internal/tsz"
	"github.com/tsdb2/tsz/internal/tsz/tsztest"
)

func TestModuleStoreSetGetDelete(t *testing.T) {
	store := rpcserver.NewModuleStore()
	module := &rpcserver.Module{
		Name: "core",
		Metrics: []rpcserver.MetricSpec{
			{Name: "requests", Config: tsz.MetricConfig{}},
		},
	}
	assert.NilError(t, store.SetModule(module))
	got, ok := store.GetModule("core")
	assert.Assert(t, ok)
	assert.Equal(t, got.Name, "core")

	assert.Assert(t, store.DeleteModule("core"), "DeleteModule should report the module existed")
	_, ok = store.GetModule("core")
	assert.Assert(t, !ok, "module should be gone after DeleteModule")
}

func TestModuleStoreSetModuleRejectsMissingName(t *testing.T) {
	store := rpcserver.NewModuleStore()
	assert.Assert(t, store.SetModule(&rpcserver.Module{}) != nil, "SetModule should reject a module with no name")
}

func TestExporterConfigServiceSetModuleDefinesMetrics(t *testing.T) {
	x := tsz.NewExporter(tsztest.NewMockClock(), nil)
	store := rpcserver.NewModuleStore()
	svc := rpcserver.NewExporterConfigService(x, store)

	err := svc.SetModule(&rpcserver.Module{
		Name: "core",
		Metrics: []rpcserver.MetricSpec{
			{Name: "requests", Config: tsz.MetricConfig{}.SetCumulative(true)},
		},
	})
	assert.NilError(t, err)
	config, ok := x.GetMetricConfig("requests")
	assert.Assert(t, ok)
	assert.Assert(t, config.Cumulative)
}

func TestExporterConfigServiceForceDefineMetricsKeepsOriginalOnConflict(t *testing.T) {
	x := tsz.NewExporter(tsztest.NewMockClock(), nil)
	store := rpcserver.NewModuleStore()
	svc := rpcserver.NewExporterConfigService(x, store)

	assert.NilError(t, svc.DefineMetrics([]rpcserver.MetricSpec{
		{Name: "m", Config: tsz.MetricConfig{}.SetCumulative(true)},
	}))
	// ForceDefineMetrics never errors even on conflict; the original registration wins.
	assert.NilError(t, svc.ForceDefineMetrics([]rpcserver.MetricSpec{
		{Name: "m", Config: tsz.MetricConfig{}.SetCumulative(false)},
	}))
	config, _ := x.GetMetricConfig("m")
	assert.Assert(t, config.Cumulative, "the original registration should still be in effect")
}
