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
	"context"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/tsdb2/tsz/internal/rpcserver"
	"github.com/tsdb2/tsz/internal/tsz"
	"github.com/tsdb2/tsz/internal/tsz/tsztest"
)

func TestServerServesHealthCheck(t *testing.T) {
	x := tsz.NewExporter(tsztest.NewMockClock(), nil)
	store := rpcserver.NewModuleStore()
	collection := rpcserver.NewExporterCollectionHandler(x)
	collection.SetStore(store)
	config := rpcserver.NewExporterConfigService(x, store)

	srv, err := rpcserver.NewServer("127.0.0.1:0", collection, config, nil)
	assert.NilError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	assert.NilError(t, rpcserver.WaitHealthy(context.Background(), srv.Addr().String()))

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}
