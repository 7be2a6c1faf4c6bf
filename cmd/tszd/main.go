// Copyright 2020 Google LLC
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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	tsdlog "github.com/tsdb2/tsz/internal/log"
	"github.com/tsdb2/tsz/internal/rpcserver"
	"github.com/tsdb2/tsz/internal/tsz"
)

var localAddress = flag.String("local-address", "", "the local address the server will listen on, e.g. [::1]:8080")

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.Fatalf("tszd: %s", err)
	}
}

func run() error {
	if *localAddress == "" {
		return fmt.Errorf("-local-address is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := tsdlog.Default()

	exporter := tsz.DefaultExporter()
	store := rpcserver.NewModuleStore()
	collection := rpcserver.NewExporterCollectionHandler(exporter)
	collection.SetStore(store)
	config := rpcserver.NewExporterConfigService(exporter, store)

	srv, err := rpcserver.NewServer(*localAddress, collection, config, logger)
	if err != nil {
		return err
	}

	logger.Infof("listening on %s", srv.Addr())
	return srv.Serve(ctx)
}
