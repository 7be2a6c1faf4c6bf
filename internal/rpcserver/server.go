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
	"context"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/tsdb2/tsz/internal/log"
)

// Server hosts the process's gRPC listener. The transport and the standard health
// service are real, un-stubbed uses of google.golang.org/grpc; the domain-specific
// collection and config RPCs ride alongside it as plain Go interfaces (CollectionHandler,
// ConfigService) rather than generated service stubs, since no .proto schema or protoc
// invocation is available here (see package doc).
type Server struct {
	listener     net.Listener
	grpcServer   *grpc.Server
	healthServer *health.Server
	logger       log.StructuredLogger

	Collection CollectionHandler
	Config     ConfigService
}

// NewServer binds address and constructs the gRPC server, registering the health
// service and marking the process serving immediately (there is no dependency this
// process needs to wait on before it can serve).
func NewServer(address string, collection CollectionHandler, config ConfigService, logger log.StructuredLogger) (*Server, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listen on %q: %w", address, err)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	return &Server{
		listener:     listener,
		grpcServer:   grpcServer,
		healthServer: healthServer,
		logger:       logger,
		Collection:   collection,
		Config:       config,
	}, nil
}

// Addr returns the address the listener is bound to, useful when address was "[::]:0".
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Serve blocks accepting connections until ctx is canceled, at which point it stops
// accepting new work, marks the health service NOT_SERVING, and gracefully drains
// in-flight RPCs.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case err := <-errCh:
		if s.logger != nil {
			s.logger.Errorf("grpc server exited: %s", err)
		}
		return err
	case <-ctx.Done():
		if s.logger != nil {
			s.logger.Infof("shutting down, draining in-flight RPCs")
		}
		s.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		s.grpcServer.GracefulStop()
		<-errCh
		return ctx.Err()
	}
}

// WaitHealthy dials address and polls the standard health-checking RPC until it
// reports SERVING, retrying with exponential backoff, which confirms the listener is
// actually accepting connections.
func WaitHealthy(ctx context.Context, address string) error {
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %q: %w", address, err)
	}
	defer conn.Close()

	client := grpc_health_v1.NewHealthClient(conn)
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = 10 * time.Second
	policy := backoff.WithContext(expBackoff, ctx)

	return backoff.Retry(func() error {
		resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
		if err != nil {
			return err
		}
		if resp.Status != grpc_health_v1.HealthCheckResponse_SERVING {
			return fmt.Errorf("health check reported status %v", resp.Status)
		}
		return nil
	}, policy)
}
