// Package server runs the gRPC and HTTP listeners of `skopos serve`.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/unitexe/skopos/internal/httpapi"
	"github.com/unitexe/skopos/internal/rpc"
	"github.com/unitexe/skopos/internal/service"
)

type Options struct {
	GRPCAddr         string
	MaxRecvMsgSizeMb int
	// HTTPAddr is empty when the HTTP surface is disabled
	HTTPAddr        string
	ShutdownTimeout time.Duration
	Metrics         http.Handler
	Debug           bool
}

type Server struct {
	opts       Options
	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server
}

// New wires ops into a gRPC server (with the health service) and, when
// enabled, an HTTP server accepting both HTTP/1 and h2c.
func New(ops service.Operations, opts Options) *Server {
	serverOptions := []grpc.ServerOption{
		grpc.UnaryInterceptor(rpc.LoggingInterceptor()),
	}
	if opts.MaxRecvMsgSizeMb > 0 {
		serverOptions = append(serverOptions, grpc.MaxRecvMsgSize(opts.MaxRecvMsgSizeMb*1024*1024))
	}

	s := &Server{
		opts:       opts,
		grpcServer: grpc.NewServer(serverOptions...),
		health:     health.NewServer(),
	}
	rpc.Register(s.grpcServer, ops)
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_SERVING)

	if opts.HTTPAddr != "" {
		e := httpapi.New(ops, httpapi.Options{Metrics: opts.Metrics, Debug: opts.Debug})
		s.httpServer = &http.Server{
			Addr:              opts.HTTPAddr,
			Handler:           h2c.NewHandler(e, &http2.Server{}),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return s
}

// Run listens on the configured addresses and blocks until ctx is canceled
// or a listener fails, then shuts everything down gracefully.
func (s *Server) Run(ctx context.Context) error {
	grpcLis, err := net.Listen("tcp", s.opts.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.GRPCAddr, err)
	}
	var httpLis net.Listener
	if s.httpServer != nil {
		httpLis, err = net.Listen("tcp", s.opts.HTTPAddr)
		if err != nil {
			grpcLis.Close()
			return fmt.Errorf("failed to listen on %s: %w", s.opts.HTTPAddr, err)
		}
	}
	return s.Serve(ctx, grpcLis, httpLis)
}

// Serve runs on caller-provided listeners. httpLis may be nil.
func (s *Server) Serve(ctx context.Context, grpcLis, httpLis net.Listener) error {
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		log.Info().Str("addr", grpcLis.Addr().String()).Msg("grpc server running")
		if err := s.grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	if s.httpServer != nil && httpLis != nil {
		eg.Go(func() error {
			log.Info().Str("addr", httpLis.Addr().String()).Msg("http server running")
			if err := s.httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
	}

	eg.Go(func() error {
		<-egCtx.Done()
		log.Info().Msg("shutting down")
		return s.shutdown()
	})

	return eg.Wait()
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	s.health.Shutdown()
	eg, ctx := errgroup.WithContext(ctx)

	if s.httpServer != nil {
		eg.Go(func() error {
			return s.httpServer.Shutdown(ctx)
		})
	}

	eg.Go(func() error {
		done := make(chan struct{})
		go func() {
			s.grpcServer.GracefulStop()
			close(done)
		}()

		select {
		case <-ctx.Done():
			s.grpcServer.Stop()
			return ctx.Err()
		case <-done:
			return nil
		}
	})

	return eg.Wait()
}
