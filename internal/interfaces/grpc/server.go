// Package grpc exposes the standard gRPC health service for ContractLens
// processes. Serving status follows the readiness probes of the configured
// backends, so orchestrators can use grpc_health_probe instead of HTTP.
package grpc

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"

	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
)

// ServiceName is the health service key covering the whole process. The
// empty name reports the same status.
const ServiceName = "contractlens.Analysis"

const (
	defaultProbeInterval   = 15 * time.Second
	defaultProbeTimeout    = 5 * time.Second
	defaultGracefulTimeout = 10 * time.Second
)

var defaultKeepaliveParams = keepalive.ServerParameters{
	MaxConnectionIdle: 15 * time.Minute,
	Time:              5 * time.Minute,
	Timeout:           1 * time.Second,
}

// HealthChecker is one readiness probe. app.Probe implements it.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// Option configures the Server.
type Option func(*serverOptions)

type serverOptions struct {
	logger          logging.Logger
	probeInterval   time.Duration
	probeTimeout    time.Duration
	gracefulTimeout time.Duration
}

func WithLogger(l logging.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithProbeInterval sets how often the checkers are re-run.
func WithProbeInterval(d time.Duration) Option {
	return func(o *serverOptions) {
		if d > 0 {
			o.probeInterval = d
		}
	}
}

func WithProbeTimeout(d time.Duration) Option {
	return func(o *serverOptions) {
		if d > 0 {
			o.probeTimeout = d
		}
	}
}

func WithGracefulTimeout(d time.Duration) Option {
	return func(o *serverOptions) {
		if d > 0 {
			o.gracefulTimeout = d
		}
	}
}

// Server serves grpc.health.v1.Health. Every checker gets its own service
// entry under its Name; ServiceName and "" are SERVING only when all pass.
type Server struct {
	grpcServer   *grpc.Server
	healthServer *health.Server
	checkers     []HealthChecker
	opts         *serverOptions

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}
}

// NewServer builds the server. Nothing is probed or served until Serve.
func NewServer(checkers []HealthChecker, opts ...Option) *Server {
	sopts := &serverOptions{
		logger:          logging.NewNopLogger(),
		probeInterval:   defaultProbeInterval,
		probeTimeout:    defaultProbeTimeout,
		gracefulTimeout: defaultGracefulTimeout,
	}
	for _, o := range opts {
		o(sopts)
	}

	gs := grpc.NewServer(
		grpc.KeepaliveParams(defaultKeepaliveParams),
		grpc.ChainUnaryInterceptor(
			recoveryUnaryInterceptor(sopts.logger),
			loggingUnaryInterceptor(sopts.logger),
		),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	// NOT_SERVING until the first probe round completes.
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{
		grpcServer:   gs,
		healthServer: hs,
		checkers:     checkers,
		opts:         sopts,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Serve runs the probe loop and serves on ln until Stop. It blocks.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("grpc health server already started")
	}
	s.started = true
	s.mu.Unlock()

	s.probe(context.Background())
	go s.probeLoop()

	s.opts.logger.Info("grpc health server listening", logging.String("address", ln.Addr().String()))
	err := s.grpcServer.Serve(ln)
	if err == grpc.ErrServerStopped {
		return nil
	}
	return err
}

// ListenAndServe listens on port and calls Serve.
func (s *Server) ListenAndServe(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("grpc health: listen on port %d: %w", port, err)
	}
	return s.Serve(ln)
}

func (s *Server) probeLoop() {
	defer close(s.done)
	ticker := time.NewTicker(s.opts.probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.probe(context.Background())
		}
	}
}

// probe runs every checker and publishes the results.
func (s *Server) probe(ctx context.Context) {
	overall := healthpb.HealthCheckResponse_SERVING
	for _, c := range s.checkers {
		cctx, cancel := context.WithTimeout(ctx, s.opts.probeTimeout)
		err := c.Check(cctx)
		cancel()

		st := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			overall = st
			s.opts.logger.Warn("readiness probe failed",
				logging.String("component", c.Name()),
				logging.Err(err))
		}
		s.healthServer.SetServingStatus(c.Name(), st)
	}
	s.healthServer.SetServingStatus("", overall)
	s.healthServer.SetServingStatus(ServiceName, overall)
}

// Stop marks everything NOT_SERVING, stops probing and drains connections.
// A drain that outlives the graceful timeout or ctx is cut short.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	s.healthServer.Shutdown()
	close(s.stop)
	<-s.done

	gctx, cancel := context.WithTimeout(ctx, s.opts.gracefulTimeout)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
		s.opts.logger.Info("grpc health server stopped")
	case <-gctx.Done():
		s.opts.logger.Warn("grpc graceful stop timed out, forcing stop")
		s.grpcServer.Stop()
	}
	return nil
}

func recoveryUnaryInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("grpc panic recovered",
					logging.String("method", info.FullMethod),
					logging.String("panic", fmt.Sprintf("%v", r)),
					logging.String("stack", string(debug.Stack())))
				err = status.Errorf(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

func isHealthCheck(method string) bool {
	return strings.HasPrefix(method, "/grpc.health.v1.Health/")
}

// loggingUnaryInterceptor logs every call except health checks, which
// probes issue every few seconds.
func loggingUnaryInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if isHealthCheck(info.FullMethod) {
			return handler(ctx, req)
		}
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc request",
			logging.String("method", info.FullMethod),
			logging.Int64("duration_ms", time.Since(start).Milliseconds()),
			logging.String("code", status.Code(err).String()))
		return resp, err
	}
}

//Personal.AI order the ending
