// Package health aggregates dependency checks and serves them over HTTP and
// the gRPC health protocol.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

type Check func(ctx context.Context) error

type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (r Report) Healthy() bool {
	return r.Status == StatusOK
}

type dependency struct {
	name  string
	check Check
}

// Checker runs the registered checks. The last result is mirrored into the
// gRPC health server for the empty service name.
type Checker struct {
	mu      sync.RWMutex
	deps    []dependency
	timeout time.Duration
	server  *health.Server
	logger  *slog.Logger
}

func NewChecker(timeout time.Duration, logger *slog.Logger) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{
		timeout: timeout,
		server:  health.NewServer(),
		logger:  logger,
	}
}

func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deps = append(c.deps, dependency{name: name, check: check})
}

// Check runs every dependency check concurrently, each bounded by the
// checker timeout.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.RLock()
	deps := make([]dependency, len(c.deps))
	copy(deps, c.deps)
	c.mu.RUnlock()

	report := Report{Status: StatusOK, Checks: make(map[string]string, len(deps))}
	var mu sync.Mutex
	var g errgroup.Group
	for _, p := range deps {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			result := StatusOK
			if err := p.check(pctx); err != nil {
				result = err.Error()
			}

			mu.Lock()
			defer mu.Unlock()
			report.Checks[p.name] = result
			if result != StatusOK {
				report.Status = StatusDegraded
			}
			return nil
		})
	}
	_ = g.Wait()

	c.publish(report)
	return report
}

func (c *Checker) publish(r Report) {
	st := healthpb.HealthCheckResponse_SERVING
	if !r.Healthy() {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	c.server.SetServingStatus("", st)
}

// Run re-checks on every tick until ctx is cancelled.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := ""
	for {
		report := c.Check(ctx)
		if report.Status != prev {
			c.logger.InfoContext(ctx, "health status changed",
				slog.String("status", report.Status),
				slog.Any("checks", report.Checks))
			prev = report.Status
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			c.server.Shutdown()
			return
		}
	}
}

// NewGRPCServer serves grpc.health.v1.Health and reflection.
func NewGRPCServer(c *Checker) *grpc.Server {
	s := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthpb.RegisterHealthServer(s, c.server)
	reflection.Register(s)
	return s
}
