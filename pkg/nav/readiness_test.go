package nav

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/roverops/sentinel/pkg/errors"
	"github.com/roverops/sentinel/pkg/resilience"
)

func startHealthServer(t *testing.T, status healthpb.HealthCheckResponse_ServingStatus) *bufconn.Listener {
	t.Helper()
	hs := health.NewServer()
	hs.SetServingStatus("", status)
	return serveHealth(t, hs)
}

func serveHealth(t *testing.T, hs healthpb.HealthServer) *bufconn.Listener {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)
	return lis
}

// countingHealth always reports NOT_SERVING and counts the checks it saw.
type countingHealth struct {
	healthpb.UnimplementedHealthServer
	mu     sync.Mutex
	checks int
}

func (h *countingHealth) Check(_ context.Context, _ *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks++
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
}

func (h *countingHealth) seen() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.checks
}

func probeFor(t *testing.T, lis *bufconn.Listener) *HealthProbe {
	t.Helper()
	probe, err := NewHealthProbe("passthrough:///bufnet",
		WithInsecure(),
		WithDialOptions(grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		})),
	)
	if err != nil {
		t.Fatalf("NewHealthProbe: %v", err)
	}
	t.Cleanup(func() { probe.Close() })
	return probe
}

func TestHealthProbeServing(t *testing.T) {
	lis := startHealthServer(t, healthpb.HealthCheckResponse_SERVING)
	probe := probeFor(t, lis)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := probe.Ready(ctx); err != nil {
		t.Fatalf("Ready: %v", err)
	}
}

func TestHealthProbeNotServing(t *testing.T) {
	lis := startHealthServer(t, healthpb.HealthCheckResponse_NOT_SERVING)
	probe := probeFor(t, lis)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := probe.Ready(ctx)
	if errors.CodeOf(err) != errors.CodeNavUnavailable {
		t.Fatalf("code = %v, want NAV_UNAVAILABLE", errors.CodeOf(err))
	}
	if !errors.IsRecoverable(err) {
		t.Fatal("single failed check should stay recoverable")
	}
}

// Await must keep checking until the retry budget runs out; a probe error
// classified as unrecoverable would cut the wait short after one check.
func TestHealthProbeAwaitConsumesRetryBudget(t *testing.T) {
	hs := &countingHealth{}
	lis := serveHealth(t, hs)
	probe := probeFor(t, lis)

	rc := resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := probe.Await(ctx, rc)
	if err == nil {
		t.Fatal("Await succeeded against a non-serving server")
	}
	if errors.CodeOf(err) != errors.CodeNavUnavailable {
		t.Fatalf("code = %v, want NAV_UNAVAILABLE", errors.CodeOf(err))
	}
	if got := hs.seen(); got != 3 {
		t.Fatalf("health checks = %d, want the full budget of 3", got)
	}
}
