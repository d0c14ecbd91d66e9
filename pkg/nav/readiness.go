package nav

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/roverops/sentinel/pkg/errors"
	"github.com/roverops/sentinel/pkg/resilience"
)

// HealthProbe reports navigation-server readiness through the standard gRPC
// health-checking protocol.
type HealthProbe struct {
	target  string
	service string
	opts    []grpc.DialOption
	conn    *grpc.ClientConn
	client  healthpb.HealthClient
}

// ProbeOption configures the HealthProbe.
type ProbeOption func(*HealthProbe)

// WithDialOptions adds custom gRPC dial options.
func WithDialOptions(opts ...grpc.DialOption) ProbeOption {
	return func(p *HealthProbe) {
		p.opts = append(p.opts, opts...)
	}
}

// WithInsecure uses a plaintext connection (for development).
func WithInsecure() ProbeOption {
	return func(p *HealthProbe) {
		p.opts = append(p.opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
}

// WithService checks a named service instead of the server-wide status.
func WithService(name string) ProbeOption {
	return func(p *HealthProbe) {
		p.service = name
	}
}

// NewHealthProbe creates a probe for the given target. The connection is
// established lazily on the first check.
func NewHealthProbe(target string, opts ...ProbeOption) (*HealthProbe, error) {
	p := &HealthProbe{
		target: target,
		opts:   []grpc.DialOption{},
	}
	for _, opt := range opts {
		opt(p)
	}

	conn, err := grpc.NewClient(target, p.opts...)
	if err != nil {
		return nil, errors.New(errors.CodeNavUnavailable, "creating health-check client", err).
			WithContext("target", target)
	}
	p.conn = conn
	p.client = healthpb.NewHealthClient(conn)
	return p, nil
}

// Ready performs one health check. Anything other than SERVING is a
// recoverable NAV_UNAVAILABLE; the caller decides how long to keep trying.
func (p *HealthProbe) Ready(ctx context.Context) error {
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{Service: p.service})
	if err != nil {
		return errors.New(errors.CodeNavUnavailable, "health check failed", err).
			WithContext("target", p.target).
			WithRecoverable(true)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return errors.New(errors.CodeNavUnavailable, "server not serving", nil).
			WithContext("target", p.target).
			WithContext("status", resp.GetStatus().String()).
			WithRecoverable(true)
	}
	return nil
}

// Await blocks until the server reports SERVING or the retry budget runs out.
// Intended for startup, before the tick loops begin.
func (p *HealthProbe) Await(ctx context.Context, rc resilience.RetryConfig) error {
	return rc.Do(ctx, func() error { return p.Ready(ctx) })
}

// Close releases the underlying connection.
func (p *HealthProbe) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
