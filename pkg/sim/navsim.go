package sim

import (
	"context"
	"sync"
	"time"

	"github.com/roverops/sentinel/pkg/geo"
	"github.com/roverops/sentinel/pkg/nav"
)

// NavService is a simulated motion server implementing nav.Service. Each
// goal drives the shared pose cell toward the target at a fixed speed and
// streams the remaining distance as feedback.
type NavService struct {
	poses *nav.PoseCell

	// Speed is distance covered per step.
	Speed float64

	// Step is the simulation step interval.
	Step time.Duration

	mu       sync.Mutex
	readyErr error
}

// NewNavService creates a service moving the given pose cell.
func NewNavService(poses *nav.PoseCell, speed float64, step time.Duration) *NavService {
	return &NavService{poses: poses, Speed: speed, Step: step}
}

// SetReadyError scripts the readiness answer; nil restores serving.
func (s *NavService) SetReadyError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readyErr = err
}

// Ready implements nav.Service.
func (s *NavService) Ready(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readyErr
}

// SendGoal implements nav.Service.
func (s *NavService) SendGoal(ctx context.Context, target geo.Pose) (nav.GoalHandle, error) {
	g := &simGoal{
		feedback: make(chan float64, 16),
		done:     make(chan error, 1),
	}
	go s.drive(context.WithoutCancel(ctx), target, g)
	return g, nil
}

func (s *NavService) drive(ctx context.Context, target geo.Pose, g *simGoal) {
	defer close(g.feedback)

	ticker := time.NewTicker(s.Step)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.done <- ctx.Err()
			return
		case <-ticker.C:
		}

		current, ok := s.poses.Latest()
		if !ok {
			continue
		}
		remaining := geo.Distance(current, target)
		if remaining <= s.Speed {
			s.poses.Update(target)
			g.feed(0)
			g.done <- nil
			return
		}

		// One step along the straight line to the target.
		frac := s.Speed / remaining
		next := geo.Pose{
			Position: geo.Point{
				X: current.Position.X + (target.Position.X-current.Position.X)*frac,
				Y: current.Position.Y + (target.Position.Y-current.Position.Y)*frac,
				Z: current.Position.Z,
			},
			Orientation: target.Orientation,
		}
		s.poses.Update(next)
		g.feed(remaining - s.Speed)
	}
}

type simGoal struct {
	feedback chan float64
	done     chan error
}

func (g *simGoal) Feedback() <-chan float64 { return g.feedback }
func (g *simGoal) Done() <-chan error       { return g.done }

// feed publishes without blocking; a slow consumer just misses samples.
func (g *simGoal) feed(remaining float64) {
	select {
	case g.feedback <- remaining:
	default:
	}
}
