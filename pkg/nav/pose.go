package nav

import (
	"sync/atomic"

	"github.com/roverops/sentinel/pkg/geo"
)

// PoseCell holds the most recent robot pose. Updates arrive from the pose
// feed's callback context and reads happen on the adapter's tick goroutine,
// so the crossing is a single atomic pointer swap; no filtering, no
// buffering.
type PoseCell struct {
	v atomic.Pointer[geo.Pose]
}

// Update stores the latest observed pose.
func (c *PoseCell) Update(pose geo.Pose) {
	c.v.Store(&pose)
}

// Latest returns the most recent pose and whether one has been observed.
func (c *PoseCell) Latest() (geo.Pose, bool) {
	p := c.v.Load()
	if p == nil {
		return geo.Pose{}, false
	}
	return *p, true
}
