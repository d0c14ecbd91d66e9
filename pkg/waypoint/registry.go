// Package waypoint maps symbolic waypoint identifiers to physical poses.
package waypoint

import (
	"sort"

	"github.com/roverops/sentinel/pkg/errors"
	"github.com/roverops/sentinel/pkg/geo"
)

// Registry is a read-only symbolic-id to pose table. It feeds navigation
// goals, so an unknown id is a loud error, never a default pose.
type Registry struct {
	poses map[string]geo.Pose
}

// NewRegistry builds a registry from the configured waypoint table.
func NewRegistry(poses map[string]geo.Pose) (*Registry, error) {
	if len(poses) == 0 {
		return nil, errors.New(errors.CodeWaypointNotFound, "waypoint table is empty", nil)
	}
	copied := make(map[string]geo.Pose, len(poses))
	for id, pose := range poses {
		copied[id] = pose
	}
	return &Registry{poses: copied}, nil
}

// Lookup resolves a waypoint id to its pose.
func (r *Registry) Lookup(id string) (geo.Pose, error) {
	pose, ok := r.poses[id]
	if !ok {
		return geo.Pose{}, errors.New(errors.CodeWaypointNotFound, "unknown waypoint", nil).
			WithContext("waypoint", id)
	}
	return pose, nil
}

// IDs returns the registered waypoint ids in stable order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.poses))
	for id := range r.poses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
