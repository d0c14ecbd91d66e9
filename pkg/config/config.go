package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/roverops/sentinel/pkg/geo"
)

// Config is the full configuration for the mission core. The waypoint table
// and the selector mapping are deliberately data, not code.
type Config struct {
	Robot     RobotConfig      `koanf:"robot"`
	Mission   MissionConfig    `koanf:"mission"`
	Nav       NavConfig        `koanf:"nav"`
	Waypoints []WaypointConfig `koanf:"waypoints"`
	Audit     AuditConfig      `koanf:"audit"`
	Log       LogConfig        `koanf:"log"`
	Telemetry TelemetryConfig  `koanf:"telemetry"`
}

type RobotConfig struct {
	Name string `koanf:"name"`
}

type MissionConfig struct {
	// TickInterval is the orchestrator cadence.
	TickInterval time.Duration `koanf:"tick_interval"`

	// ControlWaypoint is where the robot starts.
	ControlWaypoint string `koanf:"control_waypoint"`

	// PatrolWaypoints is the ordered patrol route. The last entry is the
	// waypoint the patrol goal requires the robot to end at.
	PatrolWaypoints []string `koanf:"patrol_waypoints"`

	// SelectorMap maps mission selector values to return waypoints.
	// Keys are decimal integers; any unmapped value is invalid.
	SelectorMap map[string]string `koanf:"selector_map"`

	// Connections lists traversable waypoint pairs seeded into the
	// problem store, each as "from to".
	Connections []string `koanf:"connections"`

	// ReplanAttempts is the consecutive-replan-failure budget before the
	// condition is reported as fatal-class. Zero means unbounded.
	ReplanAttempts int `koanf:"replan_attempts"`
}

type NavConfig struct {
	TickInterval     time.Duration `koanf:"tick_interval"`
	ArrivalThreshold float64       `koanf:"arrival_threshold"`

	// ServerAddr is the navigation server health endpoint.
	ServerAddr string `koanf:"server_addr"`

	// ReadyTimeout bounds a single readiness attempt.
	ReadyTimeout time.Duration `koanf:"ready_timeout"`

	// ReadyAttempts bounds the total readiness attempts per goal.
	ReadyAttempts int `koanf:"ready_attempts"`
}

type WaypointConfig struct {
	ID string  `koanf:"id"`
	X  float64 `koanf:"x"`
	Y  float64 `koanf:"y"`
	Z  float64 `koanf:"z"`
	QX float64 `koanf:"qx"`
	QY float64 `koanf:"qy"`
	QZ float64 `koanf:"qz"`
	QW float64 `koanf:"qw"`
}

type AuditConfig struct {
	// Store selects the audit backend: memory, sqlite.
	Store string `koanf:"store"`
	Path  string `koanf:"path"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

// Load builds the configuration from defaults, an optional YAML file, and
// SENTINEL_-prefixed environment variables, in that precedence order.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("robot.name", "r2d2")
	k.Set("mission.tick_interval", "200ms")
	k.Set("mission.control_waypoint", "wp_control")
	k.Set("mission.replan_attempts", 10)
	k.Set("nav.tick_interval", "100ms")
	k.Set("nav.arrival_threshold", 0.3)
	k.Set("nav.server_addr", "localhost:7050")
	k.Set("nav.ready_timeout", "5s")
	k.Set("nav.ready_attempts", 5)
	k.Set("audit.store", "memory")
	k.Set("audit.path", "sentinel_audit.db")
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("telemetry.exporter", "stdout")

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV (SENTINEL_NAV_SERVER_ADDR -> nav.server_addr)
	if err := k.Load(env.Provider("SENTINEL_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "SENTINEL_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// List and map defaults cannot go through k.Set without shadowing
	// file-provided values, so they are filled in only when absent.
	if len(cfg.Waypoints) == 0 {
		cfg.Waypoints = defaultWaypoints()
	}
	if len(cfg.Mission.PatrolWaypoints) == 0 {
		cfg.Mission.PatrolWaypoints = []string{"wp1", "wp2", "wp3", "wp4"}
	}
	if len(cfg.Mission.SelectorMap) == 0 {
		cfg.Mission.SelectorMap = map[string]string{
			"0": "wp1", "1": "wp2", "2": "wp3", "3": "wp4",
		}
	}
	if len(cfg.Mission.Connections) == 0 {
		cfg.Mission.Connections = []string{
			"wp_control wp1",
			"wp1 wp2",
			"wp2 wp3",
			"wp3 wp4",
			"wp4 wp1",
			"wp4 wp3",
			"wp3 wp2",
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	ids := make(map[string]bool, len(c.Waypoints))
	for _, wp := range c.Waypoints {
		if wp.ID == "" {
			return fmt.Errorf("waypoint entry missing id")
		}
		if ids[wp.ID] {
			return fmt.Errorf("duplicate waypoint id %q", wp.ID)
		}
		ids[wp.ID] = true
	}
	for _, id := range c.Mission.PatrolWaypoints {
		if !ids[id] {
			return fmt.Errorf("patrol waypoint %q not in waypoint table", id)
		}
	}
	if !ids[c.Mission.ControlWaypoint] {
		return fmt.Errorf("control waypoint %q not in waypoint table", c.Mission.ControlWaypoint)
	}
	for value, id := range c.Mission.SelectorMap {
		if !ids[id] {
			return fmt.Errorf("selector %s maps to unknown waypoint %q", value, id)
		}
	}
	if c.Nav.ArrivalThreshold <= 0 {
		return fmt.Errorf("nav.arrival_threshold must be positive")
	}
	return nil
}

// WaypointPoses converts the waypoint table into poses keyed by id.
func (c *Config) WaypointPoses() map[string]geo.Pose {
	poses := make(map[string]geo.Pose, len(c.Waypoints))
	for _, wp := range c.Waypoints {
		orientation := geo.Quaternion{X: wp.QX, Y: wp.QY, Z: wp.QZ, W: wp.QW}
		if orientation == (geo.Quaternion{}) {
			orientation = geo.Identity()
		}
		poses[wp.ID] = geo.Pose{
			Position:    geo.Point{X: wp.X, Y: wp.Y, Z: wp.Z},
			Orientation: orientation,
		}
	}
	return poses
}

// SelectorTable converts the selector map into integer keys.
func (c *Config) SelectorTable() (map[int]string, error) {
	table := make(map[int]string, len(c.Mission.SelectorMap))
	for raw, id := range c.Mission.SelectorMap {
		var value int
		if _, err := fmt.Sscanf(raw, "%d", &value); err != nil {
			return nil, fmt.Errorf("selector key %q is not an integer", raw)
		}
		table[value] = id
	}
	return table, nil
}

// ConnectionPairs parses the connection list into from/to pairs.
func (c *Config) ConnectionPairs() ([][2]string, error) {
	pairs := make([][2]string, 0, len(c.Mission.Connections))
	for _, conn := range c.Mission.Connections {
		fields := strings.Fields(conn)
		if len(fields) != 2 {
			return nil, fmt.Errorf("connection %q must be \"from to\"", conn)
		}
		pairs = append(pairs, [2]string{fields[0], fields[1]})
	}
	return pairs, nil
}

func defaultWaypoints() []WaypointConfig {
	return []WaypointConfig{
		{ID: "wp1", X: 6.0, Y: 2.0, QW: 1},
		{ID: "wp2", X: 7.0, Y: -5.0, QW: 1},
		{ID: "wp3", X: -3.0, Y: -8.0, QW: 1},
		{ID: "wp4", X: -7.0, Y: 1.5, QW: 1},
		{ID: "wp_control", X: 2.0, Y: 2.0, QW: 1},
	}
}
