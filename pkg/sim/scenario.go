package sim

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roverops/sentinel/pkg/plan"
	"github.com/roverops/sentinel/pkg/signal"
)

// Duration is a yaml-decodable time.Duration ("2s", "150ms").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// ActionScript is one grounded action of a scripted plan. Do holds the
// grounded form, e.g. "move r2d2 wp_control wp1".
type ActionScript struct {
	Do       string   `yaml:"do"`
	Duration Duration `yaml:"duration"`
}

// PlanScript is one scripted planner response.
type PlanScript struct {
	Infeasible bool           `yaml:"infeasible"`
	Actions    []ActionScript `yaml:"actions"`
}

// SignalScript delivers a selector value to the latch after a delay.
type SignalScript struct {
	Value int      `yaml:"value"`
	After Duration `yaml:"after"`
}

// Scenario is a full scripted mission: the planner's answers in request
// order plus the selector signal timeline.
type Scenario struct {
	Name   string       `yaml:"name"`
	Signal SignalScript `yaml:"signal"`
	Plans  []PlanScript `yaml:"plans"`
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if len(s.Plans) == 0 {
		return nil, fmt.Errorf("scenario %q has no plans", s.Name)
	}
	return &s, nil
}

// Planner builds the scripted planner for this scenario.
func (s *Scenario) Planner() *ScriptedPlanner {
	responses := make([]PlannedResponse, 0, len(s.Plans))
	for _, script := range s.Plans {
		if script.Infeasible {
			responses = append(responses, PlannedResponse{})
			continue
		}
		actions := make([]plan.Action, 0, len(script.Actions))
		for _, a := range script.Actions {
			fields := strings.Fields(a.Do)
			if len(fields) == 0 {
				continue
			}
			actions = append(actions, plan.Action{
				Name:     fields[0],
				Args:     fields[1:],
				Duration: time.Duration(a.Duration),
			})
		}
		responses = append(responses, PlannedResponse{Plan: plan.NewPlan(actions)})
	}
	return NewScriptedPlanner(responses...)
}

// PlaySignal delivers the scripted selector value after its delay. Blocks
// until delivered or the context is canceled.
func (s *Scenario) PlaySignal(ctx context.Context, latch *signal.Latch) {
	timer := time.NewTimer(time.Duration(s.Signal.After))
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
		latch.Update(s.Signal.Value)
	}
}

// DefaultScenario is the canonical patrol-and-return mission against the
// default waypoint table: patrol wp1..wp4 from wp_control, then return to
// the waypoint selected by signal value 0 (wp1).
func DefaultScenario() *Scenario {
	move := func(from, to string) ActionScript {
		return ActionScript{Do: "move r2d2 " + from + " " + to}
	}
	patrol := func(wp string) ActionScript {
		return ActionScript{Do: "patrol " + wp, Duration: Duration(500 * time.Millisecond)}
	}
	return &Scenario{
		Name:   "patrol-default",
		Signal: SignalScript{Value: 0, After: Duration(2 * time.Second)},
		Plans: []PlanScript{
			{Actions: []ActionScript{
				move("wp_control", "wp1"), patrol("wp1"),
				move("wp1", "wp2"), patrol("wp2"),
				move("wp2", "wp3"), patrol("wp3"),
				move("wp3", "wp4"), patrol("wp4"),
			}},
			{Actions: []ActionScript{
				move("wp4", "wp1"),
			}},
		},
	}
}
