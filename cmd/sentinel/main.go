// Command sentinel runs the patrol mission core against simulated
// collaborators: a scripted planner, a sequential action executor, and a
// straight-line navigation service driving the robot pose.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/roverops/sentinel/pkg/audit"
	"github.com/roverops/sentinel/pkg/config"
	"github.com/roverops/sentinel/pkg/knowledge"
	"github.com/roverops/sentinel/pkg/mission"
	"github.com/roverops/sentinel/pkg/nav"
	"github.com/roverops/sentinel/pkg/plan"
	"github.com/roverops/sentinel/pkg/resilience"
	sig "github.com/roverops/sentinel/pkg/signal"
	"github.com/roverops/sentinel/pkg/sim"
	"github.com/roverops/sentinel/pkg/telemetry"
	"github.com/roverops/sentinel/pkg/waypoint"
)

var version = "dev"

// patrolDomain is the planning domain handed to the planner with every
// request. The scripted planner ignores it; a real planner would not.
const patrolDomain = `(define (domain patrol)
  (:types robot waypoint)
  (:predicates
    (robot_at ?r - robot ?wp - waypoint)
    (connected ?from ?to - waypoint)
    (patrolled ?wp - waypoint))
  (:action move ...)
  (:action patrol ...))`

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sentinel:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML configuration")
	scenarioPath := flag.String("scenario", "", "path to YAML mission scenario (default: built-in patrol)")
	checkNav := flag.Bool("check-nav", false, "require the nav.server_addr health endpoint to report serving before starting")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("sentinel", version)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	shutdown, err := telemetry.Init("sentinel", version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	metrics, err := telemetry.NewMissionMetrics()
	if err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}

	store, closeStore, err := openAuditStore(cfg)
	if err != nil {
		return fmt.Errorf("opening audit store: %w", err)
	}
	defer closeStore()

	if *checkNav {
		if err := awaitNavServer(ctx, cfg, logger); err != nil {
			return err
		}
	}

	scenario, err := loadScenario(*scenarioPath)
	if err != nil {
		return err
	}
	logger.Info("mission scenario loaded", "scenario", scenario.Name)

	registry, err := waypoint.NewRegistry(cfg.WaypointPoses())
	if err != nil {
		return fmt.Errorf("building waypoint registry: %w", err)
	}
	logger.Info("waypoint table loaded", "waypoints", registry.IDs())
	table, err := cfg.SelectorTable()
	if err != nil {
		return fmt.Errorf("parsing selector map: %w", err)
	}
	selector, err := sig.NewSelector(table)
	if err != nil {
		return fmt.Errorf("building selector: %w", err)
	}
	connections, err := cfg.ConnectionPairs()
	if err != nil {
		return fmt.Errorf("parsing connections: %w", err)
	}

	// Simulated world: the robot pose starts at the control waypoint and
	// the nav service drives it toward each goal.
	poses := &nav.PoseCell{}
	start, err := registry.Lookup(cfg.Mission.ControlWaypoint)
	if err != nil {
		return err
	}
	poses.Update(start)
	navService := sim.NewNavService(poses, 0.5, 50*time.Millisecond)

	runID := uuid.NewString()

	binding := sim.NewMoveBinding()
	adapter := nav.NewAdapter(nav.Config{
		ArrivalThreshold: cfg.Nav.ArrivalThreshold,
		ReadyTimeout:     cfg.Nav.ReadyTimeout,
		ReadyAttempts:    cfg.Nav.ReadyAttempts,
	}, nav.Deps{
		Registry: registry,
		Service:  navService,
		Poses:    poses,
		Sink:     binding,
		Audit:    store,
		Metrics:  metrics,
		Logger:   logger,
		RunID:    runID,
	})
	binding.Bind(adapter)

	executor := sim.NewExecutor()
	executor.Handle("move", binding.Handler())
	defer executor.Stop()

	latch := &sig.Latch{}
	problem := knowledge.NewMemoryProblemStore()
	pipeline := plan.NewRequestPipeline(
		knowledge.StaticDomain(patrolDomain), problem, scenario.Planner(), store, runID)

	orch := mission.New(mission.Config{
		Robot:           cfg.Robot.Name,
		ControlWaypoint: cfg.Mission.ControlWaypoint,
		PatrolRoute:     cfg.Mission.PatrolWaypoints,
		Connections:     connections,
		ReplanAttempts:  cfg.Mission.ReplanAttempts,
	}, mission.Deps{
		Problem:  problem,
		Pipeline: pipeline,
		Executor: executor,
		Selector: selector,
		Latch:    latch,
		Audit:    store,
		Metrics:  metrics,
		Logger:   logger,
		RunID:    runID,
	})

	if err := orch.Bootstrap(ctx); err != nil {
		return fmt.Errorf("seeding problem store: %w", err)
	}

	go adapter.Run(ctx, cfg.Nav.TickInterval)
	go scenario.PlaySignal(ctx, latch)

	logger.Info("mission starting",
		"run_id", runID,
		"robot", cfg.Robot.Name,
		"route", cfg.Mission.PatrolWaypoints,
	)
	if err := orch.Run(ctx, cfg.Mission.TickInterval); err != nil {
		if ctx.Err() != nil {
			logger.Info("mission interrupted")
			return nil
		}
		return fmt.Errorf("mission loop: %w", err)
	}

	logger.Info("mission complete", "run_id", runID, "waypoint", orch.SelectedWaypoint())
	return nil
}

func openAuditStore(cfg *config.Config) (audit.Store, func(), error) {
	switch cfg.Audit.Store {
	case "", "memory":
		return audit.NewMemoryStore(), func() {}, nil
	case "sqlite":
		store, err := audit.OpenSQLite(cfg.Audit.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown audit store %q", cfg.Audit.Store)
	}
}

func loadScenario(path string) (*sim.Scenario, error) {
	if path == "" {
		return sim.DefaultScenario(), nil
	}
	return sim.LoadScenario(path)
}

// awaitNavServer blocks until the configured navigation health endpoint
// reports serving, bounded by the readiness retry policy.
func awaitNavServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	probe, err := nav.NewHealthProbe(cfg.Nav.ServerAddr, nav.WithInsecure())
	if err != nil {
		return err
	}
	defer probe.Close()

	rc := resilience.DefaultRetryConfig().
		WithMaxAttempts(cfg.Nav.ReadyAttempts).
		WithInitialDelay(cfg.Nav.ReadyTimeout / 5)
	if err := probe.Await(ctx, rc); err != nil {
		return fmt.Errorf("navigation server at %s not serving: %w", cfg.Nav.ServerAddr, err)
	}
	logger.Info("navigation server serving", "addr", cfg.Nav.ServerAddr)
	return nil
}
