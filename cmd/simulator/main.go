package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/signalsfoundry/factory-power-simulator/core"
	"github.com/signalsfoundry/factory-power-simulator/internal/api"
	"github.com/signalsfoundry/factory-power-simulator/internal/config"
	"github.com/signalsfoundry/factory-power-simulator/internal/logging"
	"github.com/signalsfoundry/factory-power-simulator/internal/observability"
	"github.com/signalsfoundry/factory-power-simulator/internal/sim/state"
	"github.com/signalsfoundry/factory-power-simulator/model"
	"github.com/signalsfoundry/factory-power-simulator/timectrl"
	"github.com/signalsfoundry/factory-power-simulator/world"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	duration := flag.Duration("duration", 0, "override config run_for")
	tick := flag.Duration("tick", 0, "override config tick interval")
	accelerated := flag.Bool("accelerated", false, "override: run ticks back to back")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *duration > 0 {
		cfg.RunFor = config.Duration(*duration)
	}
	if *tick > 0 {
		cfg.Tick = config.Duration(*tick)
	}
	if *accelerated {
		cfg.Accelerated = true
	}

	log := logging.New(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		AddSource: false,
	})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithLogger(ctx, log)

	// ==== Observability ====

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "tracing init failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewPowerCollector(nil)
	if err != nil {
		log.Error(ctx, "metrics init failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	// ==== Stores, engine, state ====

	catalog, err := model.LoadCatalogFile(cfg.CatalogPath)
	if err != nil {
		log.Error(ctx, "catalog load failed",
			logging.String("path", cfg.CatalogPath),
			logging.String("error", err.Error()))
		os.Exit(1)
	}

	w := world.New()
	store := core.NewPowerStore()
	engine := core.NewSimulationEngine(
		store,
		core.WithLogger(log),
		core.WithMetrics(collector),
	)
	engine.Balancer.DayLength = cfg.DayLength.Std()

	// Any placement change invalidates the partition.
	w.Subscribe(func(world.Event) { engine.MarkDirty() })

	factory := state.NewFactoryState(w, store,
		state.WithCatalog(catalog),
		state.WithLogger(log),
		state.WithMetrics(collector),
		state.WithTopologyMarker(engine),
	)

	if cfg.ScenarioPath != "" {
		f, err := os.Open(cfg.ScenarioPath)
		if err != nil {
			log.Error(ctx, "scenario open failed",
				logging.String("path", cfg.ScenarioPath),
				logging.String("error", err.Error()))
			os.Exit(1)
		}
		scenario, err := state.LoadFactoryScenario(ctx, factory, f)
		f.Close()
		if err != nil {
			log.Error(ctx, "scenario load failed", logging.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info(ctx, "scenario loaded",
			logging.String("path", cfg.ScenarioPath),
			logging.Int("structures", len(scenario.StructureIDs)))
	}

	// ==== Status hub + HTTP ====

	hub := api.NewHub(log)
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	mux.HandleFunc("/ws", func(rw http.ResponseWriter, r *http.Request) {
		api.ServeWs(hub, rw, r)
	})
	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		log.Info(ctx, "http listening", logging.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "http server failed", logging.String("error", err.Error()))
		}
	}()

	// ==== Time controller ====

	mode := timectrl.RealTime
	if cfg.Accelerated {
		mode = timectrl.Accelerated
	}
	tc := timectrl.NewTimeController(time.Now().UTC(), cfg.Tick.Std(), mode)

	tc.AddListener(func(time.Time) {
		engine.Step(ctx, cfg.Tick.Std())
		hub.BroadcastSummary(tickSummary(engine, factory))
	})

	engine.RegisterTickListener(func(t int, elapsed time.Duration) {
		if t%10 != 0 {
			return
		}
		nets := store.Networks()
		log.Info(ctx, "tick",
			logging.Int("n", t),
			logging.String("elapsed", elapsed.String()),
			logging.Int("networks", len(nets)))
	})

	log.Info(ctx, "simulation starting",
		logging.String("run_for", cfg.RunFor.Std().String()),
		logging.String("tick", cfg.Tick.Std().String()),
		logging.Int("mode", int(mode)))

	done := tc.Start(cfg.RunFor.Std())
	select {
	case <-done:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	log.Info(ctx, "simulation complete", logging.Int("ticks", engine.TickCount()))
}

// tickSummary flattens the latest partition into the hub's wire shape.
func tickSummary(engine *core.SimulationEngine, factory *state.FactoryState) api.TickSummary {
	snap := factory.Snapshot()

	summary := api.TickSummary{
		Tick:            engine.TickCount(),
		ElapsedSeconds:  engine.Elapsed().Seconds(),
		Networks:        len(snap.Networks),
		MinSatisfaction: 1.0,
	}
	demandSeen := false
	for _, net := range snap.Networks {
		if net == nil {
			continue
		}
		summary.Production += net.TotalProduction
		summary.Consumption += net.TotalConsumption
		if net.TotalConsumption > 0 {
			if !demandSeen || net.Satisfaction < summary.MinSatisfaction {
				summary.MinSatisfaction = net.Satisfaction
			}
			demandSeen = true
		}
		summary.PerNetwork = append(summary.PerNetwork, api.NetworkBrief{
			ID:           net.ID,
			Poles:        len(net.Poles),
			Production:   net.TotalProduction,
			Consumption:  net.TotalConsumption,
			Satisfaction: net.Satisfaction,
			Availability: net.Availability,
		})
	}
	return summary
}
