package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/deckbridge/internal/bridge"
	"github.com/dgnsrekt/deckbridge/internal/emitter"
	"github.com/dgnsrekt/deckbridge/internal/feed"
	"github.com/dgnsrekt/deckbridge/internal/metrics"
	"github.com/dgnsrekt/deckbridge/internal/screen"
	"github.com/dgnsrekt/deckbridge/internal/status"
)

const shutdownTimeout = 5 * time.Second

func serveCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge",
		Long: `Listen for master-deck and heartbeat messages, poll the DJ application
for the master deck's track, and send track and play state to the consumer.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				cfg.Consumer.DryRun = true
			}
			return runServe(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log emissions instead of sending them")

	return cmd
}

func runServe(ctx context.Context) error {
	instanceID := uuid.New()
	startedAt := time.Now()
	log := logger.With(zap.String("instance", instanceID.String()))

	log.Info("configuration loaded",
		zap.String("feedAddr", cfg.Feed.Addr()),
		zap.String("consumerAddr", cfg.Consumer.Addr()),
		zap.Bool("dryRun", cfg.Consumer.DryRun),
		zap.Duration("pollInterval", cfg.Poll.Interval),
		zap.Duration("watchdogThreshold", cfg.Watchdog.Threshold),
		zap.String("screenDriver", cfg.Screen.Driver),
		zap.Bool("statusEnabled", cfg.Status.Enabled),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewPrometheus(reg, "deckbridge")

	em, err := emitter.New(cfg.Consumer, log)
	if err != nil {
		return fmt.Errorf("creating emitter: %w", err)
	}
	defer em.Close()

	reader, err := screen.New(cfg.Screen, log)
	if err != nil {
		return fmt.Errorf("creating screen reader: %w", err)
	}
	if reader.Connect(ctx) {
		log.Info("connected to DJ application window")
	} else {
		log.Warn("DJ application window not available yet, will keep retrying")
	}

	reconciler := bridge.NewReconciler(em, cfg.Watchdog.Threshold, log, bridge.WithMetrics(collector))

	listener := feed.NewListener(feed.Paths{
		Deck:      cfg.Feed.DeckPath,
		Heartbeat: cfg.Feed.HeartbeatPath,
	}, reconciler, collector, log)

	poller := bridge.NewPoller(reader, reconciler, bridge.PollerConfig{
		Interval:    cfg.Poll.Interval,
		ReadTimeout: cfg.Poll.ReadTimeout,
		Placeholder: cfg.Track.Placeholder,
	}, collector, log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		errOnce sync.Once
		runErr  error
	)
	fail := func(err error) {
		errOnce.Do(func() { runErr = err })
		cancel()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := listener.ListenAndServe(ctx, cfg.Feed.Addr()); err != nil {
			log.Error("feed listener failed", zap.Error(err))
			fail(err)
		}
	}()
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()

	var httpServer *http.Server
	if cfg.Status.Enabled {
		router := status.NewRouter(status.NewServer(reconciler, instanceID, startedAt, log), reg, log)
		httpServer = &http.Server{
			Addr:         cfg.Status.Addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info("starting status server", zap.String("addr", httpServer.Addr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("status server error", zap.Error(err))
				fail(fmt.Errorf("status server: %w", err))
			}
		}()
	}

	log.Info("bridge running")
	<-ctx.Done()
	log.Info("shutting down bridge...")

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("status server shutdown error", zap.Error(err))
		}
	}

	wg.Wait()
	log.Info("bridge stopped")
	return runErr
}
