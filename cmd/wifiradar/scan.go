package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wifiradar/internal/adapter"
	"wifiradar/internal/config"
	"wifiradar/internal/feed"
	"wifiradar/internal/hidden"
	"wifiradar/internal/hub"
	"wifiradar/internal/intel"
	"wifiradar/internal/logging"
	"wifiradar/internal/probe"
	"wifiradar/internal/repository/sqlite"
	"wifiradar/internal/safety"
	"wifiradar/internal/service"
	"wifiradar/internal/vendor"
	"wifiradar/internal/world"
)

var (
	scanConfigPath   string
	scanIface        string
	scanNoPersist    bool
	scanProbeArm     bool
	scanProbeConfirm string
	scanProbeEvery   time.Duration
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the live capture pipeline",
	Long:  "scan captures 802.11 management traffic, maintains the world model, and serves the SSE event feed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New()

		var cfg *config.Config
		var err error
		if scanConfigPath != "" {
			cfg, _, err = config.LoadFromPath(scanConfigPath)
		} else {
			cfg, _, err = config.Load()
		}
		if err != nil {
			return err
		}
		if scanIface != "" {
			cfg.Scanner.Interface = scanIface
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		model := world.NewModel(cfg, vendor.NewResolver())
		hnce := hidden.NewClassifier(model, cfg)
		core := intel.NewCore(model, hnce, cfg)
		events := feed.New(cfg.FeedCapacity)

		var repo service.Repository
		var store *sqlite.Repository
		if !scanNoPersist {
			store, err = sqlite.New(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer store.Close()
			repo = store
		}

		gateway := safety.NewGateway(cfg.Safety)
		pipeline := service.NewPipeline(cfg, model, hnce, core, events, repo, gateway, log)

		scanner, err := adapter.NewPcapScanner(cfg.Scanner.Interface, cfg.Scanner.Dwell)
		if err != nil {
			return err
		}
		defer scanner.Close()

		go pipeline.Run(ctx)
		go pipeline.RunScanner(ctx, scanner)

		// SSE hub.
		eventHub := hub.New(log)
		go eventHub.Run()
		go eventHub.Consume(events.Subscribe(64))

		mux := http.NewServeMux()
		mux.Handle("/events", eventHub)
		mux.HandleFunc("/api/emitters", func(w http.ResponseWriter, r *http.Request) {
			var views []world.View
			if err := pipeline.Exec(r.Context(), func(context.Context) {
				for _, addr := range model.Addresses() {
					if v, ok := model.Snapshot(addr); ok {
						views = append(views, v)
					}
				}
			}); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(views)
		})
		srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: mux}
		go func() {
			log.Info("event feed listening", "addr", cfg.HTTP.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("http server failed", "err", err)
				cancel()
			}
		}()

		// Optional MQTT export.
		if cfg.MQTT.Enabled {
			pub, err := adapter.NewMQTTPublisher(cfg.MQTT)
			if err != nil {
				return err
			}
			defer pub.Close()
			go func() {
				for ev := range events.Subscribe(64) {
					if err := pub.Publish(ctx, ev); err != nil {
						log.Warn("mqtt publish failed", "err", err)
					}
				}
			}()
		}

		// Optional active probing: Disabled unless armed, Active only
		// with the configured confirmation token.
		if scanProbeArm {
			if err := startProbing(ctx, cfg, pipeline, model, hnce, gateway, events, log); err != nil {
				return err
			}
		}

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs

		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
		log.Info("scan stopped")
		return nil
	},
}

func startProbing(ctx context.Context, cfg *config.Config, pipeline *service.Pipeline,
	model *world.Model, hnce *hidden.Classifier, gateway *safety.Gateway,
	events *feed.Feed, log *slog.Logger) error {
	session := probe.NewSession(cfg.Safety.ConfirmToken)
	if err := session.Arm(); err != nil {
		return err
	}
	if err := session.Activate(scanProbeConfirm); err != nil {
		return err
	}

	transport, err := adapter.NewPcapTransport(cfg.Scanner.Interface, "", 2*time.Second)
	if err != nil {
		return err
	}
	discoverer := probe.NewDiscoverer(session, gateway, transport, hnce, log)
	sweeper := probe.NewSweeper(session, gateway, transport, cfg.Safety, log)
	coordinator := service.NewProbeCoordinator(pipeline, model, hnce, discoverer, sweeper, session, cfg.Safety, events, log)

	go func() {
		defer session.Shutdown()
		defer transport.Close()
		ticker := time.NewTicker(scanProbeEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := coordinator.RevealAll(ctx); err != nil {
					log.Warn("discovery pass failed", "err", err)
				}
			}
		}
	}()
	log.Info("active probing enabled", "interval", scanProbeEvery)
	return nil
}

func init() {
	scanCmd.Flags().StringVar(&scanConfigPath, "config", "", "Path to configuration YAML (default: $WIFIRADAR_CONFIG, ./wifiradar.yaml)")
	scanCmd.Flags().StringVar(&scanIface, "interface", "", "Capture interface (overrides config)")
	scanCmd.Flags().BoolVar(&scanNoPersist, "no-persist", false, "Disable the sqlite store")
	scanCmd.Flags().BoolVar(&scanProbeArm, "arm-probes", false, "Arm the active probe session")
	scanCmd.Flags().StringVar(&scanProbeConfirm, "confirm", "", "Confirmation token to activate the armed probe session")
	scanCmd.Flags().DurationVar(&scanProbeEvery, "probe-interval", time.Minute, "Interval between discovery passes")
}
