package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"wifiradar/internal/config"
	"wifiradar/internal/domain"
	"wifiradar/internal/feed"
	"wifiradar/internal/hidden"
	"wifiradar/internal/intel"
	"wifiradar/internal/logging"
	"wifiradar/internal/repository/sqlite"
	"wifiradar/internal/service"
	"wifiradar/internal/vendor"
	"wifiradar/internal/world"
)

var (
	replayDB         string
	replayConfigPath string
	replayEvents     bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Rebuild the world model from an observation archive",
	Long:  "replay feeds archived observations back through the pipeline and prints the resulting emitter table. The same archive always yields the same world state.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayDB == "" {
			return fmt.Errorf("database path required")
		}
		log := logging.New()

		var cfg *config.Config
		var err error
		if replayConfigPath != "" {
			cfg, _, err = config.LoadFromPath(replayConfigPath)
		} else {
			cfg, _, err = config.Load()
		}
		if err != nil {
			return err
		}

		store, err := sqlite.New(replayDB)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		observations, err := store.LoadObservations(ctx)
		if err != nil {
			return err
		}

		model := world.NewModel(cfg, vendor.NewResolver())
		hnce := hidden.NewClassifier(model, cfg)
		core := intel.NewCore(model, hnce, cfg)
		events := feed.New(cfg.FeedCapacity)
		pipeline := service.NewPipeline(cfg, model, hnce, core, events, nil, nil, log)

		go pipeline.Run(ctx)
		if err := pipeline.IngestObservations(ctx, observations); err != nil {
			return err
		}

		return pipeline.Exec(ctx, func(context.Context) {
			addrs := model.Addresses()
			sort.Strings(addrs)
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tNAME\tVENDOR\tCHAN\tRSSI\tSIGNAL\tSTABILITY\tMOVEMENT\tDIST(m)")
			for _, addr := range addrs {
				v, ok := model.Snapshot(addr)
				if !ok {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\t%.1f\n",
					v.Address, v.DisplayName(), v.Vendor.Class, v.Channel, v.RSSI,
					domain.SignalQuality(v.RSSI), v.Stability, v.Movement, v.DistanceMeters)
			}
			w.Flush()

			if replayEvents {
				fmt.Println()
				for _, ev := range events.Snapshot() {
					fmt.Printf("[%s/%s] %s %s\n", ev.Category, ev.Severity, ev.Subject, ev.Summary)
				}
			}
		})
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayDB, "db", "", "Path to the observation archive (sqlite)")
	replayCmd.Flags().StringVar(&replayConfigPath, "config", "", "Path to configuration YAML")
	replayCmd.Flags().BoolVar(&replayEvents, "events", false, "Print the reconstructed event feed")
	replayCmd.MarkFlagRequired("db")
}
