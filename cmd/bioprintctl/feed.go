package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bioprintctl/internal/admin"
	"bioprintctl/internal/config"
	"bioprintctl/internal/feed"
	"bioprintctl/internal/logging"
)

var (
	feedTick      time.Duration
	feedPrintOnly bool
	feedLogFile   string
	feedSeed      int64
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Run the control plane with a synthetic fleet",
	Long:  "feed starts the pipeline plus a harness of virtual printers emitting drifting telemetry, for development and soak testing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, schemaPath)
		if err != nil {
			return err
		}

		log := logging.New()
		ctx, cancel := context.WithCancel(logging.NewContext(context.Background(), log))
		defer cancel()

		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}

		var writer feed.DecisionWriter
		if feedPrintOnly {
			writer = &feed.StdoutWriter{}
		}
		if feedLogFile != "" {
			fw, err := feed.NewFileWriter(feedLogFile)
			if err != nil {
				return err
			}
			defer fw.Close()
			if writer != nil {
				writer = feed.NewMultiWriter(writer, fw)
			} else {
				writer = fw
			}
		}

		harness := feed.NewHarness(cfg.TenantID, cfg.Fleets, a.proc, writer, feedTick, feedSeed)
		if harness.Printers() == 0 {
			log.Warn("no fleets configured, harness has nothing to drive")
		}

		srv := admin.NewServer(cfg.TenantID, a.proc, a.twins, a.trail, harness, a.registry)
		go func() {
			log.Info("admin API listening", "addr", cfg.ListenAddr)
			if err := srv.Start(ctx, cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
				log.Error("admin server failed", "err", err)
				cancel()
			}
		}()

		go harness.Run(ctx)

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigs:
		case <-ctx.Done():
		}

		cancel()
		log.Info("feed harness stopped")
		return nil
	},
}

func init() {
	feedCmd.Flags().DurationVar(&feedTick, "tick", time.Second, "Telemetry tick interval (e.g. 500ms, 2s)")
	feedCmd.Flags().BoolVar(&feedPrintOnly, "print-only", false, "Print decisions to STDOUT")
	feedCmd.Flags().StringVar(&feedLogFile, "log-file", "", "Path to export decisions (JSONL)")
	feedCmd.Flags().Int64Var(&feedSeed, "seed", time.Now().UnixNano(), "Random seed for the synthetic fleet")
}
