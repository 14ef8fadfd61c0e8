package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bioprintctl/internal/admin"
	"bioprintctl/internal/config"
	"bioprintctl/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the control plane and admin API",
	Long:  "serve starts the decision pipeline and the admin JSON API. Telemetry arrives through ingestion adapters; without one the pipeline idles.",
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

		srv := admin.NewServer(cfg.TenantID, a.proc, a.twins, a.trail, nil, a.registry)
		go func() {
			log.Info("admin API listening", "addr", cfg.ListenAddr)
			if err := srv.Start(ctx, cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
				log.Error("admin server failed", "err", err)
				cancel()
			}
		}()

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigs:
		case <-ctx.Done():
		}

		cancel()
		log.Info("control plane stopped")
		return nil
	},
}
