package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"bioprintctl/internal/config"
	"bioprintctl/internal/feed"
	"bioprintctl/internal/logging"
)

var (
	replayFile  string
	replaySpeed float64
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay recorded telemetry through the pipeline",
	Long:  "replay feeds a JSONL telemetry log through the full decision pipeline and prints the resulting twin states.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, schemaPath)
		if err != nil {
			return err
		}

		log := logging.New()
		ctx := logging.NewContext(context.Background(), log)

		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}

		if err := feed.ReplayLogFile(ctx, replayFile, a.proc, cfg.TenantID, replaySpeed); err != nil {
			return err
		}

		states, err := a.twins.FindAll(ctx, cfg.TenantID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(states)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayFile, "file", "", "Path to a JSONL telemetry log")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 0, "Playback speed factor; 0 replays without delay")
	replayCmd.MarkFlagRequired("file")
}
