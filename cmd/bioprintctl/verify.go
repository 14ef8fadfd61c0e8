package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bioprintctl/internal/config"
	"bioprintctl/internal/logging"
)

var verifyLimit int

var verifyAuditCmd = &cobra.Command{
	Use:   "verify-audit",
	Short: "Replay and verify the audit hash chain",
	Long:  "verify-audit recomputes the integrity commitment chain over the configured audit store and reports the first divergence, if any.",
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

		result, err := a.trail.VerifyChain(ctx, cfg.TenantID, verifyLimit)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
		if !result.Valid {
			return fmt.Errorf("audit chain broken at event %d: %s", result.FirstBrokenIndex, result.Reason)
		}
		return nil
	},
}

func init() {
	verifyAuditCmd.Flags().IntVar(&verifyLimit, "limit", 0, "Verify at most this many events; 0 verifies the whole chain")
}
