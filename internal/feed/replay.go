package feed

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"bioprintctl/internal/logging"
	"bioprintctl/internal/pipeline"
	"bioprintctl/internal/telemetry"
)

// ReplayLog replays recorded telemetry samples from r through the pipeline.
// A speed > 0 paces playback by the recorded timestamps, accelerated by the
// factor; speed <= 0 inserts no artificial delay.
func ReplayLog(ctx context.Context, r io.Reader, proc *pipeline.Processor, tenantID string, speed float64) error {
	log := logging.FromContext(ctx)
	dec := json.NewDecoder(r)
	var prev time.Time
	for {
		var sample telemetry.Sample
		if err := dec.Decode(&sample); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if !prev.IsZero() && speed > 0 {
			diff := sample.Timestamp.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				select {
				case <-time.After(diff):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		if _, _, err := proc.Process(ctx, tenantID, sample, "replay", "replay"); err != nil {
			log.Error("replayed sample failed", "printer_id", sample.PrinterID, "err", err)
			return err
		}
		prev = sample.Timestamp
	}
}

// ReplayLogFile opens a JSONL file and replays its samples.
func ReplayLogFile(ctx context.Context, path string, proc *pipeline.Processor, tenantID string, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReplayLog(ctx, f, proc, tenantID, speed)
}
