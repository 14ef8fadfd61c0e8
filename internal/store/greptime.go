package store

import (
	"context"

	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	ingesterContext "github.com/GreptimeTeam/greptimedb-ingester-go/context"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"bioprintctl/internal/logging"
	"bioprintctl/internal/telemetry"
)

// GreptimeTelemetryStore writes samples to GreptimeDB via the ingester
// client. Greptime is the durable sink; Recent reads are served by a
// write-through inner store so the hot path never queries the database.
type GreptimeTelemetryStore struct {
	client greptime.Client
	db     string
	table  string
	inner  *MemoryTelemetryStore
}

// NewGreptimeTelemetryStore connects to GreptimeDB and auto-creates the
// telemetry table if needed.
func NewGreptimeTelemetryStore(endpoint, database string) (*GreptimeTelemetryStore, error) {
	ctx := ingesterContext.NewContext(context.Background())
	client, err := greptime.NewClient(ctx, &greptime.Config{
		Endpoint: endpoint,
	})
	if err != nil {
		return nil, err
	}

	ddl := `
CREATE TABLE IF NOT EXISTS ` + telemetry.SampleTableName + ` (
  tenant_id STRING TAG,
  printer_id STRING TAG,
  nozzle_temp_c DOUBLE,
  pressure_kpa DOUBLE,
  cell_viability DOUBLE,
  viscosity_index DOUBLE,
  ph DOUBLE,
  nir_temp_c DOUBLE,
  defect_probability DOUBLE,
  print_job_id STRING,
  tissue_type STRING,
  ts TIMESTAMP TIME INDEX
) WITH (ttl='90d')
`
	if _, err := client.SQL(ctx, ddl); err != nil {
		return nil, err
	}

	return &GreptimeTelemetryStore{
		client: client,
		db:     database,
		table:  telemetry.SampleTableName,
		inner:  NewMemoryTelemetryStore(),
	}, nil
}

// Append writes one sample to GreptimeDB and mirrors it into the inner
// store. The encrypted image matrix stays out of the time-series table.
func (g *GreptimeTelemetryStore) Append(ctx context.Context, tenantID string, s telemetry.Sample) error {
	ictx := ingesterContext.NewContext(ctx)

	tbl := table.New(g.table)
	tbl.AddTagColumn("tenant_id", types.StringType, 0)
	tbl.AddTagColumn("printer_id", types.StringType, 0)
	tbl.AddFieldColumn("nozzle_temp_c", types.Float64Type)
	tbl.AddFieldColumn("pressure_kpa", types.Float64Type)
	tbl.AddFieldColumn("cell_viability", types.Float64Type)
	tbl.AddFieldColumn("viscosity_index", types.Float64Type)
	tbl.AddFieldColumn("ph", types.Float64Type)
	tbl.AddFieldColumn("nir_temp_c", types.Float64Type)
	tbl.AddFieldColumn("defect_probability", types.Float64Type)
	tbl.AddFieldColumn("print_job_id", types.StringType)
	tbl.AddFieldColumn("tissue_type", types.StringType)
	tbl.SetTimeIndex("ts", types.TimestampType)

	tbl.AppendTagValue("tenant_id", tenantID)
	tbl.AppendTagValue("printer_id", s.PrinterID)
	tbl.AppendFieldValue("nozzle_temp_c", s.NozzleTempC)
	tbl.AppendFieldValue("pressure_kpa", s.PressureKPa)
	tbl.AppendFieldValue("cell_viability", s.CellViability)
	tbl.AppendFieldValue("viscosity_index", s.ViscosityIndex)
	tbl.AppendFieldValue("ph", s.PH)
	tbl.AppendFieldValue("nir_temp_c", s.NIRTempC)
	tbl.AppendFieldValue("defect_probability", s.DefectProbability)
	tbl.AppendFieldValue("print_job_id", s.PrintJobID)
	tbl.AppendFieldValue("tissue_type", s.TissueType)
	tbl.AppendTimeIndex(s.Timestamp)

	if err := g.client.Write(ictx, g.db, []*table.Table{tbl}); err != nil {
		logging.FromContext(ctx).Error("greptime write failed", "printer_id", s.PrinterID, "err", err)
		return err
	}
	return g.inner.Append(ctx, tenantID, s)
}

// Recent serves reads from the write-through inner store.
func (g *GreptimeTelemetryStore) Recent(ctx context.Context, tenantID string, limit int) ([]telemetry.Sample, error) {
	return g.inner.Recent(ctx, tenantID, limit)
}
