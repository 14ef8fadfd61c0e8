// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"bioprintctl/internal/plan"
)

// Behavior defines how a simulated printer's readings drift per tick. Used
// only by the synthetic feed harness.
type Behavior struct {
	PressureDriftKPa float64 `yaml:"pressure_drift_kpa"`
	TempWanderC      float64 `yaml:"temp_wander_c"`
	ViabilityDecay   float64 `yaml:"viability_decay"`
	DefectSpikeRate  float64 `yaml:"defect_spike_rate"`
	DropoutRate      float64 `yaml:"dropout_rate"`
}

// Fleet defines a group of simulated printers of the same model.
type Fleet struct {
	Name     string   `yaml:"name"`
	Model    string   `yaml:"model"`
	Count    int      `yaml:"count"`
	Behavior Behavior `yaml:"behavior"`
}

// SeedPlan declares a print plan registered at startup.
type SeedPlan struct {
	ID               string           `yaml:"id"`
	PatientID        string           `yaml:"patient_id"`
	BlueprintVersion string           `yaml:"blueprint_version"`
	Layers           []plan.LayerSpec `yaml:"layers"`
	Constraints      plan.Constraints `yaml:"constraints"`
}

// SeedSession binds a printer to a seeded plan at startup.
type SeedSession struct {
	PrinterID string `yaml:"printer_id"`
	PlanID    string `yaml:"plan_id"`
	Activate  bool   `yaml:"activate"`
}

// Config is the root control-plane configuration.
type Config struct {
	TenantID           string        `yaml:"tenant_id"`
	ListenAddr         string        `yaml:"listen_addr"`
	LatencyBudgetMs    float64       `yaml:"latency_budget_ms"`
	GreptimeDBEndpoint string        `yaml:"greptimedb_endpoint"`
	GreptimeDBDatabase string        `yaml:"greptimedb_database"`
	PostgresDSN        string        `yaml:"postgres_dsn"`
	ComplianceTags     []string      `yaml:"compliance_tags"`
	Fleets             []Fleet       `yaml:"fleets"`
	Plans              []SeedPlan    `yaml:"plans"`
	Sessions           []SeedSession `yaml:"sessions"`
}

// Load loads YAML config and validates it against a CUE schema.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.TenantID == "" {
		c.TenantID = "tenant-default"
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.LatencyBudgetMs <= 0 {
		c.LatencyBudgetMs = 250
	}
	if c.GreptimeDBDatabase == "" {
		c.GreptimeDBDatabase = "public"
	}
}

func (c *Config) check() error {
	seen := make(map[string]bool, len(c.Plans))
	for _, p := range c.Plans {
		if p.ID == "" {
			return fmt.Errorf("seed plan without id")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate seed plan id %q", p.ID)
		}
		seen[p.ID] = true
	}
	for _, s := range c.Sessions {
		if !seen[s.PlanID] {
			return fmt.Errorf("seed session for printer %q references unknown plan %q", s.PrinterID, s.PlanID)
		}
	}
	return nil
}
