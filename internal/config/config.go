package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Paths   PathsConfig   `yaml:"paths"`
	Monitor MonitorConfig `yaml:"monitor"`
	Metrics MetricsConfig `yaml:"metrics"`
	Pricing PricingConfig `yaml:"pricing"`
	Budgets BudgetsConfig `yaml:"budgets"`
}

type ServerConfig struct {
	Port      int    `yaml:"port"`
	Host      string `yaml:"host"`
	AuthToken string `yaml:"auth_token"`
}

// PathsConfig locates the agent-owned files the dashboard reads. All of them
// are treated as read-only; only SnapshotFile is written by this process.
type PathsConfig struct {
	Workspace    string `yaml:"workspace"`
	SessionsDir  string `yaml:"sessions_dir"`
	IndexFile    string `yaml:"index_file"`
	LogDir       string `yaml:"log_dir"`
	CronsFile    string `yaml:"crons_file"`
	SnapshotFile string `yaml:"snapshot_file"`
}

type MonitorConfig struct {
	ActiveWindow    time.Duration `yaml:"active_window"`
	IdleWindow      time.Duration `yaml:"idle_window"`
	PreviewTailSize int64         `yaml:"preview_tail_size"`
	UsageTailSize   int64         `yaml:"usage_tail_size"`
	UsageCacheTTL   time.Duration `yaml:"usage_cache_ttl"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	RecentTools     int           `yaml:"recent_tools"`
}

type MetricsConfig struct {
	MaxEntries     int           `yaml:"max_entries"`
	Retention      time.Duration `yaml:"retention"`
	FlushInterval  time.Duration `yaml:"flush_interval"`
	FreshThreshold time.Duration `yaml:"fresh_threshold"`
}

// ModelPrice holds per-million-token prices for one model.
type ModelPrice struct {
	InputPerMTok  float64 `yaml:"input"`
	OutputPerMTok float64 `yaml:"output"`
}

// PricingConfig drives cost estimation for messages that carry token counts
// but no explicit cost. InputShare is the assumed fraction of totalTokens
// that were input tokens when no breakdown is available.
type PricingConfig struct {
	Models     map[string]ModelPrice `yaml:"models"`
	Default    ModelPrice            `yaml:"default"`
	InputShare float64               `yaml:"input_share"`
}

// BudgetsConfig holds the two-tier cost thresholds (USD) per period plus the
// projection ceiling used for trend warnings.
type BudgetsConfig struct {
	DailyWarn         float64 `yaml:"daily_warn"`
	DailyError        float64 `yaml:"daily_error"`
	WeeklyWarn        float64 `yaml:"weekly_warn"`
	WeeklyError       float64 `yaml:"weekly_error"`
	MonthlyWarn       float64 `yaml:"monthly_warn"`
	MonthlyError      float64 `yaml:"monthly_error"`
	ProjectionCeiling float64 `yaml:"projection_ceiling"`
}

func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return &Config{
		Server: ServerConfig{
			Port: 8900,
			Host: "0.0.0.0",
		},
		Paths: PathsConfig{
			Workspace:    filepath.Join(home, "openclaw"),
			SessionsDir:  filepath.Join(home, ".clawdbot", "agents", "main", "sessions"),
			IndexFile:    filepath.Join(home, ".clawdbot", "agents", "main", "sessions", "sessions.json"),
			LogDir:       "/tmp/openclaw",
			CronsFile:    filepath.Join(home, ".clawdbot", "cron", "jobs.json"),
			SnapshotFile: filepath.Join(home, ".clawdbot", "clawmetry-metrics.json"),
		},
		Monitor: MonitorConfig{
			ActiveWindow:    5 * time.Minute,
			IdleWindow:      30 * time.Minute,
			PreviewTailSize: 16 * 1024,
			UsageTailSize:   256 * 1024,
			UsageCacheTTL:   30 * time.Second,
			RefreshInterval: 2 * time.Second,
			RecentTools:     5,
		},
		Metrics: MetricsConfig{
			MaxEntries:     1000,
			Retention:      14 * 24 * time.Hour,
			FlushInterval:  60 * time.Second,
			FreshThreshold: 5 * time.Minute,
		},
		Pricing: PricingConfig{
			Models: map[string]ModelPrice{
				"claude-opus-4-5":   {InputPerMTok: 5.00, OutputPerMTok: 25.00},
				"claude-opus-4-1":   {InputPerMTok: 15.00, OutputPerMTok: 75.00},
				"claude-sonnet-4-5": {InputPerMTok: 3.00, OutputPerMTok: 15.00},
				"claude-haiku-4-5":  {InputPerMTok: 1.00, OutputPerMTok: 5.00},
			},
			Default:    ModelPrice{InputPerMTok: 3.00, OutputPerMTok: 15.00},
			InputShare: 0.6,
		},
		Budgets: BudgetsConfig{
			DailyWarn:         5,
			DailyError:        10,
			WeeklyWarn:        25,
			WeeklyError:       50,
			MonthlyWarn:       80,
			MonthlyError:      150,
			ProjectionCeiling: 100,
		},
	}
}

// Load reads the YAML config at path, overlaying it on Default. A missing
// file is not an error: the defaults are returned so the dashboard works
// with zero configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the structurally required paths. Only a fundamentally
// unusable workspace surfaces as an error; every other missing input
// degrades to empty data at read time.
func (c *Config) Validate() error {
	if c.Paths.Workspace == "" {
		return fmt.Errorf("workspace path is empty")
	}
	if info, err := os.Stat(c.Paths.Workspace); err == nil && !info.IsDir() {
		return fmt.Errorf("workspace %s is not a directory", c.Paths.Workspace)
	}
	return nil
}

// Price returns the pricing entry for model, falling back to the default
// entry for unrecognized models.
func (c *Config) Price(model string) ModelPrice {
	if p, ok := c.Pricing.Models[model]; ok {
		return p
	}
	return c.Pricing.Default
}
