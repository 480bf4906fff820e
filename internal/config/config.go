// Package config loads pipeline configuration from a YAML file with
// environment-variable overrides. Environment variables take precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all pipeline configuration.
type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Genius   GeniusConfig   `yaml:"genius"`
	Matching MatchingConfig `yaml:"matching"`
	Years    YearsConfig    `yaml:"years"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PathsConfig holds input and output locations.
type PathsConfig struct {
	OutDir      string `yaml:"out_dir"`
	BimmudaRoot string `yaml:"bimmuda_root"`
	MXMMatches  string `yaml:"mxm_matches"`
	MXMDataset  string `yaml:"mxm_dataset"`
	MXMDataset2 string `yaml:"mxm_dataset_test"`
	StubsDir    string `yaml:"stubs_dir"`
	ManualJSON  string `yaml:"manual_json"`
}

// GeniusConfig holds Genius API settings. The token usually arrives through
// the LP_GENIUS_TOKEN environment variable rather than the file.
type GeniusConfig struct {
	Token             string  `yaml:"token"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// MatchingConfig holds the per-stage fuzzy-match parameters.
type MatchingConfig struct {
	BimmudaThreshold int `yaml:"bimmuda_threshold"`
	BowThreshold     int `yaml:"bow_threshold"`
	StubsThreshold   int `yaml:"stubs_threshold"`
	CandidateCap     int `yaml:"candidate_cap"`
}

// YearsConfig holds the year windows of the chart scrape and the two
// comparison tracks.
type YearsConfig struct {
	ChartStart int `yaml:"chart_start"`
	ChartEnd   int `yaml:"chart_end"`
	BowStart   int `yaml:"bow_start"`
	BowEnd     int `yaml:"bow_end"`
	Top5Start  int `yaml:"top5_start"`
	Top5End    int `yaml:"top5_end"`
	BowMinN    int `yaml:"bow_min_n_per_year"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	FilePath string `yaml:"file_path"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			OutDir:      "data_out",
			BimmudaRoot: "BiMMuDa",
			StubsDir:    "manual_top5_missing",
			ManualJSON:  "manual_lyrics.json",
		},
		Genius: GeniusConfig{
			RequestsPerSecond: 2,
		},
		Matching: MatchingConfig{
			BimmudaThreshold: 65,
			BowThreshold:     76,
			StubsThreshold:   75,
			CandidateCap:     3000,
		},
		Years: YearsConfig{
			ChartStart: 1958,
			ChartEnd:   2024,
			BowStart:   1991,
			BowEnd:     2024,
			Top5Start:  1958,
			Top5End:    2022,
			BowMinN:    20,
		},
		Database: DatabaseConfig{
			Path: filepath.Join("data_out", "lyripop.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-supplied config path
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("LP_OUT_DIR"); v != "" {
		c.Paths.OutDir = v
	}
	if v := os.Getenv("LP_BIMMUDA_ROOT"); v != "" {
		c.Paths.BimmudaRoot = v
	}
	if v := os.Getenv("LP_MXM_MATCHES"); v != "" {
		c.Paths.MXMMatches = v
	}
	if v := os.Getenv("LP_MXM_DATASET"); v != "" {
		c.Paths.MXMDataset = v
	}
	if v := os.Getenv("LP_MXM_DATASET_TEST"); v != "" {
		c.Paths.MXMDataset2 = v
	}
	if v := os.Getenv("LP_STUBS_DIR"); v != "" {
		c.Paths.StubsDir = v
	}
	if v := os.Getenv("LP_MANUAL_JSON"); v != "" {
		c.Paths.ManualJSON = v
	}
	if v := os.Getenv("LP_GENIUS_TOKEN"); v != "" {
		c.Genius.Token = v
	}
	if v := os.Getenv("LP_GENIUS_RPS"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			c.Genius.RequestsPerSecond = rps
		}
	}
	if v := os.Getenv("LP_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("LP_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LP_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("LP_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
}

func (c *Config) validate() error {
	if c.Paths.OutDir == "" {
		return fmt.Errorf("out_dir is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	for name, t := range map[string]int{
		"bimmuda_threshold": c.Matching.BimmudaThreshold,
		"bow_threshold":     c.Matching.BowThreshold,
		"stubs_threshold":   c.Matching.StubsThreshold,
	} {
		if t < 0 || t > 100 {
			return fmt.Errorf("%s out of range: %d", name, t)
		}
	}
	if c.Matching.CandidateCap < 0 {
		return fmt.Errorf("candidate_cap must not be negative")
	}
	if c.Years.ChartStart > c.Years.ChartEnd {
		return fmt.Errorf("chart year window inverted: %d-%d", c.Years.ChartStart, c.Years.ChartEnd)
	}
	if c.Years.BowStart > c.Years.BowEnd {
		return fmt.Errorf("bow year window inverted: %d-%d", c.Years.BowStart, c.Years.BowEnd)
	}
	if c.Years.Top5Start > c.Years.Top5End {
		return fmt.Errorf("top5 year window inverted: %d-%d", c.Years.Top5Start, c.Years.Top5End)
	}
	if c.Years.BowMinN < 0 {
		return fmt.Errorf("bow_min_n_per_year must not be negative")
	}
	if c.Genius.RequestsPerSecond <= 0 {
		c.Genius.RequestsPerSecond = 2
	}
	return nil
}
