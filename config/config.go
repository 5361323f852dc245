package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	Redis         RedisConfig         `yaml:"redis"`
	TournamentAPI TournamentAPIConfig `yaml:"tournament_api"`
	Sync          SyncConfig          `yaml:"sync"`
	Admin         AdminConfig         `yaml:"admin"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration. An empty URL keeps job events in-process.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds the response cache configuration. An empty URL disables caching.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// TournamentAPIConfig holds the remote tournament API configuration.
type TournamentAPIConfig struct {
	BaseURL           string        `yaml:"base_url"`
	ClientID          string        `yaml:"client_id"`
	ClientSecret      string        `yaml:"client_secret"`
	TokenURL          string        `yaml:"token_url"`
	Scopes            []string      `yaml:"scopes"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	MaxTries          uint          `yaml:"max_tries"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
}

// SyncConfig holds queue and orchestration settings.
type SyncConfig struct {
	MaxWorkers         int           `yaml:"max_workers"`
	MaxAttempts        int           `yaml:"max_attempts"`
	JobTimeout         time.Duration `yaml:"job_timeout"`
	SweepInterval      time.Duration `yaml:"sweep_interval"`
	StaleAfter         time.Duration `yaml:"stale_after"`
	Retention          time.Duration `yaml:"retention"`
	PlannerConcurrency int           `yaml:"planner_concurrency"`
	// SeasonStartMonth and SeasonEndMonth bound the months in which discovered
	// competitions are synced. The window may wrap around the year end.
	SeasonStartMonth int `yaml:"season_start_month"`
	SeasonEndMonth   int `yaml:"season_end_month"`
	// Timezone interprets relative dates such as "yesterday".
	Timezone string `yaml:"timezone"`
}

// AdminConfig holds the admin HTTP server configuration.
type AdminConfig struct {
	Address string `yaml:"address"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	MetricsAddress string `yaml:"metrics_address"`
	Environment    string `yaml:"environment"`
	LogLevel       string `yaml:"log_level"`
	ServiceName    string `yaml:"service_name"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}

	if v := os.Getenv("TOURNAMENT_API_BASE_URL"); v != "" {
		cfg.TournamentAPI.BaseURL = v
	}
	if v := os.Getenv("TOURNAMENT_API_CLIENT_ID"); v != "" {
		cfg.TournamentAPI.ClientID = v
	}
	if v := os.Getenv("TOURNAMENT_API_CLIENT_SECRET"); v != "" {
		cfg.TournamentAPI.ClientSecret = v
	}
	if v := os.Getenv("TOURNAMENT_API_TOKEN_URL"); v != "" {
		cfg.TournamentAPI.TokenURL = v
	}
	if v := os.Getenv("TOURNAMENT_API_SCOPES"); v != "" {
		cfg.TournamentAPI.Scopes = strings.Fields(strings.ReplaceAll(v, ",", " "))
	}
	if v := os.Getenv("TOURNAMENT_API_REQUESTS_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid TOURNAMENT_API_REQUESTS_PER_SECOND value: %v", err)
		}
		cfg.TournamentAPI.RequestsPerSecond = f
	}
	if v := os.Getenv("TOURNAMENT_API_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TOURNAMENT_API_CACHE_TTL value: %v", err)
		}
		cfg.TournamentAPI.CacheTTL = d
	}

	if v := os.Getenv("SYNC_MAX_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SYNC_MAX_WORKERS value: %v", err)
		}
		cfg.Sync.MaxWorkers = n
	}
	if v := os.Getenv("SYNC_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SYNC_MAX_ATTEMPTS value: %v", err)
		}
		cfg.Sync.MaxAttempts = n
	}
	if v := os.Getenv("SYNC_JOB_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SYNC_JOB_TIMEOUT value: %v", err)
		}
		cfg.Sync.JobTimeout = d
	}
	if v := os.Getenv("SYNC_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SYNC_SWEEP_INTERVAL value: %v", err)
		}
		cfg.Sync.SweepInterval = d
	}
	if v := os.Getenv("SYNC_RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SYNC_RETENTION value: %v", err)
		}
		cfg.Sync.Retention = d
	}
	if v := os.Getenv("SYNC_TIMEZONE"); v != "" {
		cfg.Sync.Timezone = v
	}

	if v := os.Getenv("ADMIN_ADDRESS"); v != "" {
		cfg.Admin.Address = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	return nil
}

func applyDefaults(cfg *Config) {
	api := &cfg.TournamentAPI
	if api.Timeout <= 0 {
		api.Timeout = 30 * time.Second
	}
	if api.RequestsPerSecond <= 0 {
		api.RequestsPerSecond = 5
	}
	if api.Burst <= 0 {
		api.Burst = 10
	}
	if api.MaxTries == 0 {
		api.MaxTries = 4
	}
	if api.RetryInterval <= 0 {
		api.RetryInterval = 500 * time.Millisecond
	}
	if api.CacheTTL <= 0 {
		api.CacheTTL = 5 * time.Minute
	}

	s := &cfg.Sync
	if s.MaxWorkers <= 0 {
		s.MaxWorkers = 10
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = 5
	}
	if s.JobTimeout <= 0 {
		s.JobTimeout = 10 * time.Minute
	}
	if s.SweepInterval <= 0 {
		s.SweepInterval = 30 * time.Second
	}
	if s.StaleAfter <= 0 {
		s.StaleAfter = 2 * time.Minute
	}
	if s.PlannerConcurrency <= 0 {
		s.PlannerConcurrency = 4
	}
	if s.SeasonStartMonth == 0 && s.SeasonEndMonth == 0 {
		s.SeasonStartMonth = int(time.August)
		s.SeasonEndMonth = int(time.April)
	}
	if s.Timezone == "" {
		s.Timezone = "UTC"
	}

	if cfg.Admin.Address == "" {
		cfg.Admin.Address = ":8080"
	}
	if cfg.Observability.Environment == "" {
		cfg.Observability.Environment = "development"
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "shuttle-sync"
	}
}

// Validate reports settings that can never work.
func (c *Config) Validate() error {
	for _, m := range []int{c.Sync.SeasonStartMonth, c.Sync.SeasonEndMonth} {
		if m < 1 || m > 12 {
			return fmt.Errorf("season months must be between 1 and 12, got %d", m)
		}
	}
	if _, err := time.LoadLocation(c.Sync.Timezone); err != nil {
		return fmt.Errorf("invalid sync timezone %q: %w", c.Sync.Timezone, err)
	}
	return nil
}

// Location returns the configured timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Sync.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
