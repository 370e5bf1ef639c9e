package config

import (
	"errors"
	"fmt"
	"os"

	"prokat/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Rental     RentalConfig     `yaml:"rental"`
	Exports    ExportConfig     `yaml:"exports"`
	Worker     WorkerConfig     `yaml:"worker"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	CORS      APICORSConfig      `yaml:"cors"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS      float64 `yaml:"rps"`
	Burst    int     `yaml:"burst"`
	Requests int     `yaml:"requests"`
	WindowS  int     `yaml:"window_seconds"`
}

type APICORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RentalConfig carries the business knobs of the booking core.
type RentalConfig struct {
	// BufferDays is the cleaning/turnaround gap appended after every
	// return date; the whole [pickup, return+buffer] window blocks the
	// asset.
	BufferDays int `yaml:"buffer_days"`
	// ServiceFeePercent is the platform cut recorded as its own ledger
	// entry, never deducted from the owner's credit.
	ServiceFeePercent int `yaml:"service_fee_percent"`
	MaxBookingDays    int `yaml:"max_booking_days"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type WorkerConfig struct {
	ExpirySweepMinutes int `yaml:"expiry_sweep_minutes"`
	// PendingHoldHours is how long a booking may sit unpaid in pending
	// before the sweeper cancels it.
	PendingHoldHours int `yaml:"pending_hold_hours"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; environment wins over file values via ExpandEnv.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Rental.BufferDays < 0 {
		return errors.New("rental.buffer_days must not be negative")
	}
	if c.Rental.ServiceFeePercent < 0 || c.Rental.ServiceFeePercent > 100 {
		return errors.New("rental.service_fee_percent must be between 0 and 100")
	}
	if c.API.Enabled && c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api.auth.api_keys is required when auth is enabled")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "prokat"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.RateLimit.Requests == 0 {
		c.API.RateLimit.Requests = models.RateLimitRequests
	}
	if c.API.RateLimit.WindowS == 0 {
		c.API.RateLimit.WindowS = models.RateLimitWindow
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 5
	}

	if c.Rental.BufferDays == 0 {
		c.Rental.BufferDays = models.DefaultBufferDays
	}
	if c.Rental.ServiceFeePercent == 0 {
		c.Rental.ServiceFeePercent = models.DefaultServiceFeePercent
	}
	if c.Rental.MaxBookingDays == 0 {
		c.Rental.MaxBookingDays = models.DefaultMaxBookingDays
	}
	if c.Worker.ExpirySweepMinutes == 0 {
		c.Worker.ExpirySweepMinutes = models.DefaultExpirySweepMinutes
	}
	if c.Worker.PendingHoldHours == 0 {
		c.Worker.PendingHoldHours = 24
	}
}
