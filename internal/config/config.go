package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/clinic-dashboard/pkg/validator"
)

const (
	DefaultDataPath          = "dashboard_data.xlsx"
	DefaultCancelSheet       = "Dashboard Cancel No Show"
	DefaultPatientsSeenSheet = "Patients Seen Report"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Data       DataConfig       `mapstructure:"data"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DataConfig locates the workbook. Fields are also read from the
// DASHBOARD_ environment namespace, e.g. DASHBOARD_DATA_PATH.
type DataConfig struct {
	Path              string        `mapstructure:"path" envconfig:"DATA_PATH" validate:"required"`
	CancelSheet       string        `mapstructure:"cancel_sheet" envconfig:"CANCEL_SHEET" validate:"required"`
	PatientsSeenSheet string        `mapstructure:"patients_seen_sheet" envconfig:"PATIENTS_SEEN_SHEET" validate:"required"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl" envconfig:"CACHE_TTL"`
	// BreakerFailures consecutive failed reads pause rereads for BreakerTimeout. 0 disables.
	BreakerFailures int           `mapstructure:"breaker_failures" validate:"gte=0"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=0"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type MonitoringConfig struct {
	MetricsPrefix string `mapstructure:"metrics_prefix" validate:"required"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("data.path", DefaultDataPath)
	v.SetDefault("data.cancel_sheet", DefaultCancelSheet)
	v.SetDefault("data.patients_seen_sheet", DefaultPatientsSeenSheet)
	v.SetDefault("data.cache_ttl", 10*time.Minute)
	v.SetDefault("data.breaker_failures", 3)
	v.SetDefault("data.breaker_timeout", 30*time.Second)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("monitoring.metrics_prefix", "dashboard")
	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yml from the usual locations when present, then
// applies environment overrides. A missing file is not an error.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	if len(paths) == 0 {
		paths = []string{".", "./config", "/app", "/app/config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// DASHBOARD_DATA_PATH and friends win over the file.
	if err := envconfig.Process("DASHBOARD", &config.Data); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := validator.New().Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
