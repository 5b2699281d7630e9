// Package config loads service settings from config.yaml, .env and the environment.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"geosort-service/internal/domain"
)

// ErrMissingAPIKey is returned by RequireAPIKey when no ORS key is configured.
var ErrMissingAPIKey = eris.New("ORS api key is required (set ORS_API_KEY)")

type Config struct {
	ORS      ORSConfig      `yaml:"ors" mapstructure:"ors"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Optimize OptimizeConfig `yaml:"optimize" mapstructure:"optimize"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ORSConfig configures the OpenRouteService client shared by geocoding and optimization.
type ORSConfig struct {
	BaseURL               string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey                string        `yaml:"api_key" mapstructure:"api_key"`
	Timeout               time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxAttempts           int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	GeocodeRatePerMinute  float64       `yaml:"geocode_rate_per_minute" mapstructure:"geocode_rate_per_minute"`
	OptimizeRatePerMinute float64       `yaml:"optimize_rate_per_minute" mapstructure:"optimize_rate_per_minute"`
	BoundaryCountry       string        `yaml:"boundary_country" mapstructure:"boundary_country"`
}

type GeocodeConfig struct {
	Concurrency int           `yaml:"concurrency" mapstructure:"concurrency"`
	Columns     ColumnsConfig `yaml:"columns" mapstructure:"columns"`
}

// ColumnsConfig holds 0-based column indexes of the address parts.
type ColumnsConfig struct {
	Street      int `yaml:"street" mapstructure:"street"`
	HouseNumber int `yaml:"house_number" mapstructure:"house_number"`
	PostalCode  int `yaml:"postal_code" mapstructure:"postal_code"`
	City        int `yaml:"city" mapstructure:"city"`
}

func (c ColumnsConfig) Mapping() domain.ColumnMapping {
	return domain.ColumnMapping{
		Street:      c.Street,
		HouseNumber: c.HouseNumber,
		PostalCode:  c.PostalCode,
		City:        c.City,
	}
}

type OptimizeConfig struct {
	Profile        string `yaml:"profile" mapstructure:"profile"`
	ServiceSeconds int    `yaml:"service_seconds" mapstructure:"service_seconds"`
}

type ExportConfig struct {
	SheetName string `yaml:"sheet_name" mapstructure:"sheet_name"`
	FileName  string `yaml:"file_name" mapstructure:"file_name"`
}

// CacheConfig toggles the per-session geocode cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

type ServerConfig struct {
	Port           int           `yaml:"port" mapstructure:"port"`
	SessionTTL     time.Duration `yaml:"session_ttl" mapstructure:"session_ttl"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// LoadDotEnv loads a .env file from the working directory if there is one.
// It reports whether a file was loaded.
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

// Load reads configuration from an optional config.yaml and the environment.
// Environment keys use the GEOSORT_ prefix with dots replaced by underscores.
// The ORS key is also read from ORS_API_KEY and OPENROUTESERVICE_API_KEY.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GEOSORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("ors.api_key", "GEOSORT_ORS_API_KEY", "ORS_API_KEY", "OPENROUTESERVICE_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind api key")
	}

	v.SetDefault("ors.base_url", "https://api.openrouteservice.org")
	v.SetDefault("ors.api_key", "")
	v.SetDefault("ors.timeout", 10*time.Second)
	v.SetDefault("ors.max_attempts", 2)
	v.SetDefault("ors.geocode_rate_per_minute", 100)
	v.SetDefault("ors.optimize_rate_per_minute", 40)
	v.SetDefault("ors.boundary_country", "")
	v.SetDefault("geocode.concurrency", 1)
	v.SetDefault("geocode.columns.street", 0)
	v.SetDefault("geocode.columns.house_number", 1)
	v.SetDefault("geocode.columns.postal_code", 2)
	v.SetDefault("geocode.columns.city", 3)
	v.SetDefault("optimize.profile", "foot")
	v.SetDefault("optimize.service_seconds", 300)
	v.SetDefault("export.sheet_name", "Geosortiert")
	v.SetDefault("export.file_name", "geosortierte_laufliste.xlsx")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.session_ttl", 30*time.Minute)
	v.SetDefault("server.max_upload_bytes", 10<<20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Geocode.Columns.Mapping().Validate(); err != nil {
		return nil, eris.Wrap(err, "config")
	}
	if cfg.Geocode.Concurrency < 1 {
		cfg.Geocode.Concurrency = 1
	}

	return &cfg, nil
}

// RequireAPIKey fails when no ORS key is configured.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.ORS.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
