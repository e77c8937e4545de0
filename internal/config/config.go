package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Source   SourceConfig   `yaml:"source" mapstructure:"source"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Classify ClassifyConfig `yaml:"classify" mapstructure:"classify"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// SourceConfig describes the workbook layout and where to find it.
type SourceConfig struct {
	DefaultPath      string   `yaml:"default_path" mapstructure:"default_path"`
	IncidentSheet    string   `yaml:"incident_sheet" mapstructure:"incident_sheet"`
	RegistryTemplate string   `yaml:"registry_template" mapstructure:"registry_template"`
	RegistryPrefix   string   `yaml:"registry_prefix" mapstructure:"registry_prefix"`
	DefaultRegion    string   `yaml:"default_region" mapstructure:"default_region"`
	Regions          []string `yaml:"regions" mapstructure:"regions"`
	SchemaFile       string   `yaml:"schema_file" mapstructure:"schema_file"`
}

// CacheConfig configures the result cache backend.
type CacheConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	TTLSecs     int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
	MaxEntries  int    `yaml:"max_entries" mapstructure:"max_entries"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// TTL returns the configured freshness window.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSecs) * time.Second
}

// ClassifyConfig configures critical incident detection.
type ClassifyConfig struct {
	Tokens []string `yaml:"tokens" mapstructure:"tokens"`
}

// ExportConfig configures the priority report spreadsheet.
type ExportConfig struct {
	SheetName    string `yaml:"sheet_name" mapstructure:"sheet_name"`
	FileTemplate string `yaml:"file_template" mapstructure:"file_template"`
}

// FetchConfig configures remote workbook downloads.
type FetchConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// Timeout returns the per-download timeout.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port          int      `yaml:"port" mapstructure:"port"`
	CORSOrigins   []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	MaxUploadMB   int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	ShutdownSecs  int      `yaml:"shutdown_secs" mapstructure:"shutdown_secs"`
	HitListLength int      `yaml:"hit_list_length" mapstructure:"hit_list_length"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SITERISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source.default_path", "data/KZN Repeat Outage 2.xlsx")
	v.SetDefault("source.incident_sheet", "AnalysisSheet")
	v.SetDefault("source.registry_template", "Sonar_%s")
	v.SetDefault("source.registry_prefix", "Sonar")
	v.SetDefault("source.default_region", "KZN")
	v.SetDefault("source.regions", []string{"KZN", "WES", "CEN", "EAS", "LIM", "MPU"})
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl_secs", 3600)
	v.SetDefault("cache.max_entries", 64)
	v.SetDefault("cache.sqlite_path", "siterisk-cache.db")
	v.SetDefault("classify.tokens", []string{"out_of_service", "link_failure", "site_oos", "sites_down", "faulty", "down"})
	v.SetDefault("export.sheet_name", "Ops_Report")
	v.SetDefault("export.file_template", "%s_Priority_Report.xlsx")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "siterisk/1.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.shutdown_secs", 10)
	v.SetDefault("server.hit_list_length", 50)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a run mode ("process" or "serve") depends on.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Cache.Driver {
	case "memory", "sqlite", "none":
	case "postgres":
		if c.Cache.DatabaseURL == "" {
			errs = append(errs, "cache.database_url is required for the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("cache.driver %q is not one of memory, sqlite, postgres, none", c.Cache.Driver))
	}
	if !strings.Contains(c.Source.RegistryTemplate, "%s") {
		errs = append(errs, "source.registry_template must contain %s")
	}
	if !strings.Contains(c.Export.FileTemplate, "%s") {
		errs = append(errs, "export.file_template must contain %s")
	}

	switch mode {
	case "process":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.MaxUploadMB <= 0 {
			errs = append(errs, "server.max_upload_mb must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
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
