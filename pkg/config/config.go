package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Ingestion configuration
	Ingestion IngestionConfig `mapstructure:"ingestion"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Alert configuration
	Alert AlertConfig `mapstructure:"alert"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`

	// MCP configuration
	MCP MCPConfig `mapstructure:"mcp"`
}

// AlertConfig holds configuration for alerting
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
	DbURL       string `mapstructure:"db_url"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json, color
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // neo4j, badger
	URI      string `mapstructure:"uri"`    // bolt URI for neo4j, directory for badger
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	InMemory bool   `mapstructure:"in_memory"` // badger only
}

// IngestionConfig holds settings for the geo chunk ingestion pipeline
type IngestionConfig struct {
	SourceName       string `mapstructure:"source_name"`
	GroupID          string `mapstructure:"group_id"`
	MaxContentLength int    `mapstructure:"max_content_length"`
	PacingMillis     int    `mapstructure:"pacing_ms"`
	CheckpointDir    string `mapstructure:"checkpoint_dir"`
	ExportDir        string `mapstructure:"export_dir"`
	RepairJSON       bool   `mapstructure:"repair_json"`
}

// MCPConfig holds settings for the MCP tool server
type MCPConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables if present
	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "color")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	// Database defaults
	viper.SetDefault("database.driver", "badger")
	viper.SetDefault("database.uri", "./zonegraph_db")
	viper.SetDefault("database.username", "")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.database", "")
	viper.SetDefault("database.in_memory", false)

	// Ingestion defaults
	viper.SetDefault("ingestion.source_name", "venue_zones")
	viper.SetDefault("ingestion.group_id", "default")
	viper.SetDefault("ingestion.max_content_length", 6000)
	viper.SetDefault("ingestion.pacing_ms", 500)
	viper.SetDefault("ingestion.checkpoint_dir", "")
	viper.SetDefault("ingestion.export_dir", "./exports")
	viper.SetDefault("ingestion.repair_json", false)

	// Circuit breaker defaults
	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	// Alert defaults
	viper.SetDefault("alert.enabled", false)
	viper.SetDefault("alert.smtp_port", 587)

	// MCP defaults
	viper.SetDefault("mcp.name", "zonegraph")
	viper.SetDefault("mcp.version", "0.1.0")

	// Telemetry and checkpoint defaults
	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("telemetry.parquet_path", filepath.Join(home, ".zonegraph", "telemetry"))
		viper.SetDefault("ingestion.checkpoint_dir", filepath.Join(home, ".zonegraph", "checkpoints"))
	}
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	// Database credentials
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Database.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Database.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Database.Password = pass
	}

	// Badger database path
	if dbPath := os.Getenv("BADGER_DB_PATH"); dbPath != "" && config.Database.Driver == "badger" {
		config.Database.URI = dbPath
	}

	// Generic database settings
	if dbDriver := os.Getenv("DB_DRIVER"); dbDriver != "" {
		config.Database.Driver = dbDriver
	}
	if dbURI := os.Getenv("DB_URI"); dbURI != "" {
		config.Database.URI = dbURI
	}

	// Ingestion settings
	if source := os.Getenv("ZONEGRAPH_SOURCE_NAME"); source != "" {
		config.Ingestion.SourceName = source
	}
	if group := os.Getenv("ZONEGRAPH_GROUP_ID"); group != "" {
		config.Ingestion.GroupID = group
	}
	if maxLen := os.Getenv("ZONEGRAPH_MAX_CONTENT_LENGTH"); maxLen != "" {
		if n, err := strconv.Atoi(maxLen); err == nil {
			config.Ingestion.MaxContentLength = n
		}
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			config.Server.Port = n
		}
	}

	// Alert settings
	if pass := os.Getenv("SMTP_PASSWORD"); pass != "" {
		config.Alert.Password = pass
	}

	// Telemetry settings
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
	if dbURL := os.Getenv("TELEMETRY_DB_URL"); dbURL != "" {
		config.Telemetry.DbURL = dbURL
	}
}
