// Package config defines the configuration structures of the rcr tool. No
// I/O or parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/rcr/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level  string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format string   `mapstructure:"format"` // "console" | "json"
	Output []string `mapstructure:"output"`
}

// NetworkConfig selects where causal networks are read from.
type NetworkConfig struct {
	Source string `mapstructure:"source"` // "neo4j" | "file"
	// Dir holds <name>.yaml network files when Source is "file".
	Dir string `mapstructure:"dir"`
}

// Neo4jConfig holds causal network store connection parameters.
type Neo4jConfig struct {
	URI                   string        `mapstructure:"uri"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	Database              string        `mapstructure:"database"`
	MaxConnectionPoolSize int           `mapstructure:"max_connection_pool_size"`
	ConnectionTimeout     time.Duration `mapstructure:"connection_timeout"`
}

// DatabaseConfig holds PostgreSQL parameters for the identifier equivalence
// store. Equivalencing is skipped when Enabled is false.
type DatabaseConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	DBName           string        `mapstructure:"db_name"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	MaxConns         int           `mapstructure:"max_conns"`
	MinConns         int           `mapstructure:"min_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime  time.Duration `mapstructure:"conn_max_idle_time"`
	EquivalenceTable string        `mapstructure:"equivalence_table"`
}

// RedisConfig holds parameters for the equivalence cache.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	NullTTL      time.Duration `mapstructure:"null_ttl"` // lifetime of cached misses
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// MinIOConfig holds object-storage parameters for uploading run outputs.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Prefix    string `mapstructure:"prefix"`
}

// AnalysisConfig holds run parameters.
type AnalysisConfig struct {
	MaxDepth                int    `mapstructure:"max_depth"`
	ScoreWorkers            int    `mapstructure:"score_workers"`
	RespectAnalystSelection bool   `mapstructure:"respect_analyst_selection"`
	LowestStage             string `mapstructure:"lowest_stage"` // "fold-change" | "p-value"
	Namespace               string `mapstructure:"namespace"`
	OutputDir               string `mapstructure:"output_dir"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Network  NetworkConfig  `mapstructure:"network"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config and
// returns the first problem found as an ErrCodeInvalidConfig error.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return invalid("log.format %q is invalid; expected console|json", c.Log.Format)
	}

	switch c.Network.Source {
	case NetworkSourceNeo4j:
		if c.Neo4j.URI == "" {
			return invalid("neo4j.uri is required when network.source is neo4j")
		}
	case NetworkSourceFile:
		if c.Network.Dir == "" {
			return invalid("network.dir is required when network.source is file")
		}
	default:
		return invalid("network.source %q is invalid; expected neo4j|file", c.Network.Source)
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return invalid("database.host is required")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return invalid("database.port %d is out of range [1, 65535]", c.Database.Port)
		}
		if c.Database.DBName == "" {
			return invalid("database.db_name is required")
		}
		if c.Database.MaxConns < 1 {
			return invalid("database.max_conns must be >= 1, got %d", c.Database.MaxConns)
		}
	}

	if c.Redis.Enabled {
		if !c.Database.Enabled {
			return invalid("redis caches equivalence lookups and requires database.enabled")
		}
		if c.Redis.Addr == "" {
			return invalid("redis.addr is required")
		}
		if c.Redis.DB < 0 {
			return invalid("redis.db must be >= 0, got %d", c.Redis.DB)
		}
		if c.Redis.NullTTL < 0 {
			return invalid("redis.null_ttl must not be negative, got %s", c.Redis.NullTTL)
		}
	}

	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" {
			return invalid("minio.endpoint is required")
		}
		if c.MinIO.Bucket == "" {
			return invalid("minio.bucket is required")
		}
	}

	if c.Analysis.MaxDepth < 1 {
		return invalid("analysis.max_depth must be >= 1, got %d", c.Analysis.MaxDepth)
	}
	if c.Analysis.ScoreWorkers < 1 {
		return invalid("analysis.score_workers must be >= 1, got %d", c.Analysis.ScoreWorkers)
	}
	switch c.Analysis.LowestStage {
	case LowestStageFoldChange, LowestStagePValue:
	default:
		return invalid("analysis.lowest_stage %q is invalid; expected fold-change|p-value", c.Analysis.LowestStage)
	}
	if c.Analysis.Namespace == "" {
		return invalid("analysis.namespace is required")
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return errors.InvalidConfig("config: " + fmt.Sprintf(format, args...))
}
