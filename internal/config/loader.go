package config

import (
	stderrors "errors"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/turtacn/rcr/pkg/errors"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "RCR"

// envKeys lists every key that may be set from the environment alone.
// AutomaticEnv only consults keys viper already knows about, so they are
// bound explicitly.
var envKeys = []string{
	"log.level", "log.format", "log.output",
	"network.source", "network.dir",
	"neo4j.uri", "neo4j.user", "neo4j.password", "neo4j.database",
	"neo4j.max_connection_pool_size", "neo4j.connection_timeout",
	"database.enabled", "database.host", "database.port", "database.user", "database.password",
	"database.db_name", "database.ssl_mode", "database.max_conns", "database.min_conns",
	"database.conn_max_lifetime", "database.conn_max_idle_time", "database.equivalence_table",
	"redis.enabled", "redis.addr", "redis.password", "redis.db", "redis.pool_size",
	"redis.dial_timeout", "redis.read_timeout", "redis.write_timeout", "redis.default_ttl", "redis.null_ttl", "redis.key_prefix",
	"minio.enabled", "minio.endpoint", "minio.access_key", "minio.secret_key", "minio.bucket",
	"minio.use_ssl", "minio.prefix",
	"analysis.max_depth", "analysis.score_workers", "analysis.respect_analyst_selection",
	"analysis.lowest_stage", "analysis.namespace", "analysis.output_dir",
}

// newViper builds a Viper instance with YAML file type, the RCR_ env prefix
// and a key replacer mapping "." to "_", so "neo4j.uri" resolves to
// RCR_NEO4J_URI.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}
	return v
}

// Load reads the YAML file at configPath, merges RCR_* environment
// overrides, applies defaults and validates the result. An empty configPath
// is the same as LoadFromEnv.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		if stderrors.As(err, &pathErr) {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "config file not found").WithDetail(configPath)
		}
		return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "failed to parse config file").WithDetail(configPath)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from RCR_* environment variables and defaults.
//
//	RCR_<SECTION>_<FIELD>   e.g.  RCR_NEO4J_URI, RCR_ANALYSIS_MAX_DEPTH
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "failed to unmarshal configuration")
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
