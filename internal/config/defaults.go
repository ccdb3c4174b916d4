package config

import (
	"runtime"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	NetworkSourceNeo4j = "neo4j"
	NetworkSourceFile  = "file"

	LowestStageFoldChange = "fold-change"
	LowestStagePValue     = "p-value"
)

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"

	DefaultNetworkSource = NetworkSourceNeo4j

	DefaultNeo4jURI      = "bolt://localhost:7687"
	DefaultNeo4jDatabase = "neo4j"

	DefaultDBHost           = "localhost"
	DefaultDBPort           = 5432
	DefaultDBName           = "rcr"
	DefaultDBMaxConns       = 4
	DefaultEquivalenceTable = "equivalence"

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisTTL       = 24 * time.Hour
	DefaultRedisNullTTL   = time.Hour
	DefaultRedisKeyPrefix = "rcr:"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "rcr-results"

	DefaultMaxDepth    = 2
	DefaultNamespace   = "EG"
	DefaultOutputDir   = "."
	DefaultLowestStage = LowestStageFoldChange
)

// ApplyDefaults fills every zero-value field in cfg with its default. Fields
// already set are left unchanged so that explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if len(cfg.Log.Output) == 0 {
		cfg.Log.Output = []string{"stderr"}
	}

	// ── Network ───────────────────────────────────────────────────────────────
	if cfg.Network.Source == "" {
		cfg.Network.Source = DefaultNetworkSource
	}

	// ── Neo4j ─────────────────────────────────────────────────────────────────
	if cfg.Neo4j.URI == "" {
		cfg.Neo4j.URI = DefaultNeo4jURI
	}
	if cfg.Neo4j.Database == "" {
		cfg.Neo4j.Database = DefaultNeo4jDatabase
	}
	if cfg.Neo4j.ConnectionTimeout == 0 {
		cfg.Neo4j.ConnectionTimeout = 10 * time.Second
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.EquivalenceTable == "" {
		cfg.Database.EquivalenceTable = DefaultEquivalenceTable
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultRedisTTL
	}
	if cfg.Redis.NullTTL == 0 {
		cfg.Redis.NullTTL = DefaultRedisNullTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Analysis ──────────────────────────────────────────────────────────────
	if cfg.Analysis.MaxDepth == 0 {
		cfg.Analysis.MaxDepth = DefaultMaxDepth
	}
	if cfg.Analysis.ScoreWorkers == 0 {
		cfg.Analysis.ScoreWorkers = runtime.GOMAXPROCS(0)
	}
	if cfg.Analysis.LowestStage == "" {
		cfg.Analysis.LowestStage = DefaultLowestStage
	}
	if cfg.Analysis.Namespace == "" {
		cfg.Analysis.Namespace = DefaultNamespace
	}
	if cfg.Analysis.OutputDir == "" {
		cfg.Analysis.OutputDir = DefaultOutputDir
	}
}

// NewDefaultConfig returns a Config with every default applied.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
