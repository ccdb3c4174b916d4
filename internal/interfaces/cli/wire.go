package cli

import (
	"context"

	"github.com/turtacn/rcr/internal/config"
	"github.com/turtacn/rcr/internal/domain/network"
	neo4jdriver "github.com/turtacn/rcr/internal/infrastructure/database/neo4j"
	"github.com/turtacn/rcr/internal/infrastructure/database/neo4j/repositories"
	"github.com/turtacn/rcr/internal/infrastructure/database/postgres"
	rediscache "github.com/turtacn/rcr/internal/infrastructure/database/redis"
	"github.com/turtacn/rcr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/rcr/internal/infrastructure/storage/minio"
	"github.com/turtacn/rcr/internal/infrastructure/storage/netfile"
	"github.com/turtacn/rcr/pkg/errors"
)

// stack holds the external collaborators of a run. Close releases them in
// reverse order of acquisition.
type stack struct {
	Loader   network.Loader
	Resolver network.EquivalenceResolver
	Uploader *minio.Uploader

	closers []func()
}

func (s *stack) onClose(fn func()) {
	s.closers = append(s.closers, fn)
}

// Close releases every acquired collaborator.
func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// openStack connects the configured network store, equivalence store and
// object store. withUploader requests the object store.
func openStack(ctx context.Context, cfg *config.Config, withUploader bool, log logging.Logger) (*stack, error) {
	s := &stack{}
	var err error
	if s.Loader, err = openLoader(ctx, s, cfg, log); err != nil {
		s.Close()
		return nil, err
	}
	if s.Resolver, err = openResolver(ctx, s, cfg, log); err != nil {
		s.Close()
		return nil, err
	}
	if withUploader {
		client, err := minio.NewMinIOClient(ctx, cfg.MinIO, log)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Uploader = minio.NewUploader(client, log)
	}
	return s, nil
}

func openLoader(ctx context.Context, s *stack, cfg *config.Config, log logging.Logger) (network.Loader, error) {
	switch cfg.Network.Source {
	case config.NetworkSourceFile:
		return netfile.NewLoader(cfg.Network.Dir, log), nil
	case config.NetworkSourceNeo4j:
		d, err := neo4jdriver.NewDriver(ctx, neo4jdriver.Config{
			URI:                   cfg.Neo4j.URI,
			Username:              cfg.Neo4j.User,
			Password:              cfg.Neo4j.Password,
			Database:              cfg.Neo4j.Database,
			MaxConnectionPoolSize: cfg.Neo4j.MaxConnectionPoolSize,
			ConnectionTimeout:     cfg.Neo4j.ConnectionTimeout,
		}, log)
		if err != nil {
			return nil, err
		}
		s.onClose(func() { _ = d.Close() })
		return repositories.NewNeo4jNetworkRepo(d, log), nil
	default:
		return nil, errors.InvalidConfig("unknown network source " + cfg.Network.Source)
	}
}

// openResolver returns nil when equivalencing is disabled.
func openResolver(ctx context.Context, s *stack, cfg *config.Config, log logging.Logger) (network.EquivalenceResolver, error) {
	if !cfg.Database.Enabled {
		return nil, nil
	}
	conn, err := postgres.NewConnection(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	s.onClose(conn.Close)

	store, err := postgres.NewEquivalenceStore(conn.Pool(), cfg.Database.EquivalenceTable, log)
	if err != nil {
		return nil, err
	}
	if !cfg.Redis.Enabled {
		return store, nil
	}

	client, err := rediscache.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return nil, err
	}
	s.onClose(func() { _ = client.Close() })
	cached, err := rediscache.NewCachedResolver(client, store, log,
		rediscache.WithPrefix(cfg.Redis.KeyPrefix),
		rediscache.WithTTL(cfg.Redis.DefaultTTL),
		rediscache.WithNullTTL(cfg.Redis.NullTTL))
	if err != nil {
		return nil, err
	}
	return cached, nil
}
