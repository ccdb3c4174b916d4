package postgres

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/turtacn/rcr/internal/domain/network"
	"github.com/turtacn/rcr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/rcr/pkg/errors"
)

// Querier is the subset of *pgxpool.Pool used by EquivalenceStore.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EquivalenceStore resolves namespaced values to canonical identifiers from
// a table with columns (namespace, value, canonical_id). Namespaces match
// case-insensitively.
type EquivalenceStore struct {
	q      Querier
	query  string
	logger logging.Logger
}

var _ network.EquivalenceResolver = (*EquivalenceStore)(nil)

// NewEquivalenceStore reads from table through q.
func NewEquivalenceStore(q Querier, table string, log logging.Logger) (*EquivalenceStore, error) {
	if q == nil {
		return nil, errors.New(errors.ErrCodeMissingCollaborator, "equivalence store requires a querier")
	}
	if strings.TrimSpace(table) == "" {
		return nil, errors.InvalidConfig("equivalence table name must not be empty")
	}
	ident := pgx.Identifier(strings.Split(table, ".")).Sanitize()
	return &EquivalenceStore{
		q: q,
		query: fmt.Sprintf(
			`SELECT canonical_id FROM %s WHERE upper(namespace) = upper($1) AND value = $2 LIMIT 1`, ident),
		logger: logging.OrDefault(log),
	}, nil
}

// ResolveCanonicalID implements network.EquivalenceResolver.
func (s *EquivalenceStore) ResolveCanonicalID(ctx context.Context, namespace, value string) (string, bool, error) {
	var id string
	err := s.q.QueryRow(ctx, s.query, namespace, value).Scan(&id)
	switch {
	case stderrors.Is(err, pgx.ErrNoRows):
		return "", false, nil
	case err != nil:
		s.logger.Debug("equivalence query failed",
			logging.String(logging.FieldNamespace, namespace),
			logging.String(logging.FieldValue, value),
			logging.Err(err))
		return "", false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to resolve equivalence")
	}
	return id, true, nil
}
