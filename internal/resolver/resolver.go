package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hmeira/order-enricher/internal/models"
	"github.com/hmeira/order-enricher/pkg/metrics"

	"github.com/jackc/pgx/v5"
)

// Eligibility predicate: five equality filters, the consultant code match,
// the non-null structure filter, the status set and the recency rank. The
// rank orders by created_at with the row id as deterministic tie-break
const relationQuery = `
	SELECT  person_code,
	        structure_level,
	        structure_code,
	        business_status_code,
	        cycle,
	        person_id
	FROM (SELECT DISTINCT   bp.person_code,
	                        br.structure_level,
	                        br.structure_code,
	                        br.business_status_code,
	                        br."cycle" AS cycle,
	                        br.created_at,
	                        br.id,
	                        bp.person_uid::text AS person_id,
	                        rank() OVER (PARTITION BY bp.person_code ORDER BY br.created_at DESC, br.id DESC) AS recency
	        FROM postgres.business_relation br
	        JOIN postgres.person bp ON bp.person_uid = br.person_uid
	        WHERE br.structure_code IS NOT NULL
	            AND br.country = $1
	            AND br.company = 1
	            AND br.business_model = 1
	            AND br.function = 1
	            AND br.role = 1
	            AND bp.person_code = $2
	        ) actual_structure
	WHERE recency = 1
	    AND business_status_code IN (2, 3)
`

// Querier is the read-only slice of pgxpool.Pool the resolver needs
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresResolver looks up the current business relation for an event's
// consultant
type PostgresResolver struct {
	db     Querier
	logger *slog.Logger
}

func NewPostgresResolver(db Querier, logger *slog.Logger) *PostgresResolver {
	return &PostgresResolver{db: db, logger: logger}
}

// Resolve validates the consultant code and runs the relation lookup.
// Returns nil without error when no eligible relation exists; the caller
// treats that as an unknown consultant and skips the record
func (r *PostgresResolver) Resolve(ctx context.Context, ev *models.RawEvent) (*models.BusinessRelation, error) {
	code, err := ev.ConsultantCode()
	if err != nil {
		return nil, err
	}
	country, err := ev.Country()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		metrics.ResolveDuration.Observe(time.Since(start).Seconds())
	}()

	rows, err := r.db.Query(ctx, relationQuery, country, code)
	if err != nil {
		return nil, fmt.Errorf("business relation lookup failed: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("business relation lookup failed: %w", err)
		}
		return nil, nil
	}

	var relation models.BusinessRelation
	if err := rows.Scan(
		&relation.PersonCode,
		&relation.StructureLevel,
		&relation.StructureCode,
		&relation.BusinessStatusCode,
		&relation.Cycle,
		&relation.PersonID,
	); err != nil {
		return nil, fmt.Errorf("business relation scan failed: %w", err)
	}

	r.logger.Debug("Resolved business relation",
		"person_code", relation.PersonCode,
		"structure_code", relation.StructureCode,
	)
	return &relation, nil
}
