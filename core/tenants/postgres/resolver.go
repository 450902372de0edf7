package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/koscakluka/receptionist/core/tenants"
	"go.opentelemetry.io/otel/codes"
)

var _ tenants.Resolver = (*Resolver)(nil)

// Resolver looks organizations up by their registered phone numbers.
type Resolver struct {
	pool *pgxpool.Pool
}

func NewResolver(pool *pgxpool.Pool) *Resolver {
	return &Resolver{pool: pool}
}

const resolveQuery = `
SELECT o.id, o.name, o.business_type, o.ai_personality, o.greeting_message,
       o.transfer_number, o.default_language
FROM organizations o
JOIN phone_numbers p ON p.organization_id = o.id
WHERE p.phone_number = $1 AND p.is_active AND o.is_active
ORDER BY p.is_primary DESC
LIMIT 1`

// Resolve returns the organization owning the called number.
func (r *Resolver) Resolve(ctx context.Context, calledNumber string) (*tenants.Context, error) {
	ctx, span := tracer.Start(ctx, "resolve tenant")
	defer span.End()

	var tenant tenants.Context
	err := r.pool.QueryRow(ctx, resolveQuery, calledNumber).Scan(
		&tenant.OrganizationID,
		&tenant.Name,
		&tenant.BusinessType,
		&tenant.Persona,
		&tenant.Greeting,
		&tenant.TransferNumber,
		&tenant.Language,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, tenants.ErrNotFound
	}
	if err != nil {
		err = fmt.Errorf("failed to resolve tenant: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger.Debug("resolved tenant", "organization", tenant.Name, "number", calledNumber)
	return &tenant, nil
}
