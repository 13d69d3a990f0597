package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository provides PostgreSQL backed audit reads.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const securityFilterClause = `
	($1::timestamptz IS NULL OR occurred_at >= $1)
	AND ($2::timestamptz IS NULL OR occurred_at <= $2)
	AND ($3 = '' OR principal_id = $3)
	AND ($4 = '' OR resource = $4)
	AND ($5 = '' OR event_type = $5)`

// SecurityEvents returns security events ordered most recent first.
func (r *PGRepository) SecurityEvents(ctx context.Context, f SecurityFilters, limit, offset int) ([]SecurityEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT event_type, severity, principal_id, resource, action,
		       COALESCE(resource_id, ''), reason, COALESCE(ip, ''), COALESCE(user_agent, ''), occurred_at
		FROM audit_security_events
		WHERE `+securityFilterClause+`
		ORDER BY occurred_at DESC
		LIMIT $6 OFFSET $7`,
		nullTime(f.From), nullTime(f.To), f.PrincipalID, f.Resource, f.Type, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []SecurityEvent
	for rows.Next() {
		var ev SecurityEvent
		var severity string
		if err := rows.Scan(&ev.Type, &severity, &ev.PrincipalID, &ev.Resource, &ev.Action,
			&ev.ResourceID, &ev.Reason, &ev.IP, &ev.UserAgent, &ev.At); err != nil {
			return nil, err
		}
		ev.Severity = Severity(severity)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CountSecurityEvents returns the total rows matching the filters.
func (r *PGRepository) CountSecurityEvents(ctx context.Context, f SecurityFilters) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM audit_security_events WHERE `+securityFilterClause,
		nullTime(f.From), nullTime(f.To), f.PrincipalID, f.Resource, f.Type).Scan(&total)
	return total, err
}

const mutationFilterClause = `
	($1::timestamptz IS NULL OR occurred_at >= $1)
	AND ($2::timestamptz IS NULL OR occurred_at <= $2)
	AND ($3 = '' OR actor_id = $3)
	AND ($4 = '' OR target_id = $4)
	AND ($5 = '' OR action = $5)`

// Mutations returns mutation records ordered most recent first.
func (r *PGRepository) Mutations(ctx context.Context, f MutationFilters, limit, offset int) ([]MutationRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT action, actor_id, target_id, success, detail, occurred_at
		FROM audit_mutations
		WHERE `+mutationFilterClause+`
		ORDER BY occurred_at DESC
		LIMIT $6 OFFSET $7`,
		nullTime(f.From), nullTime(f.To), f.ActorID, f.TargetID, f.Action, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []MutationRecord
	for rows.Next() {
		var rec MutationRecord
		var detail []byte
		if err := rows.Scan(&rec.Action, &rec.ActorID, &rec.TargetID, &rec.Success, &detail, &rec.At); err != nil {
			return nil, err
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &rec.Detail); err != nil {
				return nil, err
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountMutations returns the total rows matching the filters.
func (r *PGRepository) CountMutations(ctx context.Context, f MutationFilters) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM audit_mutations WHERE `+mutationFilterClause,
		nullTime(f.From), nullTime(f.To), f.ActorID, f.TargetID, f.Action).Scan(&total)
	return total, err
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
