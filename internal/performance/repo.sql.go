package performance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads aggregated ledger counts from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const scorecardQuery = `
SELECT p.id, p.full_name, p.nip, p.unit, p.role,
	COUNT(*) FILTER (WHERE a.status = 'Assigned')  AS assigned,
	COUNT(*) FILTER (WHERE a.status = 'Submitted') AS submitted,
	COUNT(*) FILTER (WHERE a.status = 'Completed') AS completed
FROM assignments a
JOIN tasks t ON t.id = a.task_id
JOIN principals p ON p.id = a.assignee_id
WHERE t.author_id = $1%s
GROUP BY p.id, p.full_name, p.nip, p.unit, p.role
ORDER BY p.full_name ASC`

// ListScorecards aggregates the ledger entries under the author's own
// tasks, one card per assignee. Authors without tasks get an empty list.
func (r *Repository) ListScorecards(ctx context.Context, authorID uuid.UUID) ([]Scorecard, error) {
	return r.query(ctx, "", authorID)
}

// ListScorecardsForSupervisor additionally restricts the assignees to
// the supervisor's direct reports.
func (r *Repository) ListScorecardsForSupervisor(ctx context.Context, authorID, supervisorID uuid.UUID) ([]Scorecard, error) {
	return r.query(ctx, ` AND p.supervisor_id = $2`, authorID, supervisorID)
}

func (r *Repository) query(ctx context.Context, where string, args ...any) ([]Scorecard, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(scorecardQuery, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]Scorecard, 0)
	for rows.Next() {
		var s Scorecard
		var nip, unit pgtype.Text
		if err := rows.Scan(&s.PrincipalID, &s.FullName, &nip, &unit, &s.Role, &s.Assigned, &s.Submitted, &s.Completed); err != nil {
			return nil, err
		}
		if nip.Valid {
			s.NIP = nip.String
		}
		if unit.Valid {
			s.Unit = unit.String
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

