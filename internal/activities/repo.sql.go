package activities

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/siaptugas/siaptugas/internal/shared"
)

// Repository provides PostgreSQL backed persistence for activities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const activityColumns = `id, title, description, location, held_at, created_by, created_at, updated_at`

// Get returns a single activity.
func (r *Repository) Get(ctx context.Context, id int64) (Activity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id)
	a, err := scanActivity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Activity{}, shared.ErrNotFound
		}
		return Activity{}, err
	}
	return a, nil
}

// List returns all activities, soonest first.
func (r *Repository) List(ctx context.Context) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+activityColumns+` FROM activities ORDER BY held_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// Create inserts an activity and returns its id.
func (r *Repository) Create(ctx context.Context, a Activity) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO activities (title, description, location, held_at, created_by, created_at, updated_at)
VALUES ($1, NULLIF($2,''), NULLIF($3,''), $4, $5, NOW(), NOW()) RETURNING id`,
		a.Title, a.Description, a.Location, a.HeldAt, a.CreatedBy).Scan(&id)
	return id, err
}

// Update persists the editable fields.
func (r *Repository) Update(ctx context.Context, a Activity) error {
	tag, err := r.pool.Exec(ctx, `UPDATE activities SET title=$2, description=NULLIF($3,''), location=NULLIF($4,''), held_at=$5, updated_at=NOW() WHERE id=$1`,
		a.ID, a.Title, a.Description, a.Location, a.HeldAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes an activity.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanActivity(row pgx.Row) (Activity, error) {
	var a Activity
	var description, location pgtype.Text
	if err := row.Scan(&a.ID, &a.Title, &description, &location, &a.HeldAt, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Activity{}, err
	}
	if description.Valid {
		a.Description = description.String
	}
	if location.Valid {
		a.Location = location.String
	}
	return a, nil
}
