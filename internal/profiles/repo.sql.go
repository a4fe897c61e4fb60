package profiles

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/siaptugas/siaptugas/internal/roles"
	"github.com/siaptugas/siaptugas/internal/shared"
)

// Repository provides PostgreSQL backed persistence for principals.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const profileColumns = `id, full_name, nip, email, role, unit, supervisor_id, avatar_url, created_at, updated_at`

// Get returns a single profile by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM principals WHERE id = $1`, id)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, shared.ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

// List returns all profiles ordered by name.
func (r *Repository) List(ctx context.Context) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+profileColumns+` FROM principals ORDER BY full_name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProfiles(rows)
}

// ListByRoles returns profiles whose role matches any of the given labels.
func (r *Repository) ListByRoles(ctx context.Context, want []roles.Role) ([]Profile, error) {
	labels := make([]string, 0, len(want))
	for _, role := range want {
		labels = append(labels, role.String())
	}
	rows, err := r.pool.Query(ctx, `SELECT `+profileColumns+` FROM principals WHERE lower(role) = ANY($1) ORDER BY full_name ASC`, labels)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProfiles(rows)
}

// ListSubordinates returns profiles of the given role reporting to a supervisor.
func (r *Repository) ListSubordinates(ctx context.Context, supervisorID uuid.UUID, role roles.Role) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+profileColumns+` FROM principals WHERE supervisor_id = $1 AND lower(role) = $2 ORDER BY full_name ASC`, supervisorID, role.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProfiles(rows)
}

// Create inserts a profile with its password hash.
func (r *Repository) Create(ctx context.Context, p Profile, passwordHash string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO principals (id, full_name, nip, email, password_hash, role, unit, supervisor_id, avatar_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`,
		p.ID, p.FullName, p.NIP, p.Email, passwordHash, p.Role.String(), p.Unit, p.SupervisorID, p.AvatarURL)
	return err
}

// Update persists mutable profile fields.
func (r *Repository) Update(ctx context.Context, p Profile) error {
	tag, err := r.pool.Exec(ctx, `UPDATE principals SET full_name=$2, nip=$3, email=$4, role=$5, unit=$6, supervisor_id=$7, avatar_url=$8, updated_at=NOW() WHERE id=$1`,
		p.ID, p.FullName, p.NIP, p.Email, p.Role.String(), p.Unit, p.SupervisorID, p.AvatarURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a profile.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM principals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountLedgerRecords counts the assignments held and the tasks authored
// by the principal. A principal owning either may not be deleted.
func (r *Repository) CountLedgerRecords(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM assignments WHERE assignee_id = $1)
		     + (SELECT COUNT(*) FROM tasks WHERE author_id = $1)`, id).Scan(&count)
	return count, err
}

func collectProfiles(rows pgx.Rows) ([]Profile, error) {
	var list []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	var role string
	var nip, unit, avatar pgtype.Text
	var supervisor pgtype.UUID
	if err := row.Scan(&p.ID, &p.FullName, &nip, &p.Email, &role, &unit, &supervisor, &avatar, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Profile{}, err
	}
	p.Role = roles.Parse(role)
	if nip.Valid {
		p.NIP = nip.String
	}
	if unit.Valid {
		p.Unit = unit.String
	}
	if avatar.Valid {
		p.AvatarURL = avatar.String
	}
	if supervisor.Valid {
		id := uuid.UUID(supervisor.Bytes)
		p.SupervisorID = &id
	}
	return p, nil
}
