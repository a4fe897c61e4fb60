package activities

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/siaptugas/siaptugas/internal/profiles"
	"github.com/siaptugas/siaptugas/internal/roles"
	"github.com/siaptugas/siaptugas/internal/shared"
)

type memoryActivityRepo struct {
	items  map[int64]Activity
	nextID int64
}

func (r *memoryActivityRepo) Get(ctx context.Context, id int64) (Activity, error) {
	a, ok := r.items[id]
	if !ok {
		return Activity{}, shared.ErrNotFound
	}
	return a, nil
}

func (r *memoryActivityRepo) List(ctx context.Context) ([]Activity, error) {
	out := make([]Activity, 0, len(r.items))
	for _, a := range r.items {
		out = append(out, a)
	}
	return out, nil
}

func (r *memoryActivityRepo) Create(ctx context.Context, a Activity) (int64, error) {
	r.nextID++
	a.ID = r.nextID
	a.CreatedAt = time.Now()
	r.items[a.ID] = a
	return a.ID, nil
}

func (r *memoryActivityRepo) Update(ctx context.Context, a Activity) error {
	existing, ok := r.items[a.ID]
	if !ok {
		return shared.ErrNotFound
	}
	a.CreatedBy = existing.CreatedBy
	a.CreatedAt = existing.CreatedAt
	r.items[a.ID] = a
	return nil
}

func (r *memoryActivityRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.items[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

type staticDirectory map[uuid.UUID]profiles.Profile

func (d staticDirectory) Get(ctx context.Context, id uuid.UUID) (profiles.Profile, error) {
	p, ok := d[id]
	if !ok {
		return profiles.Profile{}, shared.ErrNotFound
	}
	return p, nil
}

func TestActivityLifecycle(t *testing.T) {
	kabid := uuid.New()
	staff := uuid.New()
	admin := uuid.New()
	dir := staticDirectory{
		kabid: {ID: kabid, Role: roles.RoleKabid},
		staff: {ID: staff, Role: roles.RoleStaff},
		admin: {ID: admin, Role: roles.RoleAdmin},
	}
	repo := &memoryActivityRepo{items: make(map[int64]Activity)}
	svc := NewService(repo, dir, slog.New(slog.DiscardHandler))

	input := ActivityInput{Title: "Rapat koordinasi", Location: "Aula", HeldAt: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)}

	_, err := svc.Create(context.Background(), staff, input)
	require.ErrorIs(t, err, shared.ErrNotAuthorized)

	a, err := svc.Create(context.Background(), kabid, input)
	require.NoError(t, err)
	require.Equal(t, "Rapat koordinasi", a.Title)
	require.Equal(t, kabid, a.CreatedBy)

	_, err = svc.Update(context.Background(), staff, a.ID, input)
	require.ErrorIs(t, err, shared.ErrNotAuthorized)

	input.Title = "Rapat evaluasi"
	updated, err := svc.Update(context.Background(), admin, a.ID, input)
	require.NoError(t, err)
	require.Equal(t, "Rapat evaluasi", updated.Title)

	require.ErrorIs(t, svc.Delete(context.Background(), staff, a.ID), shared.ErrNotAuthorized)
	require.NoError(t, svc.Delete(context.Background(), kabid, a.ID))
	require.ErrorIs(t, svc.Delete(context.Background(), kabid, a.ID), shared.ErrNotFound)
}

func TestActivityValidation(t *testing.T) {
	kabid := uuid.New()
	dir := staticDirectory{kabid: {ID: kabid, Role: roles.RoleKabid}}
	repo := &memoryActivityRepo{items: make(map[int64]Activity)}
	svc := NewService(repo, dir, slog.New(slog.DiscardHandler))

	_, err := svc.Create(context.Background(), kabid, ActivityInput{HeldAt: time.Now()})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), kabid, ActivityInput{Title: "Tanpa tanggal"})
	require.ErrorIs(t, err, shared.ErrValidation)
}
