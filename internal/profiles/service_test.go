package profiles

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/siaptugas/siaptugas/internal/roles"
	"github.com/siaptugas/siaptugas/internal/shared"
)

type memoryProfileRepo struct {
	profiles map[uuid.UUID]Profile
	ledger   map[uuid.UUID]int64
	authored map[uuid.UUID]int64
	hashes   map[uuid.UUID]string
}

func newMemoryProfileRepo() *memoryProfileRepo {
	return &memoryProfileRepo{
		profiles: make(map[uuid.UUID]Profile),
		ledger:   make(map[uuid.UUID]int64),
		authored: make(map[uuid.UUID]int64),
		hashes:   make(map[uuid.UUID]string),
	}
}

func (r *memoryProfileRepo) Get(ctx context.Context, id uuid.UUID) (Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return Profile{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryProfileRepo) List(ctx context.Context) ([]Profile, error) {
	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryProfileRepo) ListByRoles(ctx context.Context, want []roles.Role) ([]Profile, error) {
	var out []Profile
	for _, p := range r.profiles {
		for _, role := range want {
			if p.Role == role {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (r *memoryProfileRepo) ListSubordinates(ctx context.Context, supervisorID uuid.UUID, role roles.Role) ([]Profile, error) {
	var out []Profile
	for _, p := range r.profiles {
		if p.Role == role && p.SupervisorID != nil && *p.SupervisorID == supervisorID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryProfileRepo) Create(ctx context.Context, p Profile, passwordHash string) error {
	r.profiles[p.ID] = p
	r.hashes[p.ID] = passwordHash
	return nil
}

func (r *memoryProfileRepo) Update(ctx context.Context, p Profile) error {
	if _, ok := r.profiles[p.ID]; !ok {
		return shared.ErrNotFound
	}
	r.profiles[p.ID] = p
	return nil
}

func (r *memoryProfileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.profiles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.profiles, id)
	return nil
}

func (r *memoryProfileRepo) CountLedgerRecords(ctx context.Context, id uuid.UUID) (int64, error) {
	return r.ledger[id] + r.authored[id], nil
}

func (r *memoryProfileRepo) add(role roles.Role, supervisorID *uuid.UUID) uuid.UUID {
	id := uuid.New()
	r.profiles[id] = Profile{ID: id, FullName: "Orang " + id.String()[:8], Email: id.String()[:8] + "@skpd.go.id", Role: role, SupervisorID: supervisorID}
	return id
}

func newProfileService() (*Service, *memoryProfileRepo) {
	repo := newMemoryProfileRepo()
	return NewService(repo, slog.New(slog.DiscardHandler)), repo
}

func TestRegisterDefaultsToStaff(t *testing.T) {
	svc, repo := newProfileService()

	p, err := svc.Register(context.Background(), RegisterInput{
		FullName: "  Ani Staf  ",
		Email:    "ani@skpd.go.id",
		Password: "rahasia-aman",
	})
	require.NoError(t, err)
	require.Equal(t, roles.RoleStaff, p.Role)
	require.Equal(t, "Ani Staf", p.FullName)
	require.NotEmpty(t, repo.hashes[p.ID])
	require.NotEqual(t, "rahasia-aman", repo.hashes[p.ID])
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newProfileService()

	_, err := svc.Register(context.Background(), RegisterInput{Email: "x@y.id", Password: "rahasia-aman"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Register(context.Background(), RegisterInput{FullName: "Ani", Email: "x@y.id", Password: "pendek"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateByAdminRejectsUnknownRole(t *testing.T) {
	svc, repo := newProfileService()
	admin := repo.add(roles.RoleAdmin, nil)
	target := repo.add(roles.RoleStaff, nil)

	_, err := svc.UpdateByAdmin(context.Background(), admin, target, AdminUpdateInput{Role: "koordinator"})
	require.ErrorIs(t, err, shared.ErrValidation)

	p, err := svc.UpdateByAdmin(context.Background(), admin, target, AdminUpdateInput{Role: "Kasubid"})
	require.NoError(t, err)
	require.Equal(t, roles.RoleKasubid, p.Role)
}

func TestUpdateByAdminRequiresSuperAuthority(t *testing.T) {
	svc, repo := newProfileService()
	kabid := repo.add(roles.RoleKabid, nil)
	target := repo.add(roles.RoleStaff, nil)

	_, err := svc.UpdateByAdmin(context.Background(), kabid, target, AdminUpdateInput{Unit: "Umum"})
	require.ErrorIs(t, err, shared.ErrNotAuthorized)
}

func TestSupervisorCycleRejected(t *testing.T) {
	service, store := newProfileService()
	admin := store.add(roles.RoleAdmin, nil)
	a := store.add(roles.RoleKasubid, nil)
	b := store.add(roles.RoleStaff, &a)

	// a -> b would close the loop b -> a -> b.
	_, err := service.UpdateByAdmin(context.Background(), admin, a, AdminUpdateInput{SupervisorID: &b})
	require.ErrorIs(t, err, shared.ErrValidation)

	// Self supervision is rejected outright.
	_, err = service.UpdateByAdmin(context.Background(), admin, a, AdminUpdateInput{SupervisorID: &a})
	require.ErrorIs(t, err, shared.ErrValidation)

	// A clean chain is accepted.
	c := store.add(roles.RoleKabid, nil)
	p, err := service.UpdateByAdmin(context.Background(), admin, a, AdminUpdateInput{SupervisorID: &c})
	require.NoError(t, err)
	require.Equal(t, c, *p.SupervisorID)
}

func TestDeleteGuards(t *testing.T) {
	svc, repo := newProfileService()
	admin := repo.add(roles.RoleAdmin, nil)
	busy := repo.add(roles.RoleStaff, nil)
	author := repo.add(roles.RoleKabid, nil)
	idle := repo.add(roles.RoleStaff, nil)
	repo.ledger[busy] = 3
	repo.authored[author] = 2

	require.ErrorIs(t, svc.Delete(context.Background(), admin, admin), shared.ErrNotAuthorized)
	require.ErrorIs(t, svc.Delete(context.Background(), admin, busy), shared.ErrValidation)
	require.ErrorIs(t, svc.Delete(context.Background(), admin, author), shared.ErrValidation, "pembuat tugas tidak boleh dihapus")
	require.NoError(t, svc.Delete(context.Background(), admin, idle))
	require.ErrorIs(t, svc.Delete(context.Background(), busy, admin), shared.ErrNotAuthorized)
}

func TestListAssignableByRole(t *testing.T) {
	svc, repo := newProfileService()
	kasubid := repo.add(roles.RoleKasubid, nil)
	kabid := repo.add(roles.RoleKabid, nil)
	staffOwn := repo.add(roles.RoleStaff, &kasubid)
	staffOther := repo.add(roles.RoleStaff, &kabid)
	plainStaff := repo.add(roles.RoleStaff, nil)

	// Kasubid only sees direct staff reports.
	list, err := svc.ListAssignable(context.Background(), kasubid)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, staffOwn, list[0].ID)

	// Kabid sees every staff and kasubid.
	list, err = svc.ListAssignable(context.Background(), kabid)
	require.NoError(t, err)
	ids := map[uuid.UUID]bool{}
	for _, p := range list {
		ids[p.ID] = true
	}
	require.True(t, ids[staffOwn])
	require.True(t, ids[staffOther])
	require.True(t, ids[kasubid])
	require.False(t, ids[kabid])

	// Staff may not delegate at all.
	_, err = svc.ListAssignable(context.Background(), plainStaff)
	require.ErrorIs(t, err, shared.ErrNotAuthorized)
}
