package performance

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/siaptugas/siaptugas/internal/profiles"
	"github.com/siaptugas/siaptugas/internal/roles"
	"github.com/siaptugas/siaptugas/internal/shared"
)

type memoryScoreRepo struct {
	byAuthor map[uuid.UUID][]Scorecard
	reports  map[uuid.UUID][]Scorecard
	lastCall string
}

func (r *memoryScoreRepo) ListScorecards(ctx context.Context, authorID uuid.UUID) ([]Scorecard, error) {
	r.lastCall = "author"
	return r.byAuthor[authorID], nil
}

func (r *memoryScoreRepo) ListScorecardsForSupervisor(ctx context.Context, authorID, supervisorID uuid.UUID) ([]Scorecard, error) {
	r.lastCall = "supervisor"
	if len(r.byAuthor[authorID]) == 0 {
		return nil, nil
	}
	return r.reports[supervisorID], nil
}

type staticDirectory map[uuid.UUID]profiles.Profile

func (d staticDirectory) Get(ctx context.Context, id uuid.UUID) (profiles.Profile, error) {
	p, ok := d[id]
	if !ok {
		return profiles.Profile{}, shared.ErrNotFound
	}
	return p, nil
}

func TestOverviewVisibility(t *testing.T) {
	kabid := uuid.New()
	kasubid := uuid.New()
	staff := uuid.New()
	dir := staticDirectory{
		kabid:   {ID: kabid, Role: roles.RoleKabid},
		kasubid: {ID: kasubid, Role: roles.RoleKasubid},
		staff:   {ID: staff, Role: roles.RoleStaff},
	}
	repo := &memoryScoreRepo{
		byAuthor: map[uuid.UUID][]Scorecard{
			kabid:   {{FullName: "Ani", Completed: 3, Assigned: 1}},
			kasubid: {{FullName: "Bawahan", Submitted: 2}},
		},
		reports: map[uuid.UUID][]Scorecard{
			kasubid: {{FullName: "Bawahan", Submitted: 2}},
		},
	}
	svc := NewService(repo, dir, slog.New(slog.DiscardHandler))

	cards, err := svc.Overview(context.Background(), kabid)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	require.Equal(t, "author", repo.lastCall)

	cards, err = svc.Overview(context.Background(), kasubid)
	require.NoError(t, err)
	require.Equal(t, "supervisor", repo.lastCall)
	require.Equal(t, "Bawahan", cards[0].FullName)

	_, err = svc.Overview(context.Background(), staff)
	require.ErrorIs(t, err, shared.ErrNotAuthorized)
}

func TestOverviewOnlyCountsAuthoredTasks(t *testing.T) {
	kabid := uuid.New()
	otherAuthor := uuid.New()
	dir := staticDirectory{kabid: {ID: kabid, Role: roles.RoleKabid}}
	repo := &memoryScoreRepo{
		byAuthor: map[uuid.UUID][]Scorecard{
			otherAuthor: {{FullName: "Ani", Assigned: 2, Completed: 1}},
		},
	}
	svc := NewService(repo, dir, slog.New(slog.DiscardHandler))

	cards, err := svc.Overview(context.Background(), kabid)
	require.NoError(t, err)
	require.Empty(t, cards, "penilai tanpa tugas buatan sendiri harus melihat rekap kosong")
}

func TestOverviewEmptyLedger(t *testing.T) {
	admin := uuid.New()
	dir := staticDirectory{admin: {ID: admin, Role: roles.RoleAdmin}}
	repo := &memoryScoreRepo{}
	svc := NewService(repo, dir, slog.New(slog.DiscardHandler))

	cards, err := svc.Overview(context.Background(), admin)
	require.NoError(t, err)
	require.Empty(t, cards)
}

func TestScorecardRates(t *testing.T) {
	s := Scorecard{Assigned: 1, Submitted: 1, Completed: 2}
	require.Equal(t, int64(4), s.Total())
	require.InDelta(t, 0.5, s.CompletionRate(), 1e-9)
	require.Zero(t, Scorecard{}.CompletionRate())
}
