package profiles

import (
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/siaptugas/siaptugas/internal/roles"
)

func ref(id uuid.UUID) *uuid.UUID { return &id }

func TestBuildForestNestsBySupervisor(t *testing.T) {
	pimpinan := uuid.New()
	kabid := uuid.New()
	staff := uuid.New()
	list := []Profile{
		{ID: pimpinan, FullName: "SRI PIMPINAN", Role: roles.RolePimpinan},
		{ID: kabid, FullName: "BUDI KABID", Role: roles.RoleKabid, SupervisorID: ref(pimpinan)},
		{ID: staff, FullName: "ANI STAF", Role: roles.RoleStaff, SupervisorID: ref(kabid)},
	}

	forest := BuildForest(list, slog.New(slog.DiscardHandler))
	require.Len(t, forest, 1)
	root := forest[0]
	require.Equal(t, pimpinan, root.Profile.ID)
	require.Equal(t, "Sri Pimpinan", root.DisplayName)
	require.Len(t, root.Children, 1)
	require.Equal(t, kabid, root.Children[0].Profile.ID)
	require.Len(t, root.Children[0].Children, 1)
	require.Equal(t, staff, root.Children[0].Children[0].Profile.ID)
}

func TestBuildForestDanglingSupervisorBecomesRoot(t *testing.T) {
	ghost := uuid.New()
	orphan := uuid.New()
	list := []Profile{
		{ID: orphan, FullName: "Yatim", SupervisorID: ref(ghost)},
	}

	forest := BuildForest(list, slog.New(slog.DiscardHandler))
	require.Len(t, forest, 1)
	require.Equal(t, orphan, forest[0].Profile.ID)
}

func TestBuildForestSelfSupervisorBecomesRoot(t *testing.T) {
	id := uuid.New()
	list := []Profile{
		{ID: id, FullName: "Mandiri", SupervisorID: ref(id)},
	}

	forest := BuildForest(list, slog.New(slog.DiscardHandler))
	require.Len(t, forest, 1)
	require.Empty(t, forest[0].Children)
}

func TestBuildForestTerminatesOnCycle(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()
	list := []Profile{
		{ID: a, FullName: "A", SupervisorID: ref(b)},
		{ID: b, FullName: "B", SupervisorID: ref(a)},
		{ID: c, FullName: "C", SupervisorID: ref(a)},
	}

	forest := BuildForest(list, slog.New(slog.DiscardHandler))

	// Every profile must appear exactly once despite the A<->B cycle.
	seen := map[uuid.UUID]int{}
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			seen[n.Profile.ID]++
			walk(n.Children)
		}
	}
	walk(forest)
	require.Len(t, seen, 3)
	for id, count := range seen {
		require.Equalf(t, 1, count, "profile %s appeared %d times", id, count)
	}
}

func TestBuildForestEmpty(t *testing.T) {
	require.Empty(t, BuildForest(nil, slog.New(slog.DiscardHandler)))
}
