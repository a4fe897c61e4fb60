package performance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/siaptugas/siaptugas/internal/profiles"
	"github.com/siaptugas/siaptugas/internal/roles"
	"github.com/siaptugas/siaptugas/internal/shared"
)

// RepositoryPort reads aggregated ledger counts, always scoped to the
// tasks the given author created.
type RepositoryPort interface {
	ListScorecards(ctx context.Context, authorID uuid.UUID) ([]Scorecard, error)
	ListScorecardsForSupervisor(ctx context.Context, authorID, supervisorID uuid.UUID) ([]Scorecard, error)
}

// ProfileDirectory resolves the actor for the visibility check.
type ProfileDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (profiles.Profile, error)
}

// Service exposes the performance recap.
type Service struct {
	repo      RepositoryPort
	directory ProfileDirectory
	logger    *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, directory ProfileDirectory, logger *slog.Logger) *Service {
	return &Service{repo: repo, directory: directory, logger: logger}
}

// Overview returns scorecards for the ledger entries under the actor's
// own tasks. A kasubid additionally only sees direct reports. Plain
// staff may not open the recap at all.
func (s *Service) Overview(ctx context.Context, actorID uuid.UUID) ([]Scorecard, error) {
	actor, err := s.directory.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	caps := actor.Role.Capabilities()
	if !caps.CanApprove && !caps.IsSuperAuthority {
		return nil, fmt.Errorf("%w: rekap kinerja hanya untuk pimpinan", shared.ErrNotAuthorized)
	}
	if actor.Role == roles.RoleKasubid {
		return s.repo.ListScorecardsForSupervisor(ctx, actor.ID, actor.ID)
	}
	return s.repo.ListScorecards(ctx, actor.ID)
}
