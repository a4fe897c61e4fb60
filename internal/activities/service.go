package activities

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/siaptugas/siaptugas/internal/profiles"
	"github.com/siaptugas/siaptugas/internal/shared"
)

// RepositoryPort defines data access for activities.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Activity, error)
	List(ctx context.Context) ([]Activity, error)
	Create(ctx context.Context, a Activity) (int64, error)
	Update(ctx context.Context, a Activity) error
	Delete(ctx context.Context, id int64) error
}

// ProfileDirectory resolves the actor for authorisation checks.
type ProfileDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (profiles.Profile, error)
}

// Service handles activity bookkeeping. Creating is limited to the
// approver roles, editing and deleting to the record owner or a super
// authority.
type Service struct {
	repo      RepositoryPort
	directory ProfileDirectory
	logger    *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, directory ProfileDirectory, logger *slog.Logger) *Service {
	return &Service{repo: repo, directory: directory, logger: logger}
}

// List returns all activities.
func (s *Service) List(ctx context.Context) ([]Activity, error) {
	return s.repo.List(ctx)
}

// Create records a new activity.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, input ActivityInput) (Activity, error) {
	actor, err := s.directory.Get(ctx, actorID)
	if err != nil {
		return Activity{}, err
	}
	if !actor.Role.Capabilities().CanCreateTasks {
		return Activity{}, fmt.Errorf("%w: role %s tidak dapat mencatat kegiatan", shared.ErrNotAuthorized, actor.Role)
	}
	a, err := validated(input)
	if err != nil {
		return Activity{}, err
	}
	a.CreatedBy = actorID
	id, err := s.repo.Create(ctx, a)
	if err != nil {
		return Activity{}, err
	}
	return s.repo.Get(ctx, id)
}

// Update edits an activity.
func (s *Service) Update(ctx context.Context, actorID uuid.UUID, id int64, input ActivityInput) (Activity, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	if err := s.requireOwnerOrAdmin(ctx, actorID, existing); err != nil {
		return Activity{}, err
	}
	a, err := validated(input)
	if err != nil {
		return Activity{}, err
	}
	a.ID = id
	if err := s.repo.Update(ctx, a); err != nil {
		return Activity{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes an activity.
func (s *Service) Delete(ctx context.Context, actorID uuid.UUID, id int64) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireOwnerOrAdmin(ctx, actorID, existing); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) requireOwnerOrAdmin(ctx context.Context, actorID uuid.UUID, a Activity) error {
	if a.CreatedBy == actorID {
		return nil
	}
	actor, err := s.directory.Get(ctx, actorID)
	if err != nil {
		return err
	}
	if !actor.Role.Capabilities().IsSuperAuthority {
		return fmt.Errorf("%w: kegiatan bukan milik anda", shared.ErrNotAuthorized)
	}
	return nil
}

func validated(input ActivityInput) (Activity, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Activity{}, fmt.Errorf("%w: nama kegiatan wajib diisi", shared.ErrValidation)
	}
	if input.HeldAt.IsZero() {
		return Activity{}, fmt.Errorf("%w: tanggal kegiatan wajib diisi", shared.ErrValidation)
	}
	return Activity{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Location:    strings.TrimSpace(input.Location),
		HeldAt:      input.HeldAt,
	}, nil
}
