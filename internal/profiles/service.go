package profiles

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/siaptugas/siaptugas/internal/roles"
	"github.com/siaptugas/siaptugas/internal/shared"
)

// RepositoryPort defines data access methods for principals.
type RepositoryPort interface {
	Get(ctx context.Context, id uuid.UUID) (Profile, error)
	List(ctx context.Context) ([]Profile, error)
	ListByRoles(ctx context.Context, want []roles.Role) ([]Profile, error)
	ListSubordinates(ctx context.Context, supervisorID uuid.UUID, role roles.Role) ([]Profile, error)
	Create(ctx context.Context, p Profile, passwordHash string) error
	Update(ctx context.Context, p Profile) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountLedgerRecords(ctx context.Context, id uuid.UUID) (int64, error)
}

// Service handles principal management rules.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Register creates a new principal with the default staff role.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Profile, error) {
	input.FullName = strings.TrimSpace(input.FullName)
	input.Email = strings.TrimSpace(input.Email)
	if input.FullName == "" || input.Email == "" {
		return Profile{}, fmt.Errorf("%w: nama dan email wajib diisi", shared.ErrValidation)
	}
	if len(input.Password) < 8 {
		return Profile{}, fmt.Errorf("%w: password minimal 8 karakter", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return Profile{}, err
	}
	p := Profile{
		ID:       uuid.New(),
		FullName: input.FullName,
		NIP:      strings.TrimSpace(input.NIP),
		Email:    input.Email,
		Role:     roles.RoleStaff,
	}
	if err := s.repo.Create(ctx, p, string(hash)); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Get fetches a single profile.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Profile, error) {
	return s.repo.Get(ctx, id)
}

// List returns all profiles ordered by name.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	return s.repo.List(ctx)
}

// UpdateSelf lets a principal edit the limited set of own fields.
func (s *Service) UpdateSelf(ctx context.Context, actorID uuid.UUID, input SelfUpdateInput) (Profile, error) {
	p, err := s.repo.Get(ctx, actorID)
	if err != nil {
		return Profile{}, err
	}
	applySelfUpdate(&p, input)
	if p.FullName == "" || p.Email == "" {
		return Profile{}, fmt.Errorf("%w: nama dan email wajib diisi", shared.ErrValidation)
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// UpdateByAdmin lets a super authority manage any principal including
// role, unit and supervisor. A supervisor change that would close a loop
// in the reporting chain is rejected here, at write time, so reads never
// have to defend against cycles.
func (s *Service) UpdateByAdmin(ctx context.Context, actorID, targetID uuid.UUID, input AdminUpdateInput) (Profile, error) {
	if err := s.requireSuperAuthority(ctx, actorID); err != nil {
		return Profile{}, err
	}
	p, err := s.repo.Get(ctx, targetID)
	if err != nil {
		return Profile{}, err
	}
	applySelfUpdate(&p, input.SelfUpdateInput)
	if input.Role != "" {
		role := roles.Parse(input.Role)
		if !role.Valid() {
			return Profile{}, fmt.Errorf("%w: role %q tidak dikenal", shared.ErrValidation, input.Role)
		}
		p.Role = role
	}
	if input.Unit != "" {
		p.Unit = strings.TrimSpace(input.Unit)
	}
	if input.SupervisorID != nil {
		if *input.SupervisorID == uuid.Nil {
			p.SupervisorID = nil
		} else {
			if err := s.checkSupervisorCycle(ctx, targetID, *input.SupervisorID); err != nil {
				return Profile{}, err
			}
			id := *input.SupervisorID
			p.SupervisorID = &id
		}
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Delete removes a principal. Only a super authority may delete, never
// themselves, and never a principal still holding ledger records.
func (s *Service) Delete(ctx context.Context, actorID, targetID uuid.UUID) error {
	if err := s.requireSuperAuthority(ctx, actorID); err != nil {
		return err
	}
	if actorID == targetID {
		return fmt.Errorf("%w: tidak dapat menghapus akun sendiri", shared.ErrNotAuthorized)
	}
	count, err := s.repo.CountLedgerRecords(ctx, targetID)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: personel masih terkait dengan %d penugasan", shared.ErrValidation, count)
	}
	return s.repo.Delete(ctx, targetID)
}

// Hierarchy returns the delegation forest over all principals.
func (s *Service) Hierarchy(ctx context.Context) ([]*Node, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return BuildForest(list, s.logger), nil
}

// ListAssignable returns the candidate assignees an actor may delegate to.
// A kasubid only sees staff reporting directly to them; every other
// approver sees all staff and kasubid. The restriction is by role, not by
// descent, matching the behaviour of the source system.
func (s *Service) ListAssignable(ctx context.Context, actorID uuid.UUID) ([]Profile, error) {
	actor, err := s.repo.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	caps := actor.Role.Capabilities()
	if !caps.CanCreateTasks {
		return nil, fmt.Errorf("%w: role %s tidak dapat membuat penugasan", shared.ErrNotAuthorized, actor.Role)
	}
	if actor.Role == roles.RoleKasubid {
		return s.repo.ListSubordinates(ctx, actor.ID, roles.RoleStaff)
	}
	return s.repo.ListByRoles(ctx, []roles.Role{roles.RoleStaff, roles.RoleKasubid})
}

func (s *Service) requireSuperAuthority(ctx context.Context, actorID uuid.UUID) error {
	actor, err := s.repo.Get(ctx, actorID)
	if err != nil {
		return err
	}
	if !actor.Role.Capabilities().IsSuperAuthority {
		return fmt.Errorf("%w: hanya admin yang dapat mengelola personel", shared.ErrNotAuthorized)
	}
	return nil
}

// checkSupervisorCycle walks the proposed chain upwards and fails if it
// revisits the target.
func (s *Service) checkSupervisorCycle(ctx context.Context, targetID, supervisorID uuid.UUID) error {
	if targetID == supervisorID {
		return fmt.Errorf("%w: atasan tidak boleh diri sendiri", shared.ErrValidation)
	}
	seen := map[uuid.UUID]bool{targetID: true}
	current := supervisorID
	for {
		if seen[current] {
			return fmt.Errorf("%w: rantai atasan membentuk siklus", shared.ErrValidation)
		}
		seen[current] = true
		p, err := s.repo.Get(ctx, current)
		if err != nil {
			return err
		}
		if p.SupervisorID == nil {
			return nil
		}
		current = *p.SupervisorID
	}
}

func applySelfUpdate(p *Profile, input SelfUpdateInput) {
	if v := strings.TrimSpace(input.FullName); v != "" {
		p.FullName = v
	}
	if v := strings.TrimSpace(input.NIP); v != "" {
		p.NIP = v
	}
	if v := strings.TrimSpace(input.Email); v != "" {
		p.Email = v
	}
	if v := strings.TrimSpace(input.AvatarURL); v != "" {
		p.AvatarURL = v
	}
}
