package tasks

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/siaptugas/siaptugas/internal/profiles"
	"github.com/siaptugas/siaptugas/internal/shared"
)

// ProfileDirectory resolves principals for authorisation checks and
// notification recipients.
type ProfileDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (profiles.Profile, error)
}

// AttachmentStore persists uploaded files with an external bridge and
// returns a public URL plus an opaque handle used for later deletion.
type AttachmentStore interface {
	Upload(ctx context.Context, up AttachmentUpload) (url, handle string, err error)
	Delete(ctx context.Context, handle string) error
}

// Notifier dispatches an assignment notice. Delivery is best effort:
// failures are logged by the caller and never roll anything back.
type Notifier interface {
	NotifyAssigned(ctx context.Context, notice AssignmentNotice) error
}

// Auditor records domain events into the audit trail.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements the delegation lifecycle.
type Service struct {
	repo      RepositoryPort
	directory ProfileDirectory
	store     AttachmentStore
	notifier  Notifier
	auditor   Auditor
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, directory ProfileDirectory, store AttachmentStore, notifier Notifier, auditor Auditor, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		store:     store,
		notifier:  notifier,
		auditor:   auditor,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateTask registers a new task and its full assignee set in one
// transaction. The attachment, if any, is uploaded first so the
// transaction never waits on the bridge.
func (s *Service) CreateTask(ctx context.Context, actorID uuid.UUID, input TaskInput, assigneeIDs []uuid.UUID) (Task, error) {
	author, err := s.directory.Get(ctx, actorID)
	if err != nil {
		return Task{}, err
	}
	if !author.Role.Capabilities().CanCreateTasks {
		return Task{}, fmt.Errorf("%w: role %s tidak dapat membuat penugasan", shared.ErrNotAuthorized, author.Role)
	}
	input, assigneeIDs, err = normalizeTaskInput(input, assigneeIDs)
	if err != nil {
		return Task{}, err
	}

	t := Task{
		Number:    s.nextNumber(),
		Title:     input.Title,
		Narrative: input.Narrative,
		DueDate:   input.DueDate,
		AuthorID:  actorID,
	}
	if input.Attachment != nil {
		t.AttachmentURL, t.AttachmentHandle, err = s.store.Upload(ctx, *input.Attachment)
		if err != nil {
			return Task{}, err
		}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateTask(ctx, t)
		if err != nil {
			return err
		}
		t.ID = id
		for _, assigneeID := range assigneeIDs {
			if err := tx.InsertAssignment(ctx, id, assigneeID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.releaseAttachment(ctx, t.AttachmentHandle)
		return Task{}, err
	}

	s.audit(ctx, actorID, "task.create", t.ID, map[string]any{"number": t.Number, "assignees": len(assigneeIDs)})
	s.notifyAssignees(ctx, t, author.FullName, assigneeIDs)
	return s.repo.GetTask(ctx, t.ID)
}

// UpdateTask edits the task fields and replaces the assignee set
// wholesale: every existing ledger entry is dropped, including any
// submitted or completed work, and the new set starts over at Assigned.
func (s *Service) UpdateTask(ctx context.Context, actorID uuid.UUID, taskID int64, input TaskInput, assigneeIDs []uuid.UUID) (Task, error) {
	existing, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	if existing.AuthorID != actorID {
		return Task{}, fmt.Errorf("%w: hanya pembuat tugas yang dapat mengubahnya", shared.ErrNotAuthorized)
	}
	input, assigneeIDs, err = normalizeTaskInput(input, assigneeIDs)
	if err != nil {
		return Task{}, err
	}

	t := existing
	t.Title = input.Title
	t.Narrative = input.Narrative
	t.DueDate = input.DueDate
	oldHandle := ""
	if input.Attachment != nil {
		t.AttachmentURL, t.AttachmentHandle, err = s.store.Upload(ctx, *input.Attachment)
		if err != nil {
			return Task{}, err
		}
		oldHandle = existing.AttachmentHandle
	}

	previous := make(map[uuid.UUID]bool, len(existing.Assignments))
	for _, a := range existing.Assignments {
		previous[a.AssigneeID] = true
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateTask(ctx, t); err != nil {
			return err
		}
		if err := tx.DeleteAssignmentsForTask(ctx, taskID); err != nil {
			return err
		}
		for _, assigneeID := range assigneeIDs {
			if err := tx.InsertAssignment(ctx, taskID, assigneeID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if input.Attachment != nil {
			s.releaseAttachment(ctx, t.AttachmentHandle)
		}
		return Task{}, err
	}
	s.releaseAttachment(ctx, oldHandle)

	author, err := s.directory.Get(ctx, actorID)
	if err != nil {
		return Task{}, err
	}
	var added []uuid.UUID
	for _, id := range assigneeIDs {
		if !previous[id] {
			added = append(added, id)
		}
	}
	s.audit(ctx, actorID, "task.update", taskID, map[string]any{"assignees": len(assigneeIDs), "added": len(added)})
	s.notifyAssignees(ctx, t, author.FullName, added)
	return s.repo.GetTask(ctx, taskID)
}

// DeleteTask removes the task and every ledger entry under it. The
// task attachment is released afterwards, best effort.
func (s *Service) DeleteTask(ctx context.Context, actorID uuid.UUID, taskID int64) error {
	existing, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if existing.AuthorID != actorID {
		return fmt.Errorf("%w: hanya pembuat tugas yang dapat menghapusnya", shared.ErrNotAuthorized)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteAssignmentsForTask(ctx, taskID); err != nil {
			return err
		}
		return tx.DeleteTask(ctx, taskID)
	})
	if err != nil {
		return err
	}
	s.releaseAttachment(ctx, existing.AttachmentHandle)
	s.audit(ctx, actorID, "task.delete", taskID, map[string]any{"number": existing.Number})
	return nil
}

// GetTask returns one task with its ledger, readable by the author or
// any of its assignees.
func (s *Service) GetTask(ctx context.Context, actorID uuid.UUID, taskID int64) (Task, error) {
	t, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	if t.AuthorID == actorID {
		return t, nil
	}
	for _, a := range t.Assignments {
		if a.AssigneeID == actorID {
			return t, nil
		}
	}
	return Task{}, fmt.Errorf("%w: tugas bukan milik anda", shared.ErrNotAuthorized)
}

// ListTasksForAuthor returns the tasks created by the actor, newest first.
func (s *Service) ListTasksForAuthor(ctx context.Context, actorID uuid.UUID) ([]Task, error) {
	return s.repo.ListTasksByAuthor(ctx, actorID)
}

// ListAssignmentsForAssignee returns the actor's ledger entries with
// their owning tasks, newest first.
func (s *Service) ListAssignmentsForAssignee(ctx context.Context, actorID uuid.UUID) ([]AssignmentDetail, error) {
	return s.repo.ListAssignmentsForAssignee(ctx, actorID)
}

// Submit hands in the assignee's report. A first submission moves
// Assigned to Submitted; submitting again while still Submitted
// replaces the report after a correction request. Completed entries
// are immutable.
func (s *Service) Submit(ctx context.Context, actorID uuid.UUID, assignmentID int64, report string, attachment *AttachmentUpload) (Assignment, error) {
	a, err := s.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return Assignment{}, err
	}
	if a.AssigneeID != actorID {
		return Assignment{}, fmt.Errorf("%w: penugasan bukan milik anda", shared.ErrNotAuthorized)
	}
	if a.Status == StatusCompleted {
		return Assignment{}, fmt.Errorf("%w: penugasan sudah selesai", shared.ErrInvalidTransition)
	}
	report = strings.TrimSpace(report)
	if report == "" {
		return Assignment{}, fmt.Errorf("%w: narasi laporan wajib diisi", shared.ErrValidation)
	}

	url, handle := a.ReportAttachmentURL, a.ReportAttachmentHandle
	oldHandle := ""
	if attachment != nil {
		url, handle, err = s.store.Upload(ctx, *attachment)
		if err != nil {
			return Assignment{}, err
		}
		oldHandle = a.ReportAttachmentHandle
	}
	if err := s.repo.SubmitAssignment(ctx, assignmentID, a.Status, report, url, handle); err != nil {
		if attachment != nil {
			s.releaseAttachment(ctx, handle)
		}
		return Assignment{}, err
	}
	s.releaseAttachment(ctx, oldHandle)
	s.audit(ctx, actorID, "assignment.submit", assignmentID, nil)
	return s.repo.GetAssignment(ctx, assignmentID)
}

// Withdraw pulls a submitted report back to Assigned and discards the
// report content and its attachment.
func (s *Service) Withdraw(ctx context.Context, actorID uuid.UUID, assignmentID int64) (Assignment, error) {
	a, err := s.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return Assignment{}, err
	}
	if a.AssigneeID != actorID {
		return Assignment{}, fmt.Errorf("%w: penugasan bukan milik anda", shared.ErrNotAuthorized)
	}
	if err := s.repo.WithdrawAssignment(ctx, assignmentID); err != nil {
		return Assignment{}, err
	}
	s.releaseAttachment(ctx, a.ReportAttachmentHandle)
	s.audit(ctx, actorID, "assignment.withdraw", assignmentID, nil)
	return s.repo.GetAssignment(ctx, assignmentID)
}

// Approve accepts a submitted report, moving the entry to Completed.
// Only the task author may approve.
func (s *Service) Approve(ctx context.Context, actorID uuid.UUID, assignmentID int64) (Assignment, error) {
	a, err := s.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return Assignment{}, err
	}
	if err := s.requireAuthor(ctx, actorID, a.TaskID); err != nil {
		return Assignment{}, err
	}
	if err := s.repo.CompleteAssignment(ctx, assignmentID); err != nil {
		return Assignment{}, err
	}
	s.audit(ctx, actorID, "assignment.approve", assignmentID, nil)
	return s.repo.GetAssignment(ctx, assignmentID)
}

// RequestCorrection attaches a correction note to a submitted report.
// The entry stays Submitted so the assignee can revise in place or
// withdraw and start over.
func (s *Service) RequestCorrection(ctx context.Context, actorID uuid.UUID, assignmentID int64, note string) (Assignment, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return Assignment{}, fmt.Errorf("%w: catatan koreksi wajib diisi", shared.ErrValidation)
	}
	a, err := s.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return Assignment{}, err
	}
	if err := s.requireAuthor(ctx, actorID, a.TaskID); err != nil {
		return Assignment{}, err
	}
	if err := s.repo.SetCorrectionNote(ctx, assignmentID, note); err != nil {
		return Assignment{}, err
	}
	s.audit(ctx, actorID, "assignment.correction", assignmentID, map[string]any{"note": note})
	return s.repo.GetAssignment(ctx, assignmentID)
}

func (s *Service) requireAuthor(ctx context.Context, actorID uuid.UUID, taskID int64) error {
	actor, err := s.directory.Get(ctx, actorID)
	if err != nil {
		return err
	}
	if !actor.Role.Capabilities().CanApprove {
		return fmt.Errorf("%w: role %s tidak dapat menilai laporan", shared.ErrNotAuthorized, actor.Role)
	}
	t, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if t.AuthorID != actorID {
		return fmt.Errorf("%w: hanya pembuat tugas yang dapat menilai laporan", shared.ErrNotAuthorized)
	}
	return nil
}

// notifyAssignees fans notices out concurrently after commit. A failed
// delivery only produces a log line.
func (s *Service) notifyAssignees(ctx context.Context, t Task, authorName string, assigneeIDs []uuid.UUID) {
	if s.notifier == nil || len(assigneeIDs) == 0 {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, id := range assigneeIDs {
		id := id
		g.Go(func() error {
			recipient, err := s.directory.Get(gctx, id)
			if err != nil {
				s.logger.Warn("notifikasi dilewati, penerima tidak ditemukan", "assignee_id", id, "error", err)
				return nil
			}
			notice := AssignmentNotice{
				RecipientName:  recipient.FullName,
				RecipientEmail: recipient.Email,
				TaskNumber:     t.Number,
				TaskTitle:      t.Title,
				Narrative:      t.Narrative,
				DueDate:        t.DueDate,
				AuthorName:     authorName,
			}
			if err := s.notifier.NotifyAssigned(gctx, notice); err != nil {
				s.logger.Warn("notifikasi penugasan gagal", "assignee_id", id, "task", t.Number, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) releaseAttachment(ctx context.Context, handle string) {
	if handle == "" || s.store == nil {
		return
	}
	if err := s.store.Delete(ctx, handle); err != nil {
		s.logger.Warn("gagal menghapus lampiran", "handle", handle, "error", err)
	}
}

func (s *Service) audit(ctx context.Context, actorID uuid.UUID, action string, entityID int64, meta map[string]any) {
	if s.auditor == nil {
		return
	}
	log := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "task",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
		At:       s.now(),
	}
	if err := s.auditor.Record(ctx, log); err != nil {
		s.logger.Warn("gagal mencatat audit", "action", action, "error", err)
	}
}

// nextNumber carries a random suffix so two tasks created in the same
// millisecond never collide on the unique number column.
func (s *Service) nextNumber() string {
	var buf [3]byte
	_, _ = rand.Read(buf[:])
	return fmt.Sprintf("MSN-%d-%X", s.now().UnixMilli(), buf)
}

func normalizeTaskInput(input TaskInput, assigneeIDs []uuid.UUID) (TaskInput, []uuid.UUID, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Narrative = strings.TrimSpace(input.Narrative)
	if input.Title == "" {
		return input, nil, fmt.Errorf("%w: judul tugas wajib diisi", shared.ErrValidation)
	}
	if input.DueDate.IsZero() {
		return input, nil, fmt.Errorf("%w: batas waktu wajib diisi", shared.ErrValidation)
	}
	seen := make(map[uuid.UUID]bool, len(assigneeIDs))
	unique := make([]uuid.UUID, 0, len(assigneeIDs))
	for _, id := range assigneeIDs {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return input, nil, fmt.Errorf("%w: pilih minimal satu pelaksana", shared.ErrValidation)
	}
	return input, unique, nil
}
