package tasks

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/siaptugas/siaptugas/internal/profiles"
	"github.com/siaptugas/siaptugas/internal/roles"
	"github.com/siaptugas/siaptugas/internal/shared"
)

type memoryTaskRepo struct {
	tasks       map[int64]Task
	assignments map[int64]Assignment
	profiles    map[uuid.UUID]profiles.Profile
	nextID      int64
}

type memoryTaskTx struct {
	repo *memoryTaskRepo
}

func newMemoryTaskRepo() *memoryTaskRepo {
	return &memoryTaskRepo{
		tasks:       make(map[int64]Task),
		assignments: make(map[int64]Assignment),
		profiles:    make(map[uuid.UUID]profiles.Profile),
	}
}

func (r *memoryTaskRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTaskTx{repo: r})
}

func (r *memoryTaskRepo) GetTask(ctx context.Context, id int64) (Task, error) {
	t, ok := r.tasks[id]
	if !ok {
		return Task{}, shared.ErrNotFound
	}
	t.Assignments = nil
	for _, a := range r.assignments {
		if a.TaskID == id {
			t.Assignments = append(t.Assignments, a)
		}
	}
	return t, nil
}

func (r *memoryTaskRepo) ListTasksByAuthor(ctx context.Context, authorID uuid.UUID) ([]Task, error) {
	var list []Task
	for id, t := range r.tasks {
		if t.AuthorID == authorID {
			full, _ := r.GetTask(ctx, id)
			list = append(list, full)
		}
	}
	return list, nil
}

func (r *memoryTaskRepo) GetAssignment(ctx context.Context, id int64) (Assignment, error) {
	a, ok := r.assignments[id]
	if !ok {
		return Assignment{}, shared.ErrNotFound
	}
	return a, nil
}

func (r *memoryTaskRepo) ListAssignmentsForAssignee(ctx context.Context, assigneeID uuid.UUID) ([]AssignmentDetail, error) {
	var list []AssignmentDetail
	for _, a := range r.assignments {
		if a.AssigneeID == assigneeID {
			list = append(list, AssignmentDetail{Assignment: a, Task: r.tasks[a.TaskID]})
		}
	}
	return list, nil
}

func (r *memoryTaskRepo) SubmitAssignment(ctx context.Context, id int64, expected Status, report, attachmentURL, attachmentHandle string) error {
	a, ok := r.assignments[id]
	if !ok {
		return shared.ErrNotFound
	}
	if a.Status != expected {
		return shared.ErrInvalidTransition
	}
	a.Status = StatusSubmitted
	a.Report = report
	a.CorrectionNote = ""
	a.ReportAttachmentURL = attachmentURL
	a.ReportAttachmentHandle = attachmentHandle
	r.assignments[id] = a
	return nil
}

func (r *memoryTaskRepo) WithdrawAssignment(ctx context.Context, id int64) error {
	a, ok := r.assignments[id]
	if !ok {
		return shared.ErrNotFound
	}
	if a.Status != StatusSubmitted {
		return shared.ErrInvalidTransition
	}
	a.Status = StatusAssigned
	a.Report = ""
	a.CorrectionNote = ""
	a.ReportAttachmentURL = ""
	a.ReportAttachmentHandle = ""
	r.assignments[id] = a
	return nil
}

func (r *memoryTaskRepo) CompleteAssignment(ctx context.Context, id int64) error {
	a, ok := r.assignments[id]
	if !ok {
		return shared.ErrNotFound
	}
	if a.Status != StatusSubmitted {
		return shared.ErrInvalidTransition
	}
	a.Status = StatusCompleted
	a.CorrectionNote = ""
	r.assignments[id] = a
	return nil
}

func (r *memoryTaskRepo) SetCorrectionNote(ctx context.Context, id int64, note string) error {
	a, ok := r.assignments[id]
	if !ok {
		return shared.ErrNotFound
	}
	if a.Status != StatusSubmitted {
		return shared.ErrInvalidTransition
	}
	a.CorrectionNote = note
	r.assignments[id] = a
	return nil
}

func (tx *memoryTaskTx) CreateTask(ctx context.Context, t Task) (int64, error) {
	tx.repo.nextID++
	t.ID = tx.repo.nextID
	t.CreatedAt = time.Now()
	tx.repo.tasks[t.ID] = t
	return t.ID, nil
}

func (tx *memoryTaskTx) UpdateTask(ctx context.Context, t Task) error {
	if _, ok := tx.repo.tasks[t.ID]; !ok {
		return shared.ErrNotFound
	}
	t.Assignments = nil
	tx.repo.tasks[t.ID] = t
	return nil
}

func (tx *memoryTaskTx) DeleteTask(ctx context.Context, id int64) error {
	if _, ok := tx.repo.tasks[id]; !ok {
		return shared.ErrNotFound
	}
	delete(tx.repo.tasks, id)
	return nil
}

func (tx *memoryTaskTx) DeleteAssignmentsForTask(ctx context.Context, taskID int64) error {
	for id, a := range tx.repo.assignments {
		if a.TaskID == taskID {
			delete(tx.repo.assignments, id)
		}
	}
	return nil
}

func (tx *memoryTaskTx) InsertAssignment(ctx context.Context, taskID int64, assigneeID uuid.UUID) error {
	for _, a := range tx.repo.assignments {
		if a.TaskID == taskID && a.AssigneeID == assigneeID {
			return shared.ErrValidation
		}
	}
	tx.repo.nextID++
	p := tx.repo.profiles[assigneeID]
	tx.repo.assignments[tx.repo.nextID] = Assignment{
		ID:           tx.repo.nextID,
		TaskID:       taskID,
		AssigneeID:   assigneeID,
		AssigneeName: p.FullName,
		AssigneeRole: p.Role,
		Status:       StatusAssigned,
	}
	return nil
}

func (r *memoryTaskRepo) Get(ctx context.Context, id uuid.UUID) (profiles.Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return profiles.Profile{}, shared.ErrNotFound
	}
	return p, nil
}

type fakeStore struct {
	mu       sync.Mutex
	uploads  int
	deleted  []string
	failNext bool
}

func (s *fakeStore) Upload(ctx context.Context, up AttachmentUpload) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return "", "", shared.ErrExternal
	}
	s.uploads++
	return "https://drive.test/" + up.Filename, "handle-" + up.Filename, nil
}

func (s *fakeStore) Delete(ctx context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, handle)
	return nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []AssignmentNotice
}

func (n *fakeNotifier) NotifyAssigned(ctx context.Context, notice AssignmentNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

func (n *fakeNotifier) recipients() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, notice := range n.notices {
		out = append(out, notice.RecipientEmail)
	}
	return out
}

func newTaskFixture(t *testing.T) (*Service, *memoryTaskRepo, *fakeStore, *fakeNotifier, uuid.UUID, uuid.UUID, uuid.UUID) {
	t.Helper()
	repo := newMemoryTaskRepo()
	author := uuid.New()
	staffA := uuid.New()
	staffB := uuid.New()
	repo.profiles[author] = profiles.Profile{ID: author, FullName: "Budi Kabid", Email: "budi@skpd.go.id", Role: roles.RoleKabid}
	repo.profiles[staffA] = profiles.Profile{ID: staffA, FullName: "Ani Staf", Email: "ani@skpd.go.id", Role: roles.RoleStaff}
	repo.profiles[staffB] = profiles.Profile{ID: staffB, FullName: "Caca Staf", Email: "caca@skpd.go.id", Role: roles.RoleStaff}
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	logger := slog.New(slog.DiscardHandler)
	svc := NewService(repo, repo, store, notifier, nil, logger)
	return svc, repo, store, notifier, author, staffA, staffB
}

func validInput() TaskInput {
	return TaskInput{
		Title:     "Laporan kinerja triwulan",
		Narrative: "Susun laporan triwulan II",
		DueDate:   time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateTaskAssignsAndNotifies(t *testing.T) {
	svc, _, _, notifier, author, staffA, staffB := newTaskFixture(t)

	task, err := svc.CreateTask(context.Background(), author, validInput(), []uuid.UUID{staffA, staffB, staffA})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(task.Number, "MSN-"))
	require.Len(t, task.Assignments, 2, "duplicate assignee must collapse")
	for _, a := range task.Assignments {
		require.Equal(t, StatusAssigned, a.Status)
	}
	require.ElementsMatch(t, []string{"ani@skpd.go.id", "caca@skpd.go.id"}, notifier.recipients())
}

func TestCreateTaskRejectsNonApprover(t *testing.T) {
	svc, _, _, _, _, staffA, staffB := newTaskFixture(t)

	_, err := svc.CreateTask(context.Background(), staffA, validInput(), []uuid.UUID{staffB})
	require.ErrorIs(t, err, shared.ErrNotAuthorized)
}

func TestCreateTaskRequiresAssignee(t *testing.T) {
	svc, _, _, _, author, _, _ := newTaskFixture(t)

	_, err := svc.CreateTask(context.Background(), author, validInput(), nil)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSubmitApproveLifecycle(t *testing.T) {
	svc, _, _, _, author, staffA, _ := newTaskFixture(t)
	task, err := svc.CreateTask(context.Background(), author, validInput(), []uuid.UUID{staffA})
	require.NoError(t, err)
	entry := task.Assignments[0]

	submitted, err := svc.Submit(context.Background(), staffA, entry.ID, "laporan selesai", nil)
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, submitted.Status)
	require.Equal(t, "laporan selesai", submitted.Report)

	done, err := svc.Approve(context.Background(), author, entry.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, done.Status)

	_, err = svc.Approve(context.Background(), author, entry.ID)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	_, err = svc.Submit(context.Background(), staffA, entry.ID, "revisi", nil)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestSubmitRejectsOtherAssignee(t *testing.T) {
	svc, _, _, _, author, staffA, staffB := newTaskFixture(t)
	task, err := svc.CreateTask(context.Background(), author, validInput(), []uuid.UUID{staffA})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), staffB, task.Assignments[0].ID, "bukan punya saya", nil)
	require.ErrorIs(t, err, shared.ErrNotAuthorized)
}

func TestWithdrawDiscardsReport(t *testing.T) {
	svc, _, store, _, author, staffA, _ := newTaskFixture(t)
	task, err := svc.CreateTask(context.Background(), author, validInput(), []uuid.UUID{staffA})
	require.NoError(t, err)
	entry := task.Assignments[0]

	_, err = svc.Submit(context.Background(), staffA, entry.ID, "draft awal", &AttachmentUpload{Filename: "laporan.pdf"})
	require.NoError(t, err)

	back, err := svc.Withdraw(context.Background(), staffA, entry.ID)
	require.NoError(t, err)
	require.Equal(t, StatusAssigned, back.Status)
	require.Empty(t, back.Report)
	require.Contains(t, store.deleted, "handle-laporan.pdf")

	_, err = svc.Withdraw(context.Background(), staffA, entry.ID)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestCorrectionLoop(t *testing.T) {
	svc, _, _, _, author, staffA, _ := newTaskFixture(t)
	task, err := svc.CreateTask(context.Background(), author, validInput(), []uuid.UUID{staffA})
	require.NoError(t, err)
	entry := task.Assignments[0]

	_, err = svc.Submit(context.Background(), staffA, entry.ID, "draft awal", nil)
	require.NoError(t, err)

	noted, err := svc.RequestCorrection(context.Background(), author, entry.ID, "lengkapi lampiran")
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, noted.Status)
	require.Equal(t, "lengkapi lampiran", noted.CorrectionNote)

	revised, err := svc.Submit(context.Background(), staffA, entry.ID, "draft revisi", nil)
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, revised.Status)
	require.Empty(t, revised.CorrectionNote, "resubmission clears the note")

	_, err = svc.RequestCorrection(context.Background(), staffA, entry.ID, "saya sendiri")
	require.ErrorIs(t, err, shared.ErrNotAuthorized)
}

func TestApproveRequiresApproverRole(t *testing.T) {
	svc, repo, _, _, author, staffA, _ := newTaskFixture(t)
	task, err := svc.CreateTask(context.Background(), author, validInput(), []uuid.UUID{staffA})
	require.NoError(t, err)
	entry := task.Assignments[0]

	_, err = svc.Submit(context.Background(), staffA, entry.ID, "laporan selesai", nil)
	require.NoError(t, err)

	// The author lost their approval role after creating the task.
	demoted := repo.profiles[author]
	demoted.Role = roles.RoleStaff
	repo.profiles[author] = demoted

	_, err = svc.Approve(context.Background(), author, entry.ID)
	require.ErrorIs(t, err, shared.ErrNotAuthorized)
	_, err = svc.RequestCorrection(context.Background(), author, entry.ID, "perbaiki format")
	require.ErrorIs(t, err, shared.ErrNotAuthorized)

	current, err := svc.GetTask(context.Background(), staffA, task.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, current.Assignments[0].Status)
}

func TestTaskNumbersUniqueWithinMillisecond(t *testing.T) {
	svc, _, _, _, author, staffA, _ := newTaskFixture(t)
	frozen := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return frozen }

	first, err := svc.CreateTask(context.Background(), author, validInput(), []uuid.UUID{staffA})
	require.NoError(t, err)
	second, err := svc.CreateTask(context.Background(), author, validInput(), []uuid.UUID{staffA})
	require.NoError(t, err)
	require.NotEqual(t, first.Number, second.Number)
}

func TestUpdateTaskReplacesAssigneeSet(t *testing.T) {
	svc, repo, _, notifier, author, staffA, staffB := newTaskFixture(t)
	staffC := uuid.New()
	repo.profiles[staffC] = profiles.Profile{ID: staffC, FullName: "Dedi Staf", Email: "dedi@skpd.go.id", Role: roles.RoleStaff}

	task, err := svc.CreateTask(context.Background(), author, validInput(), []uuid.UUID{staffA, staffB})
	require.NoError(t, err)

	var entryB Assignment
	for _, a := range task.Assignments {
		if a.AssigneeID == staffB {
			entryB = a
		}
	}
	_, err = svc.Submit(context.Background(), staffB, entryB.ID, "sudah jadi", nil)
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), author, entryB.ID)
	require.NoError(t, err)

	// Replacement is wholesale: B restarts at Assigned, A is dropped,
	// only the newcomer C is notified.
	updated, err := svc.UpdateTask(context.Background(), author, task.ID, validInput(), []uuid.UUID{staffB, staffC})
	require.NoError(t, err)
	require.Len(t, updated.Assignments, 2)
	seen := map[uuid.UUID]Status{}
	for _, a := range updated.Assignments {
		seen[a.AssigneeID] = a.Status
		require.Equal(t, StatusAssigned, a.Status)
		require.Empty(t, a.Report)
	}
	require.Contains(t, seen, staffB)
	require.Contains(t, seen, staffC)
	require.NotContains(t, seen, staffA)
	require.Equal(t, []string{"ani@skpd.go.id", "caca@skpd.go.id", "dedi@skpd.go.id"}, sorted(notifier.recipients()))
}

func TestUpdateTaskRejectsNonAuthor(t *testing.T) {
	svc, _, _, _, author, staffA, _ := newTaskFixture(t)
	task, err := svc.CreateTask(context.Background(), author, validInput(), []uuid.UUID{staffA})
	require.NoError(t, err)

	_, err = svc.UpdateTask(context.Background(), staffA, task.ID, validInput(), []uuid.UUID{staffA})
	require.ErrorIs(t, err, shared.ErrNotAuthorized)
}

func TestDeleteTaskReleasesAttachment(t *testing.T) {
	svc, repo, store, _, author, staffA, _ := newTaskFixture(t)
	input := validInput()
	input.Attachment = &AttachmentUpload{Filename: "surat.pdf"}
	task, err := svc.CreateTask(context.Background(), author, input, []uuid.UUID{staffA})
	require.NoError(t, err)
	require.Equal(t, "https://drive.test/surat.pdf", task.AttachmentURL)

	require.NoError(t, svc.DeleteTask(context.Background(), author, task.ID))
	require.Empty(t, repo.tasks)
	require.Empty(t, repo.assignments)
	require.Contains(t, store.deleted, "handle-surat.pdf")
}

func TestGetTaskVisibleToAuthorAndAssignee(t *testing.T) {
	svc, _, _, _, author, staffA, staffB := newTaskFixture(t)
	task, err := svc.CreateTask(context.Background(), author, validInput(), []uuid.UUID{staffA})
	require.NoError(t, err)

	_, err = svc.GetTask(context.Background(), author, task.ID)
	require.NoError(t, err)
	_, err = svc.GetTask(context.Background(), staffA, task.ID)
	require.NoError(t, err)
	_, err = svc.GetTask(context.Background(), staffB, task.ID)
	require.ErrorIs(t, err, shared.ErrNotAuthorized)
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
