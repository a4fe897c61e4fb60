package tasks

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryPort describes the persistence operations used by Service.
// Status mutations are compare-and-set style: they only apply when the
// stored status still equals the expected one, so a stale retry can
// never clobber a newer transition.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetTask(ctx context.Context, id int64) (Task, error)
	ListTasksByAuthor(ctx context.Context, authorID uuid.UUID) ([]Task, error)

	GetAssignment(ctx context.Context, id int64) (Assignment, error)
	ListAssignmentsForAssignee(ctx context.Context, assigneeID uuid.UUID) ([]AssignmentDetail, error)

	SubmitAssignment(ctx context.Context, id int64, expected Status, report, attachmentURL, attachmentHandle string) error
	WithdrawAssignment(ctx context.Context, id int64) error
	CompleteAssignment(ctx context.Context, id int64) error
	SetCorrectionNote(ctx context.Context, id int64, note string) error
}

// TxRepository exposes the operations valid inside a transaction.
// Task creation and assignee-set replacement run here so readers only
// ever observe the full old set or the full new set.
type TxRepository interface {
	CreateTask(ctx context.Context, t Task) (int64, error)
	UpdateTask(ctx context.Context, t Task) error
	DeleteTask(ctx context.Context, id int64) error
	DeleteAssignmentsForTask(ctx context.Context, taskID int64) error
	InsertAssignment(ctx context.Context, taskID int64, assigneeID uuid.UUID) error
}
