package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/siaptugas/siaptugas/internal/platform/db"
	"github.com/siaptugas/siaptugas/internal/roles"
	"github.com/siaptugas/siaptugas/internal/shared"
)

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL backed task repository.
func NewRepository(pool *pgxpool.Pool) RepositoryPort {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const taskColumns = `id, number, title, narrative, due_date, attachment_url, attachment_handle, author_id, created_at`

func (r *repository) GetTask(ctx context.Context, id int64) (Task, error) {
	row := r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, shared.ErrNotFound
		}
		return Task{}, err
	}
	assignments, err := r.assignmentsForTasks(ctx, []int64{t.ID})
	if err != nil {
		return Task{}, err
	}
	t.Assignments = assignments[t.ID]
	return t, nil
}

func (r *repository) ListTasksByAuthor(ctx context.Context, authorID uuid.UUID) ([]Task, error) {
	rows, err := r.db.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE author_id = $1 ORDER BY created_at DESC, id DESC`, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Task
	var ids []int64
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return list, nil
	}
	byTask, err := r.assignmentsForTasks(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Assignments = byTask[list[i].ID]
	}
	return list, nil
}

func (r *repository) GetAssignment(ctx context.Context, id int64) (Assignment, error) {
	row := r.db.QueryRow(ctx, `SELECT a.id, a.task_id, a.assignee_id, p.full_name, p.role, p.avatar_url,
a.status, a.report, a.correction_note, a.report_attachment_url, a.report_attachment_handle
FROM assignments a JOIN principals p ON p.id = a.assignee_id WHERE a.id = $1`, id)
	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Assignment{}, shared.ErrNotFound
		}
		return Assignment{}, err
	}
	return a, nil
}

func (r *repository) ListAssignmentsForAssignee(ctx context.Context, assigneeID uuid.UUID) ([]AssignmentDetail, error) {
	rows, err := r.db.Query(ctx, `SELECT a.id, a.task_id, a.assignee_id, p.full_name, p.role, p.avatar_url,
a.status, a.report, a.correction_note, a.report_attachment_url, a.report_attachment_handle,
t.number, t.title, t.narrative, t.due_date, t.attachment_url, t.attachment_handle, t.author_id, t.created_at
FROM assignments a
JOIN principals p ON p.id = a.assignee_id
JOIN tasks t ON t.id = a.task_id
WHERE a.assignee_id = $1
ORDER BY a.id DESC`, assigneeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []AssignmentDetail
	for rows.Next() {
		var d AssignmentDetail
		var role string
		var avatar, report, note, repURL, repHandle, taskURL, taskHandle pgtype.Text
		if err := rows.Scan(&d.ID, &d.TaskID, &d.AssigneeID, &d.AssigneeName, &role, &avatar,
			&d.Status, &report, &note, &repURL, &repHandle,
			&d.Task.Number, &d.Task.Title, &d.Task.Narrative, &d.Task.DueDate, &taskURL, &taskHandle, &d.Task.AuthorID, &d.Task.CreatedAt); err != nil {
			return nil, err
		}
		d.AssigneeRole = roles.Parse(role)
		d.AssigneeAvatarURL = textOrEmpty(avatar)
		d.Report = textOrEmpty(report)
		d.CorrectionNote = textOrEmpty(note)
		d.ReportAttachmentURL = textOrEmpty(repURL)
		d.ReportAttachmentHandle = textOrEmpty(repHandle)
		d.Task.ID = d.TaskID
		d.Task.AttachmentURL = textOrEmpty(taskURL)
		d.Task.AttachmentHandle = textOrEmpty(taskHandle)
		list = append(list, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) SubmitAssignment(ctx context.Context, id int64, expected Status, report, attachmentURL, attachmentHandle string) error {
	tag, err := r.db.Exec(ctx, `UPDATE assignments
SET status=$3, report=$4, correction_note=NULL, report_attachment_url=NULLIF($5,''), report_attachment_handle=NULLIF($6,'')
WHERE id=$1 AND status=$2`, id, string(expected), string(StatusSubmitted), report, attachmentURL, attachmentHandle)
	if err != nil {
		return err
	}
	return r.requireGuardHit(ctx, tag, id)
}

func (r *repository) WithdrawAssignment(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE assignments
SET status=$2, report=NULL, correction_note=NULL, report_attachment_url=NULL, report_attachment_handle=NULL
WHERE id=$1 AND status=$3`, id, string(StatusAssigned), string(StatusSubmitted))
	if err != nil {
		return err
	}
	return r.requireGuardHit(ctx, tag, id)
}

func (r *repository) CompleteAssignment(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE assignments
SET status=$2, correction_note=NULL
WHERE id=$1 AND status=$3`, id, string(StatusCompleted), string(StatusSubmitted))
	if err != nil {
		return err
	}
	return r.requireGuardHit(ctx, tag, id)
}

func (r *repository) SetCorrectionNote(ctx context.Context, id int64, note string) error {
	tag, err := r.db.Exec(ctx, `UPDATE assignments
SET correction_note=$2
WHERE id=$1 AND status=$3`, id, note, string(StatusSubmitted))
	if err != nil {
		return err
	}
	return r.requireGuardHit(ctx, tag, id)
}

func (r *repository) CreateTask(ctx context.Context, t Task) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO tasks (number, title, narrative, due_date, attachment_url, attachment_handle, author_id, created_at)
VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), $7, NOW()) RETURNING id`,
		t.Number, t.Title, t.Narrative, t.DueDate, t.AttachmentURL, t.AttachmentHandle, t.AuthorID).Scan(&id)
	return id, err
}

func (r *repository) UpdateTask(ctx context.Context, t Task) error {
	tag, err := r.db.Exec(ctx, `UPDATE tasks SET title=$2, narrative=$3, due_date=$4, attachment_url=NULLIF($5,''), attachment_handle=NULLIF($6,'') WHERE id=$1`,
		t.ID, t.Title, t.Narrative, t.DueDate, t.AttachmentURL, t.AttachmentHandle)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteTask(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteAssignmentsForTask(ctx context.Context, taskID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM assignments WHERE task_id = $1`, taskID)
	return err
}

func (r *repository) InsertAssignment(ctx context.Context, taskID int64, assigneeID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `INSERT INTO assignments (task_id, assignee_id, status) VALUES ($1, $2, $3)`,
		taskID, assigneeID, string(StatusAssigned))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: pelaksana tercatat ganda pada tugas %d", shared.ErrValidation, taskID)
		}
		return err
	}
	return nil
}

// requireGuardHit distinguishes a stale compare-and-set from a missing row.
func (r *repository) requireGuardHit(ctx context.Context, tag pgconn.CommandTag, id int64) error {
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT true FROM assignments WHERE id=$1`, id).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.ErrNotFound
		}
		return err
	}
	return shared.ErrInvalidTransition
}

func (r *repository) assignmentsForTasks(ctx context.Context, taskIDs []int64) (map[int64][]Assignment, error) {
	rows, err := r.db.Query(ctx, `SELECT a.id, a.task_id, a.assignee_id, p.full_name, p.role, p.avatar_url,
a.status, a.report, a.correction_note, a.report_attachment_url, a.report_attachment_handle
FROM assignments a JOIN principals p ON p.id = a.assignee_id
WHERE a.task_id = ANY($1) ORDER BY p.full_name ASC`, taskIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byTask := make(map[int64][]Assignment)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		byTask[a.TaskID] = append(byTask[a.TaskID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return byTask, nil
}

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	var url, handle pgtype.Text
	if err := row.Scan(&t.ID, &t.Number, &t.Title, &t.Narrative, &t.DueDate, &url, &handle, &t.AuthorID, &t.CreatedAt); err != nil {
		return Task{}, err
	}
	t.AttachmentURL = textOrEmpty(url)
	t.AttachmentHandle = textOrEmpty(handle)
	return t, nil
}

func scanAssignment(row pgx.Row) (Assignment, error) {
	var a Assignment
	var role string
	var avatar, report, note, repURL, repHandle pgtype.Text
	if err := row.Scan(&a.ID, &a.TaskID, &a.AssigneeID, &a.AssigneeName, &role, &avatar,
		&a.Status, &report, &note, &repURL, &repHandle); err != nil {
		return Assignment{}, err
	}
	a.AssigneeRole = roles.Parse(role)
	a.AssigneeAvatarURL = textOrEmpty(avatar)
	a.Report = textOrEmpty(report)
	a.CorrectionNote = textOrEmpty(note)
	a.ReportAttachmentURL = textOrEmpty(repURL)
	a.ReportAttachmentHandle = textOrEmpty(repHandle)
	return a, nil
}

func textOrEmpty(t pgtype.Text) string {
	if t.Valid {
		return t.String
	}
	return ""
}
