package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskNotifyAssignment is the task type for assignment notices.
	TaskNotifyAssignment = "notify:assignment"
)

// AssignmentNoticePayload carries everything the mailer needs; the
// worker never reads the database.
type AssignmentNoticePayload struct {
	RecipientName  string    `json:"recipient_name"`
	RecipientEmail string    `json:"recipient_email"`
	TaskNumber     string    `json:"task_number"`
	TaskTitle      string    `json:"task_title"`
	Narrative      string    `json:"narrative"`
	DueDate        time.Time `json:"due_date"`
	AuthorName     string    `json:"author_name"`
}

// NewAssignmentNoticeTask constructs an Asynq task.
func NewAssignmentNoticeTask(payload AssignmentNoticePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotifyAssignment, data), nil
}

// Mailer sends a single message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// JobMetrics records job outcomes.
type JobMetrics interface {
	ObserveJob(task, status string)
}

// NoticeJob delivers assignment notices via the configured mailer.
type NoticeJob struct {
	mailer  Mailer
	logger  *slog.Logger
	metrics JobMetrics
}

// NewNoticeJob builds NoticeJob instance.
func NewNoticeJob(mailer Mailer, logger *slog.Logger, metrics JobMetrics) *NoticeJob {
	return &NoticeJob{mailer: mailer, logger: logger, metrics: metrics}
}

// Handle processes TaskNotifyAssignment tasks.
func (j *NoticeJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload AssignmentNoticePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		j.logger.Error("payload notifikasi rusak", slog.Any("error", err))
		return asynq.SkipRetry
	}
	subject := fmt.Sprintf("[SIAP Tugas] Penugasan baru %s", payload.TaskNumber)
	body := renderNoticeBody(payload)
	if err := j.mailer.Send(ctx, payload.RecipientEmail, subject, body); err != nil {
		if j.metrics != nil {
			j.metrics.ObserveJob(TaskNotifyAssignment, "failure")
		}
		j.logger.Warn("kirim notifikasi gagal",
			slog.String("to", payload.RecipientEmail),
			slog.String("task", payload.TaskNumber),
			slog.Any("error", err))
		return err
	}
	if j.metrics != nil {
		j.metrics.ObserveJob(TaskNotifyAssignment, "success")
	}
	j.logger.Info("notifikasi terkirim",
		slog.String("to", payload.RecipientEmail),
		slog.String("task", payload.TaskNumber))
	return nil
}

func renderNoticeBody(p AssignmentNoticePayload) string {
	return fmt.Sprintf(`<p>Yth. %s,</p>
<p>Anda menerima penugasan baru dari %s.</p>
<ul>
<li>Nomor: %s</li>
<li>Perihal: %s</li>
<li>Batas waktu: %s</li>
</ul>
<p>%s</p>
<p>Silakan masuk ke aplikasi SIAP Tugas untuk menindaklanjuti.</p>`,
		p.RecipientName, p.AuthorName, p.TaskNumber, p.TaskTitle,
		p.DueDate.Format("02-01-2006"), p.Narrative)
}
