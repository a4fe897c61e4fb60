package jobs

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	to      string
	subject string
	body    string
	err     error
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, body string) error {
	m.to, m.subject, m.body = to, subject, body
	return m.err
}

func noticePayloadTask(t *testing.T) *asynq.Task {
	t.Helper()
	task, err := NewAssignmentNoticeTask(AssignmentNoticePayload{
		RecipientName:  "Ani Staf",
		RecipientEmail: "ani@skpd.go.id",
		TaskNumber:     "MSN-1756500000000",
		TaskTitle:      "Laporan kinerja",
		Narrative:      "Susun laporan triwulan II",
		DueDate:        time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		AuthorName:     "Budi Kabid",
	})
	require.NoError(t, err)
	return task
}

func TestNoticeJobSendsMail(t *testing.T) {
	mailer := &recordingMailer{}
	job := NewNoticeJob(mailer, slog.New(slog.DiscardHandler), nil)

	require.NoError(t, job.Handle(context.Background(), noticePayloadTask(t)))
	require.Equal(t, "ani@skpd.go.id", mailer.to)
	require.Contains(t, mailer.subject, "MSN-1756500000000")
	require.Contains(t, mailer.body, "Budi Kabid")
	require.Contains(t, mailer.body, "15-09-2026")
}

func TestNoticeJobPropagatesMailerError(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp down")}
	job := NewNoticeJob(mailer, slog.New(slog.DiscardHandler), nil)

	err := job.Handle(context.Background(), noticePayloadTask(t))
	require.Error(t, err)
	require.False(t, errors.Is(err, asynq.SkipRetry), "delivery failures must be retried")
}

func TestNoticeJobSkipsCorruptPayload(t *testing.T) {
	job := NewNoticeJob(&recordingMailer{}, slog.New(slog.DiscardHandler), nil)

	bad := asynq.NewTask(TaskNotifyAssignment, []byte(strings.Repeat("{", 3)))
	err := job.Handle(context.Background(), bad)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
