package jobs

import (
	"context"

	"github.com/siaptugas/siaptugas/internal/tasks"
)

// QueueNotifier satisfies the task service's notifier port by pushing
// notices onto the background queue instead of mailing inline.
type QueueNotifier struct {
	client *Client
}

// NewQueueNotifier builds QueueNotifier instance.
func NewQueueNotifier(client *Client) *QueueNotifier {
	return &QueueNotifier{client: client}
}

// NotifyAssigned enqueues one assignment notice.
func (n *QueueNotifier) NotifyAssigned(ctx context.Context, notice tasks.AssignmentNotice) error {
	_, err := n.client.EnqueueAssignmentNotice(ctx, AssignmentNoticePayload{
		RecipientName:  notice.RecipientName,
		RecipientEmail: notice.RecipientEmail,
		TaskNumber:     notice.TaskNumber,
		TaskTitle:      notice.TaskTitle,
		Narrative:      notice.Narrative,
		DueDate:        notice.DueDate,
		AuthorName:     notice.AuthorName,
	})
	return err
}

var _ tasks.Notifier = (*QueueNotifier)(nil)
