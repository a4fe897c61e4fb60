package tasks

import (
	"time"

	"github.com/google/uuid"

	"github.com/siaptugas/siaptugas/internal/roles"
)

// Status is the lifecycle position of one assignee on one task.
// Assigned -> Submitted -> Completed, with Submitted -> Assigned on
// withdrawal. Completed is terminal.
type Status string

const (
	StatusAssigned  Status = "Assigned"
	StatusSubmitted Status = "Submitted"
	StatusCompleted Status = "Completed"
)

// Task is a unit of work authored by an approver and delegated to
// one or more assignees.
type Task struct {
	ID               int64
	Number           string
	Title            string
	Narrative        string
	DueDate          time.Time
	AttachmentURL    string
	AttachmentHandle string
	AuthorID         uuid.UUID
	CreatedAt        time.Time
	Assignments      []Assignment
}

// Assignment is the ledger entry tracking one task for one principal.
type Assignment struct {
	ID                     int64
	TaskID                 int64
	AssigneeID             uuid.UUID
	AssigneeName           string
	AssigneeRole           roles.Role
	AssigneeAvatarURL      string
	Status                 Status
	Report                 string
	CorrectionNote         string
	ReportAttachmentURL    string
	ReportAttachmentHandle string
}

// AssignmentDetail pairs a ledger entry with its owning task, for the
// assignee-facing listing.
type AssignmentDetail struct {
	Assignment
	Task Task
}

// AttachmentUpload carries raw file content received from a handler.
type AttachmentUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// TaskInput carries the editable task fields.
type TaskInput struct {
	Title      string
	Narrative  string
	DueDate    time.Time
	Attachment *AttachmentUpload
}

// AssignmentNotice is handed to the notification dispatcher once per
// newly assigned recipient.
type AssignmentNotice struct {
	RecipientName  string
	RecipientEmail string
	TaskNumber     string
	TaskTitle      string
	Narrative      string
	DueDate        time.Time
	AuthorName     string
}
