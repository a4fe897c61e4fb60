package activities

import (
	"time"

	"github.com/google/uuid"
)

// Activity is an agency event (rapat, sosialisasi, kunjungan) recorded
// alongside the task board.
type Activity struct {
	ID          int64
	Title       string
	Description string
	Location    string
	HeldAt      time.Time
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ActivityInput carries the editable fields.
type ActivityInput struct {
	Title       string
	Description string
	Location    string
	HeldAt      time.Time
}
