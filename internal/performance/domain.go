package performance

import "github.com/google/uuid"

// Scorecard summarises one principal's ledger by status.
type Scorecard struct {
	PrincipalID uuid.UUID
	FullName    string
	NIP         string
	Unit        string
	Role        string
	Assigned    int64
	Submitted   int64
	Completed   int64
}

// Total returns the number of ledger entries behind the scorecard.
func (s Scorecard) Total() int64 {
	return s.Assigned + s.Submitted + s.Completed
}

// CompletionRate is Completed over Total, zero when the ledger is empty.
func (s Scorecard) CompletionRate() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(total)
}
