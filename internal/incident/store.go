// Package incident keeps a local ledger of incidents the assistant would
// have opened while running in local simulation mode, so would-be tickets
// stay inspectable through the API and CLI.
package incident

import "time"

// Record is one simulated incident.
type Record struct {
	ID               string    `json:"id"`
	Number           string    `json:"number"`
	CallerEmail      string    `json:"caller_email"`
	ShortDescription string    `json:"short_description"`
	Description      string    `json:"description"`
	Urgency          string    `json:"urgency"`
	CreatedAt        time.Time `json:"created_at"`
}

// Store is the ledger persistence interface.
type Store interface {
	// Append records a simulated incident, assigning its id, local INC
	// number and timestamp, and returns the completed record.
	Append(rec Record) (*Record, error)
	// List returns the most recent records, newest first. limit <= 0
	// means no limit.
	List(limit int) ([]*Record, error)
	// Count returns the number of recorded incidents.
	Count() (int, error)
}
