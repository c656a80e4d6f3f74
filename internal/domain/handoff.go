package domain

import "time"

// Handoff ticket statuses.
const (
	HandoffScheduled    = "scheduled"
	HandoffAcknowledged = "acknowledged"
)

// HandoffTicket records a request for a human agent callback. Creation
// is acknowledged asynchronously by the worker; nothing here touches the
// catalog or the recommendation path.
type HandoffTicket struct {
	ID            string    `json:"id"`
	QuoteID       string    `json:"quoteId,omitempty"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	PreferredTime string    `json:"preferredTime,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
