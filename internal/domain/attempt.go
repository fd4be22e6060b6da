package domain

import "time"

// DeliveryAttempt records the outcome of one transition out of processing.
type DeliveryAttempt struct {
	ID            string
	JobID         string
	AttemptNumber int
	Provider      string
	Outcome       Status
	Error         *string
	ExternalID    *string
	CreatedAt     time.Time
}
