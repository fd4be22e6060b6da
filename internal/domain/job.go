package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of an outbox job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSent, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition may occur.
func (s Status) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// Channel represents the delivery channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush:
		return true
	}
	return false
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToLower(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// Channels lists every supported delivery channel.
func Channels() []Channel {
	return []Channel{ChannelEmail, ChannelSMS, ChannelPush}
}

// NotificationJob is a single row of the outbox: one message to one recipient.
type NotificationJob struct {
	ID            string
	HotelID       string
	Channel       Channel
	Provider      string
	ToAddress     string
	Subject       *string
	BodyText      string
	Payload       map[string]any
	Status        Status
	Attempts      int
	NextAttemptAt time.Time
	LastError     *string
	ExternalID    *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SubjectOrEmpty returns the subject, or "" when none was set.
func (j *NotificationJob) SubjectOrEmpty() string {
	if j == nil || j.Subject == nil {
		return ""
	}
	return *j.Subject
}

func (j *NotificationJob) Validate() error {
	if strings.TrimSpace(j.HotelID) == "" {
		return fmt.Errorf("%w: hotelId is required", ErrValidation)
	}
	if !j.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, j.Channel)
	}
	if strings.TrimSpace(j.ToAddress) == "" {
		return fmt.Errorf("%w: toAddress is required", ErrValidation)
	}
	if strings.TrimSpace(j.BodyText) == "" {
		return fmt.Errorf("%w: bodyText is required", ErrValidation)
	}
	if j.Status != "" && !j.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, j.Status)
	}
	return nil
}
