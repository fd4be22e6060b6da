package repository

import (
	"time"

	"github.com/kursadbilgin/notify-outbox/internal/domain"
	"gorm.io/datatypes"
)

// NotificationJobModel is the persistence model for the notification_jobs table.
type NotificationJobModel struct {
	ID            string            `gorm:"type:uuid;primaryKey"`
	HotelID       string            `gorm:"type:varchar(64);not null"`
	Channel       domain.Channel    `gorm:"type:varchar(10);not null"`
	Provider      string            `gorm:"type:varchar(64);not null;default:''"`
	ToAddress     string            `gorm:"type:text;not null"`
	Subject       *string           `gorm:"type:text"`
	BodyText      string            `gorm:"type:text;not null"`
	Payload       datatypes.JSONMap `gorm:"type:jsonb"`
	Status        domain.Status     `gorm:"type:varchar(20);not null"`
	Attempts      int               `gorm:"not null;default:0"`
	NextAttemptAt time.Time         `gorm:"type:timestamptz;not null"`
	LastError     *string           `gorm:"type:text"`
	ExternalID    *string           `gorm:"type:varchar(255)"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (NotificationJobModel) TableName() string {
	return "notification_jobs"
}

// DeliveryAttemptModel is the persistence model for delivery_attempts.
type DeliveryAttemptModel struct {
	ID            string        `gorm:"type:uuid;primaryKey"`
	JobID         string        `gorm:"type:uuid;not null"`
	AttemptNumber int           `gorm:"not null"`
	Provider      string        `gorm:"type:varchar(64);not null;default:''"`
	Outcome       domain.Status `gorm:"type:varchar(20);not null"`
	Error         *string       `gorm:"type:text"`
	ExternalID    *string       `gorm:"type:varchar(255)"`
	CreatedAt     time.Time
}

func (DeliveryAttemptModel) TableName() string {
	return "delivery_attempts"
}

// ChannelColumns holds one provider/config pair per channel. It is embedded by
// both the tenant and platform settings tables.
type ChannelColumns struct {
	EmailProvider string            `gorm:"type:varchar(64);not null;default:''"`
	EmailConfig   datatypes.JSONMap `gorm:"type:jsonb"`
	SMSProvider   string            `gorm:"column:sms_provider;type:varchar(64);not null;default:''"`
	SMSConfig     datatypes.JSONMap `gorm:"column:sms_config;type:jsonb"`
	PushProvider  string            `gorm:"type:varchar(64);not null;default:''"`
	PushConfig    datatypes.JSONMap `gorm:"type:jsonb"`
}

// HotelNotificationsModel is a tenant's per-channel provider configuration.
type HotelNotificationsModel struct {
	HotelID        string         `gorm:"type:varchar(64);primaryKey"`
	ChannelColumns ChannelColumns `gorm:"embedded"`
	UpdatedAt      time.Time
}

func (HotelNotificationsModel) TableName() string {
	return "hotel_notifications"
}

// PlatformDefaultsModel is the single platform-wide fallback row (id = 1).
type PlatformDefaultsModel struct {
	ID             int            `gorm:"primaryKey"`
	ChannelColumns ChannelColumns `gorm:"embedded"`
	UpdatedAt      time.Time
}

func (PlatformDefaultsModel) TableName() string {
	return "platform_notification_defaults"
}

func jobModelFromDomain(j *domain.NotificationJob) *NotificationJobModel {
	if j == nil {
		return nil
	}

	return &NotificationJobModel{
		ID:            j.ID,
		HotelID:       j.HotelID,
		Channel:       j.Channel,
		Provider:      j.Provider,
		ToAddress:     j.ToAddress,
		Subject:       j.Subject,
		BodyText:      j.BodyText,
		Payload:       datatypes.JSONMap(j.Payload),
		Status:        j.Status,
		Attempts:      j.Attempts,
		NextAttemptAt: j.NextAttemptAt,
		LastError:     j.LastError,
		ExternalID:    j.ExternalID,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
	}
}

func jobModelToDomain(m *NotificationJobModel) *domain.NotificationJob {
	if m == nil {
		return nil
	}

	return &domain.NotificationJob{
		ID:            m.ID,
		HotelID:       m.HotelID,
		Channel:       m.Channel,
		Provider:      m.Provider,
		ToAddress:     m.ToAddress,
		Subject:       m.Subject,
		BodyText:      m.BodyText,
		Payload:       map[string]any(m.Payload),
		Status:        m.Status,
		Attempts:      m.Attempts,
		NextAttemptAt: m.NextAttemptAt,
		LastError:     m.LastError,
		ExternalID:    m.ExternalID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func attemptModelToDomain(m *DeliveryAttemptModel) *domain.DeliveryAttempt {
	if m == nil {
		return nil
	}

	return &domain.DeliveryAttempt{
		ID:            m.ID,
		JobID:         m.JobID,
		AttemptNumber: m.AttemptNumber,
		Provider:      m.Provider,
		Outcome:       m.Outcome,
		Error:         m.Error,
		ExternalID:    m.ExternalID,
		CreatedAt:     m.CreatedAt,
	}
}

func (c ChannelColumns) toDomain(hotelID string) *domain.NotificationSettings {
	return &domain.NotificationSettings{
		HotelID: hotelID,
		Email:   domain.ChannelSettings{Provider: c.EmailProvider, Config: map[string]any(c.EmailConfig)},
		SMS:     domain.ChannelSettings{Provider: c.SMSProvider, Config: map[string]any(c.SMSConfig)},
		Push:    domain.ChannelSettings{Provider: c.PushProvider, Config: map[string]any(c.PushConfig)},
	}
}

func channelColumnsFromDomain(s *domain.NotificationSettings) ChannelColumns {
	if s == nil {
		return ChannelColumns{}
	}
	return ChannelColumns{
		EmailProvider: s.Email.Provider,
		EmailConfig:   datatypes.JSONMap(s.Email.Config),
		SMSProvider:   s.SMS.Provider,
		SMSConfig:     datatypes.JSONMap(s.SMS.Config),
		PushProvider:  s.Push.Provider,
		PushConfig:    datatypes.JSONMap(s.Push.Config),
	}
}
