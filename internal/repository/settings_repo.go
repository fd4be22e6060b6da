package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/notify-outbox/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const platformDefaultsID = 1

// SettingsRepository reads and writes tenant and platform provider settings.
type SettingsRepository interface {
	GetHotelSettings(ctx context.Context, hotelID string) (*domain.NotificationSettings, error)
	GetPlatformDefaults(ctx context.Context) (*domain.NotificationSettings, error)
	UpsertHotelSettings(ctx context.Context, settings *domain.NotificationSettings) error
	UpsertPlatformDefaults(ctx context.Context, settings *domain.NotificationSettings) error
}

type GormSettingsRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormSettingsRepo(db *gorm.DB) *GormSettingsRepo {
	return &GormSettingsRepo{db: db, now: time.Now}
}

func (r *GormSettingsRepo) GetHotelSettings(ctx context.Context, hotelID string) (*domain.NotificationSettings, error) {
	var model HotelNotificationsModel
	err := r.db.WithContext(ctx).First(&model, "hotel_id = ?", hotelID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ChannelColumns.toDomain(model.HotelID), nil
}

func (r *GormSettingsRepo) GetPlatformDefaults(ctx context.Context) (*domain.NotificationSettings, error) {
	var model PlatformDefaultsModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", platformDefaultsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ChannelColumns.toDomain(""), nil
}

func (r *GormSettingsRepo) UpsertHotelSettings(ctx context.Context, settings *domain.NotificationSettings) error {
	if settings == nil || strings.TrimSpace(settings.HotelID) == "" {
		return fmt.Errorf("%w: hotelId is required", domain.ErrValidation)
	}

	model := HotelNotificationsModel{
		HotelID:        settings.HotelID,
		ChannelColumns: channelColumnsFromDomain(settings),
		UpdatedAt:      r.now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hotel_id"}},
			UpdateAll: true,
		}).
		Create(&model).Error
}

func (r *GormSettingsRepo) UpsertPlatformDefaults(ctx context.Context, settings *domain.NotificationSettings) error {
	if settings == nil {
		return fmt.Errorf("%w: settings are required", domain.ErrValidation)
	}

	model := PlatformDefaultsModel{
		ID:             platformDefaultsID,
		ChannelColumns: channelColumnsFromDomain(settings),
		UpdatedAt:      r.now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&model).Error
}
