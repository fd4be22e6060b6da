package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/kursadbilgin/notify-outbox/internal/domain"
)

var settingsColumns = []string{
	"hotel_id", "email_provider", "email_config", "sms_provider", "sms_config", "push_provider", "push_config", "updated_at",
}

func TestGetHotelSettingsMapsChannels(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewGormSettingsRepo(db)

	rows := sqlmock.NewRows(settingsColumns).AddRow(
		"h-1",
		"sendgrid", []byte(`{"apiKey":"secret:SG_KEY","fromEmail":"desk@hotel.example"}`),
		"none", nil,
		"platform_default", []byte(`{}`),
		time.Now(),
	)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "hotel_notifications" WHERE hotel_id = $1`)).
		WillReturnRows(rows)

	got, err := repo.GetHotelSettings(context.Background(), "h-1")
	if err != nil {
		t.Fatalf("GetHotelSettings() error = %v", err)
	}
	if got.HotelID != "h-1" {
		t.Fatalf("HotelID = %q", got.HotelID)
	}
	if got.Email.Provider != "sendgrid" || got.Email.Config["apiKey"] != "secret:SG_KEY" {
		t.Fatalf("email = %+v", got.Email)
	}
	if got.SMS.IsUsable() || got.Push.IsUsable() {
		t.Fatalf("sms/push should not be usable: %+v / %+v", got.SMS, got.Push)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetSettingsNotFound(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewGormSettingsRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "hotel_notifications"`)).
		WillReturnRows(sqlmock.NewRows(settingsColumns))
	if _, err := repo.GetHotelSettings(context.Background(), "h-none"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetHotelSettings() error = %v, want ErrNotFound", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "platform_notification_defaults"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email_provider"}))
	if _, err := repo.GetPlatformDefaults(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetPlatformDefaults() error = %v, want ErrNotFound", err)
	}
}

func TestUpsertHotelSettingsRequiresHotel(t *testing.T) {
	t.Parallel()

	db, _ := newMockDB(t)
	repo := NewGormSettingsRepo(db)

	if err := repo.UpsertHotelSettings(context.Background(), &domain.NotificationSettings{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("UpsertHotelSettings() error = %v, want ErrValidation", err)
	}
}
