package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/notify-outbox/internal/repository"
	"gorm.io/gorm"
)

func createNotificationSettingsTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_notification_settings",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.HotelNotificationsModel{}, &repository.PlatformDefaultsModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.PlatformDefaultsModel{}, &repository.HotelNotificationsModel{})
		},
	}
}
