package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/notify-outbox/internal/repository"
	"gorm.io/gorm"
)

func createNotificationJobsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_notification_jobs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.NotificationJobModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_notification_jobs_due ON notification_jobs (next_attempt_at, created_at) WHERE status = 'pending'`,
				`CREATE INDEX IF NOT EXISTS idx_notification_jobs_processing ON notification_jobs (updated_at) WHERE status = 'processing'`,
				`CREATE INDEX IF NOT EXISTS idx_notification_jobs_hotel_created ON notification_jobs (hotel_id, created_at)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.NotificationJobModel{})
		},
	}
}
