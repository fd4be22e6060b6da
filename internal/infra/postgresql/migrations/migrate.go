package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrate brings the outbox schema up to date.
func Migrate(db *gorm.DB) error {
	return gormigrate.New(db, gormigrate.DefaultOptions, all()).Migrate()
}

// RollbackLast undoes the most recently applied migration.
func RollbackLast(db *gorm.DB) error {
	return gormigrate.New(db, gormigrate.DefaultOptions, all()).RollbackLast()
}

func all() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		createNotificationJobsTable(),
		createDeliveryAttemptsTable(),
		createNotificationSettingsTables(),
	}
}
