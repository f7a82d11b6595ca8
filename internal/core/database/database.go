package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	activityDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/activity"
	leadDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/lead"
	notificationDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/notification"
	sourceDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/source"
	userDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/user"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Models lists every table owned by the service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&userDatamodel.User{},
		&sourceDatamodel.LeadSource{},
		&leadDatamodel.Lead{},
		&leadDatamodel.LeadHistory{},
		&activityDatamodel.Activity{},
		&notificationDatamodel.Notification{},
	}
}

// OpenPostgres wraps an existing pool so gorm and sqlx share connections.
func OpenPostgres(conn *sql.DB) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}
	return db, nil
}

// OpenMemory opens an isolated in-memory SQLite database with the schema
// migrated. Used by tests and the local demo mode.
func OpenMemory() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate in-memory schema: %w", err)
	}
	return db, nil
}

// IsUniqueViolation reports whether err came from a unique index.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
