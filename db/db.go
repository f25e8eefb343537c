package db

import (
	"log"
	"os"
	"time"

	"github.com/igen-labs/cxo-survey/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres, configures the pool and migrates the schema.
func Open(dsn string) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Warn,
			Colorful:      false,
		},
	)

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:      gormLogger,
		PrepareStmt: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(conn); err != nil {
		return nil, err
	}

	return conn, nil
}

// Migrate creates or updates all tables to match the model structs.
// Unique indexes created here back the application-level invariants:
// one assignment and one response per (survey, employee), globally
// unique invite tokens and ticket numbers.
func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.Organization{},
		&models.Department{},
		&models.Employee{},
		&models.InviteLog{},
		&models.OTP{},
		&models.Survey{},
		&models.SurveyAssignment{},
		&models.SurveyResponse{},
		&models.TicketMessage{},
		&models.SupportTicket{},
	)
}
