package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"apexmind_backend/pkg/config"
	applog "apexmind_backend/pkg/logger"
)

var DB *gorm.DB

func InitDB(cfg config.DatabaseConfig) error {
	if cfg.DSN == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}

	pgConfig := postgres.Config{
		DSN:                  cfg.DSN,
		PreferSimpleProtocol: true, // avoids prepared statement clashes behind pgbouncer
	}

	gormConfig := &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Error),
		PrepareStmt: false,
	}

	db, err := gorm.Open(postgres.New(pgConfig), gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)

	DB = db
	applog.Info("database connected")
	return nil
}

func GetDB() *gorm.DB {
	return DB
}

func MigrateDatabase(db *gorm.DB, models ...interface{}) error {
	for _, model := range models {
		if !db.Migrator().HasTable(model) {
			if err := db.Migrator().CreateTable(model); err != nil {
				return err
			}
			applog.Info("created table", "model", fmt.Sprintf("%T", model))
		} else {
			if err := db.Migrator().AutoMigrate(model); err != nil {
				return err
			}
			applog.Info("updated table", "model", fmt.Sprintf("%T", model))
		}
	}
	return nil
}
