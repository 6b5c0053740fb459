package config

import (
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PostgresGORMTestConfig creates a configured *gorm.DB for the integration test database.
func PostgresGORMTestConfig(dsn string) *gorm.DB {
	const defaultMaxOpenConnections = 20
	const defaultMaxIdleConnections = 2
	const defaultMaxConnLifetime = time.Hour

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		log.Fatal("Failed to open database connection, error: ", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to access the underlying database, error: ", err)
	}

	sqlDB.SetMaxOpenConns(defaultMaxOpenConnections)
	sqlDB.SetMaxIdleConns(defaultMaxIdleConnections)
	sqlDB.SetConnMaxLifetime(defaultMaxConnLifetime)

	return db
}
