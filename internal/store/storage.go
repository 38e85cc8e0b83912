package store

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config holds MySQL connection settings.
type Config struct {
	Host                   string
	Port                   int
	User                   string
	Password               string
	Database               string
	MaxConnections         int
	MaxIdleConnections     int
	ConnMaxLifetimeSeconds int
}

// Storage owns the database connection and hands out repositories.
type Storage struct {
	db *gorm.DB
}

// Open connects to MySQL and migrates the task and execution tables.
func Open(cfg Config) (*Storage, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConnections)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeSeconds) * time.Second)

	if err := db.AutoMigrate(&Task{}, &Execution{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Tasks returns the task repository backed by this storage.
func (s *Storage) Tasks() TaskRepository {
	return &taskRepository{db: s.db}
}

// Executions returns the execution repository backed by this storage.
func (s *Storage) Executions() ExecutionRepository {
	return &executionRepository{db: s.db}
}

// Ping verifies the database connection.
func (s *Storage) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close closes the database connection.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
