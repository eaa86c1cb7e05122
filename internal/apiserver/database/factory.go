package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chantierhq/chantier/internal/common/config"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewDatabase opens a store for the configured driver.
func NewDatabase(cfg *config.DatabaseConfig) (Database, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "postgres":
		dialector = postgres.Open(cfg.GetDSN())
	case "mysql":
		dialector = mysql.Open(cfg.GetDSN())
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.DBName), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dialector = sqlite.Open(cfg.GetDSN())
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := gormDB.AutoMigrate(
		&User{},
		&Client{},
		&Project{},
		&ProjectMember{},
		&Task{},
		&TaskDependency{},
		&InterventionReport{},
		&TaskNote{},
		&ActivityLog{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: gormDB}, nil
}
