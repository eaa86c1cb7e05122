package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

type (
	// APIServerConfig is the top-level configuration for the apiserver binary.
	APIServerConfig struct {
		Server     ServerConfig     `yaml:"server"`
		Database   DatabaseConfig   `yaml:"database"`
		JWT        JWTConfig        `yaml:"jwt"`
		Logger     LoggerConfig     `yaml:"logger"`
		SuperAdmin SuperAdminConfig `yaml:"super_admin"`
	}

	// ServerConfig configures the HTTP listener.
	ServerConfig struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	}

	// DatabaseConfig selects and configures the relational store.
	DatabaseConfig struct {
		Type     string `yaml:"type"`     // postgres, mysql, sqlite
		Host     string `yaml:"host"`     // localhost
		Port     int    `yaml:"port"`     // 5432 (postgres), 3306 (mysql)
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		DBName   string `yaml:"dbname"`   // database name, or file path for sqlite
		SSLMode  string `yaml:"sslmode"`  // disable (postgres)
	}

	// JWTConfig configures session token signing.
	JWTConfig struct {
		SecretKey string        `yaml:"secret_key"`
		Duration  time.Duration `yaml:"duration"`
	}

	// LoggerConfig configures the zap logger.
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
	}

	// SuperAdminConfig seeds the initial admin account when no admin exists.
	SuperAdminConfig struct {
		Username string `yaml:"username"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	}
)

// UnmarshalYAML accepts human-readable durations such as "24h".
func (c *JWTConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		SecretKey string `yaml:"secret_key"`
		Duration  string `yaml:"duration"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.SecretKey = raw.SecretKey
	if raw.Duration != "" {
		d, err := time.ParseDuration(raw.Duration)
		if err != nil {
			return fmt.Errorf("invalid jwt duration: %w", err)
		}
		c.Duration = d
	}
	return nil
}

func (c *APIServerConfig) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5280
	}
	if c.JWT.Duration <= 0 {
		c.JWT.Duration = 24 * time.Hour
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.DBName == "" {
		c.Database.DBName = "data/chantier.db"
	}
}

// GetDSN returns the database connection string.
func (c *DatabaseConfig) GetDSN() string {
	switch c.Type {
	case "postgres":
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
			c.Host, c.User, c.Password, c.DBName, c.Port, c.SSLMode)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.DBName)
	case "sqlite":
		return c.DBName // for SQLite, DBName is the file path
	default:
		return ""
	}
}
