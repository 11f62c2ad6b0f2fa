// Package dbconn contains database-related utility functions: opening
// MySQL connections with sane session settings, reading credentials from
// my.cnf-style option files, and querying replica lag.
package dbconn

import (
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
)

const maxConnLifetime = time.Minute * 3

type DBConfig struct {
	MaxOpenConnections int
	ConnectTimeout     time.Duration
	ReadTimeout        time.Duration
	InterpolateParams  bool
}

func NewDBConfig() *DBConfig {
	return &DBConfig{
		MaxOpenConnections: 2, // lag polling needs very little
		ConnectTimeout:     5 * time.Second,
		ReadTimeout:        30 * time.Second,
	}
}

// newDSN normalizes an input DSN, applying the config's connection
// settings as DSN parameters.
func newDSN(inputDSN string, config *DBConfig) (string, error) {
	cfg, err := mysql.ParseDSN(inputDSN)
	if err != nil {
		return "", err
	}
	cfg.Timeout = config.ConnectTimeout
	cfg.ReadTimeout = config.ReadTimeout
	cfg.InterpolateParams = config.InterpolateParams
	return cfg.FormatDSN(), nil
}

// New opens a connection pool to the DSN and verifies it with a ping.
func New(inputDSN string, config *DBConfig) (*sql.DB, error) {
	dsn, err := newDSN(inputDSN, config)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(config.MaxOpenConnections)
	db.SetConnMaxLifetime(maxConnLifetime)
	return db, nil
}
