package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 10
	connMaxLifetime = 30 * time.Minute
	connMaxIdleTime = 5 * time.Minute
	pingTimeout     = 5 * time.Second
)

// NewPostgres opens a PostgreSQL pool and verifies it is reachable.
func NewPostgres(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	log.Info().Msg("connected to PostgreSQL")
	return db, nil
}

// ClosePostgres releases the pool; safe to call with a nil db.
func ClosePostgres(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("closing PostgreSQL pool")
		return
	}
	log.Info().Msg("PostgreSQL pool closed")
}
