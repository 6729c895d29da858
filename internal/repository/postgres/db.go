package postgres

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"ccdsync/internal/config"
	"ccdsync/internal/domain"
)

const connectTimeout = 10 * time.Second

// Open connects to the run history database. A disabled database returns
// domain.ErrDatabaseDisabled so commands can run without persistence.
func Open(ctx context.Context, cfg *config.DBConfig) (*sqlx.DB, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("opening run history: %w", domain.ErrDatabaseDisabled)
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpen)
	db.SetMaxIdleConns(cfg.MaxIdle)
	// Runs write one batch per comparison and then sit idle for long stretches.
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}
