// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

// Package store persists access state in PostgreSQL.
package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// poolIface is the subset of *pgxpool.Pool used by the repositories.
// pgxmock.PgxPoolIface satisfies it in unit tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// ConnectOptions controls the startup connection retry.
type ConnectOptions struct {
	// Retries is the number of attempts after the first one.
	Retries uint64
	// Backoff is the initial delay; it doubles on every retry.
	Backoff time.Duration
}

// Postgres bundles the repositories sharing one connection pool.
type Postgres struct {
	pool  *pgxpool.Pool
	Users *UserRepository
	Lists *WhitelistRepository
	Modes *ModeRepository
	Audit *AuditRepository
}

// Connect opens a pool for databaseURL, retrying until the database answers
// a ping or the retry budget is spent.
func Connect(ctx context.Context, databaseURL string, opts ConnectOptions) (*Postgres, error) {
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}

	var pool *pgxpool.Pool
	attempt := 0
	backoff := retry.WithMaxRetries(opts.Retries, retry.NewExponential(opts.Backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		p, err := pgxpool.New(ctx, databaseURL)
		if err != nil {
			// A malformed URL will not fix itself.
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			slog.WarnContext(ctx, "database not reachable, retrying", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, oops.In("store").
			Code("DB_CONNECT_FAILED").
			With("attempts", attempt).
			Wrap(err)
	}
	return newPostgres(pool), nil
}

func newPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{
		pool:  pool,
		Users: NewUserRepository(pool),
		Lists: NewWhitelistRepository(pool),
		Modes: NewModeRepository(pool),
		Audit: NewAuditRepository(pool),
	}
}

// Ping checks the database connection.
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return oops.In("store").Code("DB_PING_FAILED").Wrap(err)
	}
	return nil
}

// Close closes the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
