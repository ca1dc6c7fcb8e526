package db

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// RateLimiter is a fixed-window counter kept in the rate_limits table, so every instance
// sharing the database sees the same windows. Expired rows are purged on access.
type RateLimiter struct {
	store *DBStore
	now   func() time.Time
}

func (d *DBStore) RateLimiter() *RateLimiter {
	return &RateLimiter{store: d, now: time.Now}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	d := r.store
	now := r.now().UnixMilli()
	expiresAt := now + window.Milliseconds()

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	sql, args, err := d.builder.Delete("rate_limits").Where(sq.LtOrEq{"expires_at": now}).ToSql()
	if err != nil {
		return false, fmt.Errorf("generating delete SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx, sql, args...); err != nil {
		return false, newExecError("purging rate limits", sql, err, args...)
	}

	sql, args, err = d.builder.Insert("rate_limits").Columns("limit_key", "window_start", "expires_at", "hits").
		Values(key, now, expiresAt, 0).
		Suffix("ON CONFLICT (limit_key) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("generating insert SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx, sql, args...); err != nil {
		return false, newExecError("opening rate limit window", sql, err, args...)
	}

	sql, args, err = d.builder.Update("rate_limits").
		Set("hits", sq.Expr("hits + 1")).
		Where(sq.Eq{"limit_key": key}).
		Where(sq.Lt{"hits": limit}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("generating update SQL: %w", err)
	}
	res, err := tx.ExecContext(ctx, sql, args...)
	if err != nil {
		return false, newExecError("counting rate limit hit", sql, err, args...)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit rate limit: %w", err)
	}
	return affected == 1, nil
}
