package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const (
	DBConnKey contextKey = "db_conn"
	DBTxKey   contextKey = "db_tx"
)

// ConnFromContext returns the request-scoped connection, if one was attached.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// TxFromContext returns the transaction opened by TxRunner.InTx, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// TxRunner runs fn inside a database transaction. Repositories pick the
// transaction up from the context passed to fn.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type poolTxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return &poolTxRunner{pool: pool}
}

// InTx commits when fn returns nil and rolls back otherwise. A transaction
// already present in ctx is reused so nested calls join the outer unit of work.
func (r *poolTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	var (
		tx  pgx.Tx
		err error
	)
	if conn := ConnFromContext(ctx); conn != nil {
		tx, err = conn.Begin(ctx)
	} else {
		tx, err = r.pool.Begin(ctx)
	}
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, DBTxKey, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NopTxRunner calls fn directly. It backs services wired to in-memory
// repositories.
type NopTxRunner struct{}

func (NopTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// UniqueViolation reports whether err is a unique-constraint violation and,
// if so, the name of the violated constraint.
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// IsConcurrencyFailure reports whether err was raised because a concurrent
// transaction won a race (serialization failure or deadlock).
func IsConcurrencyFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}
