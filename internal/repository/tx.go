package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// SQLSTATE codes the transaction runner and repositories care about.
const (
	codigoSerializacion = "40001"
	codigoDeadlock      = "40P01"
	codigoUnicidad      = "23505"
)

// TxRunner runs fn as one unit of work. Every repository method that takes a
// tx argument must be called with the *gorm.DB handed to fn so that all
// writes commit or roll back together.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormTxRunner struct {
	db            *gorm.DB
	maxReintentos int
}

// NewTxRunner returns a runner that opens SERIALIZABLE transactions and
// retries fn on serialization failures and deadlocks.
func NewTxRunner(db *gorm.DB, maxReintentos int) TxRunner {
	if maxReintentos < 1 {
		maxReintentos = 1
	}
	return &gormTxRunner{db: db, maxReintentos: maxReintentos}
}

func (r *gormTxRunner) RunInTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for intento := 1; intento <= r.maxReintentos; intento++ {
		err = r.db.WithContext(ctx).Transaction(fn, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err == nil || !EsReintentable(err) {
			return err
		}
		log.Warn().Err(err).Int("intento", intento).Msg("tx: conflicto de serialización, reintentando")
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

// EsReintentable reports whether err is a serialization failure or deadlock.
func EsReintentable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codigoSerializacion || pgErr.Code == codigoDeadlock
	}
	return false
}

// EsViolacionUnicidad reports whether err is a unique constraint violation.
func EsViolacionUnicidad(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codigoUnicidad
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// conn picks the transaction handle when present.
func conn(ctx context.Context, db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
