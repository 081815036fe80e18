package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// TxManagerInterface runs the assign and return bookkeeping as one unit.
type TxManagerInterface interface {
	RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

type TxManager struct {
	pool   *pgxpool.Pool
	opts   pgx.TxOptions
	logger *zap.Logger
}

// NewTxManager runs transactions at READ COMMITTED. Equipment writes inside
// them are conditional on the expected status.
func NewTxManager(pool *pgxpool.Pool, logger *zap.Logger) TxManagerInterface {
	return &TxManager{
		pool:   pool,
		opts:   pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
		logger: logger,
	}
}

// RunInTransaction commits when fn returns nil. An error or panic in fn rolls
// the transaction back; the panic is re-raised.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	err := pgx.BeginTxFunc(ctx, m.pool, m.opts, fn)
	if err != nil {
		m.logger.Debug("transaction rolled back", zap.Error(err))
	}
	return err
}
