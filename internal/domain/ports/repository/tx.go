package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// NoTX is passed when a repository call runs outside a transaction.
var NoTX interface{}

// TransactionManager runs fn inside one store transaction and hands the
// backend-specific handle to repositories through tx.
//
// The concrete type of tx is infra-defined (pgx.Tx for Postgres, *sql.Tx for
// SQLite). Repositories MUST accept NoTX and fall back to the pool.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
