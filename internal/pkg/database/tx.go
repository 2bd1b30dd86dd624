package database

import (
	"context"
	"database/sql"

	apperror "gocontracts/internal/errors"
	"gocontracts/internal/pkg/logger"
)

// DBTX é o subconjunto comum de *sql.DB e *sql.Tx usado pelos repositórios.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txKey struct{}

// txState é a transação em curso e as ações adiadas até o commit.
type txState struct {
	tx          *sql.Tx
	afterCommit []func()
}

func stateFrom(ctx context.Context) (*txState, bool) {
	st, ok := ctx.Value(txKey{}).(*txState)
	return st, ok
}

// Executor devolve a transação carregada no contexto ou, na falta dela, o pool.
func Executor(ctx context.Context, db *sql.DB) DBTX {
	if st, ok := stateFrom(ctx); ok {
		return st.tx
	}
	return db
}

// InTransaction informa se o contexto já carrega uma transação.
func InTransaction(ctx context.Context) bool {
	_, ok := stateFrom(ctx)
	return ok
}

// AfterCommit agenda fn para depois do commit da transação do contexto.
// Sem transação, fn roda na hora. Num rollback, fn é descartada.
func AfterCommit(ctx context.Context, fn func()) {
	if st, ok := stateFrom(ctx); ok {
		st.afterCommit = append(st.afterCommit, fn)
		return
	}
	fn()
}

// TxManager implementa domain.Transactor sobre *sql.DB.
type TxManager struct {
	DB     *sql.DB
	logger logger.Logger
}

func NewTxManager(db *sql.DB, logger logger.Logger) *TxManager {
	return &TxManager{DB: db, logger: logger}
}

// WithinTransaction executa fn numa transação. Chamadas aninhadas reaproveitam
// a transação externa; o commit acontece só no nível mais externo.
func (m *TxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTransaction(ctx) {
		return fn(ctx)
	}

	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		m.logger.Error("Falha ao iniciar transação.", err)
		return apperror.NewDBError("Falha ao iniciar transação", err)
	}

	st := &txState{tx: tx}
	if err := fn(context.WithValue(ctx, txKey{}, st)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.logger.Error("Falha ao reverter transação.", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		m.logger.Error("Falha ao commitar transação.", err)
		return apperror.NewDBError("Falha ao commitar transação", err)
	}

	for _, hook := range st.afterCommit {
		hook()
	}
	return nil
}
