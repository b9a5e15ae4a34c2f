package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aidar/teamhub/internal/domain"
)

// Коды ошибок PostgreSQL, которые обрабатываются явно
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeAdminShutdown        = "57P01"
	codeQueryCanceled        = "57014"
)

// querier общий интерфейс пула и транзакции
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// TxManager реализует repository.Transactor поверх пула соединений
type TxManager struct {
	db *pgxpool.Pool
}

// NewTxManager создает новый экземпляр TxManager
func NewTxManager(db *pgxpool.Pool) *TxManager {
	return &TxManager{db: db}
}

// RunInTx выполняет fn в транзакции; при ошибке транзакция откатывается.
// Вложенный вызов откатывается только до своего savepoint
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return runInTx(ctx, m.db, fn)
}

func runInTx(ctx context.Context, db *pgxpool.Pool, fn func(ctx context.Context) error) error {
	// Уже внутри транзакции: вложенная транзакция через savepoint
	if outer, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		sp, err := outer.Begin(ctx)
		if err != nil {
			return classify(err)
		}
		defer func() {
			_ = sp.Rollback(ctx)
		}()
		if err := fn(context.WithValue(ctx, txKey{}, sp)); err != nil {
			return err
		}
		return classify(sp.Commit(ctx))
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return classify(err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // Ignore error as it will fail if transaction was committed
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// conn возвращает транзакцию из контекста или пул
func conn(ctx context.Context, db *pgxpool.Pool) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db
}

// isUniqueViolation проверяет нарушение уникального индекса с указанным именем
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// classify оборачивает временные ошибки хранилища в domain.ErrTransientStoreFailure
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return fmt.Errorf("%w: %w", domain.ErrTransientStoreFailure, err)
	}
	return err
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return true
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeAdminShutdown, codeQueryCanceled:
			return true
		}
		// Класс 08: ошибки соединения
		return len(pgErr.Code) == 5 && pgErr.Code[:2] == "08"
	}

	return pgconn.SafeToRetry(err)
}
