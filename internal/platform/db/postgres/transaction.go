package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type txContextKey struct{}

type txStarter interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TransactionManager は pgx を用いたトランザクション制御を提供します。
// トランザクションはコンテキストで引き回し、リポジトリは QueryerFromContext で取り出します。
type TransactionManager struct {
	pool txStarter
}

// NewTransactionManager は TransactionManager を生成します。
func NewTransactionManager(pool txStarter) *TransactionManager {
	if pool == nil {
		return nil
	}
	return &TransactionManager{pool: pool}
}

// WithinReadOnly は読み取り専用トランザクションを開始し、fn を実行します。
func (m *TransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	return m.within(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, fn)
}

// WithinReadWrite は読み書きトランザクションを開始し、fn を実行します。
// 既にトランザクション内であればそれを再利用します。
func (m *TransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	return m.within(ctx, pgx.TxOptions{AccessMode: pgx.ReadWrite}, fn)
}

// WithinSavepoint は現在のトランザクションにセーブポイントを置いて fn を実行します。
// fn が失敗した場合はセーブポイントまで巻き戻すため、外側のトランザクションは継続して使えます。
// トランザクション外では fn をそのまま実行します。
func (m *TransactionManager) WithinSavepoint(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return fmt.Errorf("postgres: savepoint function is required")
	}

	parent, ok := txFromContext(ctx)
	if !ok {
		return fn(ctx)
	}

	sp, err := parent.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: savepoint: %w", err)
	}

	return finish(ctx, sp, fn(contextWithTx(ctx, sp)), "savepoint")
}

func (m *TransactionManager) within(ctx context.Context, opts pgx.TxOptions, fn func(context.Context) error) error {
	if fn == nil {
		return fmt.Errorf("postgres: transaction function is required")
	}

	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := m.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}

	return finish(ctx, tx, runGuarded(ctx, tx, fn), "tx")
}

// runGuarded は fn が panic した場合もトランザクションを巻き戻します。
func runGuarded(ctx context.Context, tx pgx.Tx, fn func(context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()
	return fn(contextWithTx(ctx, tx))
}

// finish は fnErr に応じて tx をコミットまたはロールバックします。
func finish(ctx context.Context, tx pgx.Tx, fnErr error, scope string) error {
	// キャンセル済みのコンテキストでも後始末は行う。
	cleanupCtx := context.WithoutCancel(ctx)

	if fnErr != nil {
		if rbErr := tx.Rollback(cleanupCtx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(fnErr, fmt.Errorf("postgres: %s rollback: %w", scope, rbErr))
		}
		return fnErr
	}

	if err := tx.Commit(ctx); err != nil {
		if !errors.Is(err, pgx.ErrTxClosed) {
			if rbErr := tx.Rollback(cleanupCtx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				return errors.Join(
					fmt.Errorf("postgres: %s commit: %w", scope, err),
					fmt.Errorf("postgres: %s rollback after commit failure: %w", scope, rbErr),
				)
			}
		}
		return fmt.Errorf("postgres: %s commit: %w", scope, err)
	}

	return nil
}

func contextWithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

func txFromContext(ctx context.Context) (pgx.Tx, bool) {
	if ctx == nil {
		return nil, false
	}
	tx, ok := ctx.Value(txContextKey{}).(pgx.Tx)
	return tx, ok
}

// Queryer は pgx.Tx および pgxpool.Pool と互換性のあるクエリ実行インターフェースです。
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// QueryerFromContext はコンテキスト内のトランザクション (セーブポイントを含む) を返し、無ければ fallback を返します。
func QueryerFromContext(ctx context.Context, fallback Queryer) Queryer {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return fallback
}
