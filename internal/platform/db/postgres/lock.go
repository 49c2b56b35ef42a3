package postgres

import (
	"context"
	"fmt"
	"strings"
)

// LockKey はトランザクションスコープのアドバイザリロックを key 単位で取得します。
// ロックはトランザクション終了時に解放されるため、トランザクション外では何もしません。
func LockKey(ctx context.Context, key string) error {
	tx, ok := txFromContext(ctx)
	if !ok {
		return nil
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("postgres: lock key is required")
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("postgres: advisory lock %s: %w", key, err)
	}
	return nil
}
