package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	pgdb "github.com/ogurasousui/driver-retention/internal/platform/db/postgres"
)

// SlotStore は PostgreSQL の kv_slots テーブルを利用したスロット永続化の実装です。
// トランザクションがコンテキストにあればそれを利用します。
type SlotStore struct {
	pool pgdb.Queryer
}

// NewSlotStore は SlotStore を生成します。
func NewSlotStore(pool pgdb.Queryer) *SlotStore {
	return &SlotStore{pool: pool}
}

// Get は key のスロットを取得します。存在しない場合は ok=false です。
func (s *SlotStore) Get(ctx context.Context, key string) (string, bool, error) {
	exec := pgdb.QueryerFromContext(ctx, s.pool)
	row := exec.QueryRow(ctx, `
        SELECT value
          FROM kv_slots
         WHERE key = $1
         LIMIT 1
    `, key)

	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("postgres: get slot: %w", err)
	}
	return value, true, nil
}

// Put は key のスロットを書き込みます。既存の値は置き換えます。
func (s *SlotStore) Put(ctx context.Context, key, value string) error {
	exec := pgdb.QueryerFromContext(ctx, s.pool)
	_, err := exec.Exec(ctx, `
        INSERT INTO kv_slots (key, value, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (key) DO UPDATE
           SET value = EXCLUDED.value,
               updated_at = NOW()
    `, key, value)
	if err != nil {
		return fmt.Errorf("postgres: put slot: %w", err)
	}
	return nil
}
