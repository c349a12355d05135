package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// DefaultPrefix はスロットキーの既定の名前空間です。スキーマを変える場合はバージョンを上げます。
const DefaultPrefix = "kpi_retention_v3"

// スロット名。
const (
	SlotDrivers  = "drivers"
	SlotFilters  = "filters"
	SlotViews    = "views"
	SlotRange    = "range"
	SlotSheetURL = "sheetUrl"
	SlotAutoSync = "autoSync"
)

// SlotStore は JSON テキストを保存するキー・値スロットです。
type SlotStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string) error
}

// Key は prefix と slot からスロットキーを組み立てます。
func Key(prefix, slot string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + ":" + slot
}

// readJSON は key の JSON を dst に読み込みます。
// 未保存または解釈できない場合は false を返し、dst は呼び出し側の既定値のままです。
func readJSON(ctx context.Context, store SlotStore, key string, dst any) (bool, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("snapshot: get %s: %w", key, err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		log.Printf("snapshot: discard malformed slot %s: %v", key, err)
		return false, nil
	}
	return true, nil
}

func writeJSON(ctx context.Context, store SlotStore, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("snapshot: encode %s: %w", key, err)
	}
	if err := store.Put(ctx, key, string(b)); err != nil {
		return fmt.Errorf("snapshot: put %s: %w", key, err)
	}
	return nil
}
