package snapshot

import (
	"context"

	"github.com/ogurasousui/driver-retention/internal/core/filter"
	"github.com/ogurasousui/driver-retention/internal/core/metrics"
	"github.com/ogurasousui/driver-retention/internal/core/preference"
)

// FilterRepository は現在の絞り込み条件と保存ビューを別々のスロットに保存します。
type FilterRepository struct {
	store     SlotStore
	filterKey string
	viewsKey  string
}

func NewFilterRepository(store SlotStore, prefix string) *FilterRepository {
	return &FilterRepository{store: store, filterKey: Key(prefix, SlotFilters), viewsKey: Key(prefix, SlotViews)}
}

func (r *FilterRepository) LoadFilter(ctx context.Context) (filter.Filter, error) {
	var f filter.Filter
	if ok, err := readJSON(ctx, r.store, r.filterKey, &f); err != nil || !ok {
		return filter.Filter{}, err
	}
	return f, nil
}

func (r *FilterRepository) SaveFilter(ctx context.Context, f filter.Filter) error {
	return writeJSON(ctx, r.store, r.filterKey, f)
}

func (r *FilterRepository) LoadViews(ctx context.Context) (filter.Views, error) {
	var v filter.Views
	if ok, err := readJSON(ctx, r.store, r.viewsKey, &v); err != nil || !ok || v == nil {
		return filter.Views{}, err
	}
	return v, nil
}

func (r *FilterRepository) SaveViews(ctx context.Context, v filter.Views) error {
	if v == nil {
		v = filter.Views{}
	}
	return writeJSON(ctx, r.store, r.viewsKey, v)
}

// PreferenceRepository は表示期間・同期 URL・自動同期をそれぞれのスロットに保存します。
type PreferenceRepository struct {
	store       SlotStore
	rangeKey    string
	sheetURLKey string
	autoSyncKey string
}

func NewPreferenceRepository(store SlotStore, prefix string) *PreferenceRepository {
	return &PreferenceRepository{
		store:       store,
		rangeKey:    Key(prefix, SlotRange),
		sheetURLKey: Key(prefix, SlotSheetURL),
		autoSyncKey: Key(prefix, SlotAutoSync),
	}
}

// Load はスロットごとに読み込み、未保存・破損したスロットは preference.Default の値を使います。
func (r *PreferenceRepository) Load(ctx context.Context) (preference.Preferences, error) {
	p := preference.Default()

	var rangeRaw string
	if ok, err := readJSON(ctx, r.store, r.rangeKey, &rangeRaw); err != nil {
		return preference.Preferences{}, err
	} else if ok {
		if rg, perr := metrics.ParseRange(rangeRaw); perr == nil {
			p.Range = rg
		}
	}

	var url string
	if ok, err := readJSON(ctx, r.store, r.sheetURLKey, &url); err != nil {
		return preference.Preferences{}, err
	} else if ok {
		p.SheetURL = url
	}

	var autoSync bool
	if ok, err := readJSON(ctx, r.store, r.autoSyncKey, &autoSync); err != nil {
		return preference.Preferences{}, err
	} else if ok {
		p.AutoSync = autoSync
	}

	return p, nil
}

func (r *PreferenceRepository) Save(ctx context.Context, p preference.Preferences) error {
	if err := writeJSON(ctx, r.store, r.rangeKey, string(p.Range)); err != nil {
		return err
	}
	if err := writeJSON(ctx, r.store, r.sheetURLKey, p.SheetURL); err != nil {
		return err
	}
	return writeJSON(ctx, r.store, r.autoSyncKey, p.AutoSync)
}
