package filter

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrEmptyViewName = errors.New("filter: view name is required")
	ErrViewNotFound  = errors.New("filter: view not found")
)

// Views は保存ビュー名から条件への対応です。各操作は新しい Views を返します。
type Views map[string]Filter

// Save は f を name で保存します。保存される条件と返り値の条件の View は name になります。
func (v Views) Save(name string, f Filter) (Views, Filter, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return v, f, ErrEmptyViewName
	}
	f.View = name
	out := v.clone()
	out[name] = f
	return out, f, nil
}

// Apply は name の条件を返します。現在の条件は丸ごと置き換える前提です。
func (v Views) Apply(name string) (Filter, error) {
	f, ok := v[name]
	if !ok {
		return Filter{}, ErrViewNotFound
	}
	f.View = name
	return f, nil
}

// Delete は name を削除した Views を返します。
func (v Views) Delete(name string) (Views, error) {
	if _, ok := v[name]; !ok {
		return v, ErrViewNotFound
	}
	out := v.clone()
	delete(out, name)
	return out, nil
}

// Names は保存ビュー名を昇順で返します。
func (v Views) Names() []string {
	names := make([]string, 0, len(v))
	for n := range v {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (v Views) clone() Views {
	out := make(Views, len(v)+1)
	for k, f := range v {
		out[k] = f
	}
	return out
}
