package driver

import "github.com/ogurasousui/driver-retention/internal/platform/calendar"

// Collection はドライバーの順序付き集合です。
// 各操作は新しい Collection を返し、レシーバや呼び出し元が保持するスライスを変更しません。
type Collection struct {
	items []Driver
}

// NewCollection は drivers をコピーして Collection を生成します。
func NewCollection(drivers []Driver) Collection {
	items := make([]Driver, len(drivers))
	for i, d := range drivers {
		items[i] = d.clone()
	}
	return Collection{items: items}
}

// Len は件数を返します。
func (c Collection) Len() int {
	return len(c.items)
}

// All は全件のコピーを返します。
func (c Collection) All() []Driver {
	out := make([]Driver, len(c.items))
	for i, d := range c.items {
		out[i] = d.clone()
	}
	return out
}

// Find は ID でドライバーを検索します。
func (c Collection) Find(id string) (Driver, bool) {
	if i := c.index(id); i >= 0 {
		return c.items[i].clone(), true
	}
	return Driver{}, false
}

// Create は d を先頭に追加します。
func (c Collection) Create(d Driver) Collection {
	items := make([]Driver, 0, len(c.items)+1)
	items = append(items, d.clone())
	items = append(items, c.items...)
	return Collection{items: items}
}

// Update は id に一致するドライバーへ patch をマージします。存在しない id は無視します。
func (c Collection) Update(id string, patch Patch) Collection {
	i := c.index(id)
	if i < 0 {
		return c
	}
	items := c.copyItems()
	items[i] = patch.Apply(items[i])
	return Collection{items: items}
}

// Archive は ids のドライバーをアーカイブします。
// 既にアーカイブ済みのドライバーはアーカイブ日を含め変更しません。
func (c Collection) Archive(ids []string, on calendar.Date) Collection {
	set := idSet(ids)
	items := c.copyItems()
	for i := range items {
		if !set[items[i].ID] || items[i].Archived {
			continue
		}
		items[i].Archived = true
		items[i].ArchivedAt = on
	}
	return Collection{items: items}
}

// Unarchive は ids のドライバーのアーカイブを解除します。
func (c Collection) Unarchive(ids []string) Collection {
	set := idSet(ids)
	items := c.copyItems()
	for i := range items {
		if set[items[i].ID] {
			items[i].Archived = false
		}
	}
	return Collection{items: items}
}

// Delete は id のドライバーを完全に削除します。
func (c Collection) Delete(id string) Collection {
	i := c.index(id)
	if i < 0 {
		return c
	}
	items := make([]Driver, 0, len(c.items)-1)
	items = append(items, c.items[:i]...)
	items = append(items, c.items[i+1:]...)
	return Collection{items: items}
}

// BulkAssign は ids のドライバーにリクルーター・採用経路を一括設定します。空文字列の項目は変更しません。
func (c Collection) BulkAssign(ids []string, recruiter, source string) Collection {
	var p Patch
	if recruiter != "" {
		p.Recruiter = &recruiter
	}
	if source != "" {
		p.Source = &source
	}
	if p.Empty() {
		return c
	}
	set := idSet(ids)
	items := c.copyItems()
	for i := range items {
		if set[items[i].ID] {
			items[i] = p.Apply(items[i])
		}
	}
	return Collection{items: items}
}

// Row は取り込み 1 行分です。ID が空または未登録の場合は新規作成されます。
type Row struct {
	ID    string
	Patch Patch
}

// UpsertResult は Upsert の件数内訳です。
type UpsertResult struct {
	Inserted int
	Updated  int
}

// Upsert は rows を ID で突き合わせてマージします。
// 既存 ID には Patch をマージし、それ以外は既定値に Patch を適用して末尾に追加します。
func (c Collection) Upsert(rows []Row, newID func() string) (Collection, UpsertResult) {
	items := c.copyItems()
	pos := make(map[string]int, len(items))
	for i, d := range items {
		pos[d.ID] = i
	}

	var res UpsertResult
	for _, r := range rows {
		if r.ID != "" {
			if i, ok := pos[r.ID]; ok {
				items[i] = r.Patch.Apply(items[i])
				res.Updated++
				continue
			}
		}

		id := r.ID
		if id == "" {
			id = newID()
		}
		items = append(items, r.Patch.Apply(New(id)))
		pos[id] = len(items) - 1
		res.Inserted++
	}

	return Collection{items: items}, res
}

func (c Collection) index(id string) int {
	for i, d := range c.items {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func (c Collection) copyItems() []Driver {
	items := make([]Driver, len(c.items))
	for i, d := range c.items {
		items[i] = d.clone()
	}
	return items
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
