package filter

import (
	"errors"
	"fmt"

	"github.com/ogurasousui/driver-retention/internal/core/driver"
	"github.com/ogurasousui/driver-retention/internal/core/followup"
	"github.com/ogurasousui/driver-retention/internal/platform/calendar"
)

var ErrUnknownQuickRange = errors.New("filter: unknown quick range")

// Filter はドライバー一覧の絞り込み条件です。ゼロ値の項目はすべてに一致します。
type Filter struct {
	From      calendar.Date `json:"from"`
	To        calendar.Date `json:"to"`
	Recruiter string        `json:"recruiter"`
	Source    string        `json:"source"`

	// Status が空の場合は在籍・退職の両方です。
	Status       driver.Status `json:"status,omitempty"`
	ShowArchived bool          `json:"showArchived,omitempty"`
	OverdueOnly  bool          `json:"overdueOnly,omitempty"`

	// View は最後に保存・適用した保存ビュー名です。
	View string `json:"view,omitempty"`
}

// HasDateRange は入社日の範囲指定があるかを返します。
func (f Filter) HasDateRange() bool {
	return !f.From.IsZero() || !f.To.IsZero()
}

// Match は d がすべての条件を満たすかを返します (AND 条件)。
// 範囲指定がある場合、入社日未設定のドライバーは一致しません。From・To は両端を含みます。
func (f Filter) Match(d driver.Driver, today calendar.Date) bool {
	if d.Archived && !f.ShowArchived {
		return false
	}
	if f.HasDateRange() {
		if d.StartDate.IsZero() {
			return false
		}
		if !f.From.IsZero() && d.StartDate.Before(f.From) {
			return false
		}
		if !f.To.IsZero() && d.StartDate.After(f.To) {
			return false
		}
	}
	if f.Recruiter != "" && d.Recruiter != f.Recruiter {
		return false
	}
	if f.Source != "" && d.Source != f.Source {
		return false
	}
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if f.OverdueOnly && !followup.HasOverdue(d, today) {
		return false
	}
	return true
}

// Apply は条件に一致するドライバーを元の順序で返します。
// pinned に含まれる ID の下書き (必須項目が未入力のドライバー) は条件に関係なく残します。
func (f Filter) Apply(drivers []driver.Driver, today calendar.Date, pinned map[string]bool) []driver.Driver {
	out := make([]driver.Driver, 0, len(drivers))
	for _, d := range drivers {
		if f.Match(d, today) || (pinned[d.ID] && d.Draft() && !d.Archived) {
			out = append(out, d)
		}
	}
	return out
}

// QuickRange は入社日の範囲を簡易指定します。
type QuickRange string

const (
	QuickWeek  QuickRange = "week"
	QuickMonth QuickRange = "month"
	QuickClear QuickRange = "clear"
)

// WithQuickRange は q を適用した条件を返します。その他の条件は変更しません。
// week は今週の日曜日から今日まで、month は今月 1 日から今日まで、clear は範囲指定の解除です。
func (f Filter) WithQuickRange(q QuickRange, today calendar.Date) (Filter, error) {
	switch q {
	case QuickWeek:
		f.From, f.To = calendar.StartOfWeek(today), today
	case QuickMonth:
		f.From, f.To = today.YearMonth().First(), today
	case QuickClear:
		f.From, f.To = calendar.Date{}, calendar.Date{}
	default:
		return f, fmt.Errorf("%q: %w", q, ErrUnknownQuickRange)
	}
	return f, nil
}
