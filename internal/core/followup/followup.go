package followup

import (
	"errors"
	"sort"
	"strings"

	"github.com/ogurasousui/driver-retention/internal/core/driver"
	"github.com/ogurasousui/driver-retention/internal/platform/calendar"
)

var (
	ErrInvalidWeek = errors.New("followup: invalid week")

	// ErrFutureCheckIn は期日前のチェックインを完了にしようとした場合のエラーです。
	ErrFutureCheckIn = errors.New("followup: check-in is not due yet")
)

// DueSoonDays は「期日間近」とみなす日数です (今日を含む)。
const DueSoonDays = 2

// DueDates は 1〜4 週目の期日を返します。入社日が未設定の場合はすべて未設定です。
func DueDates(start calendar.Date) [driver.Weeks]calendar.Date {
	var due [driver.Weeks]calendar.Date
	if start.IsZero() {
		return due
	}
	for k := 1; k <= driver.Weeks; k++ {
		due[k-1] = start.AddDays(7 * k)
	}
	return due
}

// Overdue は期日が今日より前で、メモが空の場合に true です。
func Overdue(due calendar.Date, note string, today calendar.Date) bool {
	if due.IsZero() || strings.TrimSpace(note) != "" {
		return false
	}
	return due.Before(today)
}

// DueSoon は期日が [today, today+2] に入り、メモが空の場合に true です。
func DueSoon(due calendar.Date, note string, today calendar.Date) bool {
	if due.IsZero() || strings.TrimSpace(note) != "" {
		return false
	}
	return !due.Before(today) && !due.After(today.AddDays(DueSoonDays))
}

// MarkAllowed は期日が未設定か今日以前であれば true です。
func MarkAllowed(due calendar.Date, today calendar.Date) bool {
	return due.IsZero() || !due.After(today)
}

// State は 1 週分のチェックイン状態です。
type State string

const (
	StateDone       State = "done"
	StateOverdue    State = "overdue"
	StateDueSoon    State = "due_soon"
	StatePending    State = "pending"
	StateNoSchedule State = "no_schedule"
)

// WeekState は d の week 週目 (1 始まり) の状態を返します。
func WeekState(d driver.Driver, week int, today calendar.Date) (State, error) {
	if week < 1 || week > driver.Weeks {
		return "", ErrInvalidWeek
	}
	due := DueDates(d.StartDate)[week-1]
	note := d.Notes[week-1]

	switch {
	case d.NoteDone(week):
		return StateDone, nil
	case due.IsZero():
		return StateNoSchedule, nil
	case Overdue(due, note, today):
		return StateOverdue, nil
	case DueSoon(due, note, today):
		return StateDueSoon, nil
	default:
		return StatePending, nil
	}
}

// MarkDone は week 週目を完了にするパッチを返します。
// メモが空白のみなら "-" を設定し、既にメモがある場合は現在の値のままです。期日が未来の場合は ErrFutureCheckIn です。
func MarkDone(d driver.Driver, week int, today calendar.Date) (driver.Patch, error) {
	if week < 1 || week > driver.Weeks {
		return driver.Patch{}, ErrInvalidWeek
	}
	due := DueDates(d.StartDate)[week-1]
	if !MarkAllowed(due, today) {
		return driver.Patch{}, ErrFutureCheckIn
	}

	note := d.Notes[week-1]
	if strings.TrimSpace(note) == "" {
		note = driver.DoneMarker
	}
	return driver.SetNote(week, note)
}

// Completion は記入済みメモの割合です。
func Completion(d driver.Driver) float64 {
	return d.Completion()
}

// Row は 1 ドライバー分のフォローアップ表の行です。
type Row struct {
	Driver driver.Driver
	Due    [driver.Weeks]calendar.Date
	States [driver.Weeks]State
}

// Overdue は期限切れの週があるかを返します。
func (r Row) Overdue() bool {
	for _, s := range r.States {
		if s == StateOverdue {
			return true
		}
	}
	return false
}

// Build は drivers のフォローアップ表を返します。
func Build(drivers []driver.Driver, today calendar.Date) []Row {
	rows := make([]Row, 0, len(drivers))
	for _, d := range drivers {
		rows = append(rows, BuildRow(d, today))
	}
	return rows
}

// BuildRow は d の行を返します。
func BuildRow(d driver.Driver, today calendar.Date) Row {
	r := Row{Driver: d, Due: DueDates(d.StartDate)}
	for w := 1; w <= driver.Weeks; w++ {
		r.States[w-1], _ = WeekState(d, w, today)
	}
	return r
}

// HasOverdue は d に期限切れの週があるかを返します。
func HasOverdue(d driver.Driver, today calendar.Date) bool {
	due := DueDates(d.StartDate)
	for w := 0; w < driver.Weeks; w++ {
		if Overdue(due[w], d.Notes[w], today) {
			return true
		}
	}
	return false
}

// Unassigned はリクルーター未設定のドライバーの集計キーです。
const Unassigned = "(Unassigned)"

// RecruiterOverdue はリクルーター別の期限切れ件数です。
type RecruiterOverdue struct {
	Recruiter string
	Weeks     int
}

// OverdueByRecruiter はアーカイブされていないドライバーの期限切れ週数をリクルーター別に数えます。
// 件数の降順、同数は最初に現れた順です。期限切れの無いリクルーターは含みません。
func OverdueByRecruiter(drivers []driver.Driver, today calendar.Date) []RecruiterOverdue {
	var out []RecruiterOverdue
	index := make(map[string]int)

	for _, d := range drivers {
		if d.Archived {
			continue
		}
		due := DueDates(d.StartDate)
		n := 0
		for w := 0; w < driver.Weeks; w++ {
			if Overdue(due[w], d.Notes[w], today) {
				n++
			}
		}
		if n == 0 {
			continue
		}
		key := d.Recruiter
		if key == "" {
			key = Unassigned
		}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, RecruiterOverdue{Recruiter: key})
		}
		out[i].Weeks += n
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Weeks > out[j].Weeks })
	return out
}
