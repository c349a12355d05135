package calendar

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Date は時刻・タイムゾーンを持たない暦日です。ゼロ値は「未設定」を表します。
type Date struct {
	year  int
	month time.Month
	day   int
}

// NewDate は年月日から Date を生成します。存在しない日付は false を返します。
func NewDate(year int, month time.Month, day int) (Date, bool) {
	if year <= 0 || month <= 0 || day <= 0 {
		return Date{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Date{}, false
	}
	return Date{year: year, month: month, day: day}, true
}

// MustDate はテスト・定数用に NewDate を呼び、失敗時に panic します。
func MustDate(year int, month time.Month, day int) Date {
	d, ok := NewDate(year, month, day)
	if !ok {
		panic(fmt.Sprintf("calendar: invalid date %04d-%02d-%02d", year, month, day))
	}
	return d
}

// Parse は YYYY-MM-DD 形式を解釈します。
// 年・月・日のいずれかが欠けている・0 である、または暦上存在しない (2024-02-30 など) 場合は false を返します。
func Parse(iso string) (Date, bool) {
	if iso == "" {
		return Date{}, false
	}
	parts := strings.Split(iso, "-")
	if len(parts) < 3 {
		return Date{}, false
	}
	nums := make([]int, 3)
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || n == 0 {
			return Date{}, false
		}
		nums[i] = n
	}
	return NewDate(nums[0], time.Month(nums[1]), nums[2])
}

// FromTime は t の暦日部分を取り出します。
func FromTime(t time.Time) Date {
	return Date{year: t.Year(), month: t.Month(), day: t.Day()}
}

// Today は loc における現在の暦日を返します。
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return FromTime(now.In(loc))
}

// IsZero は未設定かどうかを返します。
func (d Date) IsZero() bool {
	return d.year == 0
}

func (d Date) Year() int         { return d.year }
func (d Date) Month() time.Month { return d.month }
func (d Date) Day() int          { return d.day }

// String はゼロ埋めの YYYY-MM-DD を返します。未設定の場合は空文字列です。
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.year, int(d.month), d.day)
}

// AddDays は n 日後の日付を返します。月・年の繰り上がりは暦計算で処理します。
func (d Date) AddDays(n int) Date {
	if d.IsZero() {
		return Date{}
	}
	return FromTime(d.asTime().AddDate(0, 0, n))
}

// Compare は d と o を比較し、-1 / 0 / 1 を返します。
func (d Date) Compare(o Date) int {
	switch {
	case d.year != o.year:
		return cmpInt(d.year, o.year)
	case d.month != o.month:
		return cmpInt(int(d.month), int(o.month))
	default:
		return cmpInt(d.day, o.day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

// YearMonth は日付が属する月を返します。
func (d Date) YearMonth() Month {
	if d.IsZero() {
		return Month{}
	}
	return Month{year: d.year, month: d.month}
}

// MarshalJSON は "YYYY-MM-DD" もしくは "" として出力します。
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON は解釈できない値を未設定として扱います。
func (d *Date) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		*d = Date{}
		return nil
	}
	parsed, _ := Parse(raw)
	*d = parsed
	return nil
}

func (d Date) asTime() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// StartOfWeek は d を含む週の日曜日を返します。
func StartOfWeek(d Date) Date {
	if d.IsZero() {
		return Date{}
	}
	return d.AddDays(-int(d.asTime().Weekday()))
}

// AddDays は ISO 文字列に n 日加算します。解釈できない入力には空文字列を返します。
func AddDays(iso string, n int) string {
	d, ok := Parse(iso)
	if !ok {
		return ""
	}
	return d.AddDays(n).String()
}

// FirstOfMonth は YYYY-MM の 1 日を返します。
func FirstOfMonth(ym string) string {
	m, ok := ParseMonth(ym)
	if !ok {
		return ""
	}
	return m.First().String()
}

// LastOfMonth は YYYY-MM の末日を返します。
func LastOfMonth(ym string) string {
	m, ok := ParseMonth(ym)
	if !ok {
		return ""
	}
	return m.Last().String()
}

// YearMonth は ISO 日付の先頭 7 文字を返します。
func YearMonth(iso string) string {
	if len(iso) < 7 {
		return iso
	}
	return iso[:7]
}

// FormatPercent は fraction*100 を整数に丸め "%" を付けます。NaN は 0 として扱います。
func FormatPercent(fraction float64) string {
	if math.IsNaN(fraction) || math.IsInf(fraction, 0) {
		fraction = 0
	}
	v := math.Floor(fraction*100 + 0.5)
	if v == 0 {
		// -0 を 0 に揃える
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 0, 64) + "%"
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
