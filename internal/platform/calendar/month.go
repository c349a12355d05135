package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Month は暦月 (年 + 月) です。
type Month struct {
	year  int
	month time.Month
}

// NewMonth は年と月から Month を生成します。
func NewMonth(year int, month time.Month) Month {
	return Month{year: year, month: month}
}

// ParseMonth は YYYY-MM 形式を解釈します。
func ParseMonth(ym string) (Month, bool) {
	parts := strings.Split(ym, "-")
	if len(parts) < 2 {
		return Month{}, false
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil || y <= 0 {
		return Month{}, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return Month{}, false
	}
	return Month{year: y, month: time.Month(m)}, true
}

func (m Month) IsZero() bool { return m.year == 0 }

func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", m.year, int(m.month))
}

// First は月初日を返します。
func (m Month) First() Date {
	return Date{year: m.year, month: m.month, day: 1}
}

// Last は月末日を返します。翌月の 0 日目として計算します。
func (m Month) Last() Date {
	return FromTime(time.Date(m.year, m.month+1, 0, 0, 0, 0, 0, time.UTC))
}

// Next は翌月を返します。
func (m Month) Next() Month {
	if m.month == time.December {
		return Month{year: m.year + 1, month: time.January}
	}
	return Month{year: m.year, month: m.month + 1}
}

// Compare は m と o を比較し、-1 / 0 / 1 を返します。
func (m Month) Compare(o Month) int {
	if m.year != o.year {
		return cmpInt(m.year, o.year)
	}
	return cmpInt(int(m.month), int(o.month))
}

// Contains は d が m に属するかを返します。
func (m Month) Contains(d Date) bool {
	return !d.IsZero() && d.year == m.year && d.month == m.month
}
