package metrics

import (
	"github.com/ogurasousui/driver-retention/internal/core/driver"
	"github.com/ogurasousui/driver-retention/internal/platform/calendar"
)

// MonthlyStat は 1 か月分の在籍数・退職者数・定着率です。
type MonthlyStat struct {
	Month   calendar.Month
	HCStart int
	HCEnd   int

	// AvgHC は月初と月末の平均で、端数 (例: 2.5) を保持します。
	AvgHC float64

	Leavers int

	// RetentionPct は 1 - Leavers/AvgHC です。AvgHC が 0 の月は 0 です。
	RetentionPct float64
}

// HeadcountOn は on 時点の在籍数を返します。
// 退職日当日は在籍に含めません。アーカイブ済みのドライバーも数えます。
func HeadcountOn(drivers []driver.Driver, on calendar.Date) int {
	n := 0
	for _, d := range drivers {
		if employedOn(d, on) {
			n++
		}
	}
	return n
}

func employedOn(d driver.Driver, on calendar.Date) bool {
	if d.StartDate.IsZero() || d.StartDate.After(on) {
		return false
	}
	if d.Terminated() && !d.TermDate.IsZero() {
		return d.TermDate.After(on)
	}
	return true
}

// LeaversIn は退職日が m に含まれる退職者数を返します。
func LeaversIn(drivers []driver.Driver, m calendar.Month) int {
	n := 0
	for _, d := range drivers {
		if d.Terminated() && m.Contains(d.TermDate) {
			n++
		}
	}
	return n
}

// Months は集計対象の月を昇順で返します。
// 最も早い入社月から、入社日・退職日の最大値と today の遅い方の月までです。入社日が 1 件も無い場合は空です。
func Months(drivers []driver.Driver, today calendar.Date) []calendar.Month {
	var earliest, latest calendar.Date
	for _, d := range drivers {
		if d.StartDate.IsZero() {
			continue
		}
		if earliest.IsZero() || d.StartDate.Before(earliest) {
			earliest = d.StartDate
		}
	}
	if earliest.IsZero() {
		return nil
	}

	latest = today
	for _, d := range drivers {
		for _, c := range []calendar.Date{d.StartDate, d.TermDate} {
			if !c.IsZero() && (latest.IsZero() || c.After(latest)) {
				latest = c
			}
		}
	}

	last := latest.YearMonth()
	var months []calendar.Month
	for m := earliest.YearMonth(); m.Compare(last) <= 0; m = m.Next() {
		months = append(months, m)
	}
	return months
}

// MonthlyStats は Months の各月について MonthlyStat を計算します。
func MonthlyStats(drivers []driver.Driver, today calendar.Date) []MonthlyStat {
	months := Months(drivers, today)
	stats := make([]MonthlyStat, 0, len(months))
	for _, m := range months {
		stats = append(stats, Compute(drivers, m))
	}
	return stats
}

// Compute は月 m の MonthlyStat を計算します。
func Compute(drivers []driver.Driver, m calendar.Month) MonthlyStat {
	hcStart := HeadcountOn(drivers, m.First())
	hcEnd := HeadcountOn(drivers, m.Last())
	avg := float64(hcStart+hcEnd) / 2
	leavers := LeaversIn(drivers, m)

	var retention float64
	if avg > 0 {
		retention = 1 - float64(leavers)/avg
	}

	return MonthlyStat{
		Month:        m,
		HCStart:      hcStart,
		HCEnd:        hcEnd,
		AvgHC:        avg,
		Leavers:      leavers,
		RetentionPct: retention,
	}
}
