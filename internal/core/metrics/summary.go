package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ogurasousui/driver-retention/internal/core/driver"
	"github.com/ogurasousui/driver-retention/internal/platform/calendar"
)

// ErrInvalidRange は未知の表示期間です。
var ErrInvalidRange = errors.New("metrics: invalid range")

// Range はダッシュボードの表示期間です。
type Range string

const (
	Range1M  Range = "1m"
	Range3M  Range = "3m"
	Range6M  Range = "6m"
	Range12M Range = "12m"
	RangeAll Range = "all"
)

// DefaultRange は未設定時の表示期間です。
const DefaultRange = Range3M

var rangeMonths = map[Range]int{Range1M: 1, Range3M: 3, Range6M: 6, Range12M: 12}

// ParseRange は表示期間を解釈します。空文字列は DefaultRange です。
func ParseRange(raw string) (Range, error) {
	r := Range(strings.ToLower(strings.TrimSpace(raw)))
	if r == "" {
		return DefaultRange, nil
	}
	if _, ok := rangeMonths[r]; ok || r == RangeAll {
		return r, nil
	}
	return "", fmt.Errorf("%q: %w", raw, ErrInvalidRange)
}

// Window は stats の末尾 r か月分を返します。RangeAll と未知の値は全件です。
func Window(stats []MonthlyStat, r Range) []MonthlyStat {
	n, ok := rangeMonths[r]
	if !ok || n >= len(stats) {
		return stats
	}
	return stats[len(stats)-n:]
}

// Summary はダッシュボード上部の指標です。
type Summary struct {
	Month       calendar.Month
	Active      int
	NewHiresMTD int
	LeaversMTD  int

	// RetentionMTD は当月の行が無い場合は HasRetentionMTD が false です。
	RetentionMTD    float64
	HasRetentionMTD bool
}

// Summarize は today の月について Summary を計算します。stats は MonthlyStats の結果です。
func Summarize(drivers []driver.Driver, stats []MonthlyStat, today calendar.Date) Summary {
	month := today.YearMonth()
	s := Summary{Month: month}

	for _, d := range drivers {
		if !d.Archived {
			s.Active++
		}
		if month.Contains(d.StartDate) {
			s.NewHiresMTD++
		}
		if d.Terminated() && month.Contains(d.TermDate) {
			s.LeaversMTD++
		}
	}

	for _, st := range stats {
		if st.Month == month {
			s.RetentionMTD = st.RetentionPct
			s.HasRetentionMTD = true
			break
		}
	}
	return s
}

// FormatRetentionMTD は表示用の文字列を返します。値が無い場合は "-" です。
func (s Summary) FormatRetentionMTD() string {
	if !s.HasRetentionMTD {
		return "-"
	}
	return calendar.FormatPercent(s.RetentionMTD)
}

// Unassigned はリクルーター未設定のドライバーの集計キーです。
const Unassigned = "(Unassigned)"

// RecruiterScore はリクルーター別のフォローアップ完了率です。
type RecruiterScore struct {
	Recruiter  string
	Drivers    int
	Completion float64
}

// Leaderboard はアーカイブされていないドライバーをリクルーター別に集計し、平均完了率の降順で返します。
// 同率の場合は最初に現れた順です。
func Leaderboard(drivers []driver.Driver) []RecruiterScore {
	var order []string
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, d := range drivers {
		if d.Archived {
			continue
		}
		key := d.Recruiter
		if key == "" {
			key = Unassigned
		}
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
		sums[key] += d.Completion()
	}

	out := make([]RecruiterScore, 0, len(order))
	for _, key := range order {
		out = append(out, RecruiterScore{
			Recruiter:  key,
			Drivers:    counts[key],
			Completion: sums[key] / float64(counts[key]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Completion > out[j].Completion })
	return out
}

// FormatHeadcount は平均在籍数を小数 1 桁で表示します。
func FormatHeadcount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return strconv.FormatFloat(math.Floor(v*10+0.5)/10, 'f', 1, 64)
}
