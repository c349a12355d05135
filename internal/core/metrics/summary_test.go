package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/ogurasousui/driver-retention/internal/core/driver"
	"github.com/ogurasousui/driver-retention/internal/platform/calendar"
)

func TestParseRange(t *testing.T) {
	t.Parallel()

	cases := map[string]Range{"": Range3M, "1M": Range1M, " 12m ": Range12M, "all": RangeAll}
	for in, want := range cases {
		got, err := ParseRange(in)
		if err != nil || got != want {
			t.Errorf("ParseRange(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseRange("2w"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestWindow(t *testing.T) {
	t.Parallel()

	var stats []MonthlyStat
	m := calendar.NewMonth(2025, time.January)
	for i := 0; i < 5; i++ {
		stats = append(stats, MonthlyStat{Month: m})
		m = m.Next()
	}

	if got := Window(stats, Range3M); len(got) != 3 || got[0].Month.String() != "2025-03" {
		t.Fatalf("unexpected 3m window: %+v", got)
	}
	if got := Window(stats, Range12M); len(got) != 5 {
		t.Fatalf("expected all rows for 12m, got %d", len(got))
	}
	if got := Window(stats, RangeAll); len(got) != 5 {
		t.Fatalf("expected all rows, got %d", len(got))
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	today := calendar.MustDate(2025, 8, 20)
	archived := startedOn("old", calendar.MustDate(2025, 1, 1))
	archived.Archived = true
	drivers := []driver.Driver{
		startedOn("a", calendar.MustDate(2025, 8, 1)),
		terminatedOn("b", calendar.MustDate(2025, 8, 1), calendar.MustDate(2025, 8, 15)),
		archived,
	}

	s := Summarize(drivers, MonthlyStats(drivers, today), today)
	if s.Active != 2 || s.NewHiresMTD != 2 || s.LeaversMTD != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if !s.HasRetentionMTD {
		t.Fatalf("expected retention for current month")
	}

	empty := Summarize(nil, nil, today)
	if empty.FormatRetentionMTD() != "-" {
		t.Fatalf("expected placeholder, got %q", empty.FormatRetentionMTD())
	}
}

func TestLeaderboard(t *testing.T) {
	t.Parallel()

	full := driver.New("a")
	full.Recruiter = "Zoe"
	for i := range full.Notes {
		full.Notes[i] = driver.DoneMarker
	}
	half := driver.New("b")
	half.Recruiter = "Emily"
	half.Notes[0], half.Notes[1] = "ok", "ok"
	none := driver.New("c")
	hidden := driver.New("d")
	hidden.Recruiter = "Zoe"
	hidden.Archived = true

	board := Leaderboard([]driver.Driver{none, half, full, hidden})
	if len(board) != 3 {
		t.Fatalf("expected 3 rows, got %+v", board)
	}
	if board[0].Recruiter != "Zoe" || board[0].Completion != 1 || board[0].Drivers != 1 {
		t.Errorf("unexpected first row: %+v", board[0])
	}
	if board[1].Recruiter != "Emily" || board[1].Completion != 0.5 {
		t.Errorf("unexpected second row: %+v", board[1])
	}
	if board[2].Recruiter != Unassigned || board[2].Completion != 0 {
		t.Errorf("unexpected third row: %+v", board[2])
	}
}

func TestFormatHeadcount(t *testing.T) {
	t.Parallel()

	cases := map[float64]string{1.5: "1.5", 2: "2.0", 0: "0.0", 3.25: "3.3"}
	for in, want := range cases {
		if got := FormatHeadcount(in); got != want {
			t.Errorf("FormatHeadcount(%v) = %q, want %q", in, got, want)
		}
	}
}
