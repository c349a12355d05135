package xlsx

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ogurasousui/driver-retention/internal/core/driver"
	"github.com/ogurasousui/driver-retention/internal/core/metrics"
	"github.com/ogurasousui/driver-retention/internal/platform/calendar"
	"github.com/xuri/excelize/v2"
)

func TestWrite(t *testing.T) {
	t.Parallel()

	d := driver.New("d1")
	d.Name = "Alice"
	d.Recruiter = "Zoe"
	d.StartDate = calendar.MustDate(2025, 7, 7)
	cost := 1500.0
	d.HiringCost = &cost

	stats := metrics.MonthlyStats([]driver.Driver{d}, calendar.MustDate(2025, 8, 20))

	var buf bytes.Buffer
	if err := Write(&buf, []driver.Driver{d}, stats); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	defer func() { _ = f.Close() }()

	if got := f.GetSheetList(); len(got) != 2 || got[0] != DriversSheet || got[1] != KPISheet {
		t.Fatalf("unexpected sheets: %v", got)
	}

	rows, err := f.GetRows(DriversSheet)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and one row, got %d", len(rows))
	}
	if rows[0][0] != driver.FieldName || rows[1][0] != "Alice" || rows[1][3] != "2025-07-07" {
		t.Fatalf("unexpected driver rows: %v", rows)
	}
	for _, h := range rows[0] {
		if h == driver.FieldID || h == driver.FieldArchived {
			t.Fatalf("unexpected column %q", h)
		}
	}

	cost1, err := f.GetCellValue(DriversSheet, "I2")
	if err != nil || cost1 != "1500" {
		t.Fatalf("expected numeric hiring cost, got %q err=%v", cost1, err)
	}

	kpi, err := f.GetRows(KPISheet)
	if err != nil {
		t.Fatalf("GetRows KPI failed: %v", err)
	}
	if len(kpi) != 1+len(stats) {
		t.Fatalf("expected %d KPI rows, got %d", 1+len(stats), len(kpi))
	}
	if kpi[0][0] != "Month" || kpi[1][0] != "2025-07" {
		t.Fatalf("unexpected KPI rows: %v", kpi)
	}
}

func TestWrite_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, nil, nil); !errors.Is(err, driver.ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing written")
	}
}

func TestFileName(t *testing.T) {
	t.Parallel()

	if got := FileName(calendar.MustDate(2025, 8, 20)); got != "drivers_2025-08-20.xlsx" {
		t.Fatalf("unexpected file name %q", got)
	}
}
