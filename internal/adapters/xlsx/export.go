package xlsx

import (
	"errors"
	"fmt"
	"io"

	"github.com/ogurasousui/driver-retention/internal/core/driver"
	"github.com/ogurasousui/driver-retention/internal/core/metrics"
	"github.com/ogurasousui/driver-retention/internal/platform/calendar"
	"github.com/xuri/excelize/v2"
)

// シート名。
const (
	DriversSheet = "Drivers"
	KPISheet     = "KPI"
)

// numFmtPercent は組み込み表示形式 "0%" の ID です。
const numFmtPercent = 9

var kpiHeader = []any{"Month", "HC Start", "HC End", "Avg HC", "Leavers", "Retention %"}

// FileName は出力ファイル名 drivers_<YYYY-MM-DD>.xlsx を返します。
func FileName(today calendar.Date) string {
	return "drivers_" + today.String() + ".xlsx"
}

// Write は Drivers シートと KPI シートを持つブックを w に書き出します。
// Drivers シートの列は CSV 出力と同じです。対象が無い場合は driver.ErrNothingToExport です。
func Write(w io.Writer, drivers []driver.Driver, stats []metrics.MonthlyStat) (err error) {
	if len(drivers) == 0 {
		return driver.ErrNothingToExport
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if err := f.SetSheetName("Sheet1", DriversSheet); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx: header style: %w", err)
	}

	if err := writeDrivers(f, drivers, bold); err != nil {
		return err
	}

	if _, err := f.NewSheet(KPISheet); err != nil {
		return fmt.Errorf("xlsx: add sheet: %w", err)
	}
	if err := writeKPI(f, stats, bold); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}

func writeDrivers(f *excelize.File, drivers []driver.Driver, headerStyle int) error {
	doc := driver.ExportDocument(drivers)

	header := make([]any, len(doc.Header))
	for i, h := range doc.Header {
		header[i] = h
	}
	if err := setRow(f, DriversSheet, 1, header); err != nil {
		return err
	}
	if err := styleRow(f, DriversSheet, 1, len(header), headerStyle); err != nil {
		return err
	}

	for i, d := range drivers {
		rec := doc.Records[i]
		row := make([]any, len(doc.Header))
		for c, key := range doc.Header {
			switch key {
			case driver.FieldHiringCost:
				row[c] = numberOrBlank(d.HiringCost)
			case driver.FieldTimeToHireDays:
				row[c] = numberOrBlank(d.TimeToHireDays)
			default:
				row[c] = rec[key]
			}
		}
		if err := setRow(f, DriversSheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeKPI(f *excelize.File, stats []metrics.MonthlyStat, headerStyle int) error {
	if err := setRow(f, KPISheet, 1, kpiHeader); err != nil {
		return err
	}
	if err := styleRow(f, KPISheet, 1, len(kpiHeader), headerStyle); err != nil {
		return err
	}

	for i, s := range stats {
		row := []any{s.Month.String(), s.HCStart, s.HCEnd, s.AvgHC, s.Leavers, s.RetentionPct}
		if err := setRow(f, KPISheet, i+2, row); err != nil {
			return err
		}
	}
	if len(stats) == 0 {
		return nil
	}

	last := len(stats) + 1
	avgStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr("0.0")})
	if err != nil {
		return fmt.Errorf("xlsx: number style: %w", err)
	}
	pctStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtPercent})
	if err != nil {
		return fmt.Errorf("xlsx: percent style: %w", err)
	}
	if err := f.SetCellStyle(KPISheet, "D2", fmt.Sprintf("D%d", last), avgStyle); err != nil {
		return fmt.Errorf("xlsx: style avg column: %w", err)
	}
	if err := f.SetCellStyle(KPISheet, "F2", fmt.Sprintf("F%d", last), pctStyle); err != nil {
		return fmt.Errorf("xlsx: style retention column: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("xlsx: cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("xlsx: write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func styleRow(f *excelize.File, sheet string, row, cols, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("xlsx: cell name: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return fmt.Errorf("xlsx: cell name: %w", err)
	}
	if err := f.SetCellStyle(sheet, first, last, style); err != nil {
		return fmt.Errorf("xlsx: style %s header: %w", sheet, err)
	}
	return nil
}

func numberOrBlank(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func strPtr(s string) *string { return &s }
