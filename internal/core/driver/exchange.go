package driver

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ogurasousui/driver-retention/internal/platform/calendar"
	"github.com/ogurasousui/driver-retention/internal/platform/csvcodec"
)

// Field はドライバーの入出力列です。キーは永続化・CSV の列名と同じです。
type Field struct {
	Key   string
	Label string
}

// 列キー。
const (
	FieldID                = "id"
	FieldName              = "name"
	FieldRecruiter         = "recruiter"
	FieldSource            = "source"
	FieldStartDate         = "startDate"
	FieldWeek1Note         = "week1Note"
	FieldWeek2Note         = "week2Note"
	FieldWeek3Note         = "week3Note"
	FieldWeek4Note         = "week4Note"
	FieldHiringCost        = "hiringCost"
	FieldTimeToHireDays    = "timeToHireDays"
	FieldOrientationDate   = "orientationDate"
	FieldPassedOrientation = "passedOrientation"
	FieldPassed90Days      = "passed90Days"
	FieldStatus            = "status"
	FieldTermDate          = "termDate"
	FieldTermReason        = "termReason"
	FieldArchived          = "archived"
	FieldArchivedAt        = "archivedAt"
)

// Fields は取り込み可能な列の一覧です。
var Fields = []Field{
	{Key: FieldID, Label: "ID"},
	{Key: FieldName, Label: "Driver Name"},
	{Key: FieldRecruiter, Label: "Recruiter"},
	{Key: FieldSource, Label: "Source"},
	{Key: FieldStartDate, Label: "Start Date (yyyy-mm-dd)"},
	{Key: FieldWeek1Note, Label: "Week1 Note"},
	{Key: FieldWeek2Note, Label: "Week2 Note"},
	{Key: FieldWeek3Note, Label: "Week3 Note"},
	{Key: FieldWeek4Note, Label: "Week4 Note"},
	{Key: FieldHiringCost, Label: "Hiring Cost"},
	{Key: FieldTimeToHireDays, Label: "Time to Hire (d)"},
	{Key: FieldOrientationDate, Label: "Orientation Date"},
	{Key: FieldPassedOrientation, Label: "Passed Orientation (Y/N)"},
	{Key: FieldPassed90Days, Label: "Passed 90d (Y/N)"},
	{Key: FieldStatus, Label: "Status (Active/Terminated)"},
	{Key: FieldTermDate, Label: "Termination Date"},
	{Key: FieldTermReason, Label: "Termination Reason"},
	{Key: FieldArchived, Label: "Archived"},
	{Key: FieldArchivedAt, Label: "Archived At"},
}

// ExportColumns は CSV 出力の列順です。ID とアーカイブフラグは出力しません。
var ExportColumns = []string{
	FieldName, FieldRecruiter, FieldSource, FieldStartDate,
	FieldWeek1Note, FieldWeek2Note, FieldWeek3Note, FieldWeek4Note,
	FieldHiringCost, FieldTimeToHireDays, FieldOrientationDate,
	FieldPassedOrientation, FieldPassed90Days,
	FieldStatus, FieldTermDate, FieldTermReason, FieldArchivedAt,
}

var noteFields = [Weeks]string{FieldWeek1Note, FieldWeek2Note, FieldWeek3Note, FieldWeek4Note}

// Mapping は列キーから取り込み CSV のヘッダー名への対応です。対応の無い列は既定値のままです。
type Mapping map[string]string

// AutoMapping は列キーと同名のヘッダーを対応付けます。
func AutoMapping(header []string) Mapping {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	m := make(Mapping)
	for _, f := range Fields {
		if present[f.Key] {
			m[f.Key] = f.Key
		}
	}
	return m
}

// Validate は未知の列キーを含まないかを確認します。
func (m Mapping) Validate() error {
	known := make(map[string]bool, len(Fields))
	for _, f := range Fields {
		known[f.Key] = true
	}
	for k := range m {
		if !known[k] {
			return fmt.Errorf("%q: %w", k, ErrUnknownImportField)
		}
	}
	return nil
}

// ImportWarning は取り込み時に既定値へ置き換えたセルです。
type ImportWarning struct {
	Line    int
	Field   string
	Value   string
	Message string
}

// RowsFromDocument は CSV ドキュメントを Upsert 用の行に変換します。
// ID 列は空でない場合のみ採用し、リクルーター・採用経路は Roster 上の表記にそろえます。
func RowsFromDocument(doc csvcodec.Document, mapping Mapping, roster Roster) ([]Row, []ImportWarning) {
	rows := make([]Row, 0, len(doc.Records))
	var warnings []ImportWarning

	for i, rec := range doc.Records {
		line := i + 2
		var row Row
		warn := func(field, value, msg string) {
			warnings = append(warnings, ImportWarning{Line: line, Field: field, Value: value, Message: msg})
		}

		for _, f := range Fields {
			header, mapped := mapping[f.Key]
			if !mapped {
				continue
			}
			value, ok := rec[header]
			if !ok {
				continue
			}
			applyCell(&row, f.Key, value, roster, warn)
		}
		rows = append(rows, row)
	}

	return rows, warnings
}

func applyCell(row *Row, field, value string, roster Roster, warn func(field, value, msg string)) {
	p := &row.Patch
	trimmed := strings.TrimSpace(value)

	switch field {
	case FieldID:
		row.ID = trimmed
	case FieldName:
		p.Name = &value
	case FieldRecruiter:
		v := trimmed
		if c, ok := roster.CanonicalRecruiter(trimmed); ok {
			v = c
		}
		p.Recruiter = &v
	case FieldSource:
		v := trimmed
		if c, ok := roster.CanonicalSource(trimmed); ok {
			v = c
		}
		p.Source = &v
	case FieldStartDate:
		p.StartDate = parseDateCell(field, trimmed, warn)
	case FieldWeek1Note, FieldWeek2Note, FieldWeek3Note, FieldWeek4Note:
		for w, key := range noteFields {
			if key == field {
				v := value
				p.Notes[w] = &v
			}
		}
	case FieldHiringCost:
		p.HiringCost, p.HiringCostSet = parseNumberCell(field, trimmed, warn), true
	case FieldTimeToHireDays:
		p.TimeToHireDays, p.TimeToHireDaysSet = parseNumberCell(field, trimmed, warn), true
	case FieldOrientationDate:
		p.OrientationDate = parseDateCell(field, trimmed, warn)
	case FieldPassedOrientation:
		a := ParseAnswer(trimmed)
		p.PassedOrientation = &a
	case FieldPassed90Days:
		a := ParseAnswer(trimmed)
		p.Passed90Days = &a
	case FieldStatus:
		s := ParseStatus(trimmed)
		p.Status = &s
	case FieldTermDate:
		p.TermDate = parseDateCell(field, trimmed, warn)
	case FieldTermReason:
		p.TermReason = &value
	case FieldArchived:
		b, err := strconv.ParseBool(trimmed)
		if err != nil && trimmed != "" {
			warn(field, value, "not a boolean")
		}
		p.Archived = &b
	case FieldArchivedAt:
		p.ArchivedAt = parseDateCell(field, trimmed, warn)
	}
}

func parseDateCell(field, raw string, warn func(field, value, msg string)) *calendar.Date {
	d, ok := calendar.Parse(raw)
	if !ok && raw != "" {
		warn(field, raw, "not a YYYY-MM-DD date")
	}
	return &d
}

func parseNumberCell(field, raw string, warn func(field, value, msg string)) *float64 {
	if raw == "" {
		return nil
	}
	cleaned := strings.ReplaceAll(strings.TrimPrefix(raw, "$"), ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		warn(field, raw, "not a number")
		return nil
	}
	return &v
}

// ExportDocument は drivers を CSV 出力用のドキュメントに変換します。
func ExportDocument(drivers []Driver) csvcodec.Document {
	records := make([]map[string]string, 0, len(drivers))
	for _, d := range drivers {
		rec := map[string]string{
			FieldName:              d.Name,
			FieldRecruiter:         d.Recruiter,
			FieldSource:            d.Source,
			FieldStartDate:         d.StartDate.String(),
			FieldHiringCost:        csvcodec.FormatValue(d.HiringCost),
			FieldTimeToHireDays:    csvcodec.FormatValue(d.TimeToHireDays),
			FieldOrientationDate:   d.OrientationDate.String(),
			FieldPassedOrientation: string(d.PassedOrientation),
			FieldPassed90Days:      string(d.Passed90Days),
			FieldStatus:            string(d.Status),
			FieldTermDate:          d.TermDate.String(),
			FieldTermReason:        d.TermReason,
			FieldArchivedAt:        d.ArchivedAt.String(),
		}
		for w, key := range noteFields {
			rec[key] = d.Notes[w]
		}
		records = append(records, rec)
	}
	return csvcodec.Document{Header: append([]string(nil), ExportColumns...), Records: records}
}

// ExportCSV は BOM 付きの CSV テキストを返します。対象が無い場合は ErrNothingToExport です。
func ExportCSV(drivers []Driver) (string, error) {
	text := csvcodec.Encode(ExportDocument(drivers))
	if text == "" {
		return "", ErrNothingToExport
	}
	return csvcodec.ByteOrderMark + text, nil
}

// ExportFileName は出力ファイル名 drivers_<YYYY-MM-DD>.csv を返します。
func ExportFileName(today calendar.Date) string {
	return "drivers_" + today.String() + ".csv"
}

// PatchFromValues は列キーと文字列値の組から部分更新を組み立てます。値は取り込みと同じ規則で解釈します。
// 未知のキーは ErrUnknownImportField、id は変更できないため無視します。
func PatchFromValues(values map[string]string, roster Roster) (Patch, []ImportWarning, error) {
	if err := Mapping(values).Validate(); err != nil {
		return Patch{}, nil, err
	}

	var (
		row      Row
		warnings []ImportWarning
	)
	warn := func(field, value, msg string) {
		warnings = append(warnings, ImportWarning{Field: field, Value: value, Message: msg})
	}
	for _, f := range Fields {
		v, ok := values[f.Key]
		if !ok || f.Key == FieldID {
			continue
		}
		applyCell(&row, f.Key, v, roster, warn)
	}
	return row.Patch, warnings, nil
}
