package driver

import (
	"errors"
	"strings"
	"testing"

	"github.com/ogurasousui/driver-retention/internal/platform/calendar"
	"github.com/ogurasousui/driver-retention/internal/platform/csvcodec"
)

func TestRowsFromDocument_MapsAndNormalizes(t *testing.T) {
	t.Parallel()

	doc := csvcodec.Decode("ID,Driver,Who,Start,Cost,Passed,Status\n" +
		" d1 ,Alice,zoe,2025-02-30,\"$1,200\",yes,terminated\n" +
		",Bob,Unknown,2025-03-01,abc,,\n")
	mapping := Mapping{
		FieldID:                "ID",
		FieldName:              "Driver",
		FieldRecruiter:         "Who",
		FieldStartDate:         "Start",
		FieldHiringCost:        "Cost",
		FieldPassedOrientation: "Passed",
		FieldStatus:            "Status",
	}

	rows, warnings := RowsFromDocument(doc, mapping, DefaultRoster())
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.ID != "d1" {
		t.Errorf("expected trimmed id, got %q", first.ID)
	}
	if *first.Patch.Recruiter != "Zoe" {
		t.Errorf("expected canonical recruiter, got %q", *first.Patch.Recruiter)
	}
	if !first.Patch.StartDate.IsZero() {
		t.Errorf("expected invalid date to become unset, got %s", *first.Patch.StartDate)
	}
	if first.Patch.HiringCost == nil || *first.Patch.HiringCost != 1200 {
		t.Errorf("unexpected hiring cost: %v", first.Patch.HiringCost)
	}
	if *first.Patch.PassedOrientation != AnswerYes || *first.Patch.Status != StatusTerminated {
		t.Errorf("unexpected answer/status: %+v", first.Patch)
	}
	if first.Patch.Source != nil {
		t.Errorf("unmapped source should stay nil")
	}

	second := rows[1]
	if second.ID != "" || *second.Patch.Recruiter != "Unknown" {
		t.Errorf("unexpected second row: %+v", second)
	}
	if !second.Patch.HiringCostSet || second.Patch.HiringCost != nil {
		t.Errorf("expected hiring cost to be cleared")
	}

	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %+v", warnings)
	}
	if warnings[0].Line != 2 || warnings[0].Field != FieldStartDate {
		t.Errorf("unexpected first warning: %+v", warnings[0])
	}
	if warnings[1].Line != 3 || warnings[1].Field != FieldHiringCost {
		t.Errorf("unexpected second warning: %+v", warnings[1])
	}
}

func TestAutoMapping(t *testing.T) {
	t.Parallel()

	m := AutoMapping([]string{"name", "Source", "termDate", "extra"})
	if len(m) != 2 || m[FieldName] != "name" || m[FieldTermDate] != "termDate" {
		t.Fatalf("unexpected mapping: %+v", m)
	}
}

func TestMapping_ValidateRejectsUnknownField(t *testing.T) {
	t.Parallel()

	err := Mapping{"salary": "Salary"}.Validate()
	if !errors.Is(err, ErrUnknownImportField) {
		t.Fatalf("expected ErrUnknownImportField, got %v", err)
	}
}

func TestExportCSV(t *testing.T) {
	t.Parallel()

	d := New("secret-id")
	d.Name = "Doe, Jane"
	d.StartDate = calendar.MustDate(2025, 1, 2)
	cost := 350.5
	d.HiringCost = &cost
	d.Archived = true

	text, err := ExportCSV([]Driver{d})
	if err != nil {
		t.Fatalf("ExportCSV returned error: %v", err)
	}
	if !strings.HasPrefix(text, csvcodec.ByteOrderMark) {
		t.Fatalf("expected BOM prefix")
	}
	if strings.Contains(text, "secret-id") {
		t.Fatalf("id must not be exported")
	}

	doc := csvcodec.Decode(strings.TrimPrefix(text, csvcodec.ByteOrderMark))
	for _, h := range doc.Header {
		if h == FieldID || h == FieldArchived {
			t.Fatalf("unexpected column %q", h)
		}
	}
	rec := doc.Records[0]
	if rec[FieldName] != "Doe, Jane" || rec[FieldStartDate] != "2025-01-02" || rec[FieldHiringCost] != "350.5" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec[FieldStatus] != "Active" {
		t.Fatalf("unexpected status: %q", rec[FieldStatus])
	}
}

func TestExportCSV_Empty(t *testing.T) {
	t.Parallel()

	if _, err := ExportCSV(nil); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
}

func TestExportFileName(t *testing.T) {
	t.Parallel()

	if got := ExportFileName(calendar.MustDate(2025, 8, 9)); got != "drivers_2025-08-09.csv" {
		t.Fatalf("unexpected file name %q", got)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	today := calendar.MustDate(2025, 5, 1)
	d := New("a")
	d.Recruiter = "Nobody"
	d.StartDate = calendar.MustDate(2025, 6, 1)
	d.Status = StatusTerminated

	got := Validate(d, DefaultRoster(), today)
	want := []WarningCode{WarnMissingName, WarnUnknownRecruiter, WarnMissingSource, WarnFutureStartDate, WarnTerminatedNoDate}
	if len(got) != len(want) {
		t.Fatalf("expected %d warnings, got %+v", len(want), got)
	}
	for i, w := range want {
		if got[i].Code != w {
			t.Errorf("warning %d: expected %s, got %s", i, w, got[i].Code)
		}
	}

	ok := New("b")
	ok.Name = "Ok"
	ok.Recruiter = "emily"
	ok.Source = "Referral"
	ok.StartDate = today
	if ws := Validate(ok, DefaultRoster(), today); len(ws) != 0 {
		t.Fatalf("expected no warnings, got %+v", ws)
	}
}

func TestPatchFromValues(t *testing.T) {
	t.Parallel()

	p, warnings, err := PatchFromValues(map[string]string{
		FieldID:         "ignored",
		FieldRecruiter:  " zoe ",
		FieldHiringCost: "$2,500",
		FieldStartDate:  "2025-13-01",
		FieldWeek2Note:  "called",
	}, DefaultRoster())
	if err != nil {
		t.Fatalf("PatchFromValues returned error: %v", err)
	}

	if p.Recruiter == nil || *p.Recruiter != "Zoe" {
		t.Errorf("expected canonical recruiter Zoe, got %v", p.Recruiter)
	}
	if !p.HiringCostSet || p.HiringCost == nil || *p.HiringCost != 2500 {
		t.Errorf("unexpected hiring cost: %v", p.HiringCost)
	}
	if p.StartDate == nil || !p.StartDate.IsZero() {
		t.Errorf("expected invalid start date to clear the field, got %v", p.StartDate)
	}
	if p.Notes[1] == nil || *p.Notes[1] != "called" {
		t.Errorf("unexpected week 2 note: %v", p.Notes[1])
	}
	if p.Name != nil {
		t.Errorf("expected name to stay unchanged, got %q", *p.Name)
	}
	if len(warnings) != 1 || warnings[0].Field != FieldStartDate {
		t.Errorf("unexpected warnings: %+v", warnings)
	}

	if _, _, err := PatchFromValues(map[string]string{"salary": "1"}, DefaultRoster()); !errors.Is(err, ErrUnknownImportField) {
		t.Errorf("expected ErrUnknownImportField, got %v", err)
	}
}

func TestPatchFromValues_NonFiniteNumbersAreWarnings(t *testing.T) {
	t.Parallel()

	p, warnings, err := PatchFromValues(map[string]string{
		FieldHiringCost:     "NaN",
		FieldTimeToHireDays: "Inf",
	}, DefaultRoster())
	if err != nil {
		t.Fatalf("PatchFromValues returned error: %v", err)
	}
	if !p.HiringCostSet || p.HiringCost != nil {
		t.Errorf("expected hiring cost cleared, got %v", p.HiringCost)
	}
	if !p.TimeToHireDaysSet || p.TimeToHireDays != nil {
		t.Errorf("expected time to hire cleared, got %v", p.TimeToHireDays)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %+v", warnings)
	}
	for _, w := range warnings {
		if w.Message != "not a number" {
			t.Errorf("unexpected warning: %+v", w)
		}
	}
}
