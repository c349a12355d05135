package driver

import (
	"strings"

	"github.com/ogurasousui/driver-retention/internal/platform/calendar"
)

// WarningCode は入力チェックの警告種別です。
type WarningCode string

const (
	WarnMissingName      WarningCode = "missing_name"
	WarnMissingRecruiter WarningCode = "missing_recruiter"
	WarnMissingSource    WarningCode = "missing_source"
	WarnUnknownRecruiter WarningCode = "unknown_recruiter"
	WarnUnknownSource    WarningCode = "unknown_source"
	WarnFutureStartDate  WarningCode = "future_start_date"
	WarnTerminatedNoDate WarningCode = "terminated_without_date"
)

// Warning は保存を妨げない入力上の注意点です。
type Warning struct {
	Field string
	Code  WarningCode
}

// Validate は d の警告を返します。警告があっても保存は可能です。
func Validate(d Driver, roster Roster, today calendar.Date) []Warning {
	var out []Warning

	if strings.TrimSpace(d.Name) == "" {
		out = append(out, Warning{Field: "name", Code: WarnMissingName})
	}

	switch {
	case d.Recruiter == "":
		out = append(out, Warning{Field: "recruiter", Code: WarnMissingRecruiter})
	case len(roster.Recruiters) > 0:
		if _, ok := roster.CanonicalRecruiter(d.Recruiter); !ok {
			out = append(out, Warning{Field: "recruiter", Code: WarnUnknownRecruiter})
		}
	}

	switch {
	case d.Source == "":
		out = append(out, Warning{Field: "source", Code: WarnMissingSource})
	case len(roster.Sources) > 0:
		if _, ok := roster.CanonicalSource(d.Source); !ok {
			out = append(out, Warning{Field: "source", Code: WarnUnknownSource})
		}
	}

	if !d.StartDate.IsZero() && !today.IsZero() && d.StartDate.After(today) {
		out = append(out, Warning{Field: "startDate", Code: WarnFutureStartDate})
	}

	if d.Terminated() && d.TermDate.IsZero() {
		out = append(out, Warning{Field: "termDate", Code: WarnTerminatedNoDate})
	}

	return out
}
