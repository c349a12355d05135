package handler

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ogurasousui/driver-retention/internal/core/driver"
	"github.com/ogurasousui/driver-retention/internal/core/filter"
	"github.com/ogurasousui/driver-retention/internal/core/followup"
	"github.com/ogurasousui/driver-retention/internal/core/metrics"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func intField(s *structpb.Struct, key string) int {
	return int(s.GetFields()[key].GetNumberValue())
}

func boolField(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

func stringListField(s *structpb.Struct, key string) []string {
	values := s.GetFields()[key].GetListValue().GetValues()
	out := make([]string, 0, len(values))
	for _, v := range values {
		if str := v.GetStringValue(); str != "" {
			out = append(out, str)
		}
	}
	return out
}

// stringMapField は key のオブジェクトを文字列の組に変換します。数値・真偽値は文字列化し、null は空文字列です。
func stringMapField(s *structpb.Struct, key string) (map[string]string, error) {
	fields := s.GetFields()[key].GetStructValue().GetFields()
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		switch kind := v.GetKind().(type) {
		case nil, *structpb.Value_NullValue:
			out[k] = ""
		case *structpb.Value_StringValue:
			out[k] = kind.StringValue
		case *structpb.Value_NumberValue:
			out[k] = strconv.FormatFloat(kind.NumberValue, 'f', -1, 64)
		case *structpb.Value_BoolValue:
			out[k] = strconv.FormatBool(kind.BoolValue)
		default:
			return nil, status.Errorf(codes.InvalidArgument, "%s.%s must be a scalar", key, k)
		}
	}
	return out, nil
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}

func driverToMap(d driver.Driver) map[string]any {
	m := map[string]any{
		driver.FieldID:                d.ID,
		driver.FieldName:              d.Name,
		driver.FieldRecruiter:         d.Recruiter,
		driver.FieldSource:            d.Source,
		driver.FieldStartDate:         d.StartDate.String(),
		driver.FieldHiringCost:        numberOrNil(d.HiringCost),
		driver.FieldTimeToHireDays:    numberOrNil(d.TimeToHireDays),
		driver.FieldOrientationDate:   d.OrientationDate.String(),
		driver.FieldPassedOrientation: string(d.PassedOrientation),
		driver.FieldPassed90Days:      string(d.Passed90Days),
		driver.FieldStatus:            string(d.Status),
		driver.FieldTermDate:          d.TermDate.String(),
		driver.FieldTermReason:        d.TermReason,
		driver.FieldArchived:          d.Archived,
		driver.FieldArchivedAt:        d.ArchivedAt.String(),
		"completion":                  d.Completion(),
	}
	notes := [driver.Weeks]string{driver.FieldWeek1Note, driver.FieldWeek2Note, driver.FieldWeek3Note, driver.FieldWeek4Note}
	for w, key := range notes {
		m[key] = d.Notes[w]
	}
	return m
}

func driversToList(drivers []driver.Driver) []any {
	out := make([]any, 0, len(drivers))
	for _, d := range drivers {
		out = append(out, driverToMap(d))
	}
	return out
}

func warningsToList(warnings []driver.Warning) []any {
	out := make([]any, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, map[string]any{"field": w.Field, "code": string(w.Code)})
	}
	return out
}

func importWarningsToList(warnings []driver.ImportWarning) []any {
	out := make([]any, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, map[string]any{"line": w.Line, "field": w.Field, "value": w.Value, "message": w.Message})
	}
	return out
}

func importResultToMap(res driver.ImportResult) map[string]any {
	return map[string]any{
		"inserted": res.Inserted,
		"updated":  res.Updated,
		"warnings": importWarningsToList(res.Warnings),
	}
}

func monthlyStatsToList(stats []metrics.MonthlyStat) []any {
	out := make([]any, 0, len(stats))
	for _, s := range stats {
		out = append(out, map[string]any{
			"month":        s.Month.String(),
			"hcStart":      s.HCStart,
			"hcEnd":        s.HCEnd,
			"avgHC":        s.AvgHC,
			"avgHCText":    metrics.FormatHeadcount(s.AvgHC),
			"leavers":      s.Leavers,
			"retentionPct": s.RetentionPct,
		})
	}
	return out
}

func followUpRowsToList(rows []followup.Row) []any {
	out := make([]any, 0, len(rows))
	for _, r := range rows {
		weeks := make([]any, 0, driver.Weeks)
		for w := 0; w < driver.Weeks; w++ {
			weeks = append(weeks, map[string]any{
				"week":  w + 1,
				"due":   r.Due[w].String(),
				"state": string(r.States[w]),
				"note":  r.Driver.Notes[w],
			})
		}
		out = append(out, map[string]any{
			"id":         r.Driver.ID,
			"name":       r.Driver.Name,
			"recruiter":  r.Driver.Recruiter,
			"startDate":  r.Driver.StartDate.String(),
			"completion": r.Driver.Completion(),
			"overdue":    r.Overdue(),
			"weeks":      weeks,
		})
	}
	return out
}

// filterToMap と filterFromStruct は filter.Filter の JSON 表現をそのまま使います。
func filterToMap(f filter.Filter) (map[string]any, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func filterFromStruct(s *structpb.Struct) (filter.Filter, error) {
	var f filter.Filter
	if s == nil {
		return f, nil
	}
	b, err := json.Marshal(s.AsMap())
	if err != nil {
		return f, status.Errorf(codes.InvalidArgument, "filter: %v", err)
	}
	if err := json.Unmarshal(b, &f); err != nil {
		return f, status.Errorf(codes.InvalidArgument, "filter: %v", err)
	}
	f.Status = normalizeStatus(f.Status)
	return f, nil
}

func normalizeStatus(s driver.Status) driver.Status {
	if s == "" {
		return ""
	}
	return driver.ParseStatus(string(s))
}

func filterResponse(f filter.Filter) (*structpb.Struct, error) {
	m, err := filterToMap(f)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode filter: %v", err))
	}
	return newStruct(map[string]any{"filter": m})
}

func numberOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
