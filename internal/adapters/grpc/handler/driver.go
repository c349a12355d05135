package handler

import (
	"context"
	"strings"

	"github.com/ogurasousui/driver-retention/internal/core/driver"
	"github.com/ogurasousui/driver-retention/internal/core/filter"
	"github.com/ogurasousui/driver-retention/internal/core/followup"
	"github.com/ogurasousui/driver-retention/internal/core/metrics"
	"github.com/ogurasousui/driver-retention/internal/core/preference"
	"github.com/ogurasousui/driver-retention/internal/platform/calendar"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// DriverUseCase はハンドラーが利用するドライバー操作です。driver.Service が満たします。
type DriverUseCase interface {
	Today() calendar.Date
	Roster() driver.Roster
	Drivers(ctx context.Context) ([]driver.Driver, error)
	GetDriver(ctx context.Context, id string) (driver.Driver, error)
	CreateDriver(ctx context.Context) (driver.Driver, error)
	UpdateDriver(ctx context.Context, id string, patch driver.Patch) (driver.Driver, error)
	ArchiveDrivers(ctx context.Context, ids []string) error
	UnarchiveDrivers(ctx context.Context, ids []string) error
	DeleteDriver(ctx context.Context, id string) error
	BulkAssign(ctx context.Context, ids []string, recruiter, source string) error
	Undo(ctx context.Context) error
	ImportCSV(ctx context.Context, data []byte, mapping driver.Mapping) (driver.ImportResult, error)
	Validate(d driver.Driver) []driver.Warning
}

// FollowUpUseCase は followup.Service が満たします。
type FollowUpUseCase interface {
	MarkWeekDone(ctx context.Context, id string, week int) (driver.Driver, error)
	Table(ctx context.Context) ([]followup.Row, error)
}

// FilterUseCase は filter.Service が満たします。
type FilterUseCase interface {
	Current(ctx context.Context) (filter.Filter, error)
	Set(ctx context.Context, f filter.Filter) (filter.Filter, error)
	ApplyQuickRange(ctx context.Context, q filter.QuickRange, today calendar.Date) (filter.Filter, error)
	SaveView(ctx context.Context, name string) (filter.Filter, error)
	ApplyView(ctx context.Context, name string) (filter.Filter, error)
	DeleteView(ctx context.Context, name string) error
}

// PreferenceUseCase は preference.Service が満たします。
type PreferenceUseCase interface {
	Get(ctx context.Context) (preference.Preferences, error)
}

// SyncUseCase は sheetsync.Service が満たします。
type SyncUseCase interface {
	SyncNow(ctx context.Context, url string) (driver.ImportResult, error)
}

// Services は DriverGrpcHandler の依存です。
type Services struct {
	Drivers     DriverUseCase
	FollowUps   FollowUpUseCase
	Filters     FilterUseCase
	Preferences PreferenceUseCase
	Sync        SyncUseCase
}

// DriverGrpcHandler は DriverService の gRPC 実装です。
type DriverGrpcHandler struct {
	drivers   DriverUseCase
	followups FollowUpUseCase
	filters   FilterUseCase
	prefs     PreferenceUseCase
	sync      SyncUseCase
}

var _ DriverServiceServer = (*DriverGrpcHandler)(nil)

// NewDriverGrpcHandler は DriverGrpcHandler を生成します。
func NewDriverGrpcHandler(s Services) *DriverGrpcHandler {
	return &DriverGrpcHandler{
		drivers:   s.Drivers,
		followups: s.FollowUps,
		filters:   s.Filters,
		prefs:     s.Preferences,
		sync:      s.Sync,
	}
}

// CreateDriver は既定値のドライバーを先頭に追加します。
func (h *DriverGrpcHandler) CreateDriver(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	created, err := h.drivers.CreateDriver(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}
	return h.driverResponse(created)
}

// UpdateDriver は {"id", "patch": {列キー: 値}} を受け取り、指定された列だけを更新します。
func (h *DriverGrpcHandler) UpdateDriver(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	values, err := stringMapField(req, "patch")
	if err != nil {
		return nil, err
	}
	patch, _, err := driver.PatchFromValues(values, h.drivers.Roster())
	if err != nil {
		return nil, toStatusError(err)
	}

	updated, err := h.drivers.UpdateDriver(ctx, stringField(req, "id"), patch)
	if err != nil {
		return nil, toStatusError(err)
	}
	return h.driverResponse(updated)
}

func (h *DriverGrpcHandler) ArchiveDrivers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := h.drivers.ArchiveDrivers(ctx, stringListField(req, "ids")); err != nil {
		return nil, toStatusError(err)
	}
	return &structpb.Struct{}, nil
}

func (h *DriverGrpcHandler) UnarchiveDrivers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := h.drivers.UnarchiveDrivers(ctx, stringListField(req, "ids")); err != nil {
		return nil, toStatusError(err)
	}
	return &structpb.Struct{}, nil
}

func (h *DriverGrpcHandler) DeleteDriver(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := h.drivers.DeleteDriver(ctx, stringField(req, "id")); err != nil {
		return nil, toStatusError(err)
	}
	return &structpb.Struct{}, nil
}

// GetDriver はドライバーと入力上の警告を返します。
func (h *DriverGrpcHandler) GetDriver(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	found, err := h.drivers.GetDriver(ctx, stringField(req, "id"))
	if err != nil {
		return nil, toStatusError(err)
	}
	return h.driverResponse(found)
}

// ListDrivers は一覧を返します。"filtered": true の場合は現在の絞り込み条件を適用し、
// "pinned" の ID は記入途中である限り条件に関わらず残します。
func (h *DriverGrpcHandler) ListDrivers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	drivers, err := h.visibleDrivers(ctx, req)
	if err != nil {
		return nil, err
	}
	return newStruct(map[string]any{"drivers": driversToList(drivers)})
}

func (h *DriverGrpcHandler) MarkWeekDone(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	updated, err := h.followups.MarkWeekDone(ctx, stringField(req, "id"), intField(req, "week"))
	if err != nil {
		return nil, toStatusError(err)
	}
	return h.driverResponse(updated)
}

// BulkAssign は空でない recruiter / source だけを ids に設定します。
func (h *DriverGrpcHandler) BulkAssign(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	roster := h.drivers.Roster()
	recruiter := strings.TrimSpace(stringField(req, "recruiter"))
	if c, ok := roster.CanonicalRecruiter(recruiter); ok {
		recruiter = c
	}
	source := strings.TrimSpace(stringField(req, "source"))
	if c, ok := roster.CanonicalSource(source); ok {
		source = c
	}

	if err := h.drivers.BulkAssign(ctx, stringListField(req, "ids"), recruiter, source); err != nil {
		return nil, toStatusError(err)
	}
	return &structpb.Struct{}, nil
}

func (h *DriverGrpcHandler) Undo(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := h.drivers.Undo(ctx); err != nil {
		return nil, toStatusError(err)
	}
	return &structpb.Struct{}, nil
}

// ImportCSV は {"csv": 本文, "mapping": {列キー: ヘッダー}} を取り込みます。mapping 省略時は同名ヘッダーです。
func (h *DriverGrpcHandler) ImportCSV(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var mapping driver.Mapping
	if _, ok := req.GetFields()["mapping"]; ok {
		values, err := stringMapField(req, "mapping")
		if err != nil {
			return nil, err
		}
		mapping = driver.Mapping(values)
	}

	res, err := h.drivers.ImportCSV(ctx, []byte(stringField(req, "csv")), mapping)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(importResultToMap(res))
}

// ExportCSV は BOM 付き CSV とファイル名を返します。"filtered": true で一覧と同じ絞り込みを適用します。
func (h *DriverGrpcHandler) ExportCSV(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	drivers, err := h.visibleDrivers(ctx, req)
	if err != nil {
		return nil, err
	}
	text, err := driver.ExportCSV(drivers)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(map[string]any{
		"fileName": driver.ExportFileName(h.drivers.Today()),
		"csv":      text,
	})
}

// MonthlyStats は表示期間 ("range" 省略時は保存済みの設定) の月次表を返します。
func (h *DriverGrpcHandler) MonthlyStats(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rg, err := h.effectiveRange(ctx, stringField(req, "range"))
	if err != nil {
		return nil, err
	}
	drivers, err := h.drivers.Drivers(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}
	stats := metrics.Window(metrics.MonthlyStats(drivers, h.drivers.Today()), rg)
	return newStruct(map[string]any{
		"range":  string(rg),
		"months": monthlyStatsToList(stats),
	})
}

// Dashboard は当月の指標、リクルーター別の完了率、期限切れ件数を返します。
func (h *DriverGrpcHandler) Dashboard(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	drivers, err := h.drivers.Drivers(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}
	today := h.drivers.Today()
	summary := metrics.Summarize(drivers, metrics.MonthlyStats(drivers, today), today)

	leaderboard := make([]any, 0)
	for _, s := range metrics.Leaderboard(drivers) {
		leaderboard = append(leaderboard, map[string]any{
			"recruiter":  s.Recruiter,
			"drivers":    s.Drivers,
			"completion": s.Completion,
		})
	}
	overdue := make([]any, 0)
	for _, o := range followup.OverdueByRecruiter(drivers, today) {
		overdue = append(overdue, map[string]any{"recruiter": o.Recruiter, "weeks": o.Weeks})
	}

	return newStruct(map[string]any{
		"month":              summary.Month.String(),
		"active":             summary.Active,
		"newHiresMTD":        summary.NewHiresMTD,
		"leaversMTD":         summary.LeaversMTD,
		"retentionMTD":       summary.FormatRetentionMTD(),
		"leaderboard":        leaderboard,
		"overdueByRecruiter": overdue,
	})
}

func (h *DriverGrpcHandler) FollowUps(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	rows, err := h.followups.Table(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(map[string]any{"rows": followUpRowsToList(rows)})
}

func (h *DriverGrpcHandler) SaveView(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := h.filters.SaveView(ctx, stringField(req, "name"))
	if err != nil {
		return nil, toStatusError(err)
	}
	return filterResponse(f)
}

func (h *DriverGrpcHandler) ApplyView(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := h.filters.ApplyView(ctx, stringField(req, "name"))
	if err != nil {
		return nil, toStatusError(err)
	}
	return filterResponse(f)
}

func (h *DriverGrpcHandler) DeleteView(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := h.filters.DeleteView(ctx, stringField(req, "name")); err != nil {
		return nil, toStatusError(err)
	}
	return &structpb.Struct{}, nil
}

// SetFilter は {"filter": {...}} で条件を置き換えるか、{"quickRange": "week"|"month"|"clear"} で期間だけを変更します。
func (h *DriverGrpcHandler) SetFilter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if q := stringField(req, "quickRange"); q != "" {
		f, err := h.filters.ApplyQuickRange(ctx, filter.QuickRange(strings.ToLower(q)), h.drivers.Today())
		if err != nil {
			return nil, toStatusError(err)
		}
		return filterResponse(f)
	}

	next, err := filterFromStruct(req.GetFields()["filter"].GetStructValue())
	if err != nil {
		return nil, err
	}
	f, err := h.filters.Set(ctx, next)
	if err != nil {
		return nil, toStatusError(err)
	}
	return filterResponse(f)
}

// SyncNow は "url" (省略時は保存済みの URL) のシートを取り込みます。
func (h *DriverGrpcHandler) SyncNow(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	url := strings.TrimSpace(stringField(req, "url"))
	if url == "" {
		prefs, err := h.prefs.Get(ctx)
		if err != nil {
			return nil, toStatusError(err)
		}
		url = prefs.SheetURL
	}

	res, err := h.sync.SyncNow(ctx, url)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(importResultToMap(res))
}

func (h *DriverGrpcHandler) driverResponse(d driver.Driver) (*structpb.Struct, error) {
	return newStruct(map[string]any{
		"driver":   driverToMap(d),
		"warnings": warningsToList(h.drivers.Validate(d)),
	})
}

func (h *DriverGrpcHandler) visibleDrivers(ctx context.Context, req *structpb.Struct) ([]driver.Driver, error) {
	drivers, err := h.drivers.Drivers(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}
	if !boolField(req, "filtered") {
		return drivers, nil
	}

	f, err := h.filters.Current(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}
	pinned := make(map[string]bool)
	for _, id := range stringListField(req, "pinned") {
		pinned[id] = true
	}
	return f.Apply(drivers, h.drivers.Today(), pinned), nil
}

func (h *DriverGrpcHandler) effectiveRange(ctx context.Context, raw string) (metrics.Range, error) {
	if strings.TrimSpace(raw) != "" {
		rg, err := metrics.ParseRange(raw)
		if err != nil {
			return "", toStatusError(err)
		}
		return rg, nil
	}
	prefs, err := h.prefs.Get(ctx)
	if err != nil {
		return "", toStatusError(err)
	}
	return prefs.Range, nil
}
