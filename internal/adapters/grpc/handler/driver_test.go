package handler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/ogurasousui/driver-retention/internal/adapters/repository/memory"
	"github.com/ogurasousui/driver-retention/internal/adapters/repository/snapshot"
	"github.com/ogurasousui/driver-retention/internal/core/driver"
	"github.com/ogurasousui/driver-retention/internal/core/filter"
	"github.com/ogurasousui/driver-retention/internal/core/followup"
	"github.com/ogurasousui/driver-retention/internal/core/preference"
	"github.com/ogurasousui/driver-retention/internal/core/sheetsync"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type stubSync struct {
	url string
	res driver.ImportResult
	err error
}

func (s *stubSync) SyncNow(_ context.Context, url string) (driver.ImportResult, error) {
	s.url = url
	return s.res, s.err
}

type fixture struct {
	handler *DriverGrpcHandler
	drivers *driver.Service
	prefs   *preference.Service
	sync    *stubSync
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewSlotStore()
	n := 0
	drivers := driver.NewService(
		snapshot.NewDriverRepository(store, ""),
		fixedClock{now: time.Date(2025, 8, 20, 9, 0, 0, 0, time.UTC)},
		nil,
		driver.WithLocation(time.UTC),
		driver.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("drv-%d", n)
		}),
	)
	prefs := preference.NewService(snapshot.NewPreferenceRepository(store, ""))
	sync := &stubSync{}

	h := NewDriverGrpcHandler(Services{
		Drivers:     drivers,
		FollowUps:   followup.NewService(drivers),
		Filters:     filter.NewService(snapshot.NewFilterRepository(store, ""), nil),
		Preferences: prefs,
		Sync:        sync,
	})
	return &fixture{handler: h, drivers: drivers, prefs: prefs, sync: sync}
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct failed: %v", err)
	}
	return s
}

func assertCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected gRPC status error, got %v", err)
	}
	if st.Code() != want {
		t.Fatalf("expected code %s, got %s (%s)", want, st.Code(), st.Message())
	}
}

func TestDriverGrpcHandler_CreateAndUpdate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	created, err := f.handler.CreateDriver(ctx, &structpb.Struct{})
	if err != nil {
		t.Fatalf("CreateDriver returned error: %v", err)
	}
	id := created.GetFields()["driver"].GetStructValue().GetFields()["id"].GetStringValue()
	if id != "drv-1" {
		t.Fatalf("unexpected id %q", id)
	}

	updated, err := f.handler.UpdateDriver(ctx, mustStruct(t, map[string]any{
		"id": id,
		"patch": map[string]any{
			"name":       "Alice",
			"recruiter":  "zoe",
			"startDate":  "2025-08-01",
			"hiringCost": 1200,
		},
	}))
	if err != nil {
		t.Fatalf("UpdateDriver returned error: %v", err)
	}

	d := updated.GetFields()["driver"].GetStructValue().GetFields()
	if d["name"].GetStringValue() != "Alice" || d["recruiter"].GetStringValue() != "Zoe" {
		t.Fatalf("unexpected driver: %v", d)
	}
	if d["hiringCost"].GetNumberValue() != 1200 || d["startDate"].GetStringValue() != "2025-08-01" {
		t.Fatalf("unexpected numeric/date fields: %v", d)
	}

	warnings := updated.GetFields()["warnings"].GetListValue().GetValues()
	if len(warnings) != 1 || warnings[0].GetStructValue().GetFields()["code"].GetStringValue() != string(driver.WarnMissingSource) {
		t.Fatalf("expected missing source warning, got %v", warnings)
	}
}

func TestDriverGrpcHandler_UpdateUnknownField(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.handler.UpdateDriver(context.Background(), mustStruct(t, map[string]any{
		"id":    "drv-1",
		"patch": map[string]any{"salary": "1"},
	}))
	assertCode(t, err, codes.InvalidArgument)
}

func TestDriverGrpcHandler_ErrorCodes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	_, err := f.handler.GetDriver(ctx, mustStruct(t, map[string]any{"id": "missing"}))
	assertCode(t, err, codes.NotFound)

	_, err = f.handler.Undo(ctx, &structpb.Struct{})
	assertCode(t, err, codes.FailedPrecondition)

	_, err = f.handler.SetFilter(ctx, mustStruct(t, map[string]any{"quickRange": "year"}))
	assertCode(t, err, codes.InvalidArgument)

	_, err = f.handler.ApplyView(ctx, mustStruct(t, map[string]any{"name": "nope"}))
	assertCode(t, err, codes.NotFound)

	_, err = f.handler.MonthlyStats(ctx, mustStruct(t, map[string]any{"range": "2y"}))
	assertCode(t, err, codes.InvalidArgument)

	_, err = f.handler.ExportCSV(ctx, &structpb.Struct{})
	assertCode(t, err, codes.FailedPrecondition)
}

func TestDriverGrpcHandler_MarkWeekDone(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.handler.CreateDriver(ctx, &structpb.Struct{}); err != nil {
		t.Fatalf("CreateDriver returned error: %v", err)
	}
	if _, err := f.handler.UpdateDriver(ctx, mustStruct(t, map[string]any{
		"id":    "drv-1",
		"patch": map[string]any{"startDate": "2025-08-01"},
	})); err != nil {
		t.Fatalf("UpdateDriver returned error: %v", err)
	}

	res, err := f.handler.MarkWeekDone(ctx, mustStruct(t, map[string]any{"id": "drv-1", "week": 1}))
	if err != nil {
		t.Fatalf("MarkWeekDone returned error: %v", err)
	}
	if got := res.GetFields()["driver"].GetStructValue().GetFields()["week1Note"].GetStringValue(); got != "-" {
		t.Fatalf("expected done marker, got %q", got)
	}

	_, err = f.handler.MarkWeekDone(ctx, mustStruct(t, map[string]any{"id": "drv-1", "week": 3}))
	assertCode(t, err, codes.FailedPrecondition)

	_, err = f.handler.MarkWeekDone(ctx, mustStruct(t, map[string]any{"id": "drv-1", "week": 5}))
	assertCode(t, err, codes.InvalidArgument)

	rows, err := f.handler.FollowUps(ctx, &structpb.Struct{})
	if err != nil {
		t.Fatalf("FollowUps returned error: %v", err)
	}
	weeks := rows.GetFields()["rows"].GetListValue().GetValues()[0].GetStructValue().GetFields()["weeks"].GetListValue().GetValues()
	states := make([]string, 0, len(weeks))
	for _, w := range weeks {
		states = append(states, w.GetStructValue().GetFields()["state"].GetStringValue())
	}
	if strings.Join(states, ",") != "done,overdue,due_soon,pending" {
		t.Fatalf("unexpected week states %v", states)
	}
}

func TestDriverGrpcHandler_ImportExportAndStats(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	res, err := f.handler.ImportCSV(ctx, mustStruct(t, map[string]any{
		"csv": "name,recruiter,source,startDate,status,termDate\n" +
			"Alice,Zoe,Agent,2025-07-01,Active,\n" +
			"Bob,Emily,Referral,2025-07-01,Terminated,2025-08-05\n",
	}))
	if err != nil {
		t.Fatalf("ImportCSV returned error: %v", err)
	}
	if res.GetFields()["inserted"].GetNumberValue() != 2 {
		t.Fatalf("expected 2 inserted rows, got %v", res)
	}

	out, err := f.handler.ExportCSV(ctx, &structpb.Struct{})
	if err != nil {
		t.Fatalf("ExportCSV returned error: %v", err)
	}
	if out.GetFields()["fileName"].GetStringValue() != "drivers_2025-08-20.csv" {
		t.Fatalf("unexpected file name: %v", out.GetFields()["fileName"])
	}
	if !strings.HasPrefix(out.GetFields()["csv"].GetStringValue(), "\uFEFFname,") {
		t.Fatalf("expected BOM-prefixed CSV")
	}

	stats, err := f.handler.MonthlyStats(ctx, &structpb.Struct{})
	if err != nil {
		t.Fatalf("MonthlyStats returned error: %v", err)
	}
	if stats.GetFields()["range"].GetStringValue() != "3m" {
		t.Fatalf("expected default range, got %v", stats.GetFields()["range"])
	}
	months := stats.GetFields()["months"].GetListValue().GetValues()
	if len(months) != 2 {
		t.Fatalf("expected July and August rows, got %d", len(months))
	}
	aug := months[1].GetStructValue().GetFields()
	if aug["month"].GetStringValue() != "2025-08" || aug["leavers"].GetNumberValue() != 1 {
		t.Fatalf("unexpected August row: %v", aug)
	}

	dash, err := f.handler.Dashboard(ctx, &structpb.Struct{})
	if err != nil {
		t.Fatalf("Dashboard returned error: %v", err)
	}
	if dash.GetFields()["active"].GetNumberValue() != 2 || dash.GetFields()["leaversMTD"].GetNumberValue() != 1 {
		t.Fatalf("unexpected dashboard: %v", dash)
	}
}

func TestDriverGrpcHandler_FilteredListAndViews(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.handler.ImportCSV(ctx, mustStruct(t, map[string]any{
		"csv": "name,recruiter,startDate\nAlice,Zoe,2025-08-18\nBob,Emily,2025-06-01\n",
	})); err != nil {
		t.Fatalf("ImportCSV returned error: %v", err)
	}

	if _, err := f.handler.SetFilter(ctx, mustStruct(t, map[string]any{
		"filter": map[string]any{"recruiter": "Zoe"},
	})); err != nil {
		t.Fatalf("SetFilter returned error: %v", err)
	}
	if _, err := f.handler.SaveView(ctx, mustStruct(t, map[string]any{"name": "zoe"})); err != nil {
		t.Fatalf("SaveView returned error: %v", err)
	}

	list, err := f.handler.ListDrivers(ctx, mustStruct(t, map[string]any{"filtered": true}))
	if err != nil {
		t.Fatalf("ListDrivers returned error: %v", err)
	}
	drivers := list.GetFields()["drivers"].GetListValue().GetValues()
	if len(drivers) != 1 || drivers[0].GetStructValue().GetFields()["name"].GetStringValue() != "Alice" {
		t.Fatalf("unexpected filtered list: %v", drivers)
	}

	cleared, err := f.handler.SetFilter(ctx, mustStruct(t, map[string]any{"filter": map[string]any{}}))
	if err != nil {
		t.Fatalf("SetFilter returned error: %v", err)
	}
	if cleared.GetFields()["filter"].GetStructValue().GetFields()["recruiter"].GetStringValue() != "" {
		t.Fatalf("expected cleared filter, got %v", cleared)
	}

	applied, err := f.handler.ApplyView(ctx, mustStruct(t, map[string]any{"name": "zoe"}))
	if err != nil {
		t.Fatalf("ApplyView returned error: %v", err)
	}
	fields := applied.GetFields()["filter"].GetStructValue().GetFields()
	if fields["recruiter"].GetStringValue() != "Zoe" || fields["view"].GetStringValue() != "zoe" {
		t.Fatalf("unexpected applied filter: %v", fields)
	}

	week, err := f.handler.SetFilter(ctx, mustStruct(t, map[string]any{"quickRange": "week"}))
	if err != nil {
		t.Fatalf("SetFilter quick range returned error: %v", err)
	}
	if week.GetFields()["filter"].GetStructValue().GetFields()["from"].GetStringValue() != "2025-08-17" {
		t.Fatalf("expected week to start on Sunday, got %v", week)
	}

	if _, err := f.handler.DeleteView(ctx, mustStruct(t, map[string]any{"name": "zoe"})); err != nil {
		t.Fatalf("DeleteView returned error: %v", err)
	}
	_, err = f.handler.ApplyView(ctx, mustStruct(t, map[string]any{"name": "zoe"}))
	assertCode(t, err, codes.NotFound)
}

func TestDriverGrpcHandler_SyncNowUsesSavedURL(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.prefs.SetSheetURL(ctx, "https://docs.example.com/sheet.csv"); err != nil {
		t.Fatalf("SetSheetURL returned error: %v", err)
	}
	f.sync.res = driver.ImportResult{Inserted: 3}

	res, err := f.handler.SyncNow(ctx, &structpb.Struct{})
	if err != nil {
		t.Fatalf("SyncNow returned error: %v", err)
	}
	if f.sync.url != "https://docs.example.com/sheet.csv" {
		t.Fatalf("unexpected url %q", f.sync.url)
	}
	if res.GetFields()["inserted"].GetNumberValue() != 3 {
		t.Fatalf("unexpected result %v", res)
	}

	f.sync.err = fmt.Errorf("sheetsync: fetch: %w", sheetsync.ErrSyncHTTPStatus)
	_, err = f.handler.SyncNow(ctx, mustStruct(t, map[string]any{"url": "https://other.example.com"}))
	assertCode(t, err, codes.Unavailable)
}

func TestDriverGrpcHandler_BulkAssignAndArchive(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.handler.CreateDriver(ctx, &structpb.Struct{}); err != nil {
			t.Fatalf("CreateDriver returned error: %v", err)
		}
	}
	ids := []any{"drv-1", "drv-2"}

	if _, err := f.handler.BulkAssign(ctx, mustStruct(t, map[string]any{"ids": ids, "recruiter": "melissa"})); err != nil {
		t.Fatalf("BulkAssign returned error: %v", err)
	}
	if _, err := f.handler.ArchiveDrivers(ctx, mustStruct(t, map[string]any{"ids": []any{"drv-1"}})); err != nil {
		t.Fatalf("ArchiveDrivers returned error: %v", err)
	}

	d, err := f.drivers.GetDriver(ctx, "drv-1")
	if err != nil {
		t.Fatalf("GetDriver returned error: %v", err)
	}
	if d.Recruiter != "Melissa" || !d.Archived || d.ArchivedAt.String() != "2025-08-20" {
		t.Fatalf("unexpected driver: %+v", d)
	}

	if _, err := f.handler.UnarchiveDrivers(ctx, mustStruct(t, map[string]any{"ids": []any{"drv-1"}})); err != nil {
		t.Fatalf("UnarchiveDrivers returned error: %v", err)
	}
	if _, err := f.handler.DeleteDriver(ctx, mustStruct(t, map[string]any{"id": "drv-2"})); err != nil {
		t.Fatalf("DeleteDriver returned error: %v", err)
	}
	if _, err := f.handler.Undo(ctx, &structpb.Struct{}); err != nil {
		t.Fatalf("Undo returned error: %v", err)
	}
	if _, err := f.drivers.GetDriver(ctx, "drv-2"); err != nil {
		t.Fatalf("expected undo to restore deleted driver: %v", err)
	}
}

func TestDriverService_OverGRPC(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterDriverServiceServer(srv, f.handler)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, FullMethodName("CreateDriver"), &structpb.Struct{}, out); err != nil {
		t.Fatalf("Invoke CreateDriver failed: %v", err)
	}
	if out.GetFields()["driver"].GetStructValue().GetFields()["status"].GetStringValue() != "Active" {
		t.Fatalf("unexpected response %v", out)
	}

	err = conn.Invoke(ctx, FullMethodName("GetDriver"), mustStruct(t, map[string]any{"id": "missing"}), new(structpb.Struct))
	assertCode(t, err, codes.NotFound)
}

func TestToStatusError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want codes.Code
	}{
		{driver.ErrInvalidID, codes.InvalidArgument},
		{fmt.Errorf("wrap: %w", driver.ErrEmptyImport), codes.InvalidArgument},
		{filter.ErrEmptyViewName, codes.InvalidArgument},
		{preference.ErrInvalidSheetURL, codes.InvalidArgument},
		{driver.ErrDriverNotFound, codes.NotFound},
		{sheetsync.ErrNoSheetURL, codes.FailedPrecondition},
		{sheetsync.ErrEmptySheet, codes.FailedPrecondition},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("boom"), codes.Internal},
	}
	for _, tc := range cases {
		assertCode(t, toStatusError(tc.err), tc.want)
	}
	if toStatusError(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}
