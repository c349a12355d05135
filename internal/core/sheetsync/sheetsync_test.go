package sheetsync

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ogurasousui/driver-retention/internal/core/driver"
	"github.com/ogurasousui/driver-retention/internal/platform/csvcodec"
)

type stubFetcher struct {
	body []byte
	err  error
	urls []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	return f.body, f.err
}

type recordingImporter struct {
	docs []csvcodec.Document
	err  error
}

func (r *recordingImporter) ApplyDocument(_ context.Context, doc csvcodec.Document, _ driver.Mapping) (driver.ImportResult, error) {
	if r.err != nil {
		return driver.ImportResult{}, r.err
	}
	r.docs = append(r.docs, doc)
	return driver.ImportResult{Inserted: len(doc.Records)}, nil
}

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, msg string) error {
	n.messages = append(n.messages, msg)
	return nil
}

func TestService_SyncNow_Success(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{body: []byte("id,name\nd1,Alice\n,Bob\n")}
	importer := &recordingImporter{}
	notifier := &recordingNotifier{}
	svc := NewService(fetcher, importer, notifier, nil)

	res, err := svc.SyncNow(context.Background(), "  https://example.com/sheet.csv ")
	if err != nil {
		t.Fatalf("SyncNow error: %v", err)
	}
	if res.Inserted != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if fetcher.urls[0] != "https://example.com/sheet.csv" {
		t.Fatalf("expected trimmed url, got %q", fetcher.urls[0])
	}
	if len(notifier.messages) != 1 || notifier.messages[0] != MessageSyncSuccess {
		t.Fatalf("unexpected notifications: %v", notifier.messages)
	}
}

func TestService_SyncNow_HTTPFailureLeavesDataUntouched(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{err: errors.Join(ErrSyncHTTPStatus, errors.New("HTTP 403"))}
	importer := &recordingImporter{}
	notifier := &recordingNotifier{}
	svc := NewService(fetcher, importer, notifier, nil)

	_, err := svc.SyncNow(context.Background(), "https://example.com/private.csv")
	if !errors.Is(err, ErrSyncHTTPStatus) {
		t.Fatalf("expected ErrSyncHTTPStatus, got %v", err)
	}
	if len(importer.docs) != 0 {
		t.Fatalf("importer must not be called on failure")
	}
	if len(notifier.messages) != 1 || !strings.HasPrefix(notifier.messages[0], MessageSyncFailed) {
		t.Fatalf("unexpected notifications: %v", notifier.messages)
	}
	if !strings.Contains(notifier.messages[0], "HTTP 403") {
		t.Fatalf("expected cause in notification: %q", notifier.messages[0])
	}
}

func TestService_SyncNow_EmptySheet(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"", "id,name\n"} {
		notifier := &recordingNotifier{}
		importer := &recordingImporter{}
		svc := NewService(&stubFetcher{body: []byte(body)}, importer, notifier, nil)

		if _, err := svc.SyncNow(context.Background(), "https://example.com/x.csv"); !errors.Is(err, ErrEmptySheet) {
			t.Fatalf("body %q: expected ErrEmptySheet, got %v", body, err)
		}
		if len(importer.docs) != 0 || notifier.messages[0] != MessageEmptySheet {
			t.Fatalf("body %q: unexpected side effects: %v", body, notifier.messages)
		}
	}
}

func TestService_SyncNow_NoURL(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{}
	notifier := &recordingNotifier{}
	svc := NewService(fetcher, &recordingImporter{}, notifier, nil)

	if _, err := svc.SyncNow(context.Background(), "   "); !errors.Is(err, ErrNoSheetURL) {
		t.Fatalf("expected ErrNoSheetURL, got %v", err)
	}
	if len(fetcher.urls) != 0 {
		t.Fatalf("fetcher must not be called without url")
	}
	if notifier.messages[0] != MessageNoSheetURL {
		t.Fatalf("unexpected notification %q", notifier.messages[0])
	}
}

func TestNewScheduler_InvalidExpression(t *testing.T) {
	t.Parallel()

	if _, err := NewScheduler(SyncerFunc(func(context.Context, string) error { return nil }), "every hour", 0, time.UTC); err == nil {
		t.Fatalf("expected error for invalid schedule")
	}
}

func TestScheduler_Reconfigure(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(SyncerFunc(func(context.Context, string) error { return nil }), "", time.Second, time.UTC)
	if err != nil {
		t.Fatalf("NewScheduler error: %v", err)
	}
	s.Start()
	defer s.Stop()

	s.Reconfigure("https://example.com/a.csv", true)
	if !s.Active() {
		t.Fatalf("expected active job")
	}
	if len(s.cron.Entries()) != 1 {
		t.Fatalf("expected one cron entry, got %d", len(s.cron.Entries()))
	}

	s.Reconfigure("https://example.com/b.csv", true)
	if len(s.cron.Entries()) != 1 {
		t.Fatalf("expected previous entry removed, got %d", len(s.cron.Entries()))
	}

	s.Reconfigure("https://example.com/b.csv", false)
	if s.Active() || len(s.cron.Entries()) != 0 {
		t.Fatalf("expected no job when disabled")
	}

	s.Reconfigure("", true)
	if s.Active() {
		t.Fatalf("expected no job without url")
	}
}

func TestScheduler_RunAppliesTimeout(t *testing.T) {
	t.Parallel()

	var (
		gotURL      string
		hasDeadline bool
	)
	s, err := NewScheduler(SyncerFunc(func(ctx context.Context, url string) error {
		gotURL = url
		_, hasDeadline = ctx.Deadline()
		return errors.New("ignored")
	}), DefaultSchedule, 5*time.Second, time.UTC)
	if err != nil {
		t.Fatalf("NewScheduler error: %v", err)
	}

	s.run("https://example.com/c.csv")
	if gotURL != "https://example.com/c.csv" || !hasDeadline {
		t.Fatalf("unexpected run: url=%q deadline=%v", gotURL, hasDeadline)
	}
}
