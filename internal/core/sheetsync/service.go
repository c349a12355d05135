package sheetsync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/ogurasousui/driver-retention/internal/core/driver"
	"github.com/ogurasousui/driver-retention/internal/platform/csvcodec"
)

var (
	ErrNoSheetURL     = errors.New("sheetsync: sheet url is not configured")
	ErrSyncHTTPStatus = errors.New("sheetsync: unexpected http status")
	ErrEmptySheet     = errors.New("sheetsync: sheet is empty or headers are missing")
)

// 利用者へ通知する文言。
const (
	MessageNoSheetURL  = "Add your Google Sheet CSV URL in Settings."
	MessageEmptySheet  = "The sheet is empty or headers are missing."
	MessageSyncFailed  = "Sync failed. Check the URL and sharing settings."
	MessageSyncSuccess = "Sync complete."
)

// Fetcher は同期元から CSV 本文を取得します。2xx 以外の応答は ErrSyncHTTPStatus を wrap して返します。
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Importer は取得した行をドライバー集合へマージします。driver.Service が満たします。
type Importer interface {
	ApplyDocument(ctx context.Context, doc csvcodec.Document, mapping driver.Mapping) (driver.ImportResult, error)
}

// Notifier は利用者への通知先です。
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Service はシート同期のユースケースです。
type Service struct {
	fetcher  Fetcher
	importer Importer
	notifier Notifier
	mapping  driver.Mapping
}

// NewService は Service を生成します。mapping が nil の場合は同名ヘッダーを対応付けます。
func NewService(fetcher Fetcher, importer Importer, notifier Notifier, mapping driver.Mapping) *Service {
	return &Service{fetcher: fetcher, importer: importer, notifier: notifier, mapping: mapping}
}

// SyncNow は url の CSV を取得してドライバー集合へマージします。
// 失敗時は既存データを変更せず、通知先へ原因を送ったうえでエラーを返します。
func (s *Service) SyncNow(ctx context.Context, url string) (driver.ImportResult, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		s.notify(ctx, MessageNoSheetURL)
		return driver.ImportResult{}, ErrNoSheetURL
	}

	body, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return driver.ImportResult{}, s.fail(ctx, fmt.Errorf("sheetsync: fetch: %w", err))
	}

	text, err := csvcodec.DecodeBytes(body)
	if err != nil {
		return driver.ImportResult{}, s.fail(ctx, fmt.Errorf("sheetsync: decode: %w", err))
	}
	doc := csvcodec.Decode(text)
	if len(doc.Records) == 0 {
		s.notify(ctx, MessageEmptySheet)
		return driver.ImportResult{}, ErrEmptySheet
	}

	res, err := s.importer.ApplyDocument(ctx, doc, s.mapping)
	if err != nil {
		return driver.ImportResult{}, s.fail(ctx, fmt.Errorf("sheetsync: merge: %w", err))
	}

	log.Printf("sheet sync: inserted=%d updated=%d warnings=%d", res.Inserted, res.Updated, len(res.Warnings))
	s.notify(ctx, MessageSyncSuccess)
	return res, nil
}

func (s *Service) fail(ctx context.Context, err error) error {
	s.notify(ctx, MessageSyncFailed+"\n\n"+err.Error())
	return err
}

func (s *Service) notify(ctx context.Context, msg string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		log.Printf("sheet sync: notify: %v", err)
	}
}

// Run は件数を捨てて SyncNow を実行します。SyncerFunc(svc.Run) として Scheduler に渡します。
func (s *Service) Run(ctx context.Context, url string) error {
	_, err := s.SyncNow(ctx, url)
	return err
}
