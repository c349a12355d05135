package sheet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ogurasousui/driver-retention/internal/core/sheetsync"
)

// DefaultTimeout は取得リクエストの既定タイムアウトです。
const DefaultTimeout = 30 * time.Second

// maxBodyBytes を超える応答は切り詰めずにエラーにします。
const maxBodyBytes = 32 << 20

// HTTPFetcher は公開済みシートの CSV を HTTP GET で取得します。
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher は HTTPFetcher を生成します。timeout が 0 以下なら DefaultTimeout です。
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch は url の本文を返します。2xx 以外は sheetsync.ErrSyncHTTPStatus を wrap します。
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("sheet: build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheet: get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: HTTP %d", sheetsync.ErrSyncHTTPStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("sheet: read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("sheet: body exceeds %d bytes", maxBodyBytes)
	}
	return body, nil
}
