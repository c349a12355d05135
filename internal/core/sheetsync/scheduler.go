package sheetsync

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule は自動同期の既定間隔です。
const DefaultSchedule = "@every 1h"

// Syncer は Scheduler が定期実行する同期処理です。
type Syncer interface {
	SyncNow(ctx context.Context, url string) error
}

// SyncerFunc は関数を Syncer として扱います。
type SyncerFunc func(ctx context.Context, url string) error

func (f SyncerFunc) SyncNow(ctx context.Context, url string) error {
	return f(ctx, url)
}

// Scheduler は cron で自動同期を実行します。
// Reconfigure のたびに既存のジョブを外すため、同時に登録されるジョブは高々 1 つです。
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	syncer   Syncer
	timeout  time.Duration

	mu      sync.Mutex
	entry   cron.EntryID
	active  bool
	url     string
	started bool
}

// NewScheduler は Scheduler を生成します。expr は 5 フィールドの cron 式または "@every 1h" などの記述子です。
func NewScheduler(syncer Syncer, expr string, timeout time.Duration, loc *time.Location) (*Scheduler, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		expr = DefaultSchedule
	}
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("sheetsync: invalid schedule %q: %w", expr, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		schedule: schedule,
		syncer:   syncer,
		timeout:  timeout,
	}, nil
}

// Start はスケジューラを開始します。
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cron.Start()
	s.started = true
}

// Stop はスケジューラを停止し、実行中のジョブの完了を待つ context を返します。
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	return s.cron.Stop()
}

// Reconfigure は同期先と有効・無効を反映します。
// 既存のジョブは常に外し、enabled かつ url が設定されている場合のみ新たに登録します。
func (s *Scheduler) Reconfigure(url string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		s.cron.Remove(s.entry)
		s.active = false
	}
	url = strings.TrimSpace(url)
	s.url = url
	if !enabled || url == "" {
		log.Printf("sheet sync: auto sync disabled")
		return
	}

	s.entry = s.cron.Schedule(s.schedule, cron.FuncJob(func() { s.run(url) }))
	s.active = true
	log.Printf("sheet sync: auto sync scheduled for %s", url)
}

// Active は自動同期ジョブが登録されているかを返します。
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Next は次回の実行予定時刻を返します。未登録の場合はゼロ値です。
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

func (s *Scheduler) run(url string) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := s.syncer.SyncNow(ctx, url); err != nil {
		log.Printf("sheet sync: auto sync failed: %v", err)
	}
}
