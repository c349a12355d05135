package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ogurasousui/driver-retention/internal/adapters/grpc/handler"
	"github.com/ogurasousui/driver-retention/internal/adapters/notify"
	"github.com/ogurasousui/driver-retention/internal/adapters/repository/memory"
	"github.com/ogurasousui/driver-retention/internal/adapters/repository/postgres"
	"github.com/ogurasousui/driver-retention/internal/adapters/repository/snapshot"
	"github.com/ogurasousui/driver-retention/internal/adapters/repository/sqlite"
	"github.com/ogurasousui/driver-retention/internal/adapters/sheet"
	"github.com/ogurasousui/driver-retention/internal/core/driver"
	"github.com/ogurasousui/driver-retention/internal/core/filter"
	"github.com/ogurasousui/driver-retention/internal/core/followup"
	"github.com/ogurasousui/driver-retention/internal/core/preference"
	"github.com/ogurasousui/driver-retention/internal/core/sheetsync"
	"github.com/ogurasousui/driver-retention/internal/platform/config"
	pg "github.com/ogurasousui/driver-retention/internal/platform/db/postgres"
	"github.com/slack-go/slack"
)

// App は設定から組み立てたユースケース一式です。
type App struct {
	Drivers     *driver.Service
	FollowUps   *followup.Service
	Filters     *filter.Service
	Preferences *preference.Service
	Sync        *sheetsync.Service
	Scheduler   *sheetsync.Scheduler

	closers []func() error
}

// New は cfg に従ってストレージ・通知先・サービスを組み立てます。
// 戻り値の App は使用後に Close してください。
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	store, tx, err := a.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	prefix := cfg.Storage.Prefix
	roster := driver.DefaultRoster()
	if len(cfg.Roster.Recruiters) > 0 {
		roster.Recruiters = cfg.Roster.Recruiters
	}
	if len(cfg.Roster.Sources) > 0 {
		roster.Sources = cfg.Roster.Sources
	}

	var driverTx driver.TransactionManager
	var filterTx filter.TransactionManager
	if tx != nil {
		driverTx, filterTx = tx, tx
	}

	a.Drivers = driver.NewService(
		snapshot.NewDriverRepository(store, prefix),
		nil,
		driverTx,
		driver.WithLocation(cfg.Location),
		driver.WithRoster(roster),
	)
	a.FollowUps = followup.NewService(a.Drivers)
	a.Filters = filter.NewService(snapshot.NewFilterRepository(store, prefix), filterTx)
	a.Preferences = preference.NewService(snapshot.NewPreferenceRepository(store, prefix))
	a.Sync = sheetsync.NewService(sheet.NewHTTPFetcher(cfg.Sync.Timeout), a.Drivers, newNotifier(cfg.Notify), nil)

	scheduler, err := sheetsync.NewScheduler(sheetsync.SyncerFunc(a.Sync.Run), cfg.Sync.Schedule, cfg.Sync.RunTimeout, cfg.Location)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Scheduler = scheduler
	a.Preferences.OnChange(func(p preference.Preferences) {
		a.Scheduler.Reconfigure(p.SheetURL, p.AutoSync)
	})

	if err := a.Drivers.Load(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// StartAutoSync は保存済みの設定で自動同期を登録し、スケジューラを開始します。
func (a *App) StartAutoSync(ctx context.Context) error {
	prefs, err := a.Preferences.Get(ctx)
	if err != nil {
		return err
	}
	a.Scheduler.Reconfigure(prefs.SheetURL, prefs.AutoSync)
	a.Scheduler.Start()
	return nil
}

// Handler は gRPC ハンドラーを返します。
func (a *App) Handler() *handler.DriverGrpcHandler {
	return handler.NewDriverGrpcHandler(handler.Services{
		Drivers:     a.Drivers,
		FollowUps:   a.FollowUps,
		Filters:     a.Filters,
		Preferences: a.Preferences,
		Sync:        a.Sync,
	})
}

// Close はスケジューラを止め、ストレージを閉じます。
func (a *App) Close() error {
	if a.Scheduler != nil {
		<-a.Scheduler.Stop().Done()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (snapshot.SlotStore, *pg.TransactionManager, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, err := pg.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("app: open postgres: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		log.Printf("storage: postgres %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
		return postgres.NewSlotStore(pool), pg.NewTransactionManager(pool), nil
	case config.StorageMemory:
		log.Printf("storage: memory (data is not persisted)")
		return memory.NewSlotStore(), nil, nil
	default:
		path := cfg.Storage.SQLitePath
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("app: create data dir: %w", err)
			}
		}
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("app: open sqlite: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		log.Printf("storage: sqlite %s", path)
		return store, nil, nil
	}
}

func newNotifier(cfg config.NotifyConfig) sheetsync.Notifier {
	notifiers := notify.Multi{notify.NewLogNotifier(nil)}
	if cfg.SlackEnabled() {
		api := slack.New(cfg.SlackToken)
		notifiers = append(notifiers, notify.NewSlackNotifier(api, cfg.SlackChannel))
	}
	return notifiers
}
