//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	repo "github.com/ogurasousui/driver-retention/internal/adapters/repository/postgres"
	"github.com/ogurasousui/driver-retention/internal/adapters/repository/snapshot"
	"github.com/ogurasousui/driver-retention/internal/core/driver"
	"github.com/ogurasousui/driver-retention/internal/core/preference"
	"github.com/ogurasousui/driver-retention/internal/platform/config"
	pg "github.com/ogurasousui/driver-retention/internal/platform/db/postgres"
)

const migrationsDir = "../assets/migrations"

func TestDriverSnapshotIntegration(t *testing.T) {
	cfg, err := config.Load(configPathFromEnv())
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Storage.Driver != config.StoragePostgres {
		t.Skipf("storage.driver is %q; integration test needs postgres", cfg.Storage.Driver)
	}

	if err := resetMigrations(cfg.Database.DSN(), migrationsDir); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	ctx := context.Background()
	pool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	store := repo.NewSlotStore(pool)
	prefix := "integration_" + time.Now().UTC().Format("20060102150405")
	driverRepo := snapshot.NewDriverRepository(store, prefix)
	clock := stubClock{now: time.Date(2025, 8, 20, 9, 0, 0, 0, time.UTC)}

	svc := driver.NewService(driverRepo, clock, pg.NewTransactionManager(pool))
	created, err := svc.CreateDriver(ctx)
	if err != nil {
		t.Fatalf("CreateDriver error: %v", err)
	}

	name := "Integration"
	if _, err := svc.UpdateDriver(ctx, created.ID, driver.Patch{Name: &name}); err != nil {
		t.Fatalf("UpdateDriver error: %v", err)
	}

	// 別インスタンスから読み直して永続化を確認する。
	reloaded := driver.NewService(driverRepo, clock, pg.NewTransactionManager(pool))
	found, err := reloaded.GetDriver(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetDriver error: %v", err)
	}
	if found.Name != name {
		t.Fatalf("expected name %s, got %s", name, found.Name)
	}

	if err := reloaded.DeleteDriver(ctx, created.ID); err != nil {
		t.Fatalf("DeleteDriver error: %v", err)
	}
	if _, err := reloaded.GetDriver(ctx, created.ID); !errors.Is(err, driver.ErrDriverNotFound) {
		t.Fatalf("expected ErrDriverNotFound, got %v", err)
	}

	prefs := preference.NewService(snapshot.NewPreferenceRepository(store, prefix))
	if _, err := prefs.SetRange(ctx, "12m"); err != nil {
		t.Fatalf("SetRange error: %v", err)
	}
	got, err := preference.NewService(snapshot.NewPreferenceRepository(store, prefix)).Get(ctx)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Range != "12m" {
		t.Fatalf("expected range 12m, got %s", got.Range)
	}
}

func resetMigrations(dsn, dir string) error {
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func configPathFromEnv() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "../assets/local.yaml"
}

type stubClock struct {
	now time.Time
}

func (s stubClock) Now() time.Time {
	return s.now
}
