package followup

import (
	"context"

	"github.com/ogurasousui/driver-retention/internal/core/driver"
	"github.com/ogurasousui/driver-retention/internal/platform/calendar"
)

// DriverStore は followup が利用するドライバー操作です。driver.Service が満たします。
type DriverStore interface {
	Drivers(ctx context.Context) ([]driver.Driver, error)
	UpdateDriverFunc(ctx context.Context, id string, build func(driver.Driver) (driver.Patch, error)) (driver.Driver, error)
	Today() calendar.Date
}

// Service はフォローアップに関するユースケースです。
type Service struct {
	store DriverStore
}

func NewService(store DriverStore) *Service {
	return &Service{store: store}
}

// MarkWeekDone は id の week 週目を完了にします。
func (s *Service) MarkWeekDone(ctx context.Context, id string, week int) (driver.Driver, error) {
	today := s.store.Today()
	return s.store.UpdateDriverFunc(ctx, id, func(d driver.Driver) (driver.Patch, error) {
		return MarkDone(d, week, today)
	})
}

// Table は全ドライバーのフォローアップ表を返します。
func (s *Service) Table(ctx context.Context) ([]Row, error) {
	drivers, err := s.store.Drivers(ctx)
	if err != nil {
		return nil, err
	}
	return Build(drivers, s.store.Today()), nil
}

func (s *Service) OverdueByRecruiter(ctx context.Context) ([]RecruiterOverdue, error) {
	drivers, err := s.store.Drivers(ctx)
	if err != nil {
		return nil, err
	}
	return OverdueByRecruiter(drivers, s.store.Today()), nil
}
