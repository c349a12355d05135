package filter

import (
	"context"
	"fmt"
	"sync"

	"github.com/ogurasousui/driver-retention/internal/platform/calendar"
)

// Repository は現在の条件と保存ビューの永続化の抽象です。
type Repository interface {
	LoadFilter(ctx context.Context) (Filter, error)
	SaveFilter(ctx context.Context, f Filter) error
	LoadViews(ctx context.Context) (Views, error)
	SaveViews(ctx context.Context, v Views) error
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// Service は絞り込み条件と保存ビューを管理します。
type Service struct {
	repo Repository
	tx   TransactionManager

	mu      sync.Mutex
	loaded  bool
	current Filter
	views   Views
}

// NewService は Service を生成します。
func NewService(repo Repository, tx TransactionManager) *Service {
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, tx: tx}
}

// Current は現在の条件を返します。
func (s *Service) Current(ctx context.Context) (Filter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return Filter{}, err
	}
	return s.current, nil
}

// Views は保存ビューを返します。
func (s *Service) Views(ctx context.Context) (Views, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return s.views.clone(), nil
}

// Set は現在の条件を f に置き換えます。
func (s *Service) Set(ctx context.Context, f Filter) (Filter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return Filter{}, err
	}
	if err := s.persist(ctx, f, nil); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// ApplyQuickRange は現在の条件に簡易範囲を適用します。
func (s *Service) ApplyQuickRange(ctx context.Context, q QuickRange, today calendar.Date) (Filter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return Filter{}, err
	}
	next, err := s.current.WithQuickRange(q, today)
	if err != nil {
		return Filter{}, err
	}
	if err := s.persist(ctx, next, nil); err != nil {
		return Filter{}, err
	}
	return next, nil
}

// SaveView は現在の条件を name で保存し、現在の条件の View も name にします。
func (s *Service) SaveView(ctx context.Context, name string) (Filter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return Filter{}, err
	}
	views, stamped, err := s.views.Save(name, s.current)
	if err != nil {
		return Filter{}, err
	}
	if err := s.persist(ctx, stamped, views); err != nil {
		return Filter{}, err
	}
	return stamped, nil
}

// ApplyView は name の保存ビューで現在の条件を置き換えます。
func (s *Service) ApplyView(ctx context.Context, name string) (Filter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return Filter{}, err
	}
	f, err := s.views.Apply(name)
	if err != nil {
		return Filter{}, err
	}
	if err := s.persist(ctx, f, nil); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// DeleteView は保存ビューを削除します。現在の条件は変更しません。
func (s *Service) DeleteView(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	views, err := s.views.Delete(name)
	if err != nil {
		return err
	}
	return s.persist(ctx, s.current, views)
}

func (s *Service) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	var (
		f     Filter
		views Views
	)
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		var err error
		if f, err = s.repo.LoadFilter(txCtx); err != nil {
			return err
		}
		views, err = s.repo.LoadViews(txCtx)
		return err
	}); err != nil {
		return fmt.Errorf("filter: load: %w", err)
	}
	if views == nil {
		views = Views{}
	}
	s.current, s.views, s.loaded = f, views, true
	return nil
}

// persist は f と (nil でなければ) views を保存し、成功時のみメモリ上の状態を更新します。
func (s *Service) persist(ctx context.Context, f Filter, views Views) error {
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.repo.SaveFilter(txCtx, f); err != nil {
			return err
		}
		if views != nil {
			return s.repo.SaveViews(txCtx, views)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("filter: save: %w", err)
	}
	s.current = f
	if views != nil {
		s.views = views
	}
	return nil
}
