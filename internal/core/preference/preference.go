package preference

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/ogurasousui/driver-retention/internal/core/metrics"
)

var ErrInvalidSheetURL = errors.New("preference: sheet url must be http or https")

// Preferences は画面設定として永続化される値です。
type Preferences struct {
	Range    metrics.Range
	SheetURL string
	AutoSync bool
}

// Default は未保存時の値です。
func Default() Preferences {
	return Preferences{Range: metrics.DefaultRange, AutoSync: true}
}

// Repository は Preferences の永続化の抽象です。
type Repository interface {
	Load(ctx context.Context) (Preferences, error)
	Save(ctx context.Context, p Preferences) error
}

// Service は Preferences を管理し、変更を購読者へ通知します。
type Service struct {
	repo Repository

	mu       sync.Mutex
	loaded   bool
	current  Preferences
	onChange []func(Preferences)
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// OnChange は保存成功後に呼ばれる関数を登録します。
func (s *Service) OnChange(fn func(Preferences)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Get は現在の設定を返します。
func (s *Service) Get(ctx context.Context) (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return Preferences{}, err
	}
	return s.current, nil
}

// SetRange はダッシュボードの表示期間を変更します。
func (s *Service) SetRange(ctx context.Context, raw string) (Preferences, error) {
	r, err := metrics.ParseRange(raw)
	if err != nil {
		return Preferences{}, err
	}
	return s.update(ctx, func(p *Preferences) { p.Range = r })
}

// SetSheetURL は同期元 URL を変更します。空文字列は同期元の解除です。
func (s *Service) SetSheetURL(ctx context.Context, raw string) (Preferences, error) {
	u := strings.TrimSpace(raw)
	if u != "" {
		parsed, err := url.Parse(u)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return Preferences{}, fmt.Errorf("%q: %w", raw, ErrInvalidSheetURL)
		}
	}
	return s.update(ctx, func(p *Preferences) { p.SheetURL = u })
}

// SetAutoSync は自動同期の有効・無効を切り替えます。
func (s *Service) SetAutoSync(ctx context.Context, enabled bool) (Preferences, error) {
	return s.update(ctx, func(p *Preferences) { p.AutoSync = enabled })
}

func (s *Service) update(ctx context.Context, fn func(*Preferences)) (Preferences, error) {
	s.mu.Lock()
	if err := s.ensureLoaded(ctx); err != nil {
		s.mu.Unlock()
		return Preferences{}, err
	}
	next := s.current
	fn(&next)
	if err := s.repo.Save(ctx, next); err != nil {
		s.mu.Unlock()
		return Preferences{}, fmt.Errorf("preference: save: %w", err)
	}
	s.current = next
	listeners := slices.Clone(s.onChange)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return next, nil
}

func (s *Service) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	p, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("preference: load: %w", err)
	}
	if p.Range == "" {
		p.Range = metrics.DefaultRange
	}
	s.current, s.loaded = p, true
	return nil
}
