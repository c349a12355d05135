package driver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ogurasousui/driver-retention/internal/platform/calendar"
	"github.com/ogurasousui/driver-retention/internal/platform/csvcodec"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

const defaultHistoryLimit = 20

// Option は Service の任意設定です。
type Option func(*Service)

// WithLocation は「今日」を決めるタイムゾーンを設定します。
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithRoster はリクルーター・採用経路の一覧を設定します。
func WithRoster(r Roster) Option {
	return func(s *Service) { s.roster = r }
}

// WithIDGenerator は ID 採番関数を差し替えます。
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithHistoryLimit は Undo で遡れる件数を設定します。
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.historyLimit = n
		}
	}
}

// Service はドライバーに関するユースケースをまとめます。
// 現在の集合をメモリに保持し、変更のたびにスナップショット全体を保存します。変更は直列化されます。
type Service struct {
	repo         Repository
	clock        Clock
	tx           TransactionManager
	loc          *time.Location
	roster       Roster
	newID        func() string
	historyLimit int

	mu      sync.Mutex
	loaded  bool
	current Collection
	history []Collection
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{
		repo:         repo,
		clock:        clock,
		tx:           tx,
		loc:          time.Local,
		roster:       DefaultRoster(),
		newID:        uuid.NewString,
		historyLimit: defaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today は設定タイムゾーンでの今日の日付を返します。
func (s *Service) Today() calendar.Date {
	return calendar.Today(s.clock.Now(), s.loc)
}

// Roster は注入された一覧を返します。
func (s *Service) Roster() Roster {
	return s.roster
}

// Load はスナップショットを読み込みます。読み込み済みの場合は何もしません。
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLoaded(ctx)
}

// Drivers は全ドライバー (アーカイブ済みを含む) を返します。
func (s *Service) Drivers(ctx context.Context) ([]Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return s.current.All(), nil
}

// GetDriver はドライバーを取得します。
func (s *Service) GetDriver(ctx context.Context, id string) (Driver, error) {
	if strings.TrimSpace(id) == "" {
		return Driver{}, fmt.Errorf("id: %w", ErrInvalidID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return Driver{}, err
	}
	d, ok := s.current.Find(id)
	if !ok {
		return Driver{}, ErrDriverNotFound
	}
	return d, nil
}

// CreateDriver は既定値のドライバーを先頭に追加します。
func (s *Service) CreateDriver(ctx context.Context) (Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := New(s.newID())
	if err := s.mutate(ctx, func(c Collection) Collection { return c.Create(d) }); err != nil {
		return Driver{}, err
	}
	return d, nil
}

// UpdateDriver は patch をマージします。
func (s *Service) UpdateDriver(ctx context.Context, id string, patch Patch) (Driver, error) {
	return s.UpdateDriverFunc(ctx, id, func(Driver) (Patch, error) { return patch, nil })
}

// UpdateDriverFunc は現在値から patch を組み立て、同じロック内でマージします。
func (s *Service) UpdateDriverFunc(ctx context.Context, id string, build func(Driver) (Patch, error)) (Driver, error) {
	if strings.TrimSpace(id) == "" {
		return Driver{}, fmt.Errorf("id: %w", ErrInvalidID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return Driver{}, err
	}

	existing, ok := s.current.Find(id)
	if !ok {
		return Driver{}, ErrDriverNotFound
	}
	patch, err := build(existing)
	if err != nil {
		return Driver{}, err
	}
	if patch.Empty() {
		return existing, nil
	}

	if err := s.mutate(ctx, func(c Collection) Collection { return c.Update(id, patch) }); err != nil {
		return Driver{}, err
	}
	updated, _ := s.current.Find(id)
	return updated, nil
}

// Terminate は退職状態に変更します。退職日は未設定でも保存されます (警告対象)。
func (s *Service) Terminate(ctx context.Context, id string, on calendar.Date, reason string) (Driver, error) {
	status := StatusTerminated
	return s.UpdateDriver(ctx, id, Patch{Status: &status, TermDate: &on, TermReason: &reason})
}

// Reactivate は在籍状態に戻し、退職日と退職理由を消去します。
func (s *Service) Reactivate(ctx context.Context, id string) (Driver, error) {
	status := StatusActive
	var (
		noDate   calendar.Date
		noReason string
	)
	return s.UpdateDriver(ctx, id, Patch{Status: &status, TermDate: &noDate, TermReason: &noReason})
}

// ArchiveDrivers は ids をアーカイブします。存在しない ID は無視します。
func (s *Service) ArchiveDrivers(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.Today()
	return s.mutate(ctx, func(c Collection) Collection { return c.Archive(ids, today) })
}

// UnarchiveDrivers は ids のアーカイブを解除します。
func (s *Service) UnarchiveDrivers(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(ctx, func(c Collection) Collection { return c.Unarchive(ids) })
}

// DeleteDriver はドライバーを完全に削除します。元に戻せるのは Undo のみです。
func (s *Service) DeleteDriver(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	if _, ok := s.current.Find(id); !ok {
		return ErrDriverNotFound
	}
	return s.mutate(ctx, func(c Collection) Collection { return c.Delete(id) })
}

// BulkAssign は ids のリクルーター・採用経路を一括設定します。
func (s *Service) BulkAssign(ctx context.Context, ids []string, recruiter, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(ctx, func(c Collection) Collection { return c.BulkAssign(ids, recruiter, source) })
}

// ImportResult は取り込み結果です。
type ImportResult struct {
	Inserted int
	Updated  int
	Warnings []ImportWarning
}

// ImportCSV は CSV バイト列を取り込みます。mapping が nil の場合は同名ヘッダーを対応付けます。
// 行が無い場合は ErrEmptyImport を返し、既存データは変更しません。
func (s *Service) ImportCSV(ctx context.Context, data []byte, mapping Mapping) (ImportResult, error) {
	text, err := csvcodec.DecodeBytes(data)
	if err != nil {
		return ImportResult{}, err
	}
	return s.ApplyDocument(ctx, csvcodec.Decode(text), mapping)
}

// ApplyDocument は CSV ドキュメントを ID で突き合わせて取り込みます。
func (s *Service) ApplyDocument(ctx context.Context, doc csvcodec.Document, mapping Mapping) (ImportResult, error) {
	if len(doc.Records) == 0 {
		return ImportResult{}, ErrEmptyImport
	}
	if mapping == nil {
		mapping = AutoMapping(doc.Header)
	}
	if err := mapping.Validate(); err != nil {
		return ImportResult{}, err
	}

	rows, warnings := RowsFromDocument(doc, mapping, s.roster)

	s.mu.Lock()
	defer s.mu.Unlock()

	var res UpsertResult
	if err := s.mutate(ctx, func(c Collection) Collection {
		next, r := c.Upsert(rows, s.newID)
		res = r
		return next
	}); err != nil {
		return ImportResult{}, err
	}

	return ImportResult{Inserted: res.Inserted, Updated: res.Updated, Warnings: warnings}, nil
}

// Undo は直前の変更を取り消します。
func (s *Service) Undo(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	if len(s.history) == 0 {
		return ErrNothingToUndo
	}

	prev := s.history[len(s.history)-1]
	if err := s.save(ctx, prev); err != nil {
		return err
	}
	s.current = prev
	s.history = s.history[:len(s.history)-1]
	return nil
}

// Wipe は全ドライバーを削除します。
func (s *Service) Wipe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(ctx, func(Collection) Collection { return Collection{} })
}

// Validate は d の入力警告を返します。
func (s *Service) Validate(d Driver) []Warning {
	return Validate(d, s.roster, s.Today())
}

func (s *Service) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	var loaded Collection
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		c, err := s.repo.Load(txCtx)
		if err != nil {
			return err
		}
		loaded = c
		return nil
	}); err != nil {
		return fmt.Errorf("driver: load snapshot: %w", err)
	}
	s.current = loaded
	s.loaded = true
	return nil
}

// mutate は呼び出し側で s.mu を保持している前提です。保存に失敗した場合は状態を変更しません。
func (s *Service) mutate(ctx context.Context, fn func(Collection) Collection) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	next := fn(s.current)
	if err := s.save(ctx, next); err != nil {
		return err
	}

	if s.historyLimit > 0 {
		s.history = append(s.history, s.current)
		if len(s.history) > s.historyLimit {
			s.history = s.history[len(s.history)-s.historyLimit:]
		}
	}
	s.current = next
	return nil
}

func (s *Service) save(ctx context.Context, c Collection) error {
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Save(txCtx, c)
	}); err != nil {
		return fmt.Errorf("driver: save snapshot: %w", err)
	}
	return nil
}
