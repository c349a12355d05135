package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ストレージの種類。
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

const (
	defaultSQLitePath    = "data/retention.db"
	defaultSlotPrefix    = "kpi_retention_v3"
	defaultSyncSchedule  = "@every 1h"
	defaultFetchTimeout  = 30 * time.Second
	defaultSyncRunBudget = 2 * time.Minute
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Roster   RosterConfig   `yaml:"roster"`
	Sync     SyncConfig     `yaml:"sync"`
	Notify   NotifyConfig   `yaml:"notify"`

	// Timezone は「今日」を決める IANA タイムゾーン名です。空ならローカル時刻です。
	Timezone string         `yaml:"timezone"`
	Location *time.Location `yaml:"-"`
}

// ServerConfig は gRPC サーバーに関する設定です。
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// StorageConfig はスロット永続化のバックエンド設定です。
type StorageConfig struct {
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlite_path"`
	Prefix     string `yaml:"prefix"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。storage.driver が postgres の場合のみ必須です。
type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"ssl_mode"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time"`
}

// RosterConfig はリクルーターと採用経路の選択肢です。空なら組み込みの一覧を使います。
type RosterConfig struct {
	Recruiters []string `yaml:"recruiters"`
	Sources    []string `yaml:"sources"`
}

// SyncConfig はシート自動同期の設定です。
type SyncConfig struct {
	Schedule      string        `yaml:"schedule"`
	Timeout       time.Duration `yaml:"-"`
	RunTimeout    time.Duration `yaml:"-"`
	TimeoutRaw    string        `yaml:"timeout"`
	RunTimeoutRaw string        `yaml:"run_timeout"`
}

// NotifyConfig は通知先の設定です。Slack のトークンが空ならログにのみ出力します。
type NotifyConfig struct {
	SlackToken   string `yaml:"slack_token"`
	SlackChannel string `yaml:"slack_channel"`
}

// Load は指定されたパスから設定ファイルを読み込みます。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateAndNormalize() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}

	if err := c.Storage.validateAndNormalize(); err != nil {
		return err
	}

	if c.Storage.Driver == StoragePostgres {
		if err := c.Database.validateAndNormalize(); err != nil {
			return err
		}
	}

	c.Roster.normalize()

	if err := c.Sync.validateAndNormalize(); err != nil {
		return err
	}

	if err := c.Notify.validate(); err != nil {
		return err
	}

	loc, err := loadLocation(c.Timezone)
	if err != nil {
		return err
	}
	c.Location = loc

	return nil
}

func (s *StorageConfig) validateAndNormalize() error {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	if s.Driver == "" {
		s.Driver = StorageSQLite
	}
	switch s.Driver {
	case StorageSQLite:
		if s.SQLitePath == "" {
			s.SQLitePath = defaultSQLitePath
		}
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("config: storage.driver %q is not supported", s.Driver)
	}
	if strings.TrimSpace(s.Prefix) == "" {
		s.Prefix = defaultSlotPrefix
	}
	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func (r *RosterConfig) normalize() {
	r.Recruiters = trimNonEmpty(r.Recruiters)
	r.Sources = trimNonEmpty(r.Sources)
}

func (s *SyncConfig) validateAndNormalize() error {
	if strings.TrimSpace(s.Schedule) == "" {
		s.Schedule = defaultSyncSchedule
	}

	timeout, err := parseDurationAllowEmpty(s.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: sync.timeout: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	s.Timeout = timeout

	runTimeout, err := parseDurationAllowEmpty(s.RunTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: sync.run_timeout: %w", err)
	}
	if runTimeout <= 0 {
		runTimeout = defaultSyncRunBudget
	}
	s.RunTimeout = runTimeout

	return nil
}

func (n NotifyConfig) validate() error {
	if n.SlackToken != "" && n.SlackChannel == "" {
		return fmt.Errorf("config: notify.slack_channel must be set when slack_token is set")
	}
	return nil
}

// SlackEnabled は Slack 通知が有効かどうかを返します。
func (n NotifyConfig) SlackEnabled() bool {
	return n.SlackToken != ""
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("config: timezone: %w", err)
	}
	return loc, nil
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。ユーザー名とパスワードはエスケープします。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + strconv.Itoa(d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}
