package driver

import (
	"strings"

	"github.com/ogurasousui/driver-retention/internal/platform/calendar"
)

// Status はドライバーの在籍状態を表します。
type Status string

const (
	StatusActive     Status = "Active"
	StatusTerminated Status = "Terminated"
)

// ParseStatus は大文字小文字を区別せずに状態を解釈します。Terminated 以外はすべて Active です。
func ParseStatus(raw string) Status {
	if strings.EqualFold(strings.TrimSpace(raw), string(StatusTerminated)) {
		return StatusTerminated
	}
	return StatusActive
}

// Answer は Y / N / 未設定 の三値です。
type Answer string

const (
	AnswerUnset Answer = ""
	AnswerYes   Answer = "Y"
	AnswerNo    Answer = "N"
)

// ParseAnswer は "Y", "yes", "true", "1" などを解釈します。解釈できない値は未設定です。
func ParseAnswer(raw string) Answer {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "y", "yes", "true", "1":
		return AnswerYes
	case "n", "no", "false", "0":
		return AnswerNo
	default:
		return AnswerUnset
	}
}

// Weeks はフォローアップ対象の週数です。
const Weeks = 4

// DoneMarker は本文なしで完了扱いにする際のメモ値です。
const DoneMarker = "-"

// Driver は採用・オンボーディング・退職を追跡するドライバーエンティティです。
type Driver struct {
	ID        string
	Name      string
	Recruiter string
	Source    string
	StartDate calendar.Date

	// Notes[0] が 1 週目のメモです。
	Notes [Weeks]string

	HiringCost        *float64
	TimeToHireDays    *float64
	OrientationDate   calendar.Date
	PassedOrientation Answer
	Passed90Days      Answer

	Status     Status
	TermDate   calendar.Date
	TermReason string

	Archived   bool
	ArchivedAt calendar.Date
}

// New は既定値のドライバーを生成します。
func New(id string) Driver {
	return Driver{ID: id, Status: StatusActive}
}

// Terminated は退職状態かどうかを返します。
func (d Driver) Terminated() bool {
	return d.Status == StatusTerminated
}

// NoteDone は week 週目 (1 始まり) のメモが空白以外を含むかを返します。
func (d Driver) NoteDone(week int) bool {
	if week < 1 || week > Weeks {
		return false
	}
	return strings.TrimSpace(d.Notes[week-1]) != ""
}

// Completion は記入済みメモの割合 (0〜1) を返します。
func (d Driver) Completion() float64 {
	done := 0
	for w := 1; w <= Weeks; w++ {
		if d.NoteDone(w) {
			done++
		}
	}
	return float64(done) / Weeks
}

// Draft は氏名・リクルーター・採用経路・入社日のいずれかが未入力かを返します。
func (d Driver) Draft() bool {
	return strings.TrimSpace(d.Name) == "" || d.Recruiter == "" || d.Source == "" || d.StartDate.IsZero()
}

func (d Driver) clone() Driver {
	out := d
	out.HiringCost = cloneFloat(d.HiringCost)
	out.TimeToHireDays = cloneFloat(d.TimeToHireDays)
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
