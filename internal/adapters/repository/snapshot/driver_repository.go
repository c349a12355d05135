package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/ogurasousui/driver-retention/internal/core/driver"
	"github.com/ogurasousui/driver-retention/internal/platform/calendar"
)

// DriverRepository はドライバー集合を 1 つのスロットに JSON 配列として保存します。
type DriverRepository struct {
	store SlotStore
	key   string
	newID func() string
}

// NewDriverRepository は DriverRepository を生成します。
func NewDriverRepository(store SlotStore, prefix string) *DriverRepository {
	return &DriverRepository{store: store, key: Key(prefix, SlotDrivers), newID: uuid.NewString}
}

// Load はスナップショットを読み込みます。未保存・破損時は空の集合です。
// 旧形式のレコードは driverRecord の既定値で補います。ID の無いレコードには新しい ID を振ります。
func (r *DriverRepository) Load(ctx context.Context) (driver.Collection, error) {
	var records []driverRecord
	ok, err := readJSON(ctx, r.store, r.key, &records)
	if err != nil || !ok {
		return driver.Collection{}, err
	}

	drivers := make([]driver.Driver, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		d := rec.toDriver()
		if d.ID == "" || seen[d.ID] {
			d.ID = r.newID()
		}
		seen[d.ID] = true
		drivers = append(drivers, d)
	}
	return driver.NewCollection(drivers), nil
}

// Save はスナップショット全体を書き込みます。
func (r *DriverRepository) Save(ctx context.Context, c driver.Collection) error {
	all := c.All()
	records := make([]driverRecord, 0, len(all))
	for _, d := range all {
		records = append(records, recordFromDriver(d))
	}
	return writeJSON(ctx, r.store, r.key, records)
}

// driverRecord は永続化形式です。キー名は CSV の列キーと同じです。
type driverRecord struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Recruiter         string        `json:"recruiter"`
	Source            string        `json:"source"`
	StartDate         calendar.Date `json:"startDate"`
	Week1Note         string        `json:"week1Note"`
	Week2Note         string        `json:"week2Note"`
	Week3Note         string        `json:"week3Note"`
	Week4Note         string        `json:"week4Note"`
	HiringCost        flexNumber    `json:"hiringCost"`
	TimeToHireDays    flexNumber    `json:"timeToHireDays"`
	OrientationDate   calendar.Date `json:"orientationDate"`
	PassedOrientation string        `json:"passedOrientation"`
	Passed90Days      string        `json:"passed90Days"`
	Status            string        `json:"status"`
	TermDate          calendar.Date `json:"termDate"`
	TermReason        string        `json:"termReason"`
	Archived          bool          `json:"archived"`
	ArchivedAt        calendar.Date `json:"archivedAt"`
}

func recordFromDriver(d driver.Driver) driverRecord {
	return driverRecord{
		ID:                d.ID,
		Name:              d.Name,
		Recruiter:         d.Recruiter,
		Source:            d.Source,
		StartDate:         d.StartDate,
		Week1Note:         d.Notes[0],
		Week2Note:         d.Notes[1],
		Week3Note:         d.Notes[2],
		Week4Note:         d.Notes[3],
		HiringCost:        flexNumber{v: d.HiringCost},
		TimeToHireDays:    flexNumber{v: d.TimeToHireDays},
		OrientationDate:   d.OrientationDate,
		PassedOrientation: string(d.PassedOrientation),
		Passed90Days:      string(d.Passed90Days),
		Status:            string(d.Status),
		TermDate:          d.TermDate,
		TermReason:        d.TermReason,
		Archived:          d.Archived,
		ArchivedAt:        d.ArchivedAt,
	}
}

func (r driverRecord) toDriver() driver.Driver {
	d := driver.New(strings.TrimSpace(r.ID))
	d.Name = r.Name
	d.Recruiter = r.Recruiter
	d.Source = r.Source
	d.StartDate = r.StartDate
	d.Notes = [driver.Weeks]string{r.Week1Note, r.Week2Note, r.Week3Note, r.Week4Note}
	d.HiringCost = r.HiringCost.v
	d.TimeToHireDays = r.TimeToHireDays.v
	d.OrientationDate = r.OrientationDate
	d.PassedOrientation = driver.ParseAnswer(r.PassedOrientation)
	d.Passed90Days = driver.ParseAnswer(r.Passed90Days)
	d.Status = driver.ParseStatus(r.Status)
	d.TermDate = r.TermDate
	d.TermReason = r.TermReason
	d.Archived = r.Archived
	d.ArchivedAt = r.ArchivedAt
	return d
}

// flexNumber は JSON の数値・数値文字列・空文字列・null を受け付けます。解釈できない値は未設定です。
type flexNumber struct {
	v *float64
}

func (n flexNumber) MarshalJSON() ([]byte, error) {
	if n.v == nil || math.IsNaN(*n.v) || math.IsInf(*n.v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(*n.v)
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	n.v = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		raw = strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(s), "$"), ",", "")
	}
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n.v = &f
	return nil
}
