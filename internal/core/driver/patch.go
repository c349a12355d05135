package driver

import "github.com/ogurasousui/driver-retention/internal/platform/calendar"

// Patch はドライバーの部分更新です。nil のフィールドは変更しません。
// 日付はゼロ値を指すポインタで未設定に戻します。数値は *Set フラグで未設定への変更を表します。
type Patch struct {
	Name      *string
	Recruiter *string
	Source    *string
	StartDate *calendar.Date

	Notes [Weeks]*string

	HiringCost        *float64
	HiringCostSet     bool
	TimeToHireDays    *float64
	TimeToHireDaysSet bool
	OrientationDate   *calendar.Date
	PassedOrientation *Answer
	Passed90Days      *Answer

	Status     *Status
	TermDate   *calendar.Date
	TermReason *string

	Archived   *bool
	ArchivedAt *calendar.Date
}

// Empty はいずれのフィールドも変更しないかを返します。
func (p Patch) Empty() bool {
	for _, n := range p.Notes {
		if n != nil {
			return false
		}
	}
	return p.Name == nil && p.Recruiter == nil && p.Source == nil && p.StartDate == nil &&
		!p.HiringCostSet && !p.TimeToHireDaysSet && p.OrientationDate == nil &&
		p.PassedOrientation == nil && p.Passed90Days == nil && p.Status == nil &&
		p.TermDate == nil && p.TermReason == nil && p.Archived == nil && p.ArchivedAt == nil
}

// Apply は d に p をマージした結果を返します。d 自体は変更しません。
func (p Patch) Apply(d Driver) Driver {
	out := d.clone()

	setString(&out.Name, p.Name)
	setString(&out.Recruiter, p.Recruiter)
	setString(&out.Source, p.Source)
	setDate(&out.StartDate, p.StartDate)
	for i, n := range p.Notes {
		setString(&out.Notes[i], n)
	}

	if p.HiringCostSet {
		out.HiringCost = cloneFloat(p.HiringCost)
	}
	if p.TimeToHireDaysSet {
		out.TimeToHireDays = cloneFloat(p.TimeToHireDays)
	}
	setDate(&out.OrientationDate, p.OrientationDate)
	if p.PassedOrientation != nil {
		out.PassedOrientation = *p.PassedOrientation
	}
	if p.Passed90Days != nil {
		out.Passed90Days = *p.Passed90Days
	}

	if p.Status != nil {
		out.Status = *p.Status
	}
	setDate(&out.TermDate, p.TermDate)
	setString(&out.TermReason, p.TermReason)

	if p.Archived != nil {
		out.Archived = *p.Archived
	}
	setDate(&out.ArchivedAt, p.ArchivedAt)

	return out
}

// SetNote は week 週目 (1 始まり) のメモを設定するパッチを返します。
func SetNote(week int, note string) (Patch, error) {
	if week < 1 || week > Weeks {
		return Patch{}, ErrInvalidWeek
	}
	var p Patch
	p.Notes[week-1] = &note
	return p, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDate(dst *calendar.Date, v *calendar.Date) {
	if v != nil {
		*dst = *v
	}
}
