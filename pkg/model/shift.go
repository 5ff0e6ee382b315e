// Package model 定义排班引擎的核心数据模型
package model

import (
	"time"
)

// 日期与时刻的统一格式
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// SlotID 班次槽位标识
type SlotID string

const (
	SlotEarly SlotID = "early" // 早番 08:00-16:00
	SlotLate  SlotID = "late"  // 遅番 16:00-00:00
	SlotNight SlotID = "night" // 夜勤 00:00-08:00
	SlotOff   SlotID = "off"   // 休み（割当なしの擬似スロット）
)

// SlotOrder 轮换顺序（early→late→night→early 的循环）
var SlotOrder = []SlotID{SlotEarly, SlotLate, SlotNight}

// Slot 班次槽位模板
// 起止时刻为空表示 off 擬似スロット，不产生决策变量。
type Slot struct {
	ID           SlotID `json:"id"`
	StartTime    string `json:"start_time,omitempty"` // HH:MM
	EndTime      string `json:"end_time,omitempty"`   // HH:MM
	BreakMinutes int    `json:"break_minutes"`
}

// IsOff 检查是否为 off 擬似スロット
func (s Slot) IsOff() bool {
	return s.StartTime == "" && s.EndTime == ""
}

// DefaultSlots 返回默认的三槽位+off定义
func DefaultSlots() []Slot {
	return []Slot{
		{ID: SlotEarly, StartTime: "08:00", EndTime: "16:00", BreakMinutes: 60},
		{ID: SlotLate, StartTime: "16:00", EndTime: "00:00", BreakMinutes: 60},
		{ID: SlotNight, StartTime: "00:00", EndTime: "08:00", BreakMinutes: 60},
		{ID: SlotOff},
	}
}

// SlotTimes 返回槽位的起止时刻
func SlotTimes(id SlotID) (start, end string, ok bool) {
	switch id {
	case SlotEarly:
		return "08:00", "16:00", true
	case SlotLate:
		return "16:00", "00:00", true
	case SlotNight:
		return "00:00", "08:00", true
	}
	return "", "", false
}

// SlotByStart 根据开始时刻反查槽位
func SlotByStart(start string) (SlotID, bool) {
	switch start {
	case "08:00":
		return SlotEarly, true
	case "16:00":
		return SlotLate, true
	case "00:00":
		return SlotNight, true
	}
	return "", false
}

// Shift 一名员工在某日期某槽位的班次记录
// (employee_id, date, start_time, end_time) 在一个排班表内唯一。
type Shift struct {
	ID           int64      `json:"id,omitempty" db:"id"` // 0 = 未採番
	EmployeeID   int64      `json:"employee_id" db:"employee_id"`
	Date         string     `json:"date" db:"date"`             // YYYY-MM-DD
	StartTime    string     `json:"start_time" db:"start_time"` // HH:MM
	EndTime      string     `json:"end_time" db:"end_time"`     // HH:MM
	BreakMinutes int        `json:"break_minutes" db:"break_minutes"`
	CreatedAt    *time.Time `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// SameSlot 检查班次是否处于指定槽位
func (s *Shift) SameSlot(date string, slot SlotID) bool {
	start, end, ok := SlotTimes(slot)
	if !ok {
		return false
	}
	return s.Date == date && s.StartTime == start && s.EndTime == end
}

// Slot 返回班次所在槽位
func (s *Shift) Slot() (SlotID, bool) {
	return SlotByStart(s.StartTime)
}

// Clone 深拷贝班次
func (s *Shift) Clone() *Shift {
	c := *s
	if s.CreatedAt != nil {
		t := *s.CreatedAt
		c.CreatedAt = &t
	}
	if s.UpdatedAt != nil {
		t := *s.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}

// CloneShifts 深拷贝班次列表
func CloneShifts(shifts []*Shift) []*Shift {
	out := make([]*Shift, len(shifts))
	for i, s := range shifts {
		out[i] = s.Clone()
	}
	return out
}

// ParseDate 解析 YYYY-MM-DD 日期
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// WeekRange 返回包含指定日期的自然周（周一开始）
func WeekRange(date string) (weekStart, weekEnd string, err error) {
	d, err := ParseDate(date)
	if err != nil {
		return "", "", err
	}
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0
	start := d.AddDate(0, 0, -offset)
	end := start.AddDate(0, 0, 6)
	return start.Format(DateLayout), end.Format(DateLayout), nil
}

// ShiftsInRange 按日期范围（含端点）过滤班次
func ShiftsInRange(shifts []*Shift, startDate, endDate string) []*Shift {
	var out []*Shift
	for _, s := range shifts {
		if s.Date >= startDate && s.Date <= endDate {
			out = append(out, s)
		}
	}
	return out
}

// NextDate 返回后一天日期
func NextDate(date string) string {
	d, err := ParseDate(date)
	if err != nil {
		return ""
	}
	return d.AddDate(0, 0, 1).Format(DateLayout)
}

// PrevDate 返回前一天日期
func PrevDate(date string) string {
	d, err := ParseDate(date)
	if err != nil {
		return ""
	}
	return d.AddDate(0, 0, -1).Format(DateLayout)
}
