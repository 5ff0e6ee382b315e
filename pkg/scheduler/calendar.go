// Package scheduler 提供基于约束求解的排班生成
package scheduler

import (
	"github.com/banci/banci/pkg/errors"
	"github.com/banci/banci/pkg/model"
)

// Calendar 槽位日历
// 日付範囲 × 勤務スロットの列挙。off 擬似スロットは变量を生まない。
type Calendar struct {
	StartDate string       `json:"start_date"`
	EndDate   string       `json:"end_date"`
	Dates     []string     `json:"dates"`
	Slots     []model.Slot `json:"slots"` // 勤務スロットのみ
}

// NewCalendar 创建槽位日历
// end が start より前の場合は空の日付列を返す（エラーではない）。
func NewCalendar(startDate, endDate string, slots []model.Slot) (*Calendar, error) {
	start, err := model.ParseDate(startDate)
	if err != nil {
		return nil, errors.InvalidInput("start_date", "YYYY-MM-DD で指定してください").WithCause(err)
	}
	end, err := model.ParseDate(endDate)
	if err != nil {
		return nil, errors.InvalidInput("end_date", "YYYY-MM-DD で指定してください").WithCause(err)
	}

	if len(slots) == 0 {
		slots = model.DefaultSlots()
	}

	cal := &Calendar{
		StartDate: startDate,
		EndDate:   endDate,
	}

	for _, s := range slots {
		if s.IsOff() {
			continue
		}
		cal.Slots = append(cal.Slots, s)
	}

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		cal.Dates = append(cal.Dates, d.Format(model.DateLayout))
	}

	return cal, nil
}

// SlotByID 根据槽位ID查找定义
func (c *Calendar) SlotByID(id model.SlotID) *model.Slot {
	for i := range c.Slots {
		if c.Slots[i].ID == id {
			return &c.Slots[i]
		}
	}
	return nil
}

// Empty 检查日历是否为空（生成结果必然为空排班）
func (c *Calendar) Empty() bool {
	return len(c.Dates) == 0 || len(c.Slots) == 0
}
