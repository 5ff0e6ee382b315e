package scheduler

import (
	"github.com/banci/banci/pkg/model"
)

// Materialize 将求解结果展开为班次记录
// 従業員順→日付順→スロット順で列挙する。ID は未採番（保存時に付与）。
func Materialize(sol *Solution, m *Model) []*model.Shift {
	shifts := make([]*model.Shift, 0)
	for _, e := range m.Employees {
		for _, date := range m.Calendar.Dates {
			for _, slot := range m.Calendar.Slots {
				if !sol.Value(e.ID, date, slot.ID) {
					continue
				}
				shifts = append(shifts, &model.Shift{
					EmployeeID:   e.ID,
					Date:         date,
					StartTime:    slot.StartTime,
					EndTime:      slot.EndTime,
					BreakMinutes: slot.BreakMinutes,
				})
			}
		}
	}
	return shifts
}
