package rule

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/banci/banci/pkg/model"
	"github.com/banci/banci/pkg/suggest"
)

// ChangeSet 一次调整提案
// preview で生成され、apply で現行排班に反映される。
type ChangeSet struct {
	ID              string              `json:"id"`
	CreatedAt       time.Time           `json:"created_at"`
	Rule            json.RawMessage     `json:"rule"`
	Deltas          []model.ChangeDelta `json:"deltas"`
	Score           int                 `json:"score"`
	WeekStart       string              `json:"week_start"`
	WeekEnd         string              `json:"week_end"`
	ScheduleVersion int64               `json:"schedule_version"`
}

// Thresholds 再配分の判定阈值
type Thresholds struct {
	Overwork  int // これを超えたら過重
	Underwork int // これを下回れば軽負荷
	MaxDeltas int // 一度の提案の差分上限
}

// DefaultThresholds 默认阈值
func DefaultThresholds() Thresholds {
	return Thresholds{Overwork: 5, Underwork: 2, MaxDeltas: 3}
}

// Generator 调整提案生成器
type Generator struct {
	employees  model.Directory
	thresholds Thresholds
}

// NewGenerator 创建生成器
func NewGenerator(employees model.Directory, thresholds Thresholds) *Generator {
	return &Generator{employees: employees, thresholds: thresholds}
}

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

func dayIndex(day string) int {
	for i, d := range weekdays {
		if d == day {
			return i
		}
	}
	return 0
}

// Preview 生成调整提案
// weekStartDate が空なら今日を含む週。schedule は変更されない。
func (g *Generator) Preview(r Rule, schedule []*model.Shift, weekStartDate string, version int64) (*ChangeSet, error) {
	anchor := weekStartDate
	if anchor == "" {
		anchor = time.Now().Format(model.DateLayout)
	}
	weekStart, weekEnd, err := model.WeekRange(anchor)
	if err != nil {
		return nil, err
	}

	var deltas []model.ChangeDelta
	switch v := r.(type) {
	case PairNotTogether:
		deltas = g.pairNotTogether(v, schedule, weekStart, weekEnd)
	case IncreaseStaffDay:
		deltas = g.increaseStaffDay(v, schedule, weekStart)
	case AddEmployeeShift:
		deltas = g.addEmployeeShift(v, schedule)
	case RedistributeShifts:
		deltas = g.redistributeShifts(schedule)
	}

	return &ChangeSet{
		ID:              uuid.New().String(),
		CreatedAt:       time.Now(),
		Rule:            Encode(r),
		Deltas:          deltas,
		Score:           len(deltas),
		WeekStart:       weekStart,
		WeekEnd:         weekEnd,
		ScheduleVersion: version,
	}, nil
}

// pairNotTogether 週内で二人が同日勤務している日を探し、
// B 側のシフトを空いている従業員に付け替える。
func (g *Generator) pairNotTogether(r PairNotTogether, schedule []*model.Shift, weekStart, weekEnd string) []model.ChangeDelta {
	if r.AEmployeeID == 0 || r.BEmployeeID == 0 {
		return nil
	}

	var deltas []model.ChangeDelta
	for _, sa := range schedule {
		if sa.EmployeeID != r.AEmployeeID || sa.Date < weekStart || sa.Date > weekEnd {
			continue
		}
		for _, sb := range schedule {
			if sb.EmployeeID != r.BEmployeeID || sb.Date != sa.Date {
				continue
			}
			repl, ok := suggest.FindReplacement(sb, schedule, g.employees, []int64{r.AEmployeeID, r.BEmployeeID})
			if !ok {
				continue
			}
			after := sb.Clone()
			after.EmployeeID = repl
			deltas = append(deltas, model.ChangeDelta{Kind: model.DeltaReplace, Before: sb, After: after})
		}
	}
	return deltas
}

// increaseStaffDay 目標人数に満たない曜日へ早番を追加する
func (g *Generator) increaseStaffDay(r IncreaseStaffDay, schedule []*model.Shift, weekStart string) []model.ChangeDelta {
	idx := dayIndex(r.Day)
	target, err := model.ParseDate(weekStart)
	if err != nil {
		return nil
	}
	targetDate := target.AddDate(0, 0, idx).Format(model.DateLayout)

	current := 0
	busy := make(map[int64]bool)
	for _, s := range schedule {
		d, err := model.ParseDate(s.Date)
		if err != nil {
			continue
		}
		if int(d.Weekday()+6)%7 == idx {
			current++
			busy[s.EmployeeID] = true
		}
	}

	needed := r.TargetCount - current
	if needed <= 0 {
		return nil
	}

	start, end, _ := model.SlotTimes(model.SlotEarly)
	now := time.Now()
	var deltas []model.ChangeDelta
	for _, e := range g.employees {
		if needed == 0 {
			break
		}
		if busy[e.ID] {
			continue
		}
		deltas = append(deltas, model.ChangeDelta{
			Kind: model.DeltaAdd,
			After: &model.Shift{
				EmployeeID:   e.ID,
				Date:         targetDate,
				StartTime:    start,
				EndTime:      end,
				BreakMinutes: 60,
				CreatedAt:    &now,
				UpdatedAt:    &now,
			},
		})
		needed--
	}
	return deltas
}

// addEmployeeShift 指定日にシフトを追加、既存ならスロット置換
func (g *Generator) addEmployeeShift(r AddEmployeeShift, schedule []*model.Shift) []model.ChangeDelta {
	start, end, ok := model.SlotTimes(r.Slot)
	if !ok {
		return nil
	}

	var existing *model.Shift
	for _, s := range schedule {
		if s.EmployeeID == r.EmployeeID && s.Date == r.Date {
			existing = s
			break
		}
	}

	now := time.Now()
	if existing == nil {
		return []model.ChangeDelta{{
			Kind: model.DeltaAdd,
			After: &model.Shift{
				EmployeeID:   r.EmployeeID,
				Date:         r.Date,
				StartTime:    start,
				EndTime:      end,
				BreakMinutes: 60,
				CreatedAt:    &now,
				UpdatedAt:    &now,
			},
		}}
	}
	if existing.StartTime == start && existing.EndTime == end {
		return nil
	}
	after := existing.Clone()
	after.StartTime, after.EndTime = start, end
	after.UpdatedAt = &now
	return []model.ChangeDelta{{Kind: model.DeltaReplace, Before: existing, After: after}}
}

// redistributeShifts 過重労働者のシフトを軽負荷者へ一件ずつ移す
func (g *Generator) redistributeShifts(schedule []*model.Shift) []model.ChangeDelta {
	counts := make(map[int64]int)
	for _, s := range schedule {
		counts[s.EmployeeID]++
	}

	var overworked, underworked []int64
	for emp, n := range counts {
		if n > g.thresholds.Overwork {
			overworked = append(overworked, emp)
		}
	}
	for _, e := range g.employees {
		if counts[e.ID] < g.thresholds.Underwork {
			underworked = append(underworked, e.ID)
		}
	}
	sort.Slice(overworked, func(i, j int) bool { return overworked[i] < overworked[j] })

	now := time.Now()
	var deltas []model.ChangeDelta
	ui := 0
	for _, over := range overworked {
		if len(deltas) >= g.thresholds.MaxDeltas || ui >= len(underworked) {
			break
		}
		for _, s := range schedule {
			if s.EmployeeID != over {
				continue
			}
			after := s.Clone()
			after.EmployeeID = underworked[ui]
			after.UpdatedAt = &now
			deltas = append(deltas, model.ChangeDelta{Kind: model.DeltaReplace, Before: s, After: after})
			ui++
			break
		}
	}
	return deltas
}

// ApplyDeltas 将差分应用到排班副本
// base は変更されず、新しい全量リストと差分の内訳を返す。
func ApplyDeltas(base []*model.Shift, deltas []model.ChangeDelta) (newList, added, removed []*model.Shift, updated []*model.ShiftUpdatePair) {
	newList = model.CloneShifts(base)

	for i := range deltas {
		d := &deltas[i]
		switch d.Kind {
		case model.DeltaReplace:
			if d.Before == nil || d.After == nil {
				continue
			}
			for j, s := range newList {
				if s.EmployeeID == d.Before.EmployeeID && s.Date == d.Before.Date &&
					s.StartTime == d.Before.StartTime && s.EndTime == d.Before.EndTime {
					newList[j] = d.After.Clone()
					updated = append(updated, &model.ShiftUpdatePair{Before: d.Before, After: newList[j]})
					break
				}
			}
		case model.DeltaAdd:
			if d.After == nil {
				continue
			}
			sh := d.After.Clone()
			newList = append(newList, sh)
			added = append(added, sh)
		case model.DeltaRemove:
			if d.Before == nil {
				continue
			}
			for j, s := range newList {
				if s.EmployeeID == d.Before.EmployeeID && s.Date == d.Before.Date &&
					s.StartTime == d.Before.StartTime && s.EndTime == d.Before.EndTime {
					removed = append(removed, s)
					newList = append(newList[:j], newList[j+1:]...)
					break
				}
			}
		}
	}
	return newList, added, removed, updated
}
