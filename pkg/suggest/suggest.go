// Package suggest 为空缺班次推荐替补人选
// 候補は硬い除外条件（同一スロット勤務、同日勤務、前後隣接スロット勤務）を
// 通過した従業員を週内シフト数の昇順で並べたもの。
package suggest

import (
	"fmt"
	"sort"

	"github.com/banci/banci/pkg/model"
)

// DefaultMaxCandidates 默认返回的候选数量
const DefaultMaxCandidates = 3

// Candidate 替补候选
type Candidate struct {
	EmployeeID int64    `json:"employee_id"`
	Name       string   `json:"name"`
	Score      float64  `json:"score"`
	Reasons    []string `json:"reasons"`
}

// 時間軸上の隣接関係: 00:00 → 08:00 → 16:00 → 翌日 00:00
var (
	prevSameDay = map[string]string{"08:00": "00:00", "16:00": "08:00"}
	nextSameDay = map[string]string{"00:00": "08:00", "08:00": "16:00"}
	prevDaySlot = map[string]string{"00:00": "16:00"}
	nextDaySlot = map[string]string{"16:00": "00:00"}
)

// Replacements 返回按周负荷排序的替补候选
// スコアは対象日を含む週（月曜起点）のシフト数。同点は ID 昇順。
func Replacements(target *model.Shift, schedule []*model.Shift, employees model.Directory, exclude []int64, max int) []Candidate {
	if max <= 0 {
		max = DefaultMaxCandidates
	}

	excluded := make(map[int64]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	busy := make(map[int64]bool)
	sameDay := make(map[int64]map[string]bool)
	prevDay := make(map[int64]map[string]bool)
	nextDay := make(map[int64]map[string]bool)

	prev := model.PrevDate(target.Date)
	next := model.NextDate(target.Date)

	mark := func(m map[int64]map[string]bool, emp int64, start string) {
		if m[emp] == nil {
			m[emp] = make(map[string]bool)
		}
		m[emp][start] = true
	}

	for _, s := range schedule {
		switch s.Date {
		case target.Date:
			if s.StartTime == target.StartTime && s.EndTime == target.EndTime {
				busy[s.EmployeeID] = true
			}
			mark(sameDay, s.EmployeeID, s.StartTime)
		case prev:
			mark(prevDay, s.EmployeeID, s.StartTime)
		case next:
			mark(nextDay, s.EmployeeID, s.StartTime)
		}
	}

	violates := func(emp int64) bool {
		// 同日に何らかの勤務があれば二重予約として除外
		if len(sameDay[emp]) > 0 {
			return true
		}
		if t, ok := prevSameDay[target.StartTime]; ok && sameDay[emp][t] {
			return true
		}
		if t, ok := nextSameDay[target.StartTime]; ok && sameDay[emp][t] {
			return true
		}
		if t, ok := prevDaySlot[target.StartTime]; ok && prevDay[emp][t] {
			return true
		}
		if t, ok := nextDaySlot[target.StartTime]; ok && nextDay[emp][t] {
			return true
		}
		return false
	}

	var candidates []Candidate
	for _, e := range employees {
		if excluded[e.ID] || busy[e.ID] || violates(e.ID) {
			continue
		}
		w := weeklyCount(schedule, e.ID, target.Date)
		candidates = append(candidates, Candidate{
			EmployeeID: e.ID,
			Name:       e.Name,
			Score:      float64(w),
			Reasons:    []string{fmt.Sprintf("week_shifts=%d", w)},
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score < candidates[j].Score
		}
		return candidates[i].EmployeeID < candidates[j].EmployeeID
	})

	if len(candidates) > max {
		candidates = candidates[:max]
	}
	return candidates
}

// FindReplacement 返回第一个在目标时段空闲的员工
// 調整ルールが即時の穴埋めに使う。候補の序列付けはしない。
func FindReplacement(target *model.Shift, schedule []*model.Shift, employees model.Directory, exclude []int64) (int64, bool) {
	excluded := make(map[int64]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	for _, e := range employees {
		if excluded[e.ID] {
			continue
		}
		conflict := false
		for _, s := range schedule {
			if s.EmployeeID == e.ID && s.Date == target.Date &&
				s.StartTime == target.StartTime && s.EndTime == target.EndTime {
				conflict = true
				break
			}
		}
		if !conflict {
			return e.ID, true
		}
	}
	return 0, false
}

// weeklyCount 对象日を含む月曜起点の週のシフト数
func weeklyCount(schedule []*model.Shift, emp int64, date string) int {
	start, end, err := model.WeekRange(date)
	if err != nil {
		return 0
	}
	n := 0
	for _, s := range schedule {
		if s.EmployeeID == emp && s.Date >= start && s.Date <= end {
			n++
		}
	}
	return n
}
