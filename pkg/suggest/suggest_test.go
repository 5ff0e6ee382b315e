package suggest

import (
	"testing"

	"github.com/banci/banci/pkg/model"
)

func shift(emp int64, date string, slot model.SlotID) *model.Shift {
	start, end, _ := model.SlotTimes(slot)
	return &model.Shift{
		EmployeeID: emp,
		Date:       date,
		StartTime:  start,
		EndTime:    end,
	}
}

func roster(n int) model.Directory {
	var dir model.Directory
	for i := 1; i <= n; i++ {
		dir = append(dir, &model.Employee{
			ID:         int64(i),
			Name:       "従業員",
			Role:       model.RoleGeneralStaff,
			SkillLevel: 3,
		})
	}
	return dir
}

func candidateIDs(cands []Candidate) []int64 {
	out := make([]int64, len(cands))
	for i, c := range cands {
		out[i] = c.EmployeeID
	}
	return out
}

func containsID(cands []Candidate, id int64) bool {
	for _, c := range cands {
		if c.EmployeeID == id {
			return true
		}
	}
	return false
}

func TestReplacementsExclusions(t *testing.T) {
	// 2024-01-10(水) の早番の替补を探す
	target := shift(1, "2024-01-10", model.SlotEarly)

	tests := []struct {
		name     string
		schedule []*model.Shift
		excluded int64
	}{
		{
			name:     "同一时段已排班",
			schedule: []*model.Shift{shift(2, "2024-01-10", model.SlotEarly)},
			excluded: 2,
		},
		{
			name:     "同日其他时段",
			schedule: []*model.Shift{shift(2, "2024-01-10", model.SlotLate)},
			excluded: 2,
		},
		{
			name:     "前夜遅番から当日深夜は対象外のため同日早番のみ除外",
			schedule: []*model.Shift{shift(2, "2024-01-10", model.SlotNight)},
			excluded: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cands := Replacements(target, tt.schedule, roster(5), []int64{1}, DefaultMaxCandidates)
			if containsID(cands, tt.excluded) {
				t.Errorf("员工 %d 应被排除: %v", tt.excluded, candidateIDs(cands))
			}
			if containsID(cands, 1) {
				t.Error("请求者本人应被排除")
			}
		})
	}
}

func TestReplacementsCrossMidnight(t *testing.T) {
	// 深夜枠(00:00)の替补：前日遅番(16:00-00:00)の従業員は隣接勤務として除外
	target := shift(1, "2024-01-10", model.SlotNight)
	schedule := []*model.Shift{shift(2, "2024-01-09", model.SlotLate)}

	cands := Replacements(target, schedule, roster(5), []int64{1}, DefaultMaxCandidates)
	if containsID(cands, 2) {
		t.Errorf("前夜遅番の従業員が除外されていない: %v", candidateIDs(cands))
	}

	// 遅番(16:00)の替补：翌日深夜勤務の従業員は除外
	target = shift(1, "2024-01-10", model.SlotLate)
	schedule = []*model.Shift{shift(3, "2024-01-11", model.SlotNight)}

	cands = Replacements(target, schedule, roster(5), []int64{1}, DefaultMaxCandidates)
	if containsID(cands, 3) {
		t.Errorf("翌日深夜勤務の従業員が除外されていない: %v", candidateIDs(cands))
	}
}

func TestReplacementsRanking(t *testing.T) {
	// 員工 3 は週 2 回、員工 2 は週 1 回、員工 4 は 0 回
	target := shift(1, "2024-01-10", model.SlotEarly)
	schedule := []*model.Shift{
		shift(3, "2024-01-08", model.SlotEarly),
		shift(3, "2024-01-09", model.SlotEarly),
		shift(2, "2024-01-08", model.SlotLate),
	}

	cands := Replacements(target, schedule, roster(4), []int64{1}, DefaultMaxCandidates)
	want := []int64{4, 2, 3}
	got := candidateIDs(cands)
	if len(got) != len(want) {
		t.Fatalf("候选数 = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("排序 = %v, want %v", got, want)
		}
	}

	if cands[0].Reasons[0] != "week_shifts=0" {
		t.Errorf("Reasons = %v", cands[0].Reasons)
	}
	if cands[2].Score != 2 {
		t.Errorf("Score = %v, want 2", cands[2].Score)
	}
}

func TestReplacementsTieBreakByID(t *testing.T) {
	target := shift(1, "2024-01-10", model.SlotEarly)

	cands := Replacements(target, nil, roster(5), []int64{1}, DefaultMaxCandidates)
	got := candidateIDs(cands)
	want := []int64{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("同分应按 ID 升序: %v", got)
		}
	}
}

func TestReplacementsLimit(t *testing.T) {
	target := shift(1, "2024-01-10", model.SlotEarly)
	if cands := Replacements(target, nil, roster(10), nil, DefaultMaxCandidates); len(cands) != 3 {
		t.Errorf("候选数 = %d, want 3", len(cands))
	}
}

func TestFindReplacement(t *testing.T) {
	target := shift(1, "2024-01-10", model.SlotEarly)
	schedule := []*model.Shift{
		shift(1, "2024-01-10", model.SlotEarly),
		shift(2, "2024-01-10", model.SlotEarly),
	}

	id, ok := FindReplacement(target, schedule, roster(3), []int64{1})
	if !ok || id != 3 {
		t.Errorf("FindReplacement = (%d, %v), want (3, true)", id, ok)
	}

	// 全員が埋まっていれば見つからない
	schedule = append(schedule, shift(3, "2024-01-10", model.SlotEarly))
	if _, ok := FindReplacement(target, schedule, roster(3), []int64{1}); ok {
		t.Error("替补不存在时应返回 false")
	}
}
