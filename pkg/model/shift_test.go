package model

import (
	"testing"
)

func TestSlotTimes(t *testing.T) {
	tests := []struct {
		slot      SlotID
		wantStart string
		wantEnd   string
		wantOK    bool
	}{
		{SlotEarly, "08:00", "16:00", true},
		{SlotLate, "16:00", "00:00", true},
		{SlotNight, "00:00", "08:00", true},
		{SlotOff, "", "", false},
		{"brunch", "", "", false},
	}

	for _, tt := range tests {
		start, end, ok := SlotTimes(tt.slot)
		if start != tt.wantStart || end != tt.wantEnd || ok != tt.wantOK {
			t.Errorf("SlotTimes(%s) = %s, %s, %v", tt.slot, start, end, ok)
		}
	}
}

func TestSlotByStart(t *testing.T) {
	if id, ok := SlotByStart("16:00"); !ok || id != SlotLate {
		t.Errorf("SlotByStart(16:00) = %s, %v", id, ok)
	}
	if _, ok := SlotByStart("12:34"); ok {
		t.Error("未知の開始時刻でスロットが返された")
	}
}

func TestShiftSlot(t *testing.T) {
	s := &Shift{Date: "2024-01-08", StartTime: "00:00", EndTime: "08:00"}
	if id, ok := s.Slot(); !ok || id != SlotNight {
		t.Errorf("Slot() = %s, %v", id, ok)
	}

	odd := &Shift{Date: "2024-01-08", StartTime: "09:30", EndTime: "17:30"}
	if _, ok := odd.Slot(); ok {
		t.Error("スロット外の勤務時間でスロットが返された")
	}
}

func TestWeekRange(t *testing.T) {
	tests := []struct {
		date      string
		wantStart string
		wantEnd   string
	}{
		{"2024-01-08", "2024-01-08", "2024-01-14"}, // 月曜
		{"2024-01-10", "2024-01-08", "2024-01-14"}, // 水曜
		{"2024-01-14", "2024-01-08", "2024-01-14"}, // 日曜
		{"2024-01-01", "2024-01-01", "2024-01-07"},
	}

	for _, tt := range tests {
		start, end, err := WeekRange(tt.date)
		if err != nil {
			t.Errorf("WeekRange(%s): %v", tt.date, err)
			continue
		}
		if start != tt.wantStart || end != tt.wantEnd {
			t.Errorf("WeekRange(%s) = %s..%s, want %s..%s", tt.date, start, end, tt.wantStart, tt.wantEnd)
		}
	}

	if _, _, err := WeekRange("01-08-2024"); err == nil {
		t.Error("不正な日付でエラーが返らなかった")
	}
}

func TestNextPrevDate(t *testing.T) {
	if got := NextDate("2024-01-31"); got != "2024-02-01" {
		t.Errorf("NextDate = %s", got)
	}
	if got := PrevDate("2024-03-01"); got != "2024-02-29" { // 閏年
		t.Errorf("PrevDate = %s", got)
	}
}

func TestCloneShiftsIndependent(t *testing.T) {
	orig := []*Shift{{ID: 1, EmployeeID: 1, Date: "2024-01-08", StartTime: "08:00", EndTime: "16:00"}}
	cloned := CloneShifts(orig)
	cloned[0].EmployeeID = 99
	if orig[0].EmployeeID != 1 {
		t.Error("CloneShifts が元を共有している")
	}
}

func TestDirectoryMatchByName(t *testing.T) {
	dir := Directory{
		{ID: 1, Name: "田中太郎"},
		{ID: 2, Name: "田村次郎"},
		{ID: 3, Name: "佐藤花子"},
	}

	tests := []struct {
		name   string
		wantID int64
		wantOK bool
	}{
		{"田中太郎", 1, true}, // 完全一致
		{"佐藤", 3, true},     // 唯一の部分一致
		{"田", 0, false},      // 曖昧
		{"存在しない", 0, false},
	}

	for _, tt := range tests {
		id, ok := dir.MatchByName(tt.name)
		if ok != tt.wantOK || (ok && id != tt.wantID) {
			t.Errorf("MatchByName(%s) = %d, %v", tt.name, id, ok)
		}
	}
}

func TestDirectorySkillOf(t *testing.T) {
	dir := Directory{{ID: 1, Name: "田中", SkillLevel: 5}}
	if got := dir.SkillOf(1); got != 5 {
		t.Errorf("SkillOf(1) = %d", got)
	}
	// 不明な従業員は既定値 1
	if got := dir.SkillOf(99); got != 1 {
		t.Errorf("SkillOf(99) = %d", got)
	}
}
