package scheduler

import (
	"testing"

	apperrors "github.com/banci/banci/pkg/errors"
)

func TestNewCalendar(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		wantLen int
		wantErr bool
	}{
		{"单日", "2024-01-01", "2024-01-01", 1, false},
		{"一周", "2024-01-01", "2024-01-07", 7, false},
		{"跨月", "2024-01-30", "2024-02-02", 4, false},
		{"逆区间为空", "2024-01-10", "2024-01-01", 0, false},
		{"开始日格式错误", "2024/01/01", "2024-01-07", 0, true},
		{"结束日格式错误", "2024-01-01", "Jan 7", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal, err := NewCalendar(tt.start, tt.end, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if apperrors.GetCode(err) != apperrors.CodeInvalidInput {
					t.Errorf("error code = %s, want %s", apperrors.GetCode(err), apperrors.CodeInvalidInput)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewCalendar: %v", err)
			}
			if len(cal.Dates) != tt.wantLen {
				t.Errorf("len(Dates) = %d, want %d", len(cal.Dates), tt.wantLen)
			}
			// 休みスロットは除外される
			for _, slot := range cal.Slots {
				if slot.IsOff() {
					t.Error("日历不应包含休班时段")
				}
			}
		})
	}
}
