// Package stats 提供排班统计分析功能
package stats

import (
	"math"
	"sort"

	"github.com/banci/banci/pkg/model"
)

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	ShiftGini      float64        `json:"shift_gini"`       // 班次分配基尼系数 (0=完全公平)
	ShiftVariance  float64        `json:"shift_variance"`   // 班次数方差
	ShiftStdDev    float64        `json:"shift_std_dev"`    // 班次数标准差
	AvgShifts      float64        `json:"avg_shifts"`       // 人均班次数
	MaxShifts      int            `json:"max_shifts"`       // 最大班次数
	MinShifts      int            `json:"min_shifts"`       // 最小班次数
	NightShiftGini float64        `json:"night_shift_gini"` // 深夜班分配基尼系数
	WeekendGini    float64        `json:"weekend_gini"`     // 周末班分配基尼系数
	EmployeeStats  []EmployeeStat `json:"employee_stats"`
	FairnessScore  float64        `json:"fairness_score"` // 综合公平性评分 (0-100)
}

// EmployeeStat 员工统计
type EmployeeStat struct {
	EmployeeID    int64   `json:"employee_id"`
	EmployeeName  string  `json:"employee_name"`
	ShiftCount    int     `json:"shift_count"`
	NightShifts   int     `json:"night_shifts"`
	WeekendShifts int     `json:"weekend_shifts"`
	Deviation     float64 `json:"deviation"` // 与平均值的偏差百分比
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct{}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{}
}

// Analyze 分析排班公平性
// 対象は生成対象の従業員全員。シフトが 0 件の従業員も統計に含める。
func (f *FairnessAnalyzer) Analyze(shifts []*model.Shift, employees model.Directory) *FairnessMetrics {
	if len(employees) == 0 {
		return &FairnessMetrics{FairnessScore: 100}
	}

	stats := make([]EmployeeStat, 0, len(employees))
	for _, e := range employees {
		stats = append(stats, EmployeeStat{EmployeeID: e.ID, EmployeeName: e.Name})
	}
	index := make(map[int64]int, len(employees))
	for i, s := range stats {
		index[s.EmployeeID] = i
	}

	for _, sh := range shifts {
		i, ok := index[sh.EmployeeID]
		if !ok {
			continue
		}
		stats[i].ShiftCount++
		if slot, ok := sh.Slot(); ok && slot == model.SlotNight {
			stats[i].NightShifts++
		}
		if isWeekend(sh.Date) {
			stats[i].WeekendShifts++
		}
	}

	counts := make([]float64, len(stats))
	nights := make([]float64, len(stats))
	weekends := make([]float64, len(stats))
	maxShifts, minShifts := 0, math.MaxInt32
	for i, s := range stats {
		counts[i] = float64(s.ShiftCount)
		nights[i] = float64(s.NightShifts)
		weekends[i] = float64(s.WeekendShifts)
		if s.ShiftCount > maxShifts {
			maxShifts = s.ShiftCount
		}
		if s.ShiftCount < minShifts {
			minShifts = s.ShiftCount
		}
	}

	avg := mean(counts)
	variance := varianceOf(counts, avg)
	stdDev := math.Sqrt(variance)

	for i := range stats {
		if avg > 0 {
			stats[i].Deviation = (float64(stats[i].ShiftCount) - avg) / avg * 100
		}
	}

	shiftGini := gini(counts)
	nightGini := gini(nights)
	weekendGini := gini(weekends)

	return &FairnessMetrics{
		ShiftGini:      shiftGini,
		ShiftVariance:  variance,
		ShiftStdDev:    stdDev,
		AvgShifts:      avg,
		MaxShifts:      maxShifts,
		MinShifts:      minShifts,
		NightShiftGini: nightGini,
		WeekendGini:    weekendGini,
		EmployeeStats:  stats,
		FairnessScore:  score(shiftGini, nightGini, weekendGini),
	}
}

func isWeekend(date string) bool {
	d, err := model.ParseDate(date)
	if err != nil {
		return false
	}
	wd := d.Weekday()
	return wd == 0 || wd == 6
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func varianceOf(values []float64, avg float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - avg
		sum += d * d
	}
	return sum / float64(len(values))
}

// gini 基尼系数
// 全員 0 件のときは完全公平として 0。
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	total := 0.0
	weighted := 0.0
	for i, v := range sorted {
		total += v
		weighted += float64(i+1) * v
	}
	if total == 0 {
		return 0
	}
	return (2*weighted)/(float64(n)*total) - float64(n+1)/float64(n)
}

// score 基尼系数の加重平均から 0-100 の評点を出す
func score(shiftGini, nightGini, weekendGini float64) float64 {
	weighted := shiftGini*0.5 + nightGini*0.3 + weekendGini*0.2
	s := (1 - weighted) * 100
	if s < 0 {
		return 0
	}
	return s
}
