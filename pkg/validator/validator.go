// Package validator 对已生成的排班进行事后校验
// ソルバの硬约束とは独立に、運用上望ましくない状態を警告として報告する。
// 警告は生成をブロックしない。
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/banci/banci/pkg/model"
)

// WarningType 警告类型
type WarningType string

const (
	WarningConsecutiveTimeslots WarningType = "consecutive_timeslots" // 連続時間枠勤務
	WarningInsufficientStaff    WarningType = "insufficient_staff"    // 人員不足
	WarningSkillRequirement     WarningType = "skill_requirement"     // 技能不足
	WarningInfeasible           WarningType = "no_feasible_solution"  // 実行可能解なし
)

// Warning 校验警告
// 同種の問題は 1 件の警告に集約される。
type Warning struct {
	Type              WarningType `json:"type"`
	Message           string      `json:"message"`
	AffectedEmployees []int64     `json:"affected_employees,omitempty"`
	AffectedDates     []string    `json:"affected_dates,omitempty"`
}

// Config 校验阈值
type Config struct {
	MinStaffPerType     int // 各時間帯の最低人数
	SkillThreshold      int // 日毎に最低 1 名が満たすべき技能等級
	MaxConsecutiveSlots int // 許容される連続時間枠数
}

// DefaultConfig 默认阈值
func DefaultConfig() Config {
	return Config{
		MinStaffPerType:     2,
		SkillThreshold:      3,
		MaxConsecutiveSlots: 2,
	}
}

// Validator 排班校验器
type Validator struct {
	cfg Config
}

// New 创建校验器
func New(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

// Validate 执行全部校验并返回警告列表
func (v *Validator) Validate(shifts []*model.Shift, employees model.Directory) []Warning {
	var warnings []Warning

	if w := v.checkConsecutive(shifts, employees); w != nil {
		warnings = append(warnings, *w)
	}
	if w := v.checkStaffing(shifts); w != nil {
		warnings = append(warnings, *w)
	}
	if w := v.checkSkill(shifts, employees); w != nil {
		warnings = append(warnings, *w)
	}
	return warnings
}

// adjacentSlots 判断两个班次在时间轴上是否紧邻
// 深夜(00:00)→早番(08:00)、早番→遅番(16:00) は同日、
// 遅番→翌日深夜、深夜→翌日早番は日跨ぎで連続とみなす。
func adjacentSlots(prev, cur *model.Shift) bool {
	sameDay := cur.Date == prev.Date
	nextDay := cur.Date == model.NextDate(prev.Date)

	switch {
	case sameDay && prev.StartTime == "00:00" && cur.StartTime == "08:00":
		return true
	case sameDay && prev.StartTime == "08:00" && cur.StartTime == "16:00":
		return true
	case nextDay && prev.StartTime == "16:00" && cur.StartTime == "00:00":
		return true
	case nextDay && prev.StartTime == "00:00" && cur.StartTime == "08:00":
		return true
	}
	return false
}

// checkConsecutive 检查连续时间枠勤務
func (v *Validator) checkConsecutive(shifts []*model.Shift, employees model.Directory) *Warning {
	byEmployee := make(map[int64][]*model.Shift)
	var order []int64
	for _, sh := range shifts {
		if _, ok := byEmployee[sh.EmployeeID]; !ok {
			order = append(order, sh.EmployeeID)
		}
		byEmployee[sh.EmployeeID] = append(byEmployee[sh.EmployeeID], sh)
	}

	var names []string
	var affected []int64
	periodsByEmp := make(map[int64][]string)

	for _, empID := range order {
		empShifts := byEmployee[empID]
		sort.Slice(empShifts, func(i, j int) bool {
			if empShifts[i].Date != empShifts[j].Date {
				return empShifts[i].Date < empShifts[j].Date
			}
			return empShifts[i].StartTime < empShifts[j].StartTime
		})

		run := 1
		warned := false
		periods := []string{periodKey(empShifts[0])}

		for i := 1; i < len(empShifts); i++ {
			if adjacentSlots(empShifts[i-1], empShifts[i]) {
				run++
				periods = append(periods, periodKey(empShifts[i]))
				if run > v.cfg.MaxConsecutiveSlots && !warned {
					name := displayName(employees, empID)
					names = append(names, fmt.Sprintf("%s(ID：%d番)", name, empID))
					if _, seen := periodsByEmp[empID]; !seen {
						affected = append(affected, empID)
					}
					periodsByEmp[empID] = append([]string(nil), periods...)
					warned = true
				}
			} else {
				run = 1
				periods = []string{periodKey(empShifts[i])}
				warned = false
			}
		}
	}

	if len(names) == 0 {
		return nil
	}

	var dates []string
	seen := make(map[string]bool)
	for _, empID := range affected {
		for _, p := range periodsByEmp[empID] {
			if !seen[p] {
				seen[p] = true
				dates = append(dates, p)
			}
		}
	}

	return &Warning{
		Type:              WarningConsecutiveTimeslots,
		Message:           fmt.Sprintf("%sが連続する時間枠でシフトに入っています", strings.Join(names, "、")),
		AffectedEmployees: affected,
		AffectedDates:     dates,
	}
}

func periodKey(sh *model.Shift) string {
	return sh.Date + "_" + sh.StartTime
}

func displayName(employees model.Directory, empID int64) string {
	if e := employees.ByID(empID); e != nil {
		return e.Name
	}
	return fmt.Sprintf("従業員ID%d", empID)
}

// checkStaffing 检查各时段人数是否达标
func (v *Validator) checkStaffing(shifts []*model.Shift) *Warning {
	byDate, dateOrder := groupByDate(shifts)

	var affected []string
	for _, date := range dateOrder {
		counts := make(map[string]int)
		for _, sh := range byDate[date] {
			counts[sh.StartTime+"-"+sh.EndTime]++
		}
		for _, n := range counts {
			if n < v.cfg.MinStaffPerType {
				affected = append(affected, date)
				break
			}
		}
	}

	if len(affected) == 0 {
		return nil
	}
	return &Warning{
		Type:          WarningInsufficientStaff,
		Message:       fmt.Sprintf("%sにおいて人員が不足しています", strings.Join(affected, "、")),
		AffectedDates: affected,
	}
}

// checkSkill 检查每日最高技能等级
func (v *Validator) checkSkill(shifts []*model.Shift, employees model.Directory) *Warning {
	byDate, dateOrder := groupByDate(shifts)

	var affected []string
	for _, date := range dateOrder {
		maxSkill := 1
		for _, sh := range byDate[date] {
			if s := employees.SkillOf(sh.EmployeeID); s > maxSkill {
				maxSkill = s
			}
		}
		if maxSkill < v.cfg.SkillThreshold {
			affected = append(affected, date)
		}
	}

	if len(affected) == 0 {
		return nil
	}
	return &Warning{
		Type:          WarningSkillRequirement,
		Message:       fmt.Sprintf("%sにおいてスキルレベル%d以上の従業員が不足しています", strings.Join(affected, "、"), v.cfg.SkillThreshold),
		AffectedDates: affected,
	}
}

func groupByDate(shifts []*model.Shift) (map[string][]*model.Shift, []string) {
	byDate := make(map[string][]*model.Shift)
	var order []string
	for _, sh := range shifts {
		if _, ok := byDate[sh.Date]; !ok {
			order = append(order, sh.Date)
		}
		byDate[sh.Date] = append(byDate[sh.Date], sh)
	}
	return byDate, order
}
