// Package scheduler 提供基于约束求解的排班生成
package scheduler

import (
	"math"

	"github.com/banci/banci/pkg/model"
)

// Policy 排班策略参数
// 運用上のデフォルト値であり、业务规则としての根拠はない（設定で上書き可能）。
type Policy struct {
	CoverageMin int `json:"coverage_min"` // 各(日付,スロット)の最小人数
	CoverageMax int `json:"coverage_max"` // 各(日付,スロット)の最大人数
	ManagerMin  int `json:"manager_min"`  // 管理職の最小人数（管理職が1人もいなければ非適用）
	ManagerMax  int `json:"manager_max"`  // 管理職の最大人数
	SkillFloor  int `json:"skill_floor"`  // 技能合計の下限
	PerTypeCap  int `json:"per_type_cap"` // 同一スロット種別の上限（期間全体）
	TotalCap    int `json:"total_cap"`    // 総シフト数の上限（期間全体）
}

// DefaultPolicy 返回默认策略
func DefaultPolicy() Policy {
	return Policy{
		CoverageMin: 1,
		CoverageMax: 3,
		ManagerMin:  1,
		ManagerMax:  2,
		SkillFloor:  10,
		PerTypeCap:  3,
		TotalCap:    10,
	}
}

// Variable 布尔决策变量 (employee, date, slot) → assigned
type Variable struct {
	Index      int          `json:"index"`
	EmployeeID int64        `json:"employee_id"`
	Date       string       `json:"date"`
	Slot       model.SlotID `json:"slot"`
}

// SlotRequirement 某(日付,スロット)的硬约束集合
type SlotRequirement struct {
	Date        string       `json:"date"`
	Slot        model.SlotID `json:"slot"`
	CoverageMin int          `json:"coverage_min"`
	CoverageMax int          `json:"coverage_max"`
	ManagerMin  int          `json:"manager_min"` // 0 の場合は管理職制約なし
	ManagerMax  int          `json:"manager_max"`
	SkillFloor  int          `json:"skill_floor"`
}

type varKey struct {
	emp  int64
	date string
	slot model.SlotID
}

// Model 排班决策模型
// 変数表・スロット要件・従業員上限・min-max 公平性目標を持つ。
// 実行可能性の修復は行わず、充足不能はソルバがそのまま返す。
type Model struct {
	Calendar  *Calendar       `json:"calendar"`
	Employees model.Directory `json:"employees"`
	Policy    Policy          `json:"policy"`

	Vars         []Variable        `json:"vars"`
	Requirements []SlotRequirement `json:"requirements"`

	varIndex   map[varKey]int
	hasManager bool
}

// Build 构建排班模型
// 硬约束：
//  1. カバレッジ (日付,スロット) ごとに [CoverageMin, CoverageMax]
//  2. 同日の回転距離1・2のスロット対は同時に1つまで（実質1日1スロット）
//  3. 管理職 [ManagerMin, ManagerMax]（管理職が割当可能な場合のみ）
//  4. 技能合計 ≥ SkillFloor
//  5. 同一スロット種別 ≤ PerTypeCap
//  6. 総シフト数 ≤ TotalCap
//
// 目標：全従業員の総シフト数の最大値を最小化する（min-max 公平性）。
func Build(cal *Calendar, employees model.Directory, policy Policy) *Model {
	m := &Model{
		Calendar:  cal,
		Employees: employees,
		Policy:    policy,
		varIndex:  make(map[varKey]int),
	}

	for _, e := range employees {
		if e.IsManager() {
			m.hasManager = true
			break
		}
	}

	for _, e := range employees {
		for _, d := range cal.Dates {
			for _, s := range cal.Slots {
				v := Variable{
					Index:      len(m.Vars),
					EmployeeID: e.ID,
					Date:       d,
					Slot:       s.ID,
				}
				m.varIndex[varKey{e.ID, d, s.ID}] = v.Index
				m.Vars = append(m.Vars, v)
			}
		}
	}

	for _, d := range cal.Dates {
		for _, s := range cal.Slots {
			req := SlotRequirement{
				Date:        d,
				Slot:        s.ID,
				CoverageMin: policy.CoverageMin,
				CoverageMax: policy.CoverageMax,
				SkillFloor:  policy.SkillFloor,
			}
			if m.hasManager {
				req.ManagerMin = policy.ManagerMin
				req.ManagerMax = policy.ManagerMax
			}
			m.Requirements = append(m.Requirements, req)
		}
	}

	return m
}

// VarIndex 查找变量下标（不存在时返回 -1）
func (m *Model) VarIndex(emp int64, date string, slot model.SlotID) int {
	if i, ok := m.varIndex[varKey{emp, date, slot}]; ok {
		return i
	}
	return -1
}

// HasManagerConstraint 检查管理职约束是否生效
func (m *Model) HasManagerConstraint() bool {
	return m.hasManager
}

// ObjectiveLowerBound 目标值的理论下界
// 総需要（各スロットの最小人数の合計）を従業員数で均した切り上げ。
func (m *Model) ObjectiveLowerBound() int {
	if len(m.Employees) == 0 {
		return 0
	}
	demand := 0
	for _, req := range m.Requirements {
		demand += req.CoverageMin
	}
	return int(math.Ceil(float64(demand) / float64(len(m.Employees))))
}

// Solution 求解得到的变量赋值
type Solution struct {
	Assigned []bool `json:"assigned"` // Variable.Index で索引
	model    *Model
}

// NewSolution 创建空解
func NewSolution(m *Model) *Solution {
	return &Solution{
		Assigned: make([]bool, len(m.Vars)),
		model:    m,
	}
}

// Value 读取变量值
func (s *Solution) Value(emp int64, date string, slot model.SlotID) bool {
	i := s.model.VarIndex(emp, date, slot)
	return i >= 0 && s.Assigned[i]
}

// TotalOf 员工的总班次数
func (s *Solution) TotalOf(emp int64) int {
	total := 0
	for _, v := range s.model.Vars {
		if v.EmployeeID == emp && s.Assigned[v.Index] {
			total++
		}
	}
	return total
}

// MaxTotal 全员工总班次数的最大值（目标函数值）
func (s *Solution) MaxTotal() int {
	max := 0
	for _, e := range s.model.Employees {
		if t := s.TotalOf(e.ID); t > max {
			max = t
		}
	}
	return max
}

// Clone 深拷贝解
func (s *Solution) Clone() *Solution {
	c := &Solution{
		Assigned: make([]bool, len(s.Assigned)),
		model:    s.model,
	}
	copy(c.Assigned, s.Assigned)
	return c
}
