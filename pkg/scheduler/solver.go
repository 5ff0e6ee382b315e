// Package scheduler 提供基于约束求解的排班生成
package scheduler

import (
	"context"
	"sort"
	"time"

	"github.com/banci/banci/pkg/logger"
	"github.com/banci/banci/pkg/model"
)

// Status 求解状态
type Status string

const (
	StatusOptimal    Status = "OPTIMAL"    // 目標値の最小性を証明済み
	StatusFeasible   Status = "FEASIBLE"   // 時間切れだが実行可能解あり
	StatusInfeasible Status = "INFEASIBLE" // 硬约束を満たす割当が存在しない
)

// IsSuccess 检查状态是否为成功（OPTIMAL/FEASIBLE 均视为成功）
func (s Status) IsSuccess() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// Result 求解结果
type Result struct {
	Status    Status        `json:"status"`
	Solution  *Solution     `json:"-"`
	Objective int           `json:"objective"` // 最大個人シフト数
	Duration  time.Duration `json:"duration"`
	Nodes     int           `json:"nodes"`
}

// DefaultTimeout 默认求解时间上限
const DefaultTimeout = 30 * time.Second

// Solver 有界时间分支定界求解器
// 目標上界を TotalCap から下へ収縮させ、各上界について
// (日付,スロット) 順の部分集合探索で実行可能性を判定する。
// タイムアウトによる中断は正常系（FEASIBLE）であり失敗ではない。
type Solver struct {
	timeout time.Duration
	log     *logger.SchedulerLogger
}

// New 创建求解器
func New(timeout time.Duration) *Solver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Solver{
		timeout: timeout,
		log:     logger.NewSchedulerLogger(),
	}
}

// Solve 求解模型
// ソルバのタイムアウトが唯一のキャンセル点。ctx の期限も同様に尊重する。
func (s *Solver) Solve(ctx context.Context, m *Model) *Result {
	start := time.Now()
	deadline := start.Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	s.log.StartGenerate(m.Calendar.StartDate, m.Calendar.EndDate, len(m.Employees))

	result := &Result{Status: StatusInfeasible}

	var best *Solution
	proved := false
	bound := m.Policy.TotalCap
	lower := m.ObjectiveLowerBound()

	for {
		srch := newSearch(m, bound, deadline, ctx)
		sol, found := srch.run()
		result.Nodes += srch.nodes
		s.log.SearchBound(bound, found)

		if found {
			best = sol
			obj := sol.MaxTotal()
			if obj <= lower {
				proved = true
				break
			}
			// 目標上界を収縮して再探索
			bound = obj - 1
			continue
		}

		if !srch.timedOut {
			// 探索空間を使い切った：この上界では充足不能
			proved = best != nil
		}
		break
	}

	result.Duration = time.Since(start)

	if best == nil {
		// 暫定解のないままタイムアウトした場合も INFEASIBLE を返す。
		// 厳密には充足不能の証明ではないが、三値のステータス契約上
		// 「時間内に解なし」はここに畳み込む。
		result.Status = StatusInfeasible
		s.log.GenerateComplete(string(result.Status), 0, result.Duration)
		return result
	}

	result.Solution = best
	result.Objective = best.MaxTotal()
	if proved {
		result.Status = StatusOptimal
	} else {
		result.Status = StatusFeasible
	}
	assigned := 0
	for _, a := range best.Assigned {
		if a {
			assigned++
		}
	}
	s.log.GenerateComplete(string(result.Status), assigned, result.Duration)
	return result
}

type empDay struct {
	emp  int64
	date string
}

type empSlot struct {
	emp  int64
	slot model.SlotID
}

// search 固定目標上界での深さ優先探索
type search struct {
	model    *Model
	bound    int
	deadline time.Time
	ctx      context.Context

	assigned []bool
	dayBusy  map[empDay]bool
	typeUsed map[empSlot]int
	totals   map[int64]int

	nodes    int
	timedOut bool
}

func newSearch(m *Model, bound int, deadline time.Time, ctx context.Context) *search {
	return &search{
		model:    m,
		bound:    bound,
		deadline: deadline,
		ctx:      ctx,
		assigned: make([]bool, len(m.Vars)),
		dayBusy:  make(map[empDay]bool),
		typeUsed: make(map[empSlot]int),
		totals:   make(map[int64]int),
	}
}

func (s *search) run() (*Solution, bool) {
	if s.fill(0) {
		sol := NewSolution(s.model)
		copy(sol.Assigned, s.assigned)
		return sol, true
	}
	return nil, false
}

// expired 检查是否超时（ノード数を刻んで時刻参照を間引く）
func (s *search) expired() bool {
	if s.timedOut {
		return true
	}
	s.nodes++
	if s.nodes%1024 == 0 {
		if time.Now().After(s.deadline) || s.ctx.Err() != nil {
			s.timedOut = true
		}
	}
	return s.timedOut
}

// fill 依次满足每个(日付,スロット)要件
func (s *search) fill(reqIdx int) bool {
	if s.expired() {
		return false
	}
	if reqIdx == len(s.model.Requirements) {
		return true
	}

	req := &s.model.Requirements[reqIdx]
	cands := s.candidates(req)
	if len(cands) < req.CoverageMin {
		return false
	}

	return s.pick(reqIdx, req, cands, 0, nil)
}

// candidates 要件に割当可能な従業員（負荷昇順）
func (s *search) candidates(req *SlotRequirement) []*model.Employee {
	var out []*model.Employee
	for _, e := range s.model.Employees {
		if s.dayBusy[empDay{e.ID, req.Date}] {
			continue // 同日は1スロットまで
		}
		if s.typeUsed[empSlot{e.ID, req.Slot}] >= s.model.Policy.PerTypeCap {
			continue
		}
		if s.totals[e.ID] >= s.bound {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := s.totals[out[i].ID], s.totals[out[j].ID]
		if ti != tj {
			return ti < tj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// pick 从候选中枚举满足要件的子集
// 小さい部分集合から試す（割当総数が少ないほど min-max 目標に有利）。
func (s *search) pick(reqIdx int, req *SlotRequirement, cands []*model.Employee, from int, chosen []*model.Employee) bool {
	if s.expired() {
		return false
	}

	if len(chosen) >= req.CoverageMin && s.satisfies(req, chosen) {
		if s.commit(reqIdx, req, chosen) {
			return true
		}
	}

	if len(chosen) >= req.CoverageMax {
		return false
	}
	// 残り候補で最小人数に届かないなら枝刈り
	if len(chosen)+(len(cands)-from) < req.CoverageMin {
		return false
	}

	for i := from; i < len(cands); i++ {
		if s.pick(reqIdx, req, cands, i+1, append(chosen, cands[i])) {
			return true
		}
		if s.timedOut {
			return false
		}
	}
	return false
}

// satisfies 检查子集是否满足管理职与技能约束
func (s *search) satisfies(req *SlotRequirement, chosen []*model.Employee) bool {
	managers := 0
	skill := 0
	for _, e := range chosen {
		if e.IsManager() {
			managers++
		}
		skill += e.SkillLevel
	}
	if req.ManagerMin > 0 || req.ManagerMax > 0 {
		if managers < req.ManagerMin || managers > req.ManagerMax {
			return false
		}
	}
	return skill >= req.SkillFloor
}

// commit 提交子集并递归到下一要件，失败时回滚
func (s *search) commit(reqIdx int, req *SlotRequirement, chosen []*model.Employee) bool {
	for _, e := range chosen {
		s.assigned[s.model.VarIndex(e.ID, req.Date, req.Slot)] = true
		s.dayBusy[empDay{e.ID, req.Date}] = true
		s.typeUsed[empSlot{e.ID, req.Slot}]++
		s.totals[e.ID]++
	}

	if s.fill(reqIdx + 1) {
		return true
	}

	for _, e := range chosen {
		s.assigned[s.model.VarIndex(e.ID, req.Date, req.Slot)] = false
		delete(s.dayBusy, empDay{e.ID, req.Date})
		s.typeUsed[empSlot{e.ID, req.Slot}]--
		s.totals[e.ID]--
	}
	return false
}
