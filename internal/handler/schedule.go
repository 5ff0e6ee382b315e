package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/banci/banci/internal/metrics"
	"github.com/banci/banci/internal/store"
	apperrors "github.com/banci/banci/pkg/errors"
	"github.com/banci/banci/pkg/model"
	"github.com/banci/banci/pkg/scheduler"
	"github.com/banci/banci/pkg/stats"
	"github.com/banci/banci/pkg/validator"
)

// GenerateRequest 排班生成请求
// Constraints / Slots 未指定なら設定値と既定3スロットを使う。
type GenerateRequest struct {
	StartDate      string            `json:"start_date"`
	EndDate        string            `json:"end_date"`
	EmployeeIDs    []int64           `json:"employee_ids"`
	Constraints    *scheduler.Policy `json:"constraints,omitempty"`
	Slots          []model.Slot      `json:"slots,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty"`
}

// hasOverrides 检查请求是否带有个别约束
// 上書きありの生成はキャッシュ対象外。
func (r *GenerateRequest) hasOverrides() bool {
	return r.Constraints != nil || len(r.Slots) > 0
}

// GenerateResponse 排班生成响应
// INFEASIBLE でも success は true のまま、警告で理由を伝える。
type GenerateResponse struct {
	Success         bool                   `json:"success"`
	Status          scheduler.Status       `json:"status"`
	Message         string                 `json:"message,omitempty"`
	ScheduleVersion int64                  `json:"schedule_version"`
	Shifts          []*model.Shift         `json:"shifts"`
	Warnings        []validator.Warning    `json:"warnings"`
	Messages        []string               `json:"messages"`
	Statistics      *stats.FairnessMetrics `json:"statistics,omitempty"`
	Objective       int                    `json:"objective"`
	Nodes           int                    `json:"nodes"`
	Duration        string                 `json:"duration"`
	Cached          bool                   `json:"cached,omitempty"`
}

// 生成結果のうちキャッシュ可能な部分
type generationOutcome struct {
	status    scheduler.Status
	shifts    []*model.Shift
	warnings  []validator.Warning
	fairness  *stats.FairnessMetrics
	objective int
	nodes     int
	duration  time.Duration
}

const infeasibleMessage = "制約条件を満たすシフトを生成できませんでした。条件を緩和してください。"

// Generate 生成排班
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	roster, err := h.validateGenerateRequest(&req)
	if err != nil {
		respondError(w, err)
		return
	}

	// 同一条件の再生成はキャッシュから返す（個別約束付きは対象外）
	var key string
	if !req.hasOverrides() {
		key = store.Key(req.StartDate, req.EndDate, req.EmployeeIDs, roster)
		if v, ok := h.cache.Get(key); ok {
			metrics.RecordCacheLookup(true)
			out := v.(*generationOutcome)
			version := h.store.SetSchedule(model.CloneShifts(out.shifts))
			h.respondGeneration(w, out, version, true)
			return
		}
		metrics.RecordCacheLookup(false)
	}

	out, err := h.generate(r, &req, roster)
	if err != nil {
		respondError(w, err)
		return
	}

	version := h.store.SetSchedule(model.CloneShifts(out.shifts))
	if key != "" && out.status.IsSuccess() {
		h.cache.Put(key, out)
	}
	h.respondGeneration(w, out, version, false)
}

func (h *Handler) generate(r *http.Request, req *GenerateRequest, roster model.Directory) (*generationOutcome, error) {
	slots := req.Slots
	if len(slots) == 0 {
		slots = model.DefaultSlots()
	}
	cal, err := scheduler.NewCalendar(req.StartDate, req.EndDate, slots)
	if err != nil {
		return nil, err
	}

	sc := h.cfg.Scheduler
	policy := scheduler.Policy{
		CoverageMin: sc.CoverageMin,
		CoverageMax: sc.CoverageMax,
		ManagerMin:  sc.ManagerMin,
		ManagerMax:  sc.ManagerMax,
		SkillFloor:  sc.SkillFloor,
		PerTypeCap:  sc.PerTypeCap,
		TotalCap:    sc.TotalCap,
	}
	if req.Constraints != nil {
		policy = *req.Constraints
	}
	m := scheduler.Build(cal, roster, policy)

	timeout := sc.Timeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}
	result := scheduler.New(timeout).Solve(r.Context(), m)

	out := &generationOutcome{
		status:    result.Status,
		objective: result.Objective,
		nodes:     result.Nodes,
		duration:  result.Duration,
	}

	if !result.Status.IsSuccess() {
		metrics.RecordGeneration(string(result.Status), int64(result.Nodes), result.Duration)
		return out, nil
	}

	out.shifts = scheduler.Materialize(result.Solution, m)
	out.warnings = validator.New(validator.Config{
		MinStaffPerType:     h.cfg.Validator.MinStaffPerType,
		SkillThreshold:      h.cfg.Validator.SkillThreshold,
		MaxConsecutiveSlots: h.cfg.Validator.MaxConsecutiveSlots,
	}).Validate(out.shifts, roster)
	out.fairness = stats.NewFairnessAnalyzer().Analyze(out.shifts, roster)

	metrics.RecordGeneration(string(result.Status), int64(result.Nodes), result.Duration)
	metrics.SetFairnessGini("shift", out.fairness.ShiftGini)
	metrics.SetFairnessGini("night_shift", out.fairness.NightShiftGini)
	warnCounts := make(map[string]int)
	for _, warn := range out.warnings {
		warnCounts[string(warn.Type)]++
	}
	for wt, n := range warnCounts {
		metrics.SetValidationWarnings(wt, n)
	}

	return out, nil
}

func (h *Handler) respondGeneration(w http.ResponseWriter, out *generationOutcome, version int64, cached bool) {
	resp := GenerateResponse{
		Success:         true,
		Status:          out.status,
		ScheduleVersion: version,
		Shifts:          out.shifts,
		Warnings:        out.warnings,
		Statistics:      out.fairness,
		Objective:       out.objective,
		Nodes:           out.nodes,
		Duration:        out.duration.String(),
		Cached:          cached,
	}
	if resp.Shifts == nil {
		resp.Shifts = []*model.Shift{}
	}
	if resp.Warnings == nil {
		resp.Warnings = []validator.Warning{}
	}
	if !out.status.IsSuccess() {
		resp.Message = infeasibleMessage
		resp.Warnings = append(resp.Warnings, validator.Warning{
			Type:    validator.WarningInfeasible,
			Message: infeasibleMessage,
		})
	}
	resp.Messages = make([]string, 0, len(resp.Warnings))
	for _, warn := range resp.Warnings {
		resp.Messages = append(resp.Messages, warn.Message)
	}
	respondJSON(w, http.StatusOK, resp)
}

// validateGenerateRequest 验证生成请求并返回对象员工子集
// すべての入力エラーをまとめて返す。
func (h *Handler) validateGenerateRequest(req *GenerateRequest) (model.Directory, error) {
	ve := &apperrors.ValidationErrors{}

	if req.StartDate == "" {
		ve.Add("start_date", "開始日は必須です")
	} else if _, err := model.ParseDate(req.StartDate); err != nil {
		ve.Add("start_date", "日付は YYYY-MM-DD 形式で指定してください")
	}
	if req.EndDate == "" {
		ve.Add("end_date", "終了日は必須です")
	} else if _, err := model.ParseDate(req.EndDate); err != nil {
		ve.Add("end_date", "日付は YYYY-MM-DD 形式で指定してください")
	}
	if len(req.EmployeeIDs) == 0 {
		ve.Add("employee_ids", "対象従業員を1人以上指定してください")
	}

	roster := make(model.Directory, 0, len(req.EmployeeIDs))
	for _, id := range req.EmployeeIDs {
		emp := h.employees.ByID(id)
		if emp == nil {
			ve.Add("employee_ids", "存在しない従業員IDです: "+strconv.FormatInt(id, 10))
			continue
		}
		roster = append(roster, emp)
	}

	if ve.HasErrors() {
		return nil, ve.ToAppError()
	}
	return roster, nil
}
