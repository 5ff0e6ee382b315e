// Package change 实现班次变更申请的解析与应用
// 申請は名前解決を経て現行排班（live）または複製（preview）に適用される。
package change

import (
	"fmt"
	"time"

	apperrors "github.com/banci/banci/pkg/errors"
	"github.com/banci/banci/pkg/model"
)

// Result 申请应用产生的差分
type Result struct {
	Shifts  []*model.Shift           `json:"shifts"`
	Added   []*model.Shift           `json:"added"`
	Removed []*model.Shift           `json:"removed"`
	Updated []*model.ShiftUpdatePair `json:"updated"`
}

// Engine 变更申请引擎
type Engine struct {
	employees model.Directory
}

// NewEngine 创建变更引擎
func NewEngine(employees model.Directory) *Engine {
	return &Engine{employees: employees}
}

// ResolveEmployee 按名字补全申请人 ID
// ID 指定済みなら何もしない。完全一致优先、次に唯一の部分一致。
func (e *Engine) ResolveEmployee(req *model.ChangeRequest) error {
	if req.EmployeeID == nil && req.EmployeeName != "" {
		id, ok := e.employees.MatchByName(req.EmployeeName)
		if !ok {
			return apperrors.EmployeeAmbiguous(req.EmployeeName)
		}
		req.EmployeeID = &id
	}
	if req.EmployeeID == nil {
		return apperrors.New(apperrors.CodeInvalidInput, "employee_id が未指定です")
	}
	return nil
}

// resolveTarget 补全交换对象的 ID
func (e *Engine) resolveTarget(req *model.ChangeRequest) error {
	if req.TargetEmployeeID != nil {
		return nil
	}
	if req.TargetEmployeeName == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "swap には target_employee_id もしくは target_employee_name が必要です")
	}
	id, ok := e.employees.MatchByName(req.TargetEmployeeName)
	if !ok {
		return apperrors.EmployeeAmbiguous(req.TargetEmployeeName)
	}
	req.TargetEmployeeID = &id
	return nil
}

// findShift 按员工/日期/时段查找班次
func findShift(shifts []*model.Shift, emp int64, date string, slot model.SlotID) *model.Shift {
	start, end, ok := model.SlotTimes(slot)
	if !ok {
		return nil
	}
	for _, s := range shifts {
		if s.EmployeeID == emp && s.Date == date && s.StartTime == start && s.EndTime == end {
			return s
		}
	}
	return nil
}

// Apply 将申请应用到现行排班
// 検証は厳格：対象が見つからなければエラーを返し、排班は変更されない。
// 返される Result.Shifts が新しい全量リスト。
func (e *Engine) Apply(shifts []*model.Shift, req *model.ChangeRequest) (*Result, error) {
	if err := e.ResolveEmployee(req); err != nil {
		return nil, err
	}

	switch req.Type {
	case model.ChangeAbsence:
		return e.applyAbsence(shifts, req, true)
	case model.ChangeTime:
		if req.FromSlot == "" || req.ToSlot == "" {
			return nil, apperrors.New(apperrors.CodeInvalidInput, "from_slot と to_slot が必要です")
		}
		res := e.applyChangeTime(shifts, req)
		if len(res.Updated) == 0 {
			return nil, apperrors.New(apperrors.CodeNotFound, "変更元のシフトが見つかりません")
		}
		return res, nil
	case model.ChangeAddShift:
		if req.ToSlot == "" {
			return nil, apperrors.New(apperrors.CodeInvalidInput, "to_slot が必要です")
		}
		return e.applyAddShift(shifts, req), nil
	case model.ChangeSwap:
		if req.FromSlot == "" || req.ToSlot == "" {
			return nil, apperrors.New(apperrors.CodeInvalidInput, "swap には from_slot, to_slot が必要です")
		}
		if err := e.resolveTarget(req); err != nil {
			return nil, err
		}
		res := e.applySwap(shifts, req)
		if len(res.Updated) == 0 {
			return nil, apperrors.New(apperrors.CodeNotFound, "入れ替え対象のシフトが見つかりません")
		}
		return res, nil
	default:
		return nil, apperrors.New(apperrors.CodeInvalidInput, fmt.Sprintf("未対応の type: %s", req.Type))
	}
}

// ApplyOnCopy 将申请应用到排班副本（preview 用）
// 寛容：対象が見つからない場合は差分を出さず黙ってスキップする。
// base は変更されない。
func (e *Engine) ApplyOnCopy(base []*model.Shift, req *model.ChangeRequest) *Result {
	if req.EmployeeID == nil {
		return &Result{Shifts: model.CloneShifts(base)}
	}
	shifts := model.CloneShifts(base)

	switch req.Type {
	case model.ChangeAbsence:
		res, _ := e.applyAbsence(shifts, req, false)
		return res
	case model.ChangeTime:
		if req.FromSlot == "" || req.ToSlot == "" {
			return &Result{Shifts: shifts}
		}
		return e.applyChangeTime(shifts, req)
	case model.ChangeAddShift:
		if req.ToSlot == "" {
			return &Result{Shifts: shifts}
		}
		return e.applyAddShift(shifts, req)
	case model.ChangeSwap:
		if req.FromSlot == "" || req.ToSlot == "" || req.TargetEmployeeID == nil {
			return &Result{Shifts: shifts}
		}
		return e.applySwap(shifts, req)
	default:
		return &Result{Shifts: shifts}
	}
}

// applyAbsence 删除申请人当日的全部班次
func (e *Engine) applyAbsence(shifts []*model.Shift, req *model.ChangeRequest, strict bool) (*Result, error) {
	res := &Result{}
	for _, s := range shifts {
		if s.EmployeeID == *req.EmployeeID && s.Date == req.Date {
			res.Removed = append(res.Removed, s)
		} else {
			res.Shifts = append(res.Shifts, s)
		}
	}
	if strict && len(res.Removed) == 0 {
		return nil, apperrors.New(apperrors.CodeNotFound, "対象シフトが見つかりません")
	}
	return res, nil
}

// applyChangeTime 变更指定班次的时段
func (e *Engine) applyChangeTime(shifts []*model.Shift, req *model.ChangeRequest) *Result {
	res := &Result{Shifts: shifts}
	src := findShift(shifts, *req.EmployeeID, req.Date, req.FromSlot)
	if src == nil {
		return res
	}
	start, end, ok := model.SlotTimes(req.ToSlot)
	if !ok {
		return res
	}
	before := src.Clone()
	now := time.Now()
	src.StartTime, src.EndTime = start, end
	src.UpdatedAt = &now
	res.Updated = append(res.Updated, &model.ShiftUpdatePair{Before: before, After: src})
	return res
}

// applyAddShift 追加班次
// ID は未採番のまま返し、保存時にストアが採番する。
func (e *Engine) applyAddShift(shifts []*model.Shift, req *model.ChangeRequest) *Result {
	start, end, _ := model.SlotTimes(req.ToSlot)
	now := time.Now()
	added := &model.Shift{
		EmployeeID:   *req.EmployeeID,
		Date:         req.Date,
		StartTime:    start,
		EndTime:      end,
		BreakMinutes: 60,
		CreatedAt:    &now,
		UpdatedAt:    &now,
	}
	return &Result{
		Shifts: append(shifts, added),
		Added:  []*model.Shift{added},
	}
}

// applySwap 交换两名员工同日班次的时段
func (e *Engine) applySwap(shifts []*model.Shift, req *model.ChangeRequest) *Result {
	res := &Result{Shifts: shifts}
	a := findShift(shifts, *req.EmployeeID, req.Date, req.FromSlot)
	b := findShift(shifts, *req.TargetEmployeeID, req.Date, req.ToSlot)
	if a == nil || b == nil {
		return res
	}
	beforeA, beforeB := a.Clone(), b.Clone()
	now := time.Now()
	a.StartTime, a.EndTime, b.StartTime, b.EndTime = b.StartTime, b.EndTime, a.StartTime, a.EndTime
	a.UpdatedAt = &now
	b.UpdatedAt = &now
	res.Updated = append(res.Updated,
		&model.ShiftUpdatePair{Before: beforeA, After: a},
		&model.ShiftUpdatePair{Before: beforeB, After: b},
	)
	return res
}

// ApprovalMessage 承認通知文
// 日付は年を省いた M/D 表記。
func ApprovalMessage(req *model.ChangeRequest, employees model.Directory) string {
	return fmt.Sprintf("%s%sの申請を承認しました", nameDisplay(req, employees), shortDate(req.Date))
}

// RejectionMessage 却下通知文
func RejectionMessage(req *model.ChangeRequest, employees model.Directory) string {
	return fmt.Sprintf("%s%sの申請は却下されました", nameDisplay(req, employees), shortDate(req.Date))
}

func nameDisplay(req *model.ChangeRequest, employees model.Directory) string {
	name := req.EmployeeName
	if name == "" && req.EmployeeID != nil {
		if e := employees.ByID(*req.EmployeeID); e != nil {
			name = e.Name
		}
	}
	if name == "" {
		return "申請の"
	}
	return name + "さんの"
}

// shortDate YYYY-MM-DD を M/D に变换
func shortDate(date string) string {
	d, err := model.ParseDate(date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%d/%d", int(d.Month()), d.Day())
}
