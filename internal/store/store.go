// Package store 管理现行排班的共享可变状态
// 全ての変更はストアのミューテックスで直列化される。読み取りはコピーを
// 返すスナップショット方式で、進行中の変更と競合しない。
package store

import (
	"strconv"
	"sync"
	"time"

	apperrors "github.com/banci/banci/pkg/errors"
	"github.com/banci/banci/pkg/model"
	"github.com/banci/banci/pkg/rule"
)

// AuditFunc 审计钩子
// 失敗は呼び出し元に伝播しない前提のベストエフォート。
type AuditFunc func(actor, action string, meta map[string]interface{})

// Store 排班存储
type Store struct {
	mu sync.Mutex

	shifts  []*model.Shift
	version int64

	nextShiftID   int64
	nextRequestID int64

	requests []*model.ChangeRequest

	// 適用済み ChangeSet の適用前スナップショット（rollback 用）
	applied map[string][]*model.Shift

	audit AuditFunc

	subMu sync.Mutex
	subs  map[chan Event]struct{}
}

// New 创建排班存储
func New(audit AuditFunc) *Store {
	if audit == nil {
		audit = func(string, string, map[string]interface{}) {}
	}
	return &Store{
		nextShiftID:   1,
		nextRequestID: 1,
		applied:       make(map[string][]*model.Shift),
		audit:         audit,
		subs:          make(map[chan Event]struct{}),
	}
}

// Version 当前排班版本
func (s *Store) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Snapshot 返回当前排班的副本
func (s *Store) Snapshot() []*model.Shift {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneShifts(s.shifts)
}

// SnapshotRange 返回日期区间内排班的副本
func (s *Store) SnapshotRange(startDate, endDate string) []*model.Shift {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneShifts(model.ShiftsInRange(s.shifts, startDate, endDate))
}

// assignIDs 为未采番的班次分配单调递增 ID（呼び出し側がロック保持）
func (s *Store) assignIDs(shifts []*model.Shift) {
	for _, sh := range shifts {
		if sh.ID == 0 {
			sh.ID = s.nextShiftID
			s.nextShiftID++
		} else if sh.ID >= s.nextShiftID {
			s.nextShiftID = sh.ID + 1
		}
	}
}

// SetSchedule 整体替换排班并递增版本
func (s *Store) SetSchedule(shifts []*model.Shift) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignIDs(shifts)
	s.shifts = shifts
	s.version++
	return s.version
}

// Mutate 在锁内执行一次排班变更
// fn は現在の全量リストを受け取り、新しい全量リストを返す。
// エラー時は何も変更されない。
func (s *Store) Mutate(fn func(shifts []*model.Shift) ([]*model.Shift, error)) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	newShifts, err := fn(s.shifts)
	if err != nil {
		return s.version, err
	}
	s.assignIDs(newShifts)
	s.shifts = newShifts
	s.version++
	return s.version, nil
}

// FindShiftByID 按 ID 查找班次（副本）
func (s *Store) FindShiftByID(id int64) *model.Shift {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sh := range s.shifts {
		if sh.ID == id {
			return sh.Clone()
		}
	}
	return nil
}

// FindShiftBy 按（员工,日期,时段）查找班次（副本）
func (s *Store) FindShiftBy(emp int64, date string, slot model.SlotID) *model.Shift {
	start, end, ok := model.SlotTimes(slot)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sh := range s.shifts {
		if sh.EmployeeID == emp && sh.Date == date && sh.StartTime == start && sh.EndTime == end {
			return sh.Clone()
		}
	}
	return nil
}

// UpdateShift 更新一条班次的时间字段
func (s *Store) UpdateShift(id int64, startTime, endTime string, breakMinutes int) (*model.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sh := range s.shifts {
		if sh.ID != id {
			continue
		}
		now := time.Now()
		sh.StartTime = startTime
		sh.EndTime = endTime
		sh.BreakMinutes = breakMinutes
		sh.UpdatedAt = &now
		s.version++
		return sh.Clone(), nil
	}
	return nil, apperrors.NotFound("シフト", formatID(id))
}

// DeleteShift 删除一条班次
func (s *Store) DeleteShift(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sh := range s.shifts {
		if sh.ID == id {
			s.shifts = append(s.shifts[:i], s.shifts[i+1:]...)
			s.version++
			return nil
		}
	}
	return apperrors.NotFound("シフト", formatID(id))
}

// Clear 清空排班
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shifts = nil
	s.version++
}

// AddRequest 登记变更申请并采番
func (s *Store) AddRequest(req *model.ChangeRequest) *model.ChangeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	req.ID = s.nextRequestID
	s.nextRequestID++
	if req.Status == "" {
		req.Status = model.StatusPending
	}
	now := time.Now()
	req.CreatedAt = &now
	req.UpdatedAt = &now

	// 申請時点の週スナップショットを保持（preview 用）
	if ws, we, err := model.WeekRange(req.Date); err == nil {
		req.SnapshotWeekStart = ws
		req.SnapshotWeekEnd = we
		req.SnapshotShifts = model.CloneShifts(model.ShiftsInRange(s.shifts, ws, we))
	}

	s.requests = append(s.requests, req)
	return req
}

// GetRequest 按 ID 查找申请
func (s *Store) GetRequest(id int64) *model.ChangeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// ListRequests 列出申请（status 为空则全部）
func (s *Store) ListRequests(status model.RequestStatus) []*model.ChangeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.ChangeRequest
	for _, r := range s.requests {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// ApproveRequest 批准申请并应用变更
// pending でなければ競合エラー。適用失敗時はステータスを変えない。
func (s *Store) ApproveRequest(id int64, apply func(shifts []*model.Shift, req *model.ChangeRequest) ([]*model.Shift, error)) (*model.ChangeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := s.findRequest(id)
	if req == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "申請が見つかりません")
	}
	if !req.IsPending() {
		return nil, apperrors.ErrRequestProcessed
	}

	newShifts, err := apply(s.shifts, req)
	if err != nil {
		return nil, err
	}
	s.assignIDs(newShifts)
	s.shifts = newShifts
	s.version++

	now := time.Now()
	req.Status = model.StatusApproved
	req.UpdatedAt = &now
	s.audit("admin", "shift_change.approve", map[string]interface{}{"request_id": req.ID})
	return req, nil
}

// RejectRequest 驳回申请
func (s *Store) RejectRequest(id int64, reason string) (*model.ChangeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := s.findRequest(id)
	if req == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "申請が見つかりません")
	}
	if !req.IsPending() {
		return nil, apperrors.ErrRequestProcessed
	}

	now := time.Now()
	req.Status = model.StatusRejected
	if reason != "" {
		req.Reason = reason
	}
	req.UpdatedAt = &now
	s.audit("admin", "shift_change.reject", map[string]interface{}{"request_id": req.ID})
	return req, nil
}

func (s *Store) findRequest(id int64) *model.ChangeRequest {
	for _, r := range s.requests {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// ApplyChangeSet 将调整提案应用到现行排班
// 提案作成時点からバージョンが進んでいれば STALE_SCHEDULE で拒否する。
func (s *Store) ApplyChangeSet(cs *rule.ChangeSet) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cs.ScheduleVersion != s.version {
		return s.version, apperrors.New(apperrors.CodeStaleSchedule, "排班が提案作成後に変更されています。提案を作り直してください")
	}

	before := model.CloneShifts(s.shifts)
	newShifts, _, _, _ := rule.ApplyDeltas(s.shifts, cs.Deltas)
	s.assignIDs(newShifts)
	s.shifts = newShifts
	s.version++
	s.applied[cs.ID] = before

	s.audit("admin", "adjustments.apply", map[string]interface{}{"change_set_id": cs.ID})
	s.publish(ScheduleUpdated(s.version, cs.ID))
	return s.version, nil
}

// RollbackChangeSet 撤销一次已应用的调整
// 適用時に保存したスナップショットへ戻す。未適用 ID は not found。
func (s *Store) RollbackChangeSet(changeSetID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before, ok := s.applied[changeSetID]
	if !ok {
		return s.version, apperrors.New(apperrors.CodeNotFound, "適用済みの提案が見つかりません")
	}
	delete(s.applied, changeSetID)
	s.shifts = before
	s.version++

	s.audit("admin", "adjustments.rollback", map[string]interface{}{"change_set_id": changeSetID})
	s.publish(ScheduleUpdated(s.version, changeSetID))
	return s.version, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
