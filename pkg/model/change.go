// Package model 定义排班引擎的核心数据模型
package model

import (
	"time"
)

// ChangeType 申请种别
type ChangeType string

const (
	ChangeAbsence       ChangeType = "absence"        // 欠勤
	ChangeTime          ChangeType = "change_time"    // 時間帯変更
	ChangeSwap          ChangeType = "swap"           // 入れ替え
	ChangeAddShift      ChangeType = "add_shift"      // 追加
	ChangeCancelRequest ChangeType = "cancel_request" // 取消
)

// RequestStatus 申请状态
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// ChangeRequest 班次变更申请
// pending → approved|rejected の一方向遷移。処理済みの再処理は競合エラー。
type ChangeRequest struct {
	ID                 int64         `json:"id,omitempty"`
	EmployeeID         *int64        `json:"employee_id,omitempty"`
	EmployeeName       string        `json:"employee_name,omitempty"`
	Type               ChangeType    `json:"type"`
	Date               string        `json:"date"` // YYYY-MM-DD
	FromSlot           SlotID        `json:"from_slot,omitempty"`
	ToSlot             SlotID        `json:"to_slot,omitempty"`
	TargetEmployeeID   *int64        `json:"target_employee_id,omitempty"`
	TargetEmployeeName string        `json:"target_employee_name,omitempty"`
	Reason             string        `json:"reason,omitempty"`
	Status             RequestStatus `json:"status"`
	RequestedVia       string        `json:"requested_via,omitempty"` // line/web
	NotifyUserID       string        `json:"notify_user_id,omitempty"`
	CreatedAt          *time.Time    `json:"created_at,omitempty"`
	UpdatedAt          *time.Time    `json:"updated_at,omitempty"`

	// 申请创建时刻的周快照（preview 用，live 排班的并发变更から独立）
	SnapshotWeekStart string   `json:"snapshot_week_start,omitempty"`
	SnapshotWeekEnd   string   `json:"snapshot_week_end,omitempty"`
	SnapshotShifts    []*Shift `json:"snapshot_shifts,omitempty"`
}

// IsPending 检查申请是否待处理
func (r *ChangeRequest) IsPending() bool {
	return r.Status == StatusPending
}

// HasSnapshot 检查是否携带周快照
func (r *ChangeRequest) HasSnapshot() bool {
	return len(r.SnapshotShifts) > 0 && r.SnapshotWeekStart != "" && r.SnapshotWeekEnd != ""
}

// ShiftUpdatePair 变更前后的班次对
type ShiftUpdatePair struct {
	Before *Shift `json:"before"`
	After  *Shift `json:"after"`
}

// DeltaKind 差分种别
type DeltaKind string

const (
	DeltaReplace DeltaKind = "replace"
	DeltaAdd     DeltaKind = "add"
	DeltaRemove  DeltaKind = "remove"
)

// ChangeDelta 排班差分（调整规则 preview 的输出单位）
type ChangeDelta struct {
	Kind   DeltaKind `json:"kind"`
	Before *Shift    `json:"before,omitempty"`
	After  *Shift    `json:"after,omitempty"`
}
