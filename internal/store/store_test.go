package store

import (
	"testing"
	"time"

	apperrors "github.com/banci/banci/pkg/errors"
	"github.com/banci/banci/pkg/model"
	"github.com/banci/banci/pkg/rule"
)

func shift(emp int64, date string, slot model.SlotID) *model.Shift {
	start, end, _ := model.SlotTimes(slot)
	return &model.Shift{
		EmployeeID:   emp,
		Date:         date,
		StartTime:    start,
		EndTime:      end,
		BreakMinutes: 60,
	}
}

func TestSetScheduleAssignsIDs(t *testing.T) {
	s := New(nil)
	v := s.SetSchedule([]*model.Shift{
		shift(1, "2024-01-08", model.SlotEarly),
		shift(2, "2024-01-08", model.SlotLate),
	})
	if v != 1 {
		t.Errorf("version = %d, want 1", v)
	}

	snap := s.Snapshot()
	if snap[0].ID != 1 || snap[1].ID != 2 {
		t.Errorf("IDs = %d, %d", snap[0].ID, snap[1].ID)
	}

	// 再生成でも採番は単調増加
	s.SetSchedule([]*model.Shift{shift(3, "2024-01-09", model.SlotEarly)})
	snap = s.Snapshot()
	if snap[0].ID != 3 {
		t.Errorf("ID = %d, want 3", snap[0].ID)
	}
}

func TestVersionMonotonic(t *testing.T) {
	s := New(nil)
	var versions []int64

	versions = append(versions, s.SetSchedule([]*model.Shift{shift(1, "2024-01-08", model.SlotEarly)}))
	v, err := s.Mutate(func(shifts []*model.Shift) ([]*model.Shift, error) {
		return append(shifts, shift(2, "2024-01-08", model.SlotLate)), nil
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	versions = append(versions, v)
	s.Clear()
	versions = append(versions, s.Version())

	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Fatalf("版本未单调递增: %v", versions)
		}
	}
}

func TestMutateErrorLeavesStateUntouched(t *testing.T) {
	s := New(nil)
	s.SetSchedule([]*model.Shift{shift(1, "2024-01-08", model.SlotEarly)})
	before := s.Version()

	_, err := s.Mutate(func(shifts []*model.Shift) ([]*model.Shift, error) {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "どこかおかしい")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if s.Version() != before {
		t.Error("失败的变更不应推进版本")
	}
	if len(s.Snapshot()) != 1 {
		t.Error("失败的变更不应改变排班")
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	s := New(nil)
	s.SetSchedule([]*model.Shift{shift(1, "2024-01-08", model.SlotEarly)})

	snap := s.Snapshot()
	snap[0].EmployeeID = 99

	if s.Snapshot()[0].EmployeeID != 1 {
		t.Error("Snapshot 应返回副本")
	}
}

func TestRequestLifecycle(t *testing.T) {
	s := New(nil)
	s.SetSchedule([]*model.Shift{shift(1, "2024-01-10", model.SlotEarly)})

	emp := int64(1)
	req := s.AddRequest(&model.ChangeRequest{
		Type:       model.ChangeAbsence,
		EmployeeID: &emp,
		Date:       "2024-01-10",
	})
	if req.ID != 1 || req.Status != model.StatusPending {
		t.Fatalf("req = %+v", req)
	}
	if !req.HasSnapshot() {
		t.Error("申请应携带周快照")
	}
	if req.SnapshotWeekStart != "2024-01-08" || req.SnapshotWeekEnd != "2024-01-14" {
		t.Errorf("week = %s..%s", req.SnapshotWeekStart, req.SnapshotWeekEnd)
	}

	approved, err := s.ApproveRequest(req.ID, func(shifts []*model.Shift, r *model.ChangeRequest) ([]*model.Shift, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("ApproveRequest: %v", err)
	}
	if approved.Status != model.StatusApproved {
		t.Errorf("Status = %s", approved.Status)
	}

	// 処理済みの再処理は競合
	_, err = s.ApproveRequest(req.ID, nil)
	if apperrors.GetCode(err) != apperrors.CodeRequestProcessed {
		t.Errorf("code = %s, want %s", apperrors.GetCode(err), apperrors.CodeRequestProcessed)
	}
	_, err = s.RejectRequest(req.ID, "")
	if apperrors.GetCode(err) != apperrors.CodeRequestProcessed {
		t.Errorf("code = %s, want %s", apperrors.GetCode(err), apperrors.CodeRequestProcessed)
	}
}

func TestListRequestsFilter(t *testing.T) {
	s := New(nil)
	emp := int64(1)
	s.AddRequest(&model.ChangeRequest{Type: model.ChangeAbsence, EmployeeID: &emp, Date: "2024-01-10"})
	s.AddRequest(&model.ChangeRequest{Type: model.ChangeAddShift, EmployeeID: &emp, Date: "2024-01-11", ToSlot: model.SlotEarly})
	s.RejectRequest(1, "人手不足")

	if n := len(s.ListRequests("")); n != 2 {
		t.Errorf("全量 = %d, want 2", n)
	}
	if n := len(s.ListRequests(model.StatusPending)); n != 1 {
		t.Errorf("pending = %d, want 1", n)
	}
	if n := len(s.ListRequests(model.StatusRejected)); n != 1 {
		t.Errorf("rejected = %d, want 1", n)
	}
}

func TestApplyChangeSetStale(t *testing.T) {
	s := New(nil)
	s.SetSchedule([]*model.Shift{shift(1, "2024-01-08", model.SlotEarly)})

	cs := &rule.ChangeSet{ID: "cs-1", ScheduleVersion: s.Version()}
	s.Clear() // 提案作成後に排班が変わった

	_, err := s.ApplyChangeSet(cs)
	if apperrors.GetCode(err) != apperrors.CodeStaleSchedule {
		t.Errorf("code = %s, want %s", apperrors.GetCode(err), apperrors.CodeStaleSchedule)
	}
}

func TestApplyAndRollbackChangeSet(t *testing.T) {
	s := New(nil)
	s.SetSchedule([]*model.Shift{shift(1, "2024-01-08", model.SlotEarly)})

	cs := &rule.ChangeSet{
		ID:              "cs-1",
		ScheduleVersion: s.Version(),
		Deltas: []model.ChangeDelta{
			{Kind: model.DeltaAdd, After: shift(2, "2024-01-09", model.SlotLate)},
		},
	}

	v, err := s.ApplyChangeSet(cs)
	if err != nil {
		t.Fatalf("ApplyChangeSet: %v", err)
	}
	if v != 2 {
		t.Errorf("version = %d, want 2", v)
	}
	if len(s.Snapshot()) != 2 {
		t.Errorf("len = %d, want 2", len(s.Snapshot()))
	}

	v, err = s.RollbackChangeSet("cs-1")
	if err != nil {
		t.Fatalf("RollbackChangeSet: %v", err)
	}
	if v != 3 {
		t.Errorf("version = %d, want 3", v)
	}
	if len(s.Snapshot()) != 1 {
		t.Errorf("rollback 後 len = %d, want 1", len(s.Snapshot()))
	}

	// 同じ提案の二重 rollback は not found
	if _, err := s.RollbackChangeSet("cs-1"); apperrors.GetCode(err) != apperrors.CodeNotFound {
		t.Errorf("code = %s", apperrors.GetCode(err))
	}
}

func TestEventFanOut(t *testing.T) {
	s := New(nil)
	ch1, cancel1 := s.Subscribe()
	ch2, cancel2 := s.Subscribe()
	defer cancel1()
	defer cancel2()

	s.SetSchedule([]*model.Shift{shift(1, "2024-01-08", model.SlotEarly)})
	cs := &rule.ChangeSet{ID: "cs-1", ScheduleVersion: s.Version()}
	if _, err := s.ApplyChangeSet(cs); err != nil {
		t.Fatalf("ApplyChangeSet: %v", err)
	}

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != EventScheduleUpdated || ev.ChangeSetID != "cs-1" {
				t.Errorf("event = %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatal("订阅者未收到事件")
		}
	}
}

func TestEventDropWhenFull(t *testing.T) {
	s := New(nil)
	ch, cancel := s.Subscribe()
	defer cancel()

	s.SetSchedule(nil)
	// バッファを超えて発行してもブロックしない
	for i := 0; i < subscriberBuffer*2; i++ {
		cs := &rule.ChangeSet{ID: "cs", ScheduleVersion: s.Version()}
		if _, err := s.ApplyChangeSet(cs); err != nil {
			t.Fatalf("ApplyChangeSet: %v", err)
		}
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
			continue
		default:
		}
		break
	}
	if received != subscriberBuffer {
		t.Errorf("received = %d, want %d", received, subscriberBuffer)
	}
}

func TestAuditHook(t *testing.T) {
	var actions []string
	s := New(func(actor, action string, meta map[string]interface{}) {
		actions = append(actions, action)
	})

	emp := int64(1)
	s.SetSchedule([]*model.Shift{shift(1, "2024-01-10", model.SlotEarly)})
	req := s.AddRequest(&model.ChangeRequest{Type: model.ChangeAbsence, EmployeeID: &emp, Date: "2024-01-10"})
	s.ApproveRequest(req.ID, func(shifts []*model.Shift, r *model.ChangeRequest) ([]*model.Shift, error) {
		return shifts, nil
	})

	if len(actions) != 1 || actions[0] != "shift_change.approve" {
		t.Errorf("actions = %v", actions)
	}
}

func TestGenerationCache(t *testing.T) {
	c := NewGenerationCache(50 * time.Millisecond)

	dir := model.Directory{{ID: 1, Name: "田中", Role: model.RoleManager, SkillLevel: 5}}
	key := Key("2024-01-08", "2024-01-14", []int64{1}, dir)
	if key == "" {
		t.Fatal("empty key")
	}
	// ID の順序はキーに影響しない
	if key != Key("2024-01-08", "2024-01-14", []int64{1}, dir) {
		t.Error("同一条件キーが一致しない")
	}

	c.Put(key, "result")
	if v, ok := c.Get(key); !ok || v != "result" {
		t.Errorf("Get = %v, %v", v, ok)
	}

	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get(key); ok {
		t.Error("期限切れエントリが返された")
	}
}
