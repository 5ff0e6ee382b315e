package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banci/banci/internal/config"
	"github.com/banci/banci/internal/notify"
	"github.com/banci/banci/internal/repository"
	"github.com/banci/banci/internal/store"
	"github.com/banci/banci/pkg/model"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	h := NewHandler(cfg, store.New(nil), repository.DefaultDirectory(), notify.New("", 0), nil)
	h.RegisterRoutes()
	return h
}

func doJSON(t *testing.T, h *Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body: %v\n%s", err, rec.Body.String())
	}
}

func seedShift(emp int64, date string, slot model.SlotID) *model.Shift {
	start, end, _ := model.SlotTimes(slot)
	return &model.Shift{
		EmployeeID:   emp,
		Date:         date,
		StartTime:    start,
		EndTime:      end,
		BreakMinutes: 60,
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]interface{}
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("status = %v", body["status"])
	}
}

func TestListEmployees(t *testing.T) {
	h := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/api/employees", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &body)
	if body.Count != 30 {
		t.Errorf("count = %d, want 30", body.Count)
	}
}

func TestGenerateValidation(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/shifts/generate", GenerateRequest{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	// 存在しない従業員ID
	rec = doJSON(t, h, http.MethodPost, "/api/shifts/generate", GenerateRequest{
		StartDate:   "2024-01-08",
		EndDate:     "2024-01-08",
		EmployeeIDs: []int64{999},
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGenerateAndShiftLifecycle(t *testing.T) {
	h := newTestHandler(t)

	genReq := GenerateRequest{
		StartDate:   "2024-01-08",
		EndDate:     "2024-01-08",
		EmployeeIDs: []int64{1, 2, 3, 4, 5, 7, 8},
	}
	rec := doJSON(t, h, http.MethodPost, "/api/shifts/generate", genReq, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status = %d\n%s", rec.Code, rec.Body.String())
	}
	var genResp GenerateResponse
	decodeBody(t, rec, &genResp)
	if !genResp.Success {
		t.Fatal("success = false")
	}
	if !genResp.Status.IsSuccess() {
		t.Fatalf("solve status = %s", genResp.Status)
	}
	if len(genResp.Shifts) == 0 {
		t.Fatal("shifts is empty")
	}

	// 同一条件の再生成はキャッシュ命中
	rec = doJSON(t, h, http.MethodPost, "/api/shifts/generate", genReq, nil)
	var cachedResp GenerateResponse
	decodeBody(t, rec, &cachedResp)
	if !cachedResp.Cached {
		t.Error("cached = false, want true")
	}

	// 一覧
	rec = doJSON(t, h, http.MethodGet, "/api/shifts", nil, nil)
	var listResp struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &listResp)
	if listResp.Count != len(genResp.Shifts) {
		t.Errorf("count = %d, want %d", listResp.Count, len(genResp.Shifts))
	}

	// 単体更新
	target := h.store.Snapshot()[0]
	rec = doJSON(t, h, http.MethodPut, fmt.Sprintf("/api/shifts/%d", target.ID), UpdateShiftRequest{
		StartTime:    "09:00",
		EndTime:      "17:00",
		BreakMinutes: 45,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}
	var updated model.Shift
	decodeBody(t, rec, &updated)
	if updated.StartTime != "09:00" || updated.BreakMinutes != 45 {
		t.Errorf("updated = %+v", updated)
	}

	// 削除と全消去
	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/shifts/%d", target.ID), nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodDelete, "/api/shifts", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}
	if len(h.store.Snapshot()) != 0 {
		t.Error("clear 後もシフトが残っている")
	}
}

func TestGetShiftBy(t *testing.T) {
	h := newTestHandler(t)
	h.store.SetSchedule([]*model.Shift{seedShift(1, "2024-01-08", model.SlotEarly)})

	rec := doJSON(t, h, http.MethodGet, "/api/shifts/by?employee_id=1&date=2024-01-08&slot=early", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var shift model.Shift
	decodeBody(t, rec, &shift)
	if shift.EmployeeID != 1 || shift.StartTime != "08:00" {
		t.Errorf("shift = %+v", shift)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/shifts/by?employee_id=2&date=2024-01-08&slot=early", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestChangeRequestFlow(t *testing.T) {
	h := newTestHandler(t)
	h.store.SetSchedule([]*model.Shift{
		seedShift(1, "2024-01-10", model.SlotEarly),
		seedShift(2, "2024-01-10", model.SlotLate),
	})

	// 欠勤申請を名前で登録
	rec := doJSON(t, h, http.MethodPost, "/api/shift-change", map[string]interface{}{
		"type":          "absence",
		"employee_name": "田中",
		"date":          "2024-01-10",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d\n%s", rec.Code, rec.Body.String())
	}
	var created model.ChangeRequest
	decodeBody(t, rec, &created)
	if created.EmployeeID == nil || *created.EmployeeID != 1 {
		t.Fatalf("employee_id = %v", created.EmployeeID)
	}
	if created.Status != model.StatusPending {
		t.Fatalf("status = %s", created.Status)
	}

	// 一覧
	rec = doJSON(t, h, http.MethodGet, "/api/shift-change?status=pending", nil, nil)
	var listResp struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &listResp)
	if listResp.Count != 1 {
		t.Errorf("pending count = %d, want 1", listResp.Count)
	}

	// プレビューはライブ排班を変えない
	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/shift-change/%d/preview", created.ID), nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview status = %d\n%s", rec.Code, rec.Body.String())
	}
	var preview ChangePreviewResponse
	decodeBody(t, rec, &preview)
	if len(preview.Removed) != 1 {
		t.Errorf("removed = %d, want 1", len(preview.Removed))
	}
	if len(h.store.Snapshot()) != 2 {
		t.Error("preview がライブ排班を変更した")
	}

	// 承認で欠勤が反映される
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/shift-change/%d/approve", created.ID), nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve status = %d\n%s", rec.Code, rec.Body.String())
	}
	var approveResp struct {
		Message string `json:"message"`
	}
	decodeBody(t, rec, &approveResp)
	// 承認メッセージは申請時の表記（"田中"）をそのまま使う
	if approveResp.Message != "田中さんの1/10の申請を承認しました" {
		t.Errorf("message = %s", approveResp.Message)
	}
	if len(h.store.Snapshot()) != 1 {
		t.Errorf("承認後のシフト数 = %d, want 1", len(h.store.Snapshot()))
	}

	// 再承認は競合
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/shift-change/%d/approve", created.ID), nil, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("re-approve status = %d, want 409", rec.Code)
	}
}

func TestChangeRequestAmbiguousName(t *testing.T) {
	h := newTestHandler(t)

	// 「田」は複数の従業員に部分一致する
	rec := doJSON(t, h, http.MethodPost, "/api/shift-change", map[string]interface{}{
		"type":          "absence",
		"employee_name": "田",
		"date":          "2024-01-10",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAdjustmentFlow(t *testing.T) {
	h := newTestHandler(t)
	h.store.SetSchedule([]*model.Shift{seedShift(1, "2024-01-08", model.SlotEarly)})

	rec := doJSON(t, h, http.MethodPost, "/api/adjustments/preview", map[string]interface{}{
		"rule": map[string]interface{}{
			"type": "add_employee_shift",
			"parameters": map[string]interface{}{
				"employee_id": 2,
				"date":        "2024-01-09",
				"slot":        "early",
			},
		},
		"week_start": "2024-01-08",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview status = %d\n%s", rec.Code, rec.Body.String())
	}
	var preview AdjustmentPreviewResponse
	decodeBody(t, rec, &preview)
	if preview.ChangeSet == nil || len(preview.ChangeSet.Deltas) != 1 {
		t.Fatalf("change_set = %+v", preview.ChangeSet)
	}
	if len(preview.Added) != 1 {
		t.Errorf("added = %d, want 1", len(preview.Added))
	}

	applyBody := AdjustmentApplyRequest{ChangeSetID: preview.ChangeSet.ID}

	// 管理者以外は適用不可
	rec = doJSON(t, h, http.MethodPost, "/api/adjustments/apply", applyBody, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("apply without role status = %d, want 403", rec.Code)
	}

	admin := map[string]string{"X-Role": "admin"}
	rec = doJSON(t, h, http.MethodPost, "/api/adjustments/apply", applyBody, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("apply status = %d\n%s", rec.Code, rec.Body.String())
	}
	if len(h.store.Snapshot()) != 2 {
		t.Errorf("適用後のシフト数 = %d, want 2", len(h.store.Snapshot()))
	}

	rec = doJSON(t, h, http.MethodPost, "/api/adjustments/rollback", applyBody, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("rollback status = %d\n%s", rec.Code, rec.Body.String())
	}
	if len(h.store.Snapshot()) != 1 {
		t.Errorf("rollback 後のシフト数 = %d, want 1", len(h.store.Snapshot()))
	}
}

func TestAdjustmentApplyStale(t *testing.T) {
	h := newTestHandler(t)
	h.store.SetSchedule([]*model.Shift{seedShift(1, "2024-01-08", model.SlotEarly)})

	rec := doJSON(t, h, http.MethodPost, "/api/adjustments/preview", map[string]interface{}{
		"rule":       map[string]interface{}{"type": "redistribute_shifts"},
		"week_start": "2024-01-08",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview status = %d", rec.Code)
	}
	var preview AdjustmentPreviewResponse
	decodeBody(t, rec, &preview)

	// 提案作成後に排班が変わる
	h.store.SetSchedule([]*model.Shift{seedShift(2, "2024-01-09", model.SlotLate)})

	rec = doJSON(t, h, http.MethodPost, "/api/adjustments/apply",
		AdjustmentApplyRequest{ChangeSetID: preview.ChangeSet.ID},
		map[string]string{"X-Role": "admin"})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestAdjustmentUnknownRule(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/adjustments/preview", map[string]interface{}{
		"rule": map[string]interface{}{"type": "fire_everyone"},
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
