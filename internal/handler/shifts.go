package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/banci/banci/pkg/errors"
	"github.com/banci/banci/pkg/model"
)

// ListShifts 返回当前排班
// start_date / end_date を指定すると期間で絞り込む。
func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start_date")
	end := r.URL.Query().Get("end_date")

	var shifts []*model.Shift
	if start != "" && end != "" {
		shifts = h.store.SnapshotRange(start, end)
	} else {
		shifts = h.store.Snapshot()
	}
	if shifts == nil {
		shifts = []*model.Shift{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"shifts":           shifts,
		"count":            len(shifts),
		"schedule_version": h.store.Version(),
	})
}

// GetShiftBy 按(员工,日期,槽位)查找单个班次
func (h *Handler) GetShiftBy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	empID, err := strconv.ParseInt(q.Get("employee_id"), 10, 64)
	if err != nil {
		respondError(w, apperrors.InvalidInput("employee_id", "数値で指定してください"))
		return
	}
	date := q.Get("date")
	if _, err := model.ParseDate(date); err != nil {
		respondError(w, apperrors.InvalidInput("date", "日付は YYYY-MM-DD 形式で指定してください"))
		return
	}
	slot := model.SlotID(q.Get("slot"))
	if _, _, ok := model.SlotTimes(slot); !ok {
		respondError(w, apperrors.InvalidInput("slot", "early / late / night のいずれかを指定してください"))
		return
	}

	shift := h.store.FindShiftBy(empID, date, slot)
	if shift == nil {
		respondError(w, apperrors.New(apperrors.CodeNotFound, "対象シフトが見つかりません"))
		return
	}
	respondJSON(w, http.StatusOK, shift)
}

// UpdateShiftRequest 班次更新请求
type UpdateShiftRequest struct {
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	BreakMinutes int    `json:"break_minutes"`
}

// UpdateShift 更新单个班次的时间
func (h *Handler) UpdateShift(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, apperrors.InvalidInput("id", "数値で指定してください"))
		return
	}

	var req UpdateShiftRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.StartTime == "" || req.EndTime == "" {
		respondError(w, apperrors.InvalidInput("start_time", "start_time と end_time は必須です"))
		return
	}

	shift, err := h.store.UpdateShift(id, req.StartTime, req.EndTime, req.BreakMinutes)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, shift)
}

// DeleteShift 删除单个班次
func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, apperrors.InvalidInput("id", "数値で指定してください"))
		return
	}

	if err := h.store.DeleteShift(id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"deleted":          id,
		"schedule_version": h.store.Version(),
	})
}

// ClearShifts 清空全部排班
func (h *Handler) ClearShifts(w http.ResponseWriter, r *http.Request) {
	h.store.Clear()
	h.cache.Clear()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"cleared":          true,
		"schedule_version": h.store.Version(),
	})
}
