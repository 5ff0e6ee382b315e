package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/banci/banci/internal/metrics"
	"github.com/banci/banci/pkg/change"
	apperrors "github.com/banci/banci/pkg/errors"
	"github.com/banci/banci/pkg/model"
	"github.com/banci/banci/pkg/suggest"
)

// CreateChangeRequest 登记班次变更申请
func (h *Handler) CreateChangeRequest(w http.ResponseWriter, r *http.Request) {
	var req model.ChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	ve := &apperrors.ValidationErrors{}
	switch req.Type {
	case model.ChangeAbsence, model.ChangeTime, model.ChangeSwap, model.ChangeAddShift, model.ChangeCancelRequest:
	case "":
		ve.Add("type", "type は必須です")
	default:
		ve.Add("type", "未対応の type: "+string(req.Type))
	}
	if req.Date == "" {
		ve.Add("date", "date は必須です")
	} else if _, err := model.ParseDate(req.Date); err != nil {
		ve.Add("date", "日付は YYYY-MM-DD 形式で指定してください")
	}
	if ve.HasErrors() {
		respondError(w, ve.ToAppError())
		return
	}

	if err := h.engine.ResolveEmployee(&req); err != nil {
		respondError(w, err)
		return
	}

	created := h.store.AddRequest(&req)
	metrics.RecordChangeRequest("create")
	respondJSON(w, http.StatusCreated, created)
}

// ListChangeRequests 列出变更申请（?status= 可筛选）
func (h *Handler) ListChangeRequests(w http.ResponseWriter, r *http.Request) {
	status := model.RequestStatus(r.URL.Query().Get("status"))
	requests := h.store.ListRequests(status)
	if requests == nil {
		requests = []*model.ChangeRequest{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"requests": requests,
		"count":    len(requests),
	})
}

// ChangePreviewResponse 变更申请的预览响应
type ChangePreviewResponse struct {
	Request     *model.ChangeRequest     `json:"request"`
	Shifts      []*model.Shift           `json:"shifts"`
	Added       []*model.Shift           `json:"added"`
	Removed     []*model.Shift           `json:"removed"`
	Updated     []*model.ShiftUpdatePair `json:"updated"`
	Suggestions []suggest.Candidate      `json:"suggestions"`
}

// PreviewChangeRequest 预览申请应用后的排班
// 申請時の週快照上で計算する。ライブ排班は変更しない。
func (h *Handler) PreviewChangeRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.changeRequestFromPath(r)
	if err != nil {
		respondError(w, err)
		return
	}

	base := h.previewBase(req)
	result := h.engine.ApplyOnCopy(base, req)

	resp := ChangePreviewResponse{
		Request:     req,
		Shifts:      result.Shifts,
		Added:       result.Added,
		Removed:     result.Removed,
		Updated:     result.Updated,
		Suggestions: h.suggestFor(result, base),
	}
	if resp.Suggestions == nil {
		resp.Suggestions = []suggest.Candidate{}
	}
	respondJSON(w, http.StatusOK, resp)
}

// previewBase 返回预览用的基准排班
func (h *Handler) previewBase(req *model.ChangeRequest) []*model.Shift {
	if req.HasSnapshot() {
		return model.CloneShifts(req.SnapshotShifts)
	}
	ws, we, err := model.WeekRange(req.Date)
	if err != nil {
		return h.store.Snapshot()
	}
	return h.store.SnapshotRange(ws, we)
}

// suggestFor 为预览中消失的班次推荐替班候补
// 同一 (日付,時間帯) の重複は除外する。
func (h *Handler) suggestFor(result *change.Result, base []*model.Shift) []suggest.Candidate {
	var affected []*model.Shift
	affected = append(affected, result.Removed...)
	for _, pair := range result.Updated {
		affected = append(affected, pair.Before)
	}

	seen := make(map[string]bool)
	var out []suggest.Candidate
	for _, shift := range affected {
		key := shift.Date + "_" + shift.StartTime + "_" + shift.EndTime
		if seen[key] {
			continue
		}
		seen[key] = true
		cands := suggest.Replacements(shift, base, h.employees, []int64{shift.EmployeeID}, suggest.DefaultMaxCandidates)
		out = append(out, cands...)
	}
	return out
}

// ApproveChangeRequest 批准申请并应用到现行排班
func (h *Handler) ApproveChangeRequest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, apperrors.InvalidInput("id", "数値で指定してください"))
		return
	}

	req, err := h.store.ApproveRequest(id, func(shifts []*model.Shift, cr *model.ChangeRequest) ([]*model.Shift, error) {
		result, err := h.engine.Apply(shifts, cr)
		if err != nil {
			return nil, err
		}
		return result.Shifts, nil
	})
	if err != nil {
		respondError(w, err)
		return
	}

	metrics.RecordChangeRequest("approve")
	message := change.ApprovalMessage(req, h.employees)
	h.notifier.Send(r.Context(), req.NotifyUserID, message)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"request":          req,
		"message":          message,
		"schedule_version": h.store.Version(),
	})
}

// RejectChangeRequestBody 却下理由
type RejectChangeRequestBody struct {
	Reason string `json:"reason,omitempty"`
}

// RejectChangeRequest 驳回申请
func (h *Handler) RejectChangeRequest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, apperrors.InvalidInput("id", "数値で指定してください"))
		return
	}

	var body RejectChangeRequestBody
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &body); err != nil {
			respondError(w, err)
			return
		}
	}

	req, err := h.store.RejectRequest(id, body.Reason)
	if err != nil {
		respondError(w, err)
		return
	}

	metrics.RecordChangeRequest("reject")
	message := change.RejectionMessage(req, h.employees)
	h.notifier.Send(r.Context(), req.NotifyUserID, message)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"request": req,
		"message": message,
	})
}

func (h *Handler) changeRequestFromPath(r *http.Request) (*model.ChangeRequest, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return nil, apperrors.InvalidInput("id", "数値で指定してください")
	}
	req := h.store.GetRequest(id)
	if req == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "申請が見つかりません")
	}
	return req, nil
}
