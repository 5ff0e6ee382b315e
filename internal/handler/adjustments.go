package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/banci/banci/internal/metrics"
	apperrors "github.com/banci/banci/pkg/errors"
	"github.com/banci/banci/pkg/model"
	"github.com/banci/banci/pkg/rule"
)

// AdjustmentPreviewRequest 调整提案的预览请求
type AdjustmentPreviewRequest struct {
	Rule      json.RawMessage `json:"rule"`
	WeekStart string          `json:"week_start,omitempty"`
}

// AdjustmentPreviewResponse 调整提案的预览响应
type AdjustmentPreviewResponse struct {
	ChangeSet *rule.ChangeSet          `json:"change_set"`
	Shifts    []*model.Shift           `json:"shifts"`
	Added     []*model.Shift           `json:"added"`
	Removed   []*model.Shift           `json:"removed"`
	Updated   []*model.ShiftUpdatePair `json:"updated"`
}

// PreviewAdjustment 生成调整提案
// 現行排班のスナップショット上で差分を計算する。適用は別操作。
func (h *Handler) PreviewAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentPreviewRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if len(req.Rule) == 0 {
		respondError(w, apperrors.InvalidInput("rule", "rule は必須です"))
		return
	}

	adjRule, err := rule.Decode(req.Rule)
	if err != nil {
		respondError(w, err)
		return
	}
	if req.WeekStart != "" {
		if _, err := model.ParseDate(req.WeekStart); err != nil {
			respondError(w, apperrors.InvalidInput("week_start", "日付は YYYY-MM-DD 形式で指定してください"))
			return
		}
	}

	schedule := h.store.Snapshot()
	cs, err := h.generator.Preview(adjRule, schedule, req.WeekStart, h.store.Version())
	if err != nil {
		respondError(w, err)
		return
	}

	h.proposalMu.Lock()
	h.proposals[cs.ID] = cs
	h.proposalMu.Unlock()

	metrics.RecordAdjustment("preview")
	h.store.PublishProposalsReady(cs)

	after, added, removed, updated := rule.ApplyDeltas(schedule, cs.Deltas)
	respondJSON(w, http.StatusOK, AdjustmentPreviewResponse{
		ChangeSet: cs,
		Shifts:    after,
		Added:     added,
		Removed:   removed,
		Updated:   updated,
	})
}

// AdjustmentApplyRequest 调整提案的应用・回滚请求
type AdjustmentApplyRequest struct {
	ChangeSetID string `json:"change_set_id"`
}

// ApplyAdjustment 应用调整提案到现行排班
// 管理者のみ。提案作成後に排班が変わっていれば 409。
func (h *Handler) ApplyAdjustment(w http.ResponseWriter, r *http.Request) {
	if err := requireAdmin(r); err != nil {
		respondError(w, err)
		return
	}

	var req AdjustmentApplyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	h.proposalMu.Lock()
	cs, ok := h.proposals[req.ChangeSetID]
	h.proposalMu.Unlock()
	if !ok {
		respondError(w, apperrors.New(apperrors.CodeNotFound, "提案が見つかりません"))
		return
	}

	version, err := h.store.ApplyChangeSet(cs)
	if err != nil {
		respondError(w, err)
		return
	}

	h.proposalMu.Lock()
	delete(h.proposals, req.ChangeSetID)
	h.proposalMu.Unlock()

	metrics.RecordAdjustment("apply")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"applied":          cs.ID,
		"schedule_version": version,
	})
}

// RollbackAdjustment 回滚一次已应用的调整
func (h *Handler) RollbackAdjustment(w http.ResponseWriter, r *http.Request) {
	if err := requireAdmin(r); err != nil {
		respondError(w, err)
		return
	}

	var req AdjustmentApplyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	version, err := h.store.RollbackChangeSet(req.ChangeSetID)
	if err != nil {
		respondError(w, err)
		return
	}

	metrics.RecordAdjustment("rollback")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rolled_back":      req.ChangeSetID,
		"schedule_version": version,
	})
}

func requireAdmin(r *http.Request) error {
	if r.Header.Get("X-Role") != "admin" {
		return apperrors.New(apperrors.CodeForbidden, "管理者のみ実行できます")
	}
	return nil
}

const sseHeartbeatInterval = 15 * time.Second

// AdjustmentEvents 以SSE推送调整相关事件
// proposals_ready / schedule.updated を購読する。切断で購読解除。
func (h *Handler) AdjustmentEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, apperrors.New(apperrors.CodeInternal, "ストリーミングに対応していません"))
		return
	}

	events, cancel := h.store.Subscribe()
	defer cancel()

	metrics.AddEventSubscriber(1)
	defer metrics.AddEventSubscriber(-1)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}
