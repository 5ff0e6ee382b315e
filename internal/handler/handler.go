// Package handler 提供HTTP请求处理器
package handler

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/banci/banci/internal/config"
	"github.com/banci/banci/internal/database"
	"github.com/banci/banci/internal/metrics"
	"github.com/banci/banci/internal/notify"
	"github.com/banci/banci/internal/store"
	"github.com/banci/banci/pkg/change"
	"github.com/banci/banci/pkg/model"
	"github.com/banci/banci/pkg/rule"
)

// Handler 排班服务的HTTP处理器
type Handler struct {
	cfg       *config.Config
	store     *store.Store
	employees model.Directory
	engine    *change.Engine
	generator *rule.Generator
	notifier  *notify.Notifier
	cache     *store.GenerationCache
	db        *database.DB // nil なら永続化なし

	// preview 済みでまだ適用されていない調整提案
	proposalMu sync.Mutex
	proposals  map[string]*rule.ChangeSet

	Mux *chi.Mux
}

// NewHandler 创建处理器并组装依赖
func NewHandler(cfg *config.Config, st *store.Store, employees model.Directory, notifier *notify.Notifier, db *database.DB) *Handler {
	return &Handler{
		cfg:       cfg,
		store:     st,
		employees: employees,
		engine:    change.NewEngine(employees),
		generator: rule.NewGenerator(employees, rule.DefaultThresholds()),
		notifier:  notifier,
		cache:     store.NewGenerationCache(cfg.Cache.TTL),
		db:        db,
		proposals: make(map[string]*rule.ChangeSet),
		Mux:       chi.NewRouter(),
	}
}

// RegisterRoutes 注册全部路由
func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Get("/healthz", h.Health)
	if h.cfg.Metrics.Enabled {
		h.Mux.Handle(h.cfg.Metrics.Path, metrics.Handler())
	}

	h.Mux.Route("/api", func(r chi.Router) {
		r.Get("/employees", h.ListEmployees)

		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.ListShifts)
			r.Delete("/", h.ClearShifts)
			r.Post("/generate", h.Generate)
			r.Get("/by", h.GetShiftBy)
			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", h.UpdateShift)
				r.Delete("/", h.DeleteShift)
			})
		})

		r.Route("/shift-change", func(r chi.Router) {
			r.Post("/", h.CreateChangeRequest)
			r.Get("/", h.ListChangeRequests)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/preview", h.PreviewChangeRequest)
				r.Post("/approve", h.ApproveChangeRequest)
				r.Post("/reject", h.RejectChangeRequest)
			})
		})

		r.Route("/adjustments", func(r chi.Router) {
			r.Post("/preview", h.PreviewAdjustment)
			r.Post("/apply", h.ApplyAdjustment)
			r.Post("/rollback", h.RollbackAdjustment)
			r.Get("/events", h.AdjustmentEvents)
		})
	})
}

// Health 健康检查
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":           "ok",
		"schedule_version": h.store.Version(),
	}
	if h.db != nil {
		if err := h.db.Health(r.Context()); err != nil {
			resp["status"] = "degraded"
			resp["database"] = "unreachable"
		} else {
			resp["database"] = "ok"
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// ListEmployees 返回员工目录
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"employees": h.employees,
		"count":     len(h.employees),
	})
}
