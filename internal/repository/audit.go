package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banci/banci/pkg/logger"
)

// AuditEntry 审计记录
type AuditEntry struct {
	ID        string                 `json:"id"`
	Actor     string                 `json:"actor"`
	Action    string                 `json:"action"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// AuditRepository 审计仓储
// 書き込みはベストエフォート。失敗しても呼び出し元の処理は止めない。
type AuditRepository struct {
	db DB // nil なら永続化せずメモリのみ

	mu      sync.Mutex
	entries []AuditEntry
}

// NewAuditRepository 创建审计仓储
func NewAuditRepository(db DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record 记录一条审计
func (r *AuditRepository) Record(ctx context.Context, actor, action string, meta map[string]interface{}) {
	entry := AuditEntry{
		ID:        uuid.New().String(),
		Actor:     actor,
		Action:    action,
		Meta:      meta,
		CreatedAt: time.Now(),
	}
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()

	if r.db == nil {
		return
	}
	metaJSON, _ := json.Marshal(meta)
	query := `INSERT INTO audit_logs (id, actor, action, meta, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, entry.ID, entry.Actor, entry.Action, metaJSON, entry.CreatedAt); err != nil {
		logger.WithError(err).
			Str("action", action).
			Msg("監査ログの書き込みに失敗しました")
	}
}

// Recent 返回最近的 n 条审计记录
func (r *AuditRepository) Recent(n int) []AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > len(r.entries) {
		n = len(r.entries)
	}
	out := make([]AuditEntry, n)
	copy(out, r.entries[len(r.entries)-n:])
	return out
}
