package store

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/banci/banci/pkg/model"
)

// GenerationCache 排班生成结果缓存
// 同一条件の再生成を避ける。キーは生成条件の md5。
type GenerationCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value     interface{}
	createdAt time.Time
}

// NewGenerationCache 创建缓存
func NewGenerationCache(ttl time.Duration) *GenerationCache {
	if ttl <= 0 {
		ttl = 60 * time.Minute
	}
	return &GenerationCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Key 计算生成条件的缓存键
// 従業員の属性も含める。名簿が変われば別キーになる。
func Key(startDate, endDate string, employeeIDs []int64, employees model.Directory) string {
	ids := append([]int64(nil), employeeIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	type empKey struct {
		ID    int64      `json:"id"`
		Name  string     `json:"name"`
		Role  model.Role `json:"role"`
		Skill int        `json:"skill"`
	}
	emps := make([]empKey, 0, len(employees))
	for _, e := range employees {
		emps = append(emps, empKey{ID: e.ID, Name: e.Name, Role: e.Role, Skill: e.SkillLevel})
	}
	sort.Slice(emps, func(i, j int) bool { return emps[i].ID < emps[j].ID })

	payload, _ := json.Marshal(struct {
		StartDate   string   `json:"start_date"`
		EndDate     string   `json:"end_date"`
		EmployeeIDs []int64  `json:"employee_ids"`
		Employees   []empKey `json:"employees"`
	}{startDate, endDate, ids, emps})

	sum := md5.Sum(payload)
	return hex.EncodeToString(sum[:])
}

// Get 取出未过期的缓存
func (c *GenerationCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(e.createdAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Put 写入缓存
func (c *GenerationCache) Put(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, createdAt: time.Now()}
}

// Clear 清空缓存（名簿・排班が変わったら呼ぶ）
func (c *GenerationCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
