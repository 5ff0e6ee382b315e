// Package model 定义排班引擎的核心数据模型
package model

import (
	"strings"
	"time"
)

// Role 员工角色
type Role string

const (
	RoleManager      Role = "manager"       // 管理職
	RoleSeniorStaff  Role = "senior_staff"  // 上級スタッフ
	RoleGeneralStaff Role = "general_staff" // 一般スタッフ
)

// Employee 员工（人事目录的只读视图）
type Employee struct {
	ID         int64      `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	Email      string     `json:"email,omitempty" db:"email"`
	Role       Role       `json:"role" db:"role"`
	SkillLevel int        `json:"skill_level" db:"skill_level"` // 1-10
	CreatedAt  *time.Time `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// IsManager 检查员工是否为管理职
func (e *Employee) IsManager() bool {
	return e.Role == RoleManager
}

// Directory 员工目录（只读）
type Directory []*Employee

// ByID 根据ID查找员工
func (d Directory) ByID(id int64) *Employee {
	for _, e := range d {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// MatchByName 根据姓名解析员工ID
// 完全一致が唯一ならそれを、なければ部分一致が唯一の場合のみ解決する。
func (d Directory) MatchByName(name string) (int64, bool) {
	if name == "" {
		return 0, false
	}

	var exact []int64
	for _, e := range d {
		if e.Name == name {
			exact = append(exact, e.ID)
		}
	}
	if len(exact) == 1 {
		return exact[0], true
	}

	var partial []int64
	for _, e := range d {
		if strings.Contains(e.Name, name) {
			partial = append(partial, e.ID)
		}
	}
	if len(partial) == 1 {
		return partial[0], true
	}
	return 0, false
}

// ManagerIDs 返回所有管理职员工ID
func (d Directory) ManagerIDs() []int64 {
	var ids []int64
	for _, e := range d {
		if e.IsManager() {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// SkillOf 获取员工技能等级（不存在时返回1）
func (d Directory) SkillOf(id int64) int {
	if e := d.ByID(id); e != nil {
		return e.SkillLevel
	}
	return 1
}
