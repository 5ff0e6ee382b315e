package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/banci/banci/pkg/model"
)

// EmployeeRepository 员工仓储
type EmployeeRepository struct {
	db DB
}

// NewEmployeeRepository 创建员工仓储
func NewEmployeeRepository(db DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// LoadAll 读取全部员工
func (r *EmployeeRepository) LoadAll(ctx context.Context) (model.Directory, error) {
	query := `
		SELECT id, name, email, role, skill_level, created_at, updated_at
		FROM employees
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("读取员工列表失败: %w", err)
	}
	defer rows.Close()

	var dir model.Directory
	for rows.Next() {
		var e model.Employee
		var email sql.NullString
		var createdAt, updatedAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.Name, &email, &e.Role, &e.SkillLevel, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("扫描员工记录失败: %w", err)
		}
		e.Email = email.String
		if createdAt.Valid {
			e.CreatedAt = &createdAt.Time
		}
		if updatedAt.Valid {
			e.UpdatedAt = &updatedAt.Time
		}
		dir = append(dir, &e)
	}
	return dir, rows.Err()
}

// ReplaceAll 以给定名单整体替换员工表
// CSV インポートの反映に使う。トランザクションは呼び出し側が張らない
// 前提の素朴な実装。
func (r *EmployeeRepository) ReplaceAll(ctx context.Context, dir model.Directory) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM employees"); err != nil {
		return fmt.Errorf("清空员工表失败: %w", err)
	}

	query := `
		INSERT INTO employees (id, name, email, role, skill_level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	now := time.Now()
	for _, e := range dir {
		created, updated := e.CreatedAt, e.UpdatedAt
		if created == nil {
			created = &now
		}
		if updated == nil {
			updated = &now
		}
		if _, err := r.db.ExecContext(ctx, query, e.ID, e.Name, e.Email, e.Role, e.SkillLevel, created, updated); err != nil {
			return fmt.Errorf("写入员工 %d 失败: %w", e.ID, err)
		}
	}
	return nil
}

// DefaultDirectory 内置 30 人名单
// DB 無効時および空テーブル時の初期データ。
func DefaultDirectory() model.Directory {
	seed := []struct {
		id    int64
		name  string
		role  model.Role
		skill int
		email string
	}{
		{1, "田中太郎", model.RoleManager, 5, "tanaka@example.com"},
		{2, "佐藤花子", model.RoleManager, 4, "sato@example.com"},
		{3, "鈴木一郎", model.RoleManager, 5, "suzuki@example.com"},
		{4, "高橋美咲", model.RoleManager, 4, "takahashi@example.com"},
		{5, "伊藤健太", model.RoleManager, 5, "ito@example.com"},
		{6, "渡辺由美", model.RoleManager, 4, "watanabe@example.com"},
		{7, "山本直樹", model.RoleManager, 5, "yamamoto@example.com"},
		{8, "中村麻衣", model.RoleSeniorStaff, 4, "nakamura@example.com"},
		{9, "小林正人", model.RoleSeniorStaff, 3, "kobayashi@example.com"},
		{10, "加藤美香", model.RoleSeniorStaff, 4, "kato@example.com"},
		{11, "松本健一", model.RoleSeniorStaff, 3, "matsumoto@example.com"},
		{12, "井上美穂", model.RoleSeniorStaff, 4, "inoue@example.com"},
		{13, "木村拓也", model.RoleSeniorStaff, 3, "kimura@example.com"},
		{14, "斉藤恵子", model.RoleSeniorStaff, 4, "saito@example.com"},
		{15, "森田直人", model.RoleSeniorStaff, 3, "morita@example.com"},
		{16, "橋本雅子", model.RoleSeniorStaff, 4, "hashimoto@example.com"},
		{17, "清水康夫", model.RoleSeniorStaff, 3, "shimizu@example.com"},
		{18, "藤田真理", model.RoleSeniorStaff, 4, "fujita@example.com"},
		{19, "吉田和彦", model.RoleGeneralStaff, 3, "yoshida@example.com"},
		{20, "石川美奈", model.RoleGeneralStaff, 2, "ishikawa@example.com"},
		{21, "村上健二", model.RoleGeneralStaff, 3, "murakami@example.com"},
		{22, "岡田真由美", model.RoleGeneralStaff, 2, "okada@example.com"},
		{23, "前田光一", model.RoleGeneralStaff, 3, "maeda@example.com"},
		{24, "長谷川愛", model.RoleGeneralStaff, 2, "hasegawa@example.com"},
		{25, "野村雄介", model.RoleGeneralStaff, 3, "nomura@example.com"},
		{26, "青木さくら", model.RoleGeneralStaff, 2, "aoki@example.com"},
		{27, "西田博之", model.RoleGeneralStaff, 3, "nishida@example.com"},
		{28, "東山美樹", model.RoleGeneralStaff, 2, "higashiyama@example.com"},
		{29, "南原拓海", model.RoleGeneralStaff, 3, "minamihara@example.com"},
		{30, "北川優子", model.RoleGeneralStaff, 2, "kitagawa@example.com"},
	}

	now := time.Now()
	dir := make(model.Directory, 0, len(seed))
	for _, s := range seed {
		dir = append(dir, &model.Employee{
			ID:         s.id,
			Name:       s.name,
			Email:      s.email,
			Role:       s.role,
			SkillLevel: s.skill,
			CreatedAt:  &now,
			UpdatedAt:  &now,
		})
	}
	return dir
}
