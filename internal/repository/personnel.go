package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/paiban/linecrew/pkg/model"
)

// PersonnelRepository 线路和人员仓储
type PersonnelRepository struct {
	db DB
}

// NewPersonnelRepository 创建线路和人员仓储
func NewPersonnelRepository(db DB) *PersonnelRepository {
	return &PersonnelRepository{db: db}
}

// ListLines 按线路ID升序返回全部线路
func (r *PersonnelRepository) ListLines(ctx context.Context) ([]model.Line, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT line_id, "offset", max_headcount FROM lines ORDER BY line_id`)
	if err != nil {
		return nil, fmt.Errorf("查询线路失败: %w", err)
	}
	defer rows.Close()

	var lines []model.Line
	for rows.Next() {
		var l model.Line
		if err := rows.Scan(&l.ID, &l.Offset, &l.MaxHeadcount); err != nil {
			return nil, fmt.Errorf("扫描线路失败: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历线路失败: %w", err)
	}
	if err := model.ValidateLines(lines); err != nil {
		return nil, err
	}
	return lines, nil
}

const personColumns = `emp_id, name, role, title, years_experience, is_ecp,
	cant_work_with, can_only_work_with, should_work_with, should_not_work_with,
	locked_line, preferred_lines, avoid_lines`

// ListPersons 按人员ID升序返回在职人员
func (r *PersonnelRepository) ListPersons(ctx context.Context) ([]*model.Person, error) {
	query := `SELECT ` + personColumns + ` FROM persons WHERE active ORDER BY emp_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询人员失败: %w", err)
	}
	defer rows.Close()

	var persons []*model.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历人员失败: %w", err)
	}
	return persons, nil
}

// UpsertLine 新增或更新线路
func (r *PersonnelRepository) UpsertLine(ctx context.Context, l model.Line) error {
	if err := l.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO lines (line_id, "offset", max_headcount) VALUES ($1, $2, $3)
		ON CONFLICT (line_id) DO UPDATE SET "offset" = EXCLUDED."offset", max_headcount = EXCLUDED.max_headcount
	`
	if _, err := r.db.ExecContext(ctx, query, l.ID, l.Offset, l.MaxHeadcount); err != nil {
		return fmt.Errorf("保存线路失败: %w", err)
	}
	return nil
}

// UpsertPerson 新增或更新人员
func (r *PersonnelRepository) UpsertPerson(ctx context.Context, p *model.Person) error {
	if err := p.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO persons (` + personColumns + `, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, TRUE)
		ON CONFLICT (emp_id) DO UPDATE SET
			name = EXCLUDED.name, role = EXCLUDED.role, title = EXCLUDED.title,
			years_experience = EXCLUDED.years_experience, is_ecp = EXCLUDED.is_ecp,
			cant_work_with = EXCLUDED.cant_work_with, can_only_work_with = EXCLUDED.can_only_work_with,
			should_work_with = EXCLUDED.should_work_with, should_not_work_with = EXCLUDED.should_not_work_with,
			locked_line = EXCLUDED.locked_line, preferred_lines = EXCLUDED.preferred_lines,
			avoid_lines = EXCLUDED.avoid_lines, active = TRUE
	`
	if _, err := r.db.ExecContext(ctx, query, personArgs(p)...); err != nil {
		return fmt.Errorf("保存人员 %s 失败: %w", p.ID, err)
	}
	return nil
}

// personArgs 人员写入参数，集合列按排序后的数组写入（空集合写入 '{}'）
func personArgs(p *model.Person) []interface{} {
	var locked sql.NullInt64
	if p.IsLocked() {
		locked = sql.NullInt64{Int64: int64(p.LockedLine), Valid: true}
	}
	return []interface{}{
		p.ID, p.Name, string(p.Role), string(p.Title), p.YearsExperience, p.ExtendedCare,
		pq.StringArray(p.CantWorkWith.Sorted()),
		pq.StringArray(p.CanOnlyWorkWith.Sorted()),
		pq.StringArray(p.ShouldWorkWith.Sorted()),
		pq.StringArray(p.ShouldNotWorkWith.Sorted()),
		locked,
		toInt64Array(p.PreferredLines.Sorted()),
		toInt64Array(p.AvoidLines.Sorted()),
	}
}

// scanPerson 扫描一行人员数据
func scanPerson(row Scanner) (*model.Person, error) {
	var (
		p                    model.Person
		role, title          string
		cant, only, should   pq.StringArray
		shouldNot            pq.StringArray
		locked               sql.NullInt64
		preferred, avoidList pq.Int64Array
	)
	err := row.Scan(
		&p.ID, &p.Name, &role, &title, &p.YearsExperience, &p.ExtendedCare,
		&cant, &only, &should, &shouldNot,
		&locked, &preferred, &avoidList,
	)
	if err != nil {
		return nil, fmt.Errorf("扫描人员失败: %w", err)
	}

	if p.Role, err = model.ParseRole(role); err != nil {
		return nil, fmt.Errorf("人员 %s: %w", p.ID, err)
	}
	if p.Title, err = model.ParseTitle(title); err != nil {
		return nil, fmt.Errorf("人员 %s: %w", p.ID, err)
	}
	p.CantWorkWith = stringSet(cant)
	p.CanOnlyWorkWith = stringSet(only)
	p.ShouldWorkWith = stringSet(should)
	p.ShouldNotWorkWith = stringSet(shouldNot)
	if locked.Valid {
		p.LockedLine = int(locked.Int64)
	}
	p.PreferredLines = intSet(preferred)
	p.AvoidLines = intSet(avoidList)

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func stringSet(items []string) model.StringSet {
	if len(items) == 0 {
		return nil
	}
	return model.NewStringSet(items...)
}

func intSet(items []int64) model.IntSet {
	if len(items) == 0 {
		return nil
	}
	out := make([]int, len(items))
	for i, v := range items {
		out[i] = int(v)
	}
	return model.NewIntSet(out...)
}

func toInt64Array(items []int) pq.Int64Array {
	out := make(pq.Int64Array, len(items))
	for i, v := range items {
		out[i] = int64(v)
	}
	return out
}
