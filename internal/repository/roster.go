package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "github.com/paiban/linecrew/pkg/errors"
	"github.com/paiban/linecrew/pkg/model"
)

// Snapshot 排班运行快照：只保存决策数据（线路 → 有序成员）
type Snapshot struct {
	ID          uuid.UUID         `json:"id"`
	Weeks       int               `json:"weeks"`
	Seed        int64             `json:"seed"`
	Pattern     []string          `json:"pattern"`
	Score       float64           `json:"score"`
	Valid       bool              `json:"valid"`
	GeneratedAt time.Time         `json:"generated_at"`
	Lines       []model.CrewEntry `json:"lines"`
}

// NewSnapshot 由排班表创建快照
func NewSnapshot(r *model.Roster, seed int64, score float64, valid bool) *Snapshot {
	return &Snapshot{
		ID:          uuid.New(),
		Weeks:       r.Days() / 7,
		Seed:        seed,
		Pattern:     r.Pattern().Symbols(),
		Score:       score,
		Valid:       valid,
		GeneratedAt: time.Now().UTC(),
		Lines:       r.Entries(),
	}
}

// Roster 按给定线路重建排班表，快照中的未知线路返回错误
func (s *Snapshot) Roster(lines []model.Line) (*model.Roster, error) {
	pattern, err := model.ParseShiftPattern(s.Pattern)
	if err != nil {
		return nil, err
	}
	r, err := model.NewRoster(lines, pattern, s.Weeks*7)
	if err != nil {
		return nil, err
	}
	if err := r.Load(s.Lines); err != nil {
		return nil, err
	}
	return r, nil
}

// RosterRepository 排班快照仓储
type RosterRepository struct {
	db DB
}

// NewRosterRepository 创建排班快照仓储
func NewRosterRepository(db DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// Save 在一个事务中写入运行记录和线路成员
func (r *RosterRepository) Save(ctx context.Context, s *Snapshot) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.GeneratedAt.IsZero() {
		s.GeneratedAt = time.Now().UTC()
	}

	err := r.db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO roster_runs (id, weeks, seed, pattern, score, valid, generated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, s.ID, s.Weeks, s.Seed, pq.StringArray(s.Pattern), s.Score, s.Valid, s.GeneratedAt)
		if err != nil {
			return fmt.Errorf("写入运行记录失败: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO roster_crews (run_id, line_id, position, emp_id) VALUES ($1, $2, $3, $4)
		`)
		if err != nil {
			return fmt.Errorf("准备写入线路成员失败: %w", err)
		}
		defer stmt.Close()

		for _, entry := range s.Lines {
			for pos, id := range entry.Employees {
				if _, err := stmt.ExecContext(ctx, s.ID, entry.LineID, pos, id); err != nil {
					return fmt.Errorf("写入线路 %d 成员失败: %w", entry.LineID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "保存排班快照失败")
	}
	return nil
}

// Get 按ID读取快照
func (r *RosterRepository) Get(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, weeks, seed, pattern, score, valid, generated_at
		FROM roster_runs WHERE id = $1
	`, id)
	return r.load(ctx, row, id.String())
}

// Latest 读取最近生成的快照
func (r *RosterRepository) Latest(ctx context.Context) (*Snapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, weeks, seed, pattern, score, valid, generated_at
		FROM roster_runs ORDER BY generated_at DESC LIMIT 1
	`)
	return r.load(ctx, row, "latest")
}

func (r *RosterRepository) load(ctx context.Context, row Scanner, key string) (*Snapshot, error) {
	s, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("roster", key)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "读取排班快照失败")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT line_id, emp_id FROM roster_crews
		WHERE run_id = $1 ORDER BY line_id, position
	`, s.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "读取线路成员失败")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			lineID int
			empID  string
		)
		if err := rows.Scan(&lineID, &empID); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "扫描线路成员失败")
		}
		s.Lines = appendMember(s.Lines, lineID, empID)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "遍历线路成员失败")
	}
	return s, nil
}

func scanSnapshot(row Scanner) (*Snapshot, error) {
	var (
		s       Snapshot
		pattern pq.StringArray
	)
	if err := row.Scan(&s.ID, &s.Weeks, &s.Seed, &pattern, &s.Score, &s.Valid, &s.GeneratedAt); err != nil {
		return nil, err
	}
	s.Pattern = pattern
	return &s, nil
}

// appendMember 按 (line_id, position) 顺序追加成员
func appendMember(entries []model.CrewEntry, lineID int, empID string) []model.CrewEntry {
	if n := len(entries); n > 0 && entries[n-1].LineID == lineID {
		entries[n-1].Employees = append(entries[n-1].Employees, empID)
		return entries
	}
	return append(entries, model.CrewEntry{LineID: lineID, Employees: []string{empID}})
}
