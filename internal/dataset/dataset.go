// Package dataset 读写线路、人员和排班快照 JSON 文件。
// 排班快照只保存决策数据（线路 → 成员），班次始终由轮转推导。
package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/paiban/linecrew/pkg/model"
)

// Meta 排班快照元数据
type Meta struct {
	RunID       string    `json:"run_id,omitempty"`
	Weeks       int       `json:"weeks"`
	Seed        int64     `json:"seed"`
	GeneratedAt time.Time `json:"generated_at"`
	Score       *float64  `json:"score,omitempty"`
}

// RosterFile 排班快照文件
type RosterFile struct {
	Meta  Meta              `json:"meta"`
	Lines []model.CrewEntry `json:"lines"`
}

// ReadLines 解析线路列表
func ReadLines(r io.Reader) ([]model.Line, error) {
	var lines []model.Line
	if err := json.NewDecoder(r).Decode(&lines); err != nil {
		return nil, fmt.Errorf("解析线路数据失败: %w", err)
	}
	if err := model.ValidateLines(lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// LoadLines 从文件加载线路列表
func LoadLines(path string) ([]model.Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开线路文件失败: %w", err)
	}
	defer f.Close()
	return ReadLines(f)
}

// ReadPersons 解析人员列表，缺省角色为 PARAMEDIC、职称为 PARA
func ReadPersons(r io.Reader) ([]*model.Person, error) {
	var persons []*model.Person
	if err := json.NewDecoder(r).Decode(&persons); err != nil {
		return nil, fmt.Errorf("解析人员数据失败: %w", err)
	}
	for i, p := range persons {
		if p == nil {
			return nil, fmt.Errorf("第 %d 条人员数据为空", i)
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return persons, nil
}

// LoadPersons 从文件加载人员列表
func LoadPersons(path string) ([]*model.Person, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开人员文件失败: %w", err)
	}
	defer f.Close()
	return ReadPersons(f)
}

// ReadRoster 解析排班快照并按给定线路和轮转重建排班表。
// weeks 为 0 时使用快照中的周数。
func ReadRoster(r io.Reader, lines []model.Line, pattern model.ShiftPattern, weeks int) (*model.Roster, *Meta, error) {
	var file RosterFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, nil, fmt.Errorf("解析排班快照失败: %w", err)
	}
	if weeks == 0 {
		weeks = file.Meta.Weeks
	}
	if weeks < 1 {
		return nil, nil, fmt.Errorf("排班周数无效: %d", weeks)
	}

	roster, err := model.NewRoster(lines, pattern, weeks*7)
	if err != nil {
		return nil, nil, err
	}
	if err := roster.Load(file.Lines); err != nil {
		return nil, nil, fmt.Errorf("加载排班快照失败: %w", err)
	}
	file.Meta.Weeks = weeks
	return roster, &file.Meta, nil
}

// LoadRoster 从文件加载排班快照
func LoadRoster(path string, lines []model.Line, pattern model.ShiftPattern, weeks int) (*model.Roster, *Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("打开排班快照失败: %w", err)
	}
	defer f.Close()
	return ReadRoster(f, lines, pattern, weeks)
}

// WriteRoster 写出排班快照（缩进2空格）
func WriteRoster(w io.Writer, roster *model.Roster, meta Meta) error {
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now().UTC()
	}
	if meta.Weeks == 0 {
		meta.Weeks = roster.Days() / 7
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(RosterFile{Meta: meta, Lines: roster.Entries()})
}

// SaveRoster 写出排班快照文件，自动创建上级目录
func SaveRoster(path string, roster *model.Roster, meta Meta) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建排班快照失败: %w", err)
	}
	if err := WriteRoster(f, roster, meta); err != nil {
		f.Close()
		return fmt.Errorf("写入排班快照失败: %w", err)
	}
	return f.Close()
}
