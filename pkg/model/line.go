package model

import "fmt"

// Line 线路（轮班小组）
type Line struct {
	ID           int `json:"line_id" db:"line_id"`
	Offset       int `json:"offset" db:"offset"`               // 轮班偏移量
	MaxHeadcount int `json:"max_headcount" db:"max_headcount"` // 最大人数
}

// Validate 检查线路数据
func (l Line) Validate() error {
	if l.ID < 1 {
		return fmt.Errorf("线路ID必须大于0: %d", l.ID)
	}
	if l.MaxHeadcount < 0 {
		return fmt.Errorf("线路 %d 最大人数不能为负数", l.ID)
	}
	return nil
}

// ValidateLines 检查线路列表（ID 唯一）
func ValidateLines(lines []Line) error {
	seen := make(map[int]bool, len(lines))
	for _, l := range lines {
		if err := l.Validate(); err != nil {
			return err
		}
		if seen[l.ID] {
			return fmt.Errorf("线路ID重复: %d", l.ID)
		}
		seen[l.ID] = true
	}
	return nil
}
