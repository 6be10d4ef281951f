// Package stats 提供排班统计分析功能
package stats

import (
	"fmt"
	"strings"

	"github.com/paiban/linecrew/pkg/model"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	Target        int     `json:"target"`         // 每个班次目标人数
	TotalShifts   int     `json:"total_shifts"`   // 工作班次数 (day × {D, N})
	Balanced      int     `json:"balanced"`       // 人数正好达标的班次数
	BalancedRatio float64 `json:"balanced_ratio"` // 达标比例 (%)
	AverageStaff  float64 `json:"average_staff"`  // 平均在岗人数
	MinStaff      int     `json:"min_staff"`
	MaxStaff      int     `json:"max_staff"`

	// 按班次类型统计平均在岗人数
	ShiftTypeAverage map[string]float64 `json:"shift_type_average"`

	Daily        []DayCoverage   `json:"daily"`
	Understaffed []ShiftCoverage `json:"understaffed"` // 人手不足班次
	Overstaffed  []ShiftCoverage `json:"overstaffed"`  // 人手过剩班次
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Day        int `json:"day"`
	DayStaff   int `json:"day_staff"`
	NightStaff int `json:"night_staff"`
}

// ShiftCoverage 单个班次的覆盖情况
type ShiftCoverage struct {
	Day   int             `json:"day"`
	Shift model.ShiftType `json:"shift"`
	Lines []int           `json:"lines"` // 上岗线路
	Staff int             `json:"staff"`
	Gap   int             `json:"gap"` // 实际人数 - 目标人数
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct {
	target int
}

// NewCoverageAnalyzer 创建覆盖率分析器，target 为每个班次目标人数
func NewCoverageAnalyzer(target int) *CoverageAnalyzer {
	return &CoverageAnalyzer{target: target}
}

// Analyze 分析排班覆盖率
func (c *CoverageAnalyzer) Analyze(r *model.Roster) *CoverageMetrics {
	m := &CoverageMetrics{
		Target:           c.target,
		ShiftTypeAverage: make(map[string]float64),
		Daily:            make([]DayCoverage, 0, r.Days()),
	}
	keys := r.ShiftKeys()
	if len(keys) == 0 {
		m.BalancedRatio = 100
		return m
	}

	typeTotals := make(map[model.ShiftType]int)
	typeCounts := make(map[model.ShiftType]int)
	total := 0
	m.MinStaff = -1

	for _, key := range keys {
		sc := ShiftCoverage{Day: key.Day, Shift: key.Shift}
		for _, crew := range r.CrewsOnShift(key.Day, key.Shift) {
			sc.Lines = append(sc.Lines, crew.LineID)
			sc.Staff += len(crew.Members)
		}
		sc.Gap = sc.Staff - c.target

		if key.Shift == model.ShiftDay {
			m.Daily = append(m.Daily, DayCoverage{Day: key.Day, DayStaff: sc.Staff})
		} else {
			m.Daily[len(m.Daily)-1].NightStaff = sc.Staff
		}

		switch {
		case sc.Gap < 0:
			m.Understaffed = append(m.Understaffed, sc)
		case sc.Gap > 0:
			m.Overstaffed = append(m.Overstaffed, sc)
		default:
			m.Balanced++
		}

		total += sc.Staff
		typeTotals[key.Shift] += sc.Staff
		typeCounts[key.Shift]++
		if m.MinStaff < 0 || sc.Staff < m.MinStaff {
			m.MinStaff = sc.Staff
		}
		if sc.Staff > m.MaxStaff {
			m.MaxStaff = sc.Staff
		}
	}

	m.TotalShifts = len(keys)
	m.BalancedRatio = float64(m.Balanced) / float64(m.TotalShifts) * 100
	m.AverageStaff = float64(total) / float64(m.TotalShifts)
	for shift, n := range typeCounts {
		m.ShiftTypeAverage[shift.String()] = float64(typeTotals[shift]) / float64(n)
	}
	return m
}

// GenerateCoverageReport 生成覆盖率报告
func (c *CoverageAnalyzer) GenerateCoverageReport(m *CoverageMetrics) string {
	var sb strings.Builder
	sb.WriteString("=== 覆盖率分析报告 ===\n\n")

	sb.WriteString("【整体覆盖情况】\n")
	fmt.Fprintf(&sb, "  目标人数: %d\n", m.Target)
	fmt.Fprintf(&sb, "  工作班次: %d\n", m.TotalShifts)
	fmt.Fprintf(&sb, "  达标班次: %d (%.1f%%)\n", m.Balanced, m.BalancedRatio)
	fmt.Fprintf(&sb, "  在岗人数: 平均 %.1f, 最少 %d, 最多 %d\n\n", m.AverageStaff, m.MinStaff, m.MaxStaff)

	if len(m.Understaffed) > 0 {
		sb.WriteString("【人手不足班次】\n")
		for _, s := range m.Understaffed {
			fmt.Fprintf(&sb, "  - 第%d天 %s: %d人，缺%d人\n", s.Day, s.Shift, s.Staff, -s.Gap)
		}
		sb.WriteString("\n")
	}

	if len(m.Overstaffed) > 0 {
		sb.WriteString("【人手过剩班次】\n")
		for _, s := range m.Overstaffed {
			fmt.Fprintf(&sb, "  - 第%d天 %s: %d人，多%d人\n", s.Day, s.Shift, s.Staff, s.Gap)
		}
	}

	return sb.String()
}
