package stats

import (
	"math"
	"sort"
	"time"

	"github.com/paiban/linecrew/pkg/model"
)

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	// 工作量公平性
	ShiftGini      float64 `json:"shift_gini"` // 班次数基尼系数 (0=完全公平, 1=完全不公平)
	ShiftStdDev    float64 `json:"shift_std_dev"`
	AvgShifts      float64 `json:"avg_shifts"`
	MaxShifts      int     `json:"max_shifts"`
	MinShifts      int     `json:"min_shifts"`
	NightShiftGini float64 `json:"night_shift_gini"`
	WeekendGini    float64 `json:"weekend_gini"`

	PersonStats []PersonStat `json:"person_stats"`

	OverallFairnessScore float64 `json:"overall_fairness_score"` // 综合公平性评分 (0-100)
}

// PersonStat 人员统计
type PersonStat struct {
	PersonID      string  `json:"emp_id"`
	LineID        int     `json:"line_id"`
	Shifts        int     `json:"shifts"`
	NightShifts   int     `json:"night_shifts"`
	WeekendShifts int     `json:"weekend_shifts"`
	Deviation     float64 `json:"deviation"` // 与平均值的偏差百分比
}

// FairnessAnalyzer 公平性分析器。
// 同一线路的成员工作班次完全相同，差异只来自线路偏移与排班天数。
type FairnessAnalyzer struct {
	startWeekday time.Weekday // 第0天是星期几
}

// NewFairnessAnalyzer 创建公平性分析器，第0天默认为星期一
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{startWeekday: time.Monday}
}

// WithStartWeekday 设置第0天的星期
func (f *FairnessAnalyzer) WithStartWeekday(d time.Weekday) *FairnessAnalyzer {
	f.startWeekday = d
	return f
}

// Analyze 分析排班公平性，人员按排班表线路顺序列出
func (f *FairnessAnalyzer) Analyze(r *model.Roster) *FairnessMetrics {
	var stats []PersonStat
	for _, l := range r.Lines() {
		shifts, nights, weekends := f.lineLoad(r, l.ID)
		for _, id := range r.Crew(l.ID) {
			stats = append(stats, PersonStat{
				PersonID:      id,
				LineID:        l.ID,
				Shifts:        shifts,
				NightShifts:   nights,
				WeekendShifts: weekends,
			})
		}
	}
	if len(stats) == 0 {
		return &FairnessMetrics{OverallFairnessScore: 100}
	}

	loads := make([]float64, len(stats))
	nights := make([]float64, len(stats))
	weekends := make([]float64, len(stats))
	for i, s := range stats {
		loads[i] = float64(s.Shifts)
		nights[i] = float64(s.NightShifts)
		weekends[i] = float64(s.WeekendShifts)
	}

	avg := mean(loads)
	stdDev := math.Sqrt(variance(loads, avg))
	maxShifts, minShifts := valueRange(loads)
	for i := range stats {
		if avg > 0 {
			stats[i].Deviation = (loads[i] - avg) / avg * 100
		}
	}

	m := &FairnessMetrics{
		ShiftGini:      gini(loads),
		ShiftStdDev:    stdDev,
		AvgShifts:      avg,
		MaxShifts:      int(maxShifts),
		MinShifts:      int(minShifts),
		NightShiftGini: gini(nights),
		WeekendGini:    gini(weekends),
		PersonStats:    stats,
	}
	m.OverallFairnessScore = overallScore(m.ShiftGini, m.NightShiftGini, m.WeekendGini, stdDev, avg)
	return m
}

// CompareRosters 比较两个排班方案的公平性
func (f *FairnessAnalyzer) CompareRosters(a, b *model.Roster) map[string]float64 {
	m1 := f.Analyze(a)
	m2 := f.Analyze(b)

	return map[string]float64{
		"shift_gini_diff":       m2.ShiftGini - m1.ShiftGini,
		"night_gini_diff":       m2.NightShiftGini - m1.NightShiftGini,
		"weekend_gini_diff":     m2.WeekendGini - m1.WeekendGini,
		"overall_score_diff":    m2.OverallFairnessScore - m1.OverallFairnessScore,
		"roster1_overall_score": m1.OverallFairnessScore,
		"roster2_overall_score": m2.OverallFairnessScore,
	}
}

// lineLoad 线路在排班周期内的工作/夜班/周末班次数
func (f *FairnessAnalyzer) lineLoad(r *model.Roster, lineID int) (shifts, nights, weekends int) {
	for day := 0; day < r.Days(); day++ {
		s := r.LineShiftOnDay(day, lineID)
		if !s.IsWorking() {
			continue
		}
		shifts++
		if s == model.ShiftNight {
			nights++
		}
		if f.isWeekend(day) {
			weekends++
		}
	}
	return
}

func (f *FairnessAnalyzer) isWeekend(day int) bool {
	wd := time.Weekday((int(f.startWeekday) + day) % 7)
	return wd == time.Saturday || wd == time.Sunday
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

func valueRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// gini 基尼系数，结果截断到 [0, 1]
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}
	g = g / (float64(n) * sum)
	return math.Max(0, math.Min(1, g))
}

// overallScore 综合公平性评分
func overallScore(shiftGini, nightGini, weekendGini, stdDev, avg float64) float64 {
	const (
		shiftWeight   = 0.4
		nightWeight   = 0.25
		weekendWeight = 0.25
		stdDevWeight  = 0.1
	)

	cvScore := 100.0
	if avg > 0 {
		cvScore = math.Max(0, 100-stdDev/avg*200)
	}

	score := shiftWeight*(1-shiftGini)*100 +
		nightWeight*(1-nightGini)*100 +
		weekendWeight*(1-weekendGini)*100 +
		stdDevWeight*cvScore

	return math.Max(0, math.Min(100, score))
}
