// Package objective 提供排班目标函数（越大越好）
package objective

import (
	"github.com/paiban/linecrew/pkg/model"
)

// 组件名称
const (
	NameCoworker  = "coworker_preferences"
	NameCoverage  = "coverage_balance"
	NameLinePrefs = "line_preferences"
	NameSynergy   = "synergy"
)

// Weights 目标函数权重
type Weights struct {
	TargetStaff       int     `json:"target_staff"`         // 每个班次目标人数
	Coverage          float64 `json:"coverage"`             // 人数偏差惩罚
	PreferredLine     float64 `json:"preferred_line"`       // 偏好线路奖励
	AvoidLine         float64 `json:"avoid_line"`           // 回避线路惩罚
	ShouldWorkWith    float64 `json:"should_work_with"`     // 期望同事奖励
	ShouldNotWorkWith float64 `json:"should_not_work_with"` // 不期望同事惩罚
}

// DefaultWeights 默认权重：目标7人，其余权重均为1
func DefaultWeights() Weights {
	return Weights{
		TargetStaff:       7,
		Coverage:          1,
		PreferredLine:     1,
		AvoidLine:         1,
		ShouldWorkWith:    1,
		ShouldNotWorkWith: 1,
	}
}

// ShiftContext 单个 (day, shift) 的评分上下文
type ShiftContext struct {
	Day        int
	Shift      model.ShiftType
	Crews      []model.ActiveCrew // 上岗且非空的线路，排班表线路顺序
	TotalStaff int
	Directory  *model.Directory
}

// Component 目标函数组件
type Component interface {
	// Name 组件名称
	Name() string

	// Score 对单个班次评分
	Score(sc *ShiftContext) float64
}

// ComponentScore 组件得分
type ComponentScore struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ScoreBreakdown 评分明细
type ScoreBreakdown struct {
	Total      float64          `json:"total"`
	Components []ComponentScore `json:"components"`
}

// Component 按名称获取组件得分
func (b ScoreBreakdown) Component(name string) float64 {
	for _, c := range b.Components {
		if c.Name == name {
			return c.Value
		}
	}
	return 0
}

// Map 组件得分映射
func (b ScoreBreakdown) Map() map[string]float64 {
	out := make(map[string]float64, len(b.Components))
	for _, c := range b.Components {
		out[c.Name] = c.Value
	}
	return out
}

// Scorer 目标函数：对排班周期内每个工作班次累加各组件得分。
// 只依赖排班表和权重，相同输入得到完全相同的结果。
type Scorer struct {
	components []Component
	directory  *model.Directory
}

// NewScorer 创建默认组件顺序的评分器
func NewScorer(dir *model.Directory, w Weights) *Scorer {
	return NewScorerWith(dir,
		&CoworkerComponent{ShouldWeight: w.ShouldWorkWith, ShouldNotWeight: w.ShouldNotWorkWith},
		&CoverageComponent{Target: w.TargetStaff, Weight: w.Coverage},
		&LinePreferenceComponent{PreferredWeight: w.PreferredLine, AvoidWeight: w.AvoidLine},
		&SynergyComponent{},
	)
}

// NewScorerWith 使用自定义组件创建评分器，组件顺序即求和顺序
func NewScorerWith(dir *model.Directory, components ...Component) *Scorer {
	return &Scorer{components: components, directory: dir}
}

// Components 组件名称列表
func (s *Scorer) Components() []string {
	names := make([]string, len(s.components))
	for i, c := range s.components {
		names[i] = c.Name()
	}
	return names
}

// Score 计算评分
func (s *Scorer) Score(roster *model.Roster) ScoreBreakdown {
	sums := make([]float64, len(s.components))
	sc := &ShiftContext{Directory: s.directory}

	for _, key := range roster.ShiftKeys() {
		sc.Day, sc.Shift = key.Day, key.Shift
		sc.Crews = sc.Crews[:0]
		sc.TotalStaff = 0
		for _, crew := range roster.CrewsOnShift(key.Day, key.Shift) {
			if len(crew.Members) == 0 {
				continue
			}
			sc.Crews = append(sc.Crews, crew)
			sc.TotalStaff += len(crew.Members)
		}
		for i, c := range s.components {
			sums[i] += c.Score(sc)
		}
	}

	b := ScoreBreakdown{Components: make([]ComponentScore, len(s.components))}
	for i, c := range s.components {
		b.Components[i] = ComponentScore{Name: c.Name(), Value: sums[i]}
		b.Total += sums[i]
	}
	return b
}
