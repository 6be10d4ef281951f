// Package constraints 排班规则目录
package constraints

import (
	"strconv"

	"github.com/paiban/linecrew/pkg/scheduler/constraint"
	"github.com/paiban/linecrew/pkg/scheduler/objective"
)

// ConstraintParam 规则参数定义
type ConstraintParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int, float
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Min         string `json:"min,omitempty"`
}

// ConstraintDefinition 规则定义
type ConstraintDefinition struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Type        string            `json:"type"`     // hard 硬约束, soft 软约束
	Category    string            `json:"category"` // 分类
	Description string            `json:"description"`
	Params      []ConstraintParam `json:"params"`
}

// LibraryResponse 规则目录响应
type LibraryResponse struct {
	Library []ConstraintDefinition `json:"library"`
}

// 结构性硬约束，由排班表本身保证或在构建阶段检查
var structural = []ConstraintDefinition{
	{
		Name:        "single_line",
		DisplayName: "同班次唯一线路",
		Type:        string(constraint.CategoryHard),
		Category:    "人员分配",
		Description: "同一 (天, 班次) 中一个人员只能出现在一个上岗线路里，否则报告 ERROR。",
		Params:      []ConstraintParam{},
	},
	{
		Name:        "locked_line",
		DisplayName: "锁定线路",
		Type:        string(constraint.CategoryHard),
		Category:    "人员分配",
		Description: "锁定人员始终留在锁定线路，局部搜索不会移动。",
		Params:      []ConstraintParam{},
	},
	{
		Name:        "max_headcount",
		DisplayName: "线路人数上限",
		Type:        string(constraint.CategoryHard),
		Category:    "人员分配",
		Description: "构建阶段每条线路的人数不超过 max_headcount，锁定人数超出时返回 CAPACITY_EXCEEDED。",
		Params: []ConstraintParam{
			{Name: "max_headcount", Type: "int", Description: "线路最大人数", Min: "0"},
		},
	},
}

// 同事硬约束说明，键为约束类型
var coworkerDescriptions = map[constraint.Type]string{
	constraint.TypeCantWorkWith:    "同一上岗线路中不能出现 cant_work_with 列表中的人员。",
	constraint.TypeCanOnlyWorkWith: "设置了 can_only_work_with 的人员，同组其他人员必须都在列表内。",
}

// GetLibrary 返回完整规则目录：已注册的同事硬约束、结构性约束和带当前权重的评分项
func GetLibrary(cm *constraint.Manager, w objective.Weights) []ConstraintDefinition {
	if cm == nil {
		cm = constraint.NewDefaultManager()
	}

	lib := make([]ConstraintDefinition, 0, cm.Count()+len(structural)+4)
	for _, c := range cm.GetAll() {
		lib = append(lib, ConstraintDefinition{
			Name:        string(c.Type()),
			DisplayName: c.Name(),
			Type:        string(c.Category()),
			Category:    "同事关系",
			Description: coworkerDescriptions[c.Type()],
			Params:      []ConstraintParam{},
		})
	}
	lib = append(lib, structural...)

	return append(lib,
		ConstraintDefinition{
			Name:        objective.NameCoverage,
			DisplayName: "班次人数均衡",
			Type:        string(constraint.CategorySoft),
			Category:    "覆盖率",
			Description: "每个工作班次在岗人数与目标人数之差的绝对值计入惩罚。",
			Params: []ConstraintParam{
				{Name: "target_staff", Type: "int", Description: "每个班次目标人数", Default: strconv.Itoa(w.TargetStaff), Min: "0"},
				weight("weight", "人数偏差惩罚权重", w.Coverage),
			},
		},
		ConstraintDefinition{
			Name:        objective.NameLinePrefs,
			DisplayName: "线路偏好",
			Type:        string(constraint.CategorySoft),
			Category:    "人员偏好",
			Description: "人员在偏好线路上加分，在回避线路上扣分。",
			Params: []ConstraintParam{
				weight("preferred_line", "偏好线路奖励", w.PreferredLine),
				weight("avoid_line", "回避线路惩罚", w.AvoidLine),
			},
		},
		ConstraintDefinition{
			Name:        objective.NameCoworker,
			DisplayName: "同事偏好",
			Type:        string(constraint.CategorySoft),
			Category:    "同事关系",
			Description: "每个上岗线路中，期望同事同组加分，不期望同事同组扣分。",
			Params: []ConstraintParam{
				weight("should_work_with", "期望同事奖励", w.ShouldWorkWith),
				weight("should_not_work_with", "不期望同事惩罚", w.ShouldNotWorkWith),
			},
		},
		ConstraintDefinition{
			Name:        objective.NameSynergy,
			DisplayName: "搭配评分",
			Type:        string(constraint.CategorySoft),
			Category:    "保留",
			Description: "预留评分项，当前恒为 0。",
			Params:      []ConstraintParam{},
		},
	)
}

func weight(name, desc string, v float64) ConstraintParam {
	return ConstraintParam{
		Name:        name,
		Type:        "float",
		Description: desc,
		Default:     strconv.FormatFloat(v, 'f', -1, 64),
		Min:         "0",
	}
}

// GetByType 按类型筛选（hard/soft）
func GetByType(lib []ConstraintDefinition, typ string) []ConstraintDefinition {
	var out []ConstraintDefinition
	for _, c := range lib {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}
