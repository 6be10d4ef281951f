// Package constraint 定义同事硬约束接口和管理器
package constraint

import (
	"sort"

	"github.com/paiban/linecrew/pkg/model"
)

// Type 约束类型标识
type Type string

const (
	TypeCantWorkWith    Type = "cant_work_with"     // 互斥：不能与某些人同组
	TypeCanOnlyWorkWith Type = "can_only_work_with" // 白名单：只能与某些人同组
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（尽量满足）
)

// Constraint 同事约束接口，针对组内某个成员检查其余成员
type Constraint interface {
	// Name 返回约束名称
	Name() string

	// Type 返回约束类型
	Type() Type

	// Category 返回约束类别
	Category() Category

	// Message 违反时的问题描述
	Message() string

	// Check 返回 others 中与 member 冲突的人员ID（有序），为空表示满足
	Check(member *model.Person, others model.StringSet) []string
}

// Violation 组内约束违反
type Violation struct {
	Type     Type     `json:"type"`
	Message  string   `json:"message"`
	PersonID string   `json:"emp_id"`
	Related  []string `json:"related"`
}

// CantWorkWithConstraint 互斥约束
type CantWorkWithConstraint struct{}

// NewCantWorkWithConstraint 创建互斥约束
func NewCantWorkWithConstraint() *CantWorkWithConstraint {
	return &CantWorkWithConstraint{}
}

func (c *CantWorkWithConstraint) Name() string       { return "互斥同事" }
func (c *CantWorkWithConstraint) Type() Type         { return TypeCantWorkWith }
func (c *CantWorkWithConstraint) Category() Category { return CategoryHard }
func (c *CantWorkWithConstraint) Message() string    { return "cant_work_with violation" }

// Check 互斥集合与其余成员的交集
func (c *CantWorkWithConstraint) Check(member *model.Person, others model.StringSet) []string {
	var conflict []string
	for id := range others {
		if member.Excludes(id) {
			conflict = append(conflict, id)
		}
	}
	sort.Strings(conflict)
	return conflict
}

// CanOnlyWorkWithConstraint 白名单约束，白名单为空时不生效
type CanOnlyWorkWithConstraint struct{}

// NewCanOnlyWorkWithConstraint 创建白名单约束
func NewCanOnlyWorkWithConstraint() *CanOnlyWorkWithConstraint {
	return &CanOnlyWorkWithConstraint{}
}

func (c *CanOnlyWorkWithConstraint) Name() string       { return "指定同事" }
func (c *CanOnlyWorkWithConstraint) Type() Type         { return TypeCanOnlyWorkWith }
func (c *CanOnlyWorkWithConstraint) Category() Category { return CategoryHard }
func (c *CanOnlyWorkWithConstraint) Message() string    { return "can_only_work_with violation" }

// Check 其余成员中不在白名单内的人员
func (c *CanOnlyWorkWithConstraint) Check(member *model.Person, others model.StringSet) []string {
	if len(member.CanOnlyWorkWith) == 0 {
		return nil
	}
	var illegal []string
	for id := range others {
		if !member.Allows(id) {
			illegal = append(illegal, id)
		}
	}
	sort.Strings(illegal)
	return illegal
}
