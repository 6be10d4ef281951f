package constraint

import (
	"sync"

	"github.com/paiban/linecrew/pkg/model"
)

// Manager 约束管理器
type Manager struct {
	constraints []Constraint
	mu          sync.RWMutex
}

// NewManager 创建空约束管理器
func NewManager() *Manager {
	return &Manager{
		constraints: make([]Constraint, 0),
	}
}

// NewDefaultManager 创建注册了互斥和白名单约束的管理器
func NewDefaultManager() *Manager {
	m := NewManager()
	m.Register(NewCantWorkWithConstraint())
	m.Register(NewCanOnlyWorkWithConstraint())
	return m
}

// Register 注册约束，同类型约束会被替换，检查顺序为注册顺序
func (m *Manager) Register(c Constraint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.constraints {
		if existing.Type() == c.Type() {
			m.constraints[i] = c
			return
		}
	}
	m.constraints = append(m.constraints, c)
}

// Unregister 注销约束
func (m *Manager) Unregister(t Type) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, c := range m.constraints {
		if c.Type() == t {
			m.constraints = append(m.constraints[:i], m.constraints[i+1:]...)
			return
		}
	}
}

// GetAll 获取所有约束
func (m *Manager) GetAll() []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Constraint, len(m.constraints))
	copy(result, m.constraints)
	return result
}

// GetByCategory 按类别获取约束
func (m *Manager) GetByCategory(cat Category) []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Constraint
	for _, c := range m.constraints {
		if c.Category() == cat {
			result = append(result, c)
		}
	}
	return result
}

// Count 约束数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.constraints)
}

// CheckCrew 检查一个组内全部成员，按成员顺序、约束顺序返回违反项。
// 目录中不存在的成员不作为检查主体，但仍计入其他成员的同组人员。
func (m *Manager) CheckCrew(dir *model.Directory, crew []string) []Violation {
	constraints := m.GetAll()
	if len(constraints) == 0 || len(crew) < 2 {
		return nil
	}

	crewSet := model.NewStringSet(crew...)
	var violations []Violation
	for _, id := range crew {
		member, ok := dir.Get(id)
		if !ok {
			continue
		}
		others := othersOf(crewSet, id)
		for _, c := range constraints {
			if related := c.Check(member, others); len(related) > 0 {
				violations = append(violations, Violation{
					Type:     c.Type(),
					Message:  c.Message(),
					PersonID: id,
					Related:  related,
				})
			}
		}
	}
	return violations
}

// Compatible 组内是否满足全部约束
func (m *Manager) Compatible(dir *model.Directory, crew []string) bool {
	constraints := m.GetAll()
	if len(crew) < 2 {
		return true
	}
	crewSet := model.NewStringSet(crew...)
	for _, id := range crew {
		member, ok := dir.Get(id)
		if !ok {
			continue
		}
		others := othersOf(crewSet, id)
		for _, c := range constraints {
			if len(c.Check(member, others)) > 0 {
				return false
			}
		}
	}
	return true
}

// othersOf 组内除 id 之外的人员
func othersOf(crew model.StringSet, id string) model.StringSet {
	others := make(model.StringSet, len(crew))
	for k := range crew {
		if k != id {
			others[k] = struct{}{}
		}
	}
	return others
}
