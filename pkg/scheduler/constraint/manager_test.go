package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/linecrew/pkg/model"
)

// MockConstraint 用于测试的模拟约束
type MockConstraint struct {
	typ      Type
	category Category
	reject   string
}

func (m *MockConstraint) Name() string       { return string(m.typ) }
func (m *MockConstraint) Type() Type         { return m.typ }
func (m *MockConstraint) Category() Category { return m.category }
func (m *MockConstraint) Message() string    { return "mock violation" }
func (m *MockConstraint) Check(_ *model.Person, others model.StringSet) []string {
	if others.Has(m.reject) {
		return []string{m.reject}
	}
	return nil
}

func newDirectory(t *testing.T, persons ...*model.Person) *model.Directory {
	t.Helper()
	dir, err := model.NewDirectory(persons)
	require.NoError(t, err)
	return dir
}

func TestManager_Register(t *testing.T) {
	manager := NewManager()
	manager.Register(&MockConstraint{typ: "a", category: CategoryHard})
	manager.Register(&MockConstraint{typ: "b", category: CategorySoft})
	manager.Register(&MockConstraint{typ: "a", category: CategoryHard, reject: "x"})

	if manager.Count() != 2 {
		t.Errorf("Count() = %d, expected 2", manager.Count())
	}
	assert.Len(t, manager.GetByCategory(CategoryHard), 1)
	assert.Len(t, manager.GetByCategory(CategorySoft), 1)

	manager.Unregister("a")
	assert.Equal(t, 1, manager.Count())
}

func TestManager_CheckCrew(t *testing.T) {
	a := model.NewPerson("A", "A")
	a.CantWorkWith = model.NewStringSet("B")
	b := model.NewPerson("B", "B")
	c := model.NewPerson("C", "C")
	c.CanOnlyWorkWith = model.NewStringSet("A")
	dir := newDirectory(t, a, b, c)

	manager := NewDefaultManager()

	tests := []struct {
		name     string
		crew     []string
		expected []Violation
	}{
		{
			name:     "无冲突",
			crew:     []string{"A", "C"},
			expected: nil,
		},
		{
			name: "互斥冲突",
			crew: []string{"A", "B"},
			expected: []Violation{
				{Type: TypeCantWorkWith, Message: "cant_work_with violation", PersonID: "A", Related: []string{"B"}},
			},
		},
		{
			name: "白名单冲突",
			crew: []string{"B", "C"},
			expected: []Violation{
				{Type: TypeCanOnlyWorkWith, Message: "can_only_work_with violation", PersonID: "C", Related: []string{"B"}},
			},
		},
		{
			name: "未知成员不作为主体但计入同组",
			crew: []string{"C", "ghost"},
			expected: []Violation{
				{Type: TypeCanOnlyWorkWith, Message: "can_only_work_with violation", PersonID: "C", Related: []string{"ghost"}},
			},
		},
		{
			name:     "单人组",
			crew:     []string{"A"},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := manager.CheckCrew(dir, tt.crew)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, len(tt.expected) == 0, manager.Compatible(dir, tt.crew))
		})
	}
}

func TestManager_DuplicateMemberIgnoresSelf(t *testing.T) {
	a := model.NewPerson("A", "A")
	a.CantWorkWith = model.NewStringSet("A")
	dir := newDirectory(t, a)

	assert.True(t, NewDefaultManager().Compatible(dir, []string{"A", "A"}))
}
