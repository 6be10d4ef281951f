// Package model 定义排班引擎的核心数据模型
package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Role 职业角色
type Role string

const (
	RoleICP       Role = "ICP"       // 重症护理
	RoleParamedic Role = "PARAMEDIC" // 急救员
	RoleIntern    Role = "INTERN"    // 实习
)

// ParseRole 解析职业角色，未知取值返回错误
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleICP, RoleParamedic, RoleIntern:
		return r, nil
	default:
		return "", fmt.Errorf("未知角色: %q", s)
	}
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (r *Role) UnmarshalText(text []byte) error {
	v, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Title 职称
type Title string

const (
	TitleParaSpec   Title = "PARA_SPEC"   // 专科急救员
	TitlePara       Title = "PARA"        // 急救员
	TitleManager    Title = "MGR"         // 主管
	TitleParaIntern Title = "PARA_INTERN" // 实习急救员
)

// ParseTitle 解析职称，未知取值返回错误
func ParseTitle(s string) (Title, error) {
	switch t := Title(strings.ToUpper(strings.TrimSpace(s))); t {
	case TitleParaSpec, TitlePara, TitleManager, TitleParaIntern:
		return t, nil
	default:
		return "", fmt.Errorf("未知职称: %q", s)
	}
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (t *Title) UnmarshalText(text []byte) error {
	v, err := ParseTitle(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// StringSet 字符串集合，JSON 序列化为有序数组
type StringSet map[string]struct{}

// NewStringSet 创建字符串集合
func NewStringSet(items ...string) StringSet {
	s := make(StringSet, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// Has 是否包含
func (s StringSet) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Sorted 返回有序元素
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON 序列化为有序数组
func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON 从数组反序列化
func (s *StringSet) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*s = NewStringSet(items...)
	return nil
}

// IntSet 整数集合，JSON 序列化为有序数组
type IntSet map[int]struct{}

// NewIntSet 创建整数集合
func NewIntSet(items ...int) IntSet {
	s := make(IntSet, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// Has 是否包含
func (s IntSet) Has(item int) bool {
	_, ok := s[item]
	return ok
}

// Sorted 返回有序元素
func (s IntSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// MarshalJSON 序列化为有序数组
func (s IntSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON 从数组反序列化
func (s *IntSet) UnmarshalJSON(data []byte) error {
	var items []int
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*s = NewIntSet(items...)
	return nil
}

// Person 人员，加载后不可变
type Person struct {
	ID              string `json:"emp_id" db:"emp_id"`
	Name            string `json:"name" db:"name"`
	Role            Role   `json:"role" db:"role"`
	Title           Title  `json:"title" db:"title"`
	YearsExperience int    `json:"years_experience" db:"years_experience"`
	ExtendedCare    bool   `json:"is_ecp" db:"is_ecp"`

	// 同事关系（人员ID集合）
	CantWorkWith      StringSet `json:"cant_work_with" db:"cant_work_with"`
	CanOnlyWorkWith   StringSet `json:"can_only_work_with" db:"can_only_work_with"`
	ShouldWorkWith    StringSet `json:"should_work_with" db:"should_work_with"`
	ShouldNotWorkWith StringSet `json:"should_not_work_with" db:"should_not_work_with"`

	// 线路锁定与偏好，LockedLine 为 0 表示未锁定
	LockedLine     int    `json:"line_id" db:"locked_line"`
	PreferredLines IntSet `json:"preferred_lines" db:"preferred_lines"`
	AvoidLines     IntSet `json:"avoid_lines" db:"avoid_lines"`
}

// NewPerson 创建人员（默认急救员）
func NewPerson(id, name string) *Person {
	return &Person{
		ID:    id,
		Name:  name,
		Role:  RoleParamedic,
		Title: TitlePara,
	}
}

// IsLocked 是否锁定线路
func (p *Person) IsLocked() bool {
	return p.LockedLine != 0
}

// CanMoveTo 锁定人员只能留在锁定线路
func (p *Person) CanMoveTo(lineID int) bool {
	return !p.IsLocked() || p.LockedLine == lineID
}

// Excludes 互斥集合是否包含 other
func (p *Person) Excludes(other string) bool {
	return p.CantWorkWith.Has(other)
}

// Allows 白名单为空或包含 other
func (p *Person) Allows(other string) bool {
	return len(p.CanOnlyWorkWith) == 0 || p.CanOnlyWorkWith.Has(other)
}

// DisplayName 展示名称
func (p *Person) DisplayName() string {
	ecp := ""
	if p.ExtendedCare {
		ecp = ", ECP"
	}
	return fmt.Sprintf("%s (%s) [%s, %s yrs:%d%s]", p.Name, p.ID, p.Role, p.Title, p.YearsExperience, ecp)
}

// Validate 检查人员数据
func (p *Person) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("人员ID不能为空")
	}
	if _, err := ParseRole(string(p.Role)); err != nil {
		return fmt.Errorf("人员 %s: %w", p.ID, err)
	}
	if _, err := ParseTitle(string(p.Title)); err != nil {
		return fmt.Errorf("人员 %s: %w", p.ID, err)
	}
	if p.LockedLine < 0 {
		return fmt.Errorf("人员 %s: 锁定线路不能为负数", p.ID)
	}
	return nil
}

// UnmarshalJSON 缺省字段取默认值：角色 PARAMEDIC，职称 PARA
func (p *Person) UnmarshalJSON(data []byte) error {
	type alias Person
	raw := alias{Role: RoleParamedic, Title: TitlePara}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Person(raw)
	return nil
}

// Directory 人员目录（只读，可在多个优化任务间共享）
type Directory struct {
	byID  map[string]*Person
	order []*Person
}

// NewDirectory 创建人员目录，ID 重复返回错误
func NewDirectory(persons []*Person) (*Directory, error) {
	d := &Directory{
		byID:  make(map[string]*Person, len(persons)),
		order: make([]*Person, 0, len(persons)),
	}
	for _, p := range persons {
		if p == nil {
			continue
		}
		if _, exists := d.byID[p.ID]; exists {
			return nil, &DuplicateIDError{ID: p.ID}
		}
		d.byID[p.ID] = p
		d.order = append(d.order, p)
	}
	return d, nil
}

// DuplicateIDError 人员ID重复
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("人员ID重复: %s", e.ID)
}

// Get 按ID查找
func (d *Directory) Get(id string) (*Person, bool) {
	p, ok := d.byID[id]
	return p, ok
}

// All 按输入顺序返回全部人员
func (d *Directory) All() []*Person {
	out := make([]*Person, len(d.order))
	copy(out, d.order)
	return out
}

// Len 人员数量
func (d *Directory) Len() int {
	return len(d.order)
}
