package model

import (
	"encoding/json"
	"fmt"
)

// ShiftKey 某天的某个班次
type ShiftKey struct {
	Day   int       `json:"day"`
	Shift ShiftType `json:"shift"`
}

// ActiveCrew 在某个班次上岗的线路及其成员
// Members 与排班表共享底层数组，只读
type ActiveCrew struct {
	LineID  int
	Members []string
}

// CrewEntry 线路成员快照（序列化格式）
type CrewEntry struct {
	LineID    int      `json:"line_id"`
	Employees []string `json:"employees"`
}

// Roster 排班表：线路ID -> 有序人员ID列表。
// 人员在哪天上哪个班由线路偏移量和轮班周期推导，不单独存储。
// 构建器和优化器保证同一人员最多出现在一个线路中。
type Roster struct {
	lines     []Line
	lineIndex map[int]int
	crews     [][]string
	pattern   ShiftPattern
	days      int
}

// NewRoster 创建空排班表，线路按输入顺序保存
func NewRoster(lines []Line, pattern ShiftPattern, days int) (*Roster, error) {
	if days < 0 {
		return nil, fmt.Errorf("排班天数不能为负数: %d", days)
	}
	r := &Roster{
		lines:     make([]Line, len(lines)),
		lineIndex: make(map[int]int, len(lines)),
		crews:     make([][]string, len(lines)),
		pattern:   pattern,
		days:      days,
	}
	copy(r.lines, lines)
	for i, l := range lines {
		if _, exists := r.lineIndex[l.ID]; exists {
			return nil, fmt.Errorf("线路ID重复: %d", l.ID)
		}
		r.lineIndex[l.ID] = i
		r.crews[i] = make([]string, 0, l.MaxHeadcount)
	}
	return r, nil
}

// Days 排班天数
func (r *Roster) Days() int {
	return r.days
}

// Pattern 轮班周期
func (r *Roster) Pattern() ShiftPattern {
	return r.pattern
}

// Lines 线路列表（输入顺序）
func (r *Roster) Lines() []Line {
	out := make([]Line, len(r.lines))
	copy(out, r.lines)
	return out
}

// Line 按ID查找线路
func (r *Roster) Line(lineID int) (Line, bool) {
	i, ok := r.lineIndex[lineID]
	if !ok {
		return Line{}, false
	}
	return r.lines[i], true
}

// Crew 返回线路成员副本，未知线路返回 nil
func (r *Roster) Crew(lineID int) []string {
	i, ok := r.lineIndex[lineID]
	if !ok {
		return nil
	}
	out := make([]string, len(r.crews[i]))
	copy(out, r.crews[i])
	return out
}

// Headcount 线路当前人数
func (r *Roster) Headcount(lineID int) int {
	i, ok := r.lineIndex[lineID]
	if !ok {
		return 0
	}
	return len(r.crews[i])
}

// SetCrew 替换线路成员
func (r *Roster) SetCrew(lineID int, ids []string) error {
	i, ok := r.lineIndex[lineID]
	if !ok {
		return fmt.Errorf("未知线路: %d", lineID)
	}
	crew := make([]string, len(ids))
	copy(crew, ids)
	r.crews[i] = crew
	return nil
}

// AddToLine 追加成员，已存在则忽略
func (r *Roster) AddToLine(lineID int, id string) error {
	i, ok := r.lineIndex[lineID]
	if !ok {
		return fmt.Errorf("未知线路: %d", lineID)
	}
	for _, m := range r.crews[i] {
		if m == id {
			return nil
		}
	}
	r.crews[i] = append(r.crews[i], id)
	return nil
}

// RemoveFromLine 移除成员，不存在则忽略
func (r *Roster) RemoveFromLine(lineID int, id string) {
	i, ok := r.lineIndex[lineID]
	if !ok {
		return
	}
	crew := r.crews[i]
	for j, m := range crew {
		if m == id {
			r.crews[i] = append(crew[:j], crew[j+1:]...)
			return
		}
	}
}

// Swap 交换两个线路指定位置上的成员，重复调用即可还原
func (r *Roster) Swap(lineA, idxA, lineB, idxB int) error {
	ia, okA := r.lineIndex[lineA]
	ib, okB := r.lineIndex[lineB]
	if !okA || !okB {
		return fmt.Errorf("未知线路: %d/%d", lineA, lineB)
	}
	if idxA < 0 || idxA >= len(r.crews[ia]) || idxB < 0 || idxB >= len(r.crews[ib]) {
		return fmt.Errorf("成员位置越界: %d[%d] %d[%d]", lineA, idxA, lineB, idxB)
	}
	r.crews[ia][idxA], r.crews[ib][idxB] = r.crews[ib][idxB], r.crews[ia][idxA]
	return nil
}

// LineShiftOnDay 线路在第 day 天的班次，未知线路视为休息
func (r *Roster) LineShiftOnDay(day, lineID int) ShiftType {
	l, ok := r.Line(lineID)
	if !ok {
		return ShiftOff
	}
	return r.pattern.ShiftOnDay(day, l.Offset)
}

// CrewsOnShift 返回在 (day, shift) 上岗的线路（排班表线路顺序），包含空线路
func (r *Roster) CrewsOnShift(day int, shift ShiftType) []ActiveCrew {
	var out []ActiveCrew
	for i, l := range r.lines {
		if r.pattern.ShiftOnDay(day, l.Offset) != shift {
			continue
		}
		out = append(out, ActiveCrew{LineID: l.ID, Members: r.crews[i]})
	}
	return out
}

// WorkingIDs 在 (day, shift) 上岗的全部人员
func (r *Roster) WorkingIDs(day int, shift ShiftType) StringSet {
	out := make(StringSet)
	for _, c := range r.CrewsOnShift(day, shift) {
		for _, id := range c.Members {
			out[id] = struct{}{}
		}
	}
	return out
}

// TotalStaffOnShift 在 (day, shift) 上岗的人数（按线路成员数累加）
func (r *Roster) TotalStaffOnShift(day int, shift ShiftType) int {
	total := 0
	for _, c := range r.CrewsOnShift(day, shift) {
		total += len(c.Members)
	}
	return total
}

// ShiftKeys 返回排班周期内全部工作班次
func (r *Roster) ShiftKeys() []ShiftKey {
	keys := make([]ShiftKey, 0, r.days*len(WorkingShifts))
	for day := 0; day < r.days; day++ {
		for _, s := range WorkingShifts {
			keys = append(keys, ShiftKey{Day: day, Shift: s})
		}
	}
	return keys
}

// LineOf 查找人员所在线路
func (r *Roster) LineOf(personID string) (int, bool) {
	for i, crew := range r.crews {
		for _, m := range crew {
			if m == personID {
				return r.lines[i].ID, true
			}
		}
	}
	return 0, false
}

// Assignments 人员ID -> 线路ID
func (r *Roster) Assignments() map[string]int {
	out := make(map[string]int)
	for i, crew := range r.crews {
		for _, m := range crew {
			if _, seen := out[m]; !seen {
				out[m] = r.lines[i].ID
			}
		}
	}
	return out
}

// Clone 深拷贝
func (r *Roster) Clone() *Roster {
	c := &Roster{
		lines:     make([]Line, len(r.lines)),
		lineIndex: make(map[int]int, len(r.lineIndex)),
		crews:     make([][]string, len(r.crews)),
		pattern:   r.pattern,
		days:      r.days,
	}
	copy(c.lines, r.lines)
	for k, v := range r.lineIndex {
		c.lineIndex[k] = v
	}
	for i, crew := range r.crews {
		c.crews[i] = append(make([]string, 0, cap(crew)), crew...)
	}
	return c
}

// Equal 比较线路与成员（含顺序）
func (r *Roster) Equal(other *Roster) bool {
	if other == nil || len(r.lines) != len(other.lines) || r.days != other.days {
		return false
	}
	for i, l := range r.lines {
		if other.lines[i] != l {
			return false
		}
		a, b := r.crews[i], other.crews[i]
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if a[j] != b[j] {
				return false
			}
		}
	}
	return true
}

// Entries 按线路顺序导出成员快照
func (r *Roster) Entries() []CrewEntry {
	out := make([]CrewEntry, len(r.lines))
	for i, l := range r.lines {
		out[i] = CrewEntry{LineID: l.ID, Employees: r.Crew(l.ID)}
	}
	return out
}

// Load 从快照恢复成员，未知线路返回错误
func (r *Roster) Load(entries []CrewEntry) error {
	for _, e := range entries {
		if err := r.SetCrew(e.LineID, e.Employees); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON 只序列化决策数据（线路成员）
func (r *Roster) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Lines []CrewEntry `json:"lines"`
	}{Lines: r.Entries()})
}
