// Package model 定义排班引擎的核心数据模型
package model

import (
	"fmt"
	"strings"
)

// ShiftType 班次类型
type ShiftType int

const (
	ShiftDay   ShiftType = iota // 白班
	ShiftNight                  // 夜班
	ShiftOff                    // 休息
)

// WorkingShifts 需要覆盖的班次（休息不计入）
var WorkingShifts = []ShiftType{ShiftDay, ShiftNight}

// String 返回班次符号
func (s ShiftType) String() string {
	switch s {
	case ShiftDay:
		return "D"
	case ShiftNight:
		return "N"
	case ShiftOff:
		return "OFF"
	default:
		return fmt.Sprintf("ShiftType(%d)", int(s))
	}
}

// IsWorking 是否为工作班次
func (s ShiftType) IsWorking() bool {
	return s == ShiftDay || s == ShiftNight
}

// ParseShiftType 解析班次符号
func ParseShiftType(symbol string) (ShiftType, error) {
	switch strings.ToUpper(strings.TrimSpace(symbol)) {
	case "D", "DAY":
		return ShiftDay, nil
	case "N", "NIGHT":
		return ShiftNight, nil
	case "OFF", "O":
		return ShiftOff, nil
	default:
		return ShiftOff, fmt.Errorf("未知班次符号: %q", symbol)
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (s ShiftType) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (s *ShiftType) UnmarshalText(text []byte) error {
	v, err := ParseShiftType(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ShiftPattern 轮班周期
type ShiftPattern struct {
	cycle []ShiftType
}

// DefaultPattern 默认周期：两白两夜五休
func DefaultPattern() ShiftPattern {
	return ShiftPattern{cycle: []ShiftType{
		ShiftDay, ShiftDay,
		ShiftNight, ShiftNight,
		ShiftOff, ShiftOff, ShiftOff, ShiftOff, ShiftOff,
	}}
}

// NewShiftPattern 创建轮班周期，周期不能为空
func NewShiftPattern(cycle []ShiftType) (ShiftPattern, error) {
	if len(cycle) == 0 {
		return ShiftPattern{}, fmt.Errorf("轮班周期不能为空")
	}
	c := make([]ShiftType, len(cycle))
	copy(c, cycle)
	return ShiftPattern{cycle: c}, nil
}

// ParseShiftPattern 从符号列表解析轮班周期，例如 ["D","D","N","N","OFF"]
func ParseShiftPattern(symbols []string) (ShiftPattern, error) {
	cycle := make([]ShiftType, 0, len(symbols))
	for _, sym := range symbols {
		st, err := ParseShiftType(sym)
		if err != nil {
			return ShiftPattern{}, err
		}
		cycle = append(cycle, st)
	}
	return NewShiftPattern(cycle)
}

// Len 周期长度
func (p ShiftPattern) Len() int {
	return len(p.cycle)
}

// Cycle 返回周期副本
func (p ShiftPattern) Cycle() []ShiftType {
	c := make([]ShiftType, len(p.cycle))
	copy(c, p.cycle)
	return c
}

// Symbols 返回周期符号
func (p ShiftPattern) Symbols() []string {
	out := make([]string, len(p.cycle))
	for i, st := range p.cycle {
		out[i] = st.String()
	}
	return out
}

// ShiftOnDay 计算偏移量为 offset 的线路在第 day 天的班次。
// 负偏移量按周期回绕。零值周期视为全休。
func (p ShiftPattern) ShiftOnDay(day, offset int) ShiftType {
	n := len(p.cycle)
	if n == 0 {
		return ShiftOff
	}
	idx := ((day+offset)%n + n) % n
	return p.cycle[idx]
}
