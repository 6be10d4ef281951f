// Package validator 提供排班硬约束校验功能
package validator

import (
	"fmt"

	"github.com/paiban/linecrew/pkg/model"
	"github.com/paiban/linecrew/pkg/scheduler/constraint"
)

// 问题描述
const (
	MsgMultipleLines = "Employee assigned to multiple lines in same shift"
	MsgUnknownPerson = "unknown person id"
)

// UnknownIDPolicy 未知人员ID处理策略
type UnknownIDPolicy string

const (
	UnknownIgnore UnknownIDPolicy = "ignore" // 静默跳过
	UnknownReport UnknownIDPolicy = "report" // 输出 WARN 问题
)

// Config 校验器配置
type Config struct {
	UnknownIDs UnknownIDPolicy
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{UnknownIDs: UnknownIgnore}
}

// RosterValidator 排班校验器。
// 对每个 (day, shift)：同一人员出现在多个上岗线路中为 ERROR；
// 每个上岗线路内按同事约束逐个成员检查。
type RosterValidator struct {
	config      *Config
	constraints *constraint.Manager
}

// NewRosterValidator 创建校验器，参数为 nil 时使用默认值
func NewRosterValidator(config *Config, cm *constraint.Manager) *RosterValidator {
	if config == nil {
		config = DefaultConfig()
	}
	if cm == nil {
		cm = constraint.NewDefaultManager()
	}
	return &RosterValidator{config: config, constraints: cm}
}

// Validate 校验整个排班周期内每个工作班次。
// 默认策略下返回为空当且仅当不存在硬约束违反。
func (v *RosterValidator) Validate(roster *model.Roster, dir *model.Directory) []model.ValidationIssue {
	var issues []model.ValidationIssue
	var reported map[string]bool
	if v.config.UnknownIDs == UnknownReport {
		reported = make(map[string]bool)
	}

	for _, key := range roster.ShiftKeys() {
		issues = append(issues, v.collect(roster, dir, key.Day, key.Shift, reported)...)
	}
	return issues
}

// ValidateShift 只校验一个 (day, shift)，不存在 ERROR 时返回 true
func (v *RosterValidator) ValidateShift(roster *model.Roster, dir *model.Directory, day int, shift model.ShiftType) bool {
	return !model.HasErrors(v.collect(roster, dir, day, shift, nil))
}

// collect 校验单个班次。reported 非 nil 时输出未知人员 WARN（每个线路成员只报告一次）。
func (v *RosterValidator) collect(roster *model.Roster, dir *model.Directory, day int, shift model.ShiftType, reported map[string]bool) []model.ValidationIssue {
	var issues []model.ValidationIssue
	crews := roster.CrewsOnShift(day, shift)

	// 同一班次内人员不能出现在多个线路
	seen := make(map[string]bool)
	for _, crew := range crews {
		for _, id := range crew.Members {
			if seen[id] {
				issues = append(issues, model.ValidationIssue{
					Severity: model.SeverityError,
					Message:  MsgMultipleLines,
					Context: model.IssueContext{
						Day:      day,
						Shift:    shift,
						LineID:   crew.LineID,
						PersonID: id,
					},
				})
			}
			seen[id] = true

			if reported != nil {
				if _, known := dir.Get(id); !known {
					key := fmt.Sprintf("%d/%s", crew.LineID, id)
					if !reported[key] {
						reported[key] = true
						issues = append(issues, model.ValidationIssue{
							Severity: model.SeverityWarn,
							Message:  MsgUnknownPerson,
							Context: model.IssueContext{
								Day:      day,
								Shift:    shift,
								LineID:   crew.LineID,
								PersonID: id,
							},
						})
					}
				}
			}
		}
	}

	// 线路内同事约束
	for _, crew := range crews {
		for _, viol := range v.constraints.CheckCrew(dir, crew.Members) {
			issues = append(issues, model.ValidationIssue{
				Severity: model.SeverityError,
				Message:  viol.Message,
				Context: model.IssueContext{
					Day:      day,
					Shift:    shift,
					LineID:   crew.LineID,
					PersonID: viol.PersonID,
					Related:  viol.Related,
				},
			})
		}
	}

	return issues
}
