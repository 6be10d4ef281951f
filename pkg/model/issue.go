package model

import "fmt"

// Severity 问题级别
type Severity string

const (
	SeverityError Severity = "ERROR"
	SeverityWarn  Severity = "WARN"
)

// IssueContext 问题上下文
type IssueContext struct {
	Day      int       `json:"day"`
	Shift    ShiftType `json:"shift"`
	LineID   int       `json:"line_id,omitempty"`
	PersonID string    `json:"emp_id,omitempty"`
	Related  []string  `json:"related,omitempty"` // 冲突或非法同事，有序
}

// ValidationIssue 校验问题
type ValidationIssue struct {
	Severity Severity     `json:"severity"`
	Message  string       `json:"message"`
	Context  IssueContext `json:"context"`
}

// String 便于日志与命令行输出
func (i ValidationIssue) String() string {
	c := i.Context
	s := fmt.Sprintf("[%s] %s (day=%d shift=%s", i.Severity, i.Message, c.Day, c.Shift)
	if c.LineID != 0 {
		s += fmt.Sprintf(" line=%d", c.LineID)
	}
	if c.PersonID != "" {
		s += " emp=" + c.PersonID
	}
	if len(c.Related) > 0 {
		s += fmt.Sprintf(" with=%v", c.Related)
	}
	return s + ")"
}

// HasErrors 是否存在 ERROR 级别问题
func HasErrors(issues []ValidationIssue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
