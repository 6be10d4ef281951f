// Package swap 提供换线评估和推荐：人员互换线路或调入有空位的线路
package swap

import (
	"fmt"

	"github.com/paiban/linecrew/pkg/model"
	"github.com/paiban/linecrew/pkg/scheduler/objective"
	"github.com/paiban/linecrew/pkg/validator"
)

// Kind 换线方式
type Kind string

const (
	KindExchange Kind = "exchange" // 与另一线路的人员互换
	KindMove     Kind = "move"     // 调入有空位的线路
)

// Request 换线请求，TargetID 与 TargetLine 二选一
type Request struct {
	PersonID   string `json:"emp_id"`
	TargetID   string `json:"target_id,omitempty"`
	TargetLine int    `json:"target_line,omitempty"`
}

// Issue 换线问题
type Issue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"` // error/warning
	Message  string `json:"message"`
}

// Evaluation 换线评估结果
type Evaluation struct {
	Request        Request                  `json:"request"`
	Kind           Kind                     `json:"kind"`
	FromLine       int                      `json:"from_line"`
	ToLine         int                      `json:"to_line"`
	Feasible       bool                     `json:"feasible"`
	Issues         []Issue                  `json:"issues"`
	NewViolations  []model.ValidationIssue  `json:"new_violations,omitempty"`
	Score          objective.ScoreBreakdown `json:"score"`
	ScoreChange    float64                  `json:"score_change"`
	Recommendation string                   `json:"recommendation"`
}

// Evaluator 换线评估器，在排班副本上模拟并重新校验评分
type Evaluator struct {
	validator *validator.RosterValidator
	scorer    *objective.Scorer
	dir       *model.Directory
}

// NewEvaluator 创建换线评估器
func NewEvaluator(v *validator.RosterValidator, dir *model.Directory, w objective.Weights) *Evaluator {
	if v == nil {
		v = validator.NewRosterValidator(nil, nil)
	}
	return &Evaluator{
		validator: v,
		scorer:    objective.NewScorer(dir, w),
		dir:       dir,
	}
}

// Evaluate 评估换线可行性。原排班不会被修改。
func (e *Evaluator) Evaluate(roster *model.Roster, req Request) *Evaluation {
	return e.evaluate(roster, req, e.scorer.Score(roster), e.errorKeys(roster))
}

func (e *Evaluator) evaluate(roster *model.Roster, req Request, base objective.ScoreBreakdown, baseErrors map[string]bool) *Evaluation {
	result := &Evaluation{Request: req, Feasible: true, Issues: make([]Issue, 0)}

	sim, err := e.simulate(roster, req, result)
	if err != nil {
		result.reject("invalid_request", err.Error())
		result.Recommendation = recommendation(result)
		return result
	}
	if !result.Feasible {
		result.Recommendation = recommendation(result)
		return result
	}

	for _, issue := range e.validator.Validate(sim, e.dir) {
		if issue.Severity != model.SeverityError || baseErrors[issue.String()] {
			continue
		}
		result.NewViolations = append(result.NewViolations, issue)
	}
	if len(result.NewViolations) > 0 {
		result.reject("new_violation", fmt.Sprintf("换线后新增 %d 个硬约束冲突", len(result.NewViolations)))
	}

	result.Score = e.scorer.Score(sim)
	result.ScoreChange = result.Score.Total - base.Total
	if result.ScoreChange < 0 {
		result.Issues = append(result.Issues, Issue{
			Type:     "score_drop",
			Severity: "warning",
			Message:  fmt.Sprintf("评分下降 %.2f", -result.ScoreChange),
		})
	}
	result.Recommendation = recommendation(result)
	return result
}

// simulate 在副本上执行换线，锁定和容量不满足时标记为不可行
func (e *Evaluator) simulate(roster *model.Roster, req Request, result *Evaluation) (*model.Roster, error) {
	from, ok := roster.LineOf(req.PersonID)
	if !ok {
		return nil, fmt.Errorf("人员 %s 不在排班中", req.PersonID)
	}
	result.FromLine = from

	sim := roster.Clone()
	switch {
	case req.TargetID != "":
		to, ok := roster.LineOf(req.TargetID)
		if !ok {
			return nil, fmt.Errorf("人员 %s 不在排班中", req.TargetID)
		}
		result.Kind = KindExchange
		result.ToLine = to
		if to == from {
			result.reject("same_line", "两人已在同一线路")
			return sim, nil
		}
		e.checkLock(req.PersonID, to, result)
		e.checkLock(req.TargetID, from, result)
		if !result.Feasible {
			return sim, nil
		}
		if err := sim.Swap(from, indexOf(sim.Crew(from), req.PersonID), to, indexOf(sim.Crew(to), req.TargetID)); err != nil {
			return nil, err
		}

	case req.TargetLine != 0:
		line, ok := roster.Line(req.TargetLine)
		if !ok {
			return nil, fmt.Errorf("未知线路: %d", req.TargetLine)
		}
		result.Kind = KindMove
		result.ToLine = line.ID
		if line.ID == from {
			result.reject("same_line", "人员已在目标线路")
			return sim, nil
		}
		if roster.Headcount(line.ID) >= line.MaxHeadcount {
			result.reject("line_full", fmt.Sprintf("线路 %d 已满员", line.ID))
		}
		e.checkLock(req.PersonID, line.ID, result)
		if !result.Feasible {
			return sim, nil
		}
		sim.RemoveFromLine(from, req.PersonID)
		if err := sim.AddToLine(line.ID, req.PersonID); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("必须指定互换人员或目标线路")
	}
	return sim, nil
}

func (e *Evaluator) checkLock(id string, lineID int, result *Evaluation) {
	p, ok := e.dir.Get(id)
	if ok && !p.CanMoveTo(lineID) {
		result.reject("locked", fmt.Sprintf("人员 %s 锁定在线路 %d", id, p.LockedLine))
	}
}

// errorKeys 现有 ERROR 问题，用于区分换线新增的冲突
func (e *Evaluator) errorKeys(roster *model.Roster) map[string]bool {
	keys := make(map[string]bool)
	for _, issue := range e.validator.Validate(roster, e.dir) {
		if issue.Severity == model.SeverityError {
			keys[issue.String()] = true
		}
	}
	return keys
}

func (r *Evaluation) reject(typ, msg string) {
	r.Feasible = false
	r.Issues = append(r.Issues, Issue{Type: typ, Severity: "error", Message: msg})
}

func indexOf(crew []string, id string) int {
	for i, m := range crew {
		if m == id {
			return i
		}
	}
	return -1
}

// recommendation 生成换线建议
func recommendation(r *Evaluation) string {
	switch {
	case !r.Feasible:
		return "不建议换线，存在硬约束冲突"
	case r.ScoreChange > 0:
		return "推荐，换线后评分提高"
	case r.ScoreChange == 0:
		return "可以进行，评分不变"
	default:
		return "谨慎进行，换线会降低排班评分"
	}
}
