package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/linecrew/pkg/errors"
	"github.com/paiban/linecrew/pkg/model"
	"github.com/paiban/linecrew/pkg/stats"
)

// station 急救站：lineCount 条线路，每线 perLine 人，前 senior 人为专科急救员（ECP）
func station(lineCount, perLine, senior int) ([]*model.Person, []model.Line) {
	lines := make([]model.Line, 0, lineCount)
	for i := 1; i <= lineCount; i++ {
		lines = append(lines, model.Line{ID: i, Offset: (i - 1) % 9, MaxHeadcount: perLine})
	}
	persons := make([]*model.Person, 0, lineCount*perLine)
	for i := 0; i < lineCount*perLine; i++ {
		id := fmt.Sprintf("E%03d", i)
		p := model.NewPerson(id, "Medic "+id)
		if i < senior {
			p.Title = model.TitleParaSpec
			p.ExtendedCare = true
			p.YearsExperience = 10
		}
		persons = append(persons, p)
	}
	return persons, lines
}

// TestScenario_StandardStation 标准急救站：9 条线路满员，无同事约束
func TestScenario_StandardStation(t *testing.T) {
	persons, lines := station(9, 6, 12)
	opts := testOptions()
	opts.Weeks = 9

	res, err := New(opts).Run(context.Background(), persons, lines)
	require.NoError(t, err)

	assert.True(t, res.Valid())
	assert.Len(t, res.ResolvedLines, len(persons))
	for _, l := range lines {
		assert.LessOrEqual(t, res.Roster.Headcount(l.ID), l.MaxHeadcount)
	}

	m := stats.NewCoverageAnalyzer(opts.Weights.TargetStaff).Analyze(res.Roster)
	assert.Equal(t, opts.Days()*2, m.TotalShifts)
	t.Logf("班次 %d，达标 %d (%.1f%%)，平均在岗 %.1f，评分 %.2f",
		m.TotalShifts, m.Balanced, m.BalancedRatio, m.AverageStaff, res.Score.Total)
}

// TestScenario_ConflictHeavy 大量互斥同事且有余量：优化后评分不低于初始，剩余错误只来自同事约束
func TestScenario_ConflictHeavy(t *testing.T) {
	// 36 个岗位 30 人：E002 只接受三名同事，所在线路最多 4 人，其余线路需要余量
	persons, lines := station(6, 6, 6)
	persons = persons[:30]
	for i := 0; i+1 < len(persons); i += 3 {
		persons[i].CantWorkWith = model.NewStringSet(persons[i+1].ID)
	}
	persons[2].CanOnlyWorkWith = model.NewStringSet(persons[5].ID, persons[8].ID, persons[11].ID)

	opts := testOptions()
	opts.Optimizer.MaxIterations = 2000
	opts.Optimizer.NoImproveLimit = 500
	opts.Optimizer.Seed = 11

	res, err := New(opts).Run(context.Background(), persons, lines)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.Score.Total, res.InitialScore.Total)
	for _, issue := range res.Issues {
		if issue.Severity == model.SeverityError {
			assert.Contains(t, []string{
				"cant_work_with violation",
				"can_only_work_with violation",
			}, issue.Message)
		}
	}
	t.Logf("初始评分 %.2f → %.2f，剩余问题 %d 个，停止原因 %s",
		res.InitialScore.Total, res.Score.Total, len(res.Issues), res.Optimization.StopReason)
}

// TestScenario_LockedSeniorCrew 资深人员锁定线路，偏好线路保持可行
func TestScenario_LockedSeniorCrew(t *testing.T) {
	persons, lines := station(4, 4, 4)
	for i := 0; i < 4; i++ {
		persons[i].LockedLine = i + 1
	}
	persons[10].PreferredLines = model.NewIntSet(2)
	persons[11].AvoidLines = model.NewIntSet(1, 2, 3)

	opts := testOptions()
	opts.Restarts = 3
	opts.Workers = 2

	res, err := New(opts).Run(context.Background(), persons, lines)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		assert.Equal(t, i+1, res.ResolvedLines[persons[i].ID], "锁定人员 %s 不能移动", persons[i].ID)
	}
	assert.Equal(t, 3, res.Runs)
	assert.True(t, res.Valid())
}

// TestScenario_Fairness 排班天数为轮转周期整数倍时各线路工作量相同
func TestScenario_Fairness(t *testing.T) {
	persons, lines := station(9, 3, 0)
	opts := testOptions()
	opts.Weeks = 9

	res, err := New(opts).Run(context.Background(), persons, lines)
	require.NoError(t, err)

	f := stats.NewFairnessAnalyzer().Analyze(res.Roster)
	require.Len(t, f.PersonStats, len(persons))
	assert.Equal(t, f.MaxShifts, f.MinShifts, "63 天为 9 天轮转的整数倍，每人班次数相同")
	assert.InDelta(t, 0, f.ShiftGini, 1e-9)
	t.Logf("平均班次 %.1f，夜班基尼 %.3f，周末基尼 %.3f，综合 %.1f",
		f.AvgShifts, f.NightShiftGini, f.WeekendGini, f.OverallFairnessScore)
}

// TestScenario_ConflictHeavyNoSlack 同样的约束但岗位恰好等于人数，构建失败且不返回部分排班
func TestScenario_ConflictHeavyNoSlack(t *testing.T) {
	persons, lines := station(6, 5, 6)
	persons[2].CanOnlyWorkWith = model.NewStringSet(persons[5].ID, persons[8].ID, persons[11].ID)

	res, err := New(testOptions()).Run(context.Background(), persons, lines)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, errors.CodeNoFeasibleSolution), "got %v", err)
}
