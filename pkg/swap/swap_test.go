package swap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/linecrew/pkg/model"
	"github.com/paiban/linecrew/pkg/scheduler/objective"
)

// fixture 两条同偏移线路，A/B 在线路1，C/D 在线路2，线路3有空位
func fixture(t *testing.T, mutate func(map[string]*model.Person)) (*model.Roster, *Evaluator) {
	t.Helper()
	lines := []model.Line{
		{ID: 1, Offset: 0, MaxHeadcount: 2},
		{ID: 2, Offset: 0, MaxHeadcount: 2},
		{ID: 3, Offset: 4, MaxHeadcount: 3},
	}
	persons := map[string]*model.Person{}
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		persons[id] = model.NewPerson(id, id)
	}
	if mutate != nil {
		mutate(persons)
	}

	r, err := model.NewRoster(lines, model.DefaultPattern(), 14)
	require.NoError(t, err)
	require.NoError(t, r.Load([]model.CrewEntry{
		{LineID: 1, Employees: []string{"A", "B"}},
		{LineID: 2, Employees: []string{"C", "D"}},
		{LineID: 3, Employees: []string{"E"}},
	}))

	list := make([]*model.Person, 0, len(persons))
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		list = append(list, persons[id])
	}
	dir, err := model.NewDirectory(list)
	require.NoError(t, err)
	return r, NewEvaluator(nil, dir, objective.DefaultWeights())
}

func TestEvaluator_Evaluate(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(map[string]*model.Person)
		req          Request
		wantFeasible bool
		wantIssue    string
		wantKind     Kind
	}{
		{
			name:         "普通互换",
			req:          Request{PersonID: "A", TargetID: "C"},
			wantFeasible: true,
			wantKind:     KindExchange,
		},
		{
			name:         "调入空位线路",
			req:          Request{PersonID: "A", TargetLine: 3},
			wantFeasible: true,
			wantKind:     KindMove,
		},
		{
			name:         "目标线路满员",
			req:          Request{PersonID: "A", TargetLine: 2},
			wantFeasible: false,
			wantIssue:    "line_full",
			wantKind:     KindMove,
		},
		{
			name:         "锁定人员不能移动",
			mutate:       func(p map[string]*model.Person) { p["C"].LockedLine = 2 },
			req:          Request{PersonID: "A", TargetID: "C"},
			wantFeasible: false,
			wantIssue:    "locked",
			wantKind:     KindExchange,
		},
		{
			name:         "互换引入互斥冲突",
			mutate:       func(p map[string]*model.Person) { p["D"].CantWorkWith = model.NewStringSet("B") },
			req:          Request{PersonID: "A", TargetID: "D"},
			wantFeasible: false,
			wantIssue:    "new_violation",
			wantKind:     KindExchange,
		},
		{
			name:         "同一线路",
			req:          Request{PersonID: "A", TargetID: "B"},
			wantFeasible: false,
			wantIssue:    "same_line",
			wantKind:     KindExchange,
		},
		{
			name:         "未知人员",
			req:          Request{PersonID: "Z", TargetID: "A"},
			wantFeasible: false,
			wantIssue:    "invalid_request",
		},
		{
			name:         "未指定目标",
			req:          Request{PersonID: "A"},
			wantFeasible: false,
			wantIssue:    "invalid_request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, e := fixture(t, tt.mutate)
			before := r.Entries()

			ev := e.Evaluate(r, tt.req)

			assert.Equal(t, tt.wantFeasible, ev.Feasible)
			assert.Equal(t, tt.wantKind, ev.Kind)
			assert.Equal(t, before, r.Entries(), "原排班不应被修改")
			assert.NotEmpty(t, ev.Recommendation)
			if tt.wantIssue != "" {
				require.NotEmpty(t, ev.Issues)
				assert.Equal(t, tt.wantIssue, ev.Issues[0].Type)
			}
		})
	}
}

func TestEvaluator_ScoreChange(t *testing.T) {
	r, e := fixture(t, func(p map[string]*model.Person) {
		p["A"].PreferredLines = model.NewIntSet(2)
	})

	ev := e.Evaluate(r, Request{PersonID: "A", TargetID: "C"})
	require.True(t, ev.Feasible)
	assert.Equal(t, 2, ev.ToLine)
	assert.Greater(t, ev.ScoreChange, 0.0)
	assert.Equal(t, "推荐，换线后评分提高", ev.Recommendation)
}

func TestRecommender_Recommend(t *testing.T) {
	r, e := fixture(t, func(p map[string]*model.Person) {
		p["A"].PreferredLines = model.NewIntSet(3)
		p["D"].LockedLine = 2
	})
	rec := NewRecommender(e)

	t.Run("按评分排序", func(t *testing.T) {
		got := rec.Recommend(r, "A", &RecommendOptions{MaxRecommendations: 10, AllowMove: true, MinScoreChange: -100})
		require.NotEmpty(t, got)
		for i, c := range got {
			assert.Equal(t, i+1, c.Rank)
			assert.True(t, c.Feasible)
			assert.NotEqual(t, "D", c.Request.TargetID, "锁定人员不应出现在推荐中")
			if i > 0 {
				assert.GreaterOrEqual(t, got[i-1].ScoreChange, c.ScoreChange)
			}
		}
		assert.Equal(t, 3, got[0].ToLine, "偏好线路排在最前")
	})

	t.Run("排除与数量限制", func(t *testing.T) {
		got := rec.Recommend(r, "A", &RecommendOptions{MaxRecommendations: 1, ExcludeIDs: []string{"E"}, MinScoreChange: -100})
		require.Len(t, got, 1)
		assert.Equal(t, KindExchange, got[0].Kind)
		assert.Equal(t, "C", got[0].Request.TargetID)
	})

	t.Run("未知人员", func(t *testing.T) {
		assert.Nil(t, rec.Recommend(r, "Z", nil))
	})
}
