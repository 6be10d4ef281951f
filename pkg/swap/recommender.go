package swap

import (
	"sort"

	"github.com/paiban/linecrew/pkg/model"
)

// Recommendation 换线推荐
type Recommendation struct {
	*Evaluation
	Rank int `json:"rank"`
}

// RecommendOptions 推荐选项
type RecommendOptions struct {
	MaxRecommendations int      // 最大推荐数量
	ExcludeIDs         []string // 不参与互换的人员
	AllowMove          bool     // 是否考虑调入有空位的线路
	MinScoreChange     float64  // 最低评分变化
}

// DefaultRecommendOptions 返回默认选项：最多5条，允许调线，不接受降分
func DefaultRecommendOptions() *RecommendOptions {
	return &RecommendOptions{
		MaxRecommendations: 5,
		AllowMove:          true,
		MinScoreChange:     0,
	}
}

// Recommender 换线推荐器
type Recommender struct {
	evaluator *Evaluator
}

// NewRecommender 创建换线推荐器
func NewRecommender(e *Evaluator) *Recommender {
	return &Recommender{evaluator: e}
}

// Recommend 为人员推荐可行的换线方案，按评分变化降序，相同时互换优先、再按线路和人员ID
func (r *Recommender) Recommend(roster *model.Roster, personID string, options *RecommendOptions) []Recommendation {
	if options == nil {
		options = DefaultRecommendOptions()
	}
	from, ok := roster.LineOf(personID)
	if !ok {
		return nil
	}

	exclude := make(map[string]bool, len(options.ExcludeIDs)+1)
	exclude[personID] = true
	for _, id := range options.ExcludeIDs {
		exclude[id] = true
	}

	base := r.evaluator.scorer.Score(roster)
	baseErrors := r.evaluator.errorKeys(roster)

	var candidates []Recommendation
	consider := func(req Request) {
		ev := r.evaluator.evaluate(roster, req, base, baseErrors)
		if ev.Feasible && ev.ScoreChange >= options.MinScoreChange {
			candidates = append(candidates, Recommendation{Evaluation: ev})
		}
	}

	for _, line := range roster.Lines() {
		if line.ID == from {
			continue
		}
		for _, id := range roster.Crew(line.ID) {
			if !exclude[id] {
				consider(Request{PersonID: personID, TargetID: id})
			}
		}
		if options.AllowMove && roster.Headcount(line.ID) < line.MaxHeadcount {
			consider(Request{PersonID: personID, TargetLine: line.ID})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.ScoreChange != b.ScoreChange {
			return a.ScoreChange > b.ScoreChange
		}
		if a.Kind != b.Kind {
			return a.Kind == KindExchange
		}
		if a.ToLine != b.ToLine {
			return a.ToLine < b.ToLine
		}
		return a.Request.TargetID < b.Request.TargetID
	})

	if options.MaxRecommendations > 0 && len(candidates) > options.MaxRecommendations {
		candidates = candidates[:options.MaxRecommendations]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	return candidates
}
