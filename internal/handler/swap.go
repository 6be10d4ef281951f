package handler

import (
	"net/http"

	apperrors "github.com/paiban/linecrew/pkg/errors"
	"github.com/paiban/linecrew/pkg/model"
	"github.com/paiban/linecrew/pkg/swap"
	rostervalidator "github.com/paiban/linecrew/pkg/validator"
)

// SwapRequest 换线评估请求。给出 target_id 或 target_line 时评估单个方案，否则返回推荐列表
type SwapRequest struct {
	Lines      []model.Line      `json:"lines" validate:"required,min=1"`
	Persons    []*model.Person   `json:"persons" validate:"required,min=1"`
	Roster     []model.CrewEntry `json:"roster" validate:"required"`
	Weeks      int               `json:"weeks" validate:"required,min=1,max=104"`
	Pattern    []string          `json:"pattern" validate:"omitempty,min=1"`
	PersonID   string            `json:"emp_id" validate:"required"`
	TargetID   string            `json:"target_id" validate:"excluded_with=TargetLine"`
	TargetLine int               `json:"target_line" validate:"omitempty,min=1"`
	Limit      int               `json:"limit" validate:"omitempty,min=1,max=50"`
}

// SwapResponse 换线评估响应
type SwapResponse struct {
	Evaluation      *swap.Evaluation      `json:"evaluation,omitempty"`
	Recommendations []swap.Recommendation `json:"recommendations,omitempty"`
}

// Swaps 评估或推荐换线
func (h *Handler) Swaps(w http.ResponseWriter, r *http.Request) {
	var req SwapRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	pattern := h.opts.Pattern
	if len(req.Pattern) > 0 {
		p, err := model.ParseShiftPattern(req.Pattern)
		if err != nil {
			respondError(w, r, apperrors.Wrap(err, apperrors.CodeInvalidInput, "轮班周期无效"))
			return
		}
		pattern = p
	}

	roster, err := model.NewRoster(req.Lines, pattern, req.Weeks*7)
	if err == nil {
		err = roster.Load(req.Roster)
	}
	if err != nil {
		respondError(w, r, apperrors.Wrap(err, apperrors.CodeInvalidInput, "排班数据无效"))
		return
	}
	dir, err := model.NewDirectory(req.Persons)
	if err != nil {
		respondError(w, r, apperrors.Wrap(err, apperrors.CodeInvalidInput, "人员数据无效"))
		return
	}
	if _, ok := dir.Get(req.PersonID); !ok {
		respondError(w, r, apperrors.NotFound("person", req.PersonID))
		return
	}

	validation := h.opts.Validation
	evaluator := swap.NewEvaluator(rostervalidator.NewRosterValidator(&validation, nil), dir, h.opts.Weights)

	if req.TargetID != "" || req.TargetLine != 0 {
		respondJSON(w, http.StatusOK, SwapResponse{Evaluation: evaluator.Evaluate(roster, swap.Request{
			PersonID:   req.PersonID,
			TargetID:   req.TargetID,
			TargetLine: req.TargetLine,
		})})
		return
	}

	opts := swap.DefaultRecommendOptions()
	if req.Limit > 0 {
		opts.MaxRecommendations = req.Limit
	}
	recs := swap.NewRecommender(evaluator).Recommend(roster, req.PersonID, opts)
	if recs == nil {
		recs = []swap.Recommendation{}
	}
	respondJSON(w, http.StatusOK, SwapResponse{Recommendations: recs})
}
