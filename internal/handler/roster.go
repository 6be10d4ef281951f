package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/paiban/linecrew/internal/cache"
	"github.com/paiban/linecrew/internal/repository"
	apperrors "github.com/paiban/linecrew/pkg/errors"
	"github.com/paiban/linecrew/pkg/logger"
	"github.com/paiban/linecrew/pkg/model"
	"github.com/paiban/linecrew/pkg/scheduler/engine"
	"github.com/paiban/linecrew/pkg/scheduler/objective"
	"github.com/paiban/linecrew/pkg/scheduler/optimizer"
	"github.com/paiban/linecrew/pkg/stats"
	rostervalidator "github.com/paiban/linecrew/pkg/validator"
)

// GenerateRequest 排班生成请求，未提供的参数取服务默认值
type GenerateRequest struct {
	Lines          []model.Line       `json:"lines" validate:"required,min=1"`
	Persons        []*model.Person    `json:"persons" validate:"required,min=1"`
	Weeks          int                `json:"weeks" validate:"omitempty,min=1,max=104"`
	Pattern        []string           `json:"pattern" validate:"omitempty,min=1"`
	Seed           *int64             `json:"seed"`
	MaxIterations  *int               `json:"max_iterations" validate:"omitempty,min=0"`
	Restarts       int                `json:"restarts" validate:"omitempty,min=1,max=32"`
	FastCheck      string             `json:"fast_check" validate:"omitempty,oneof=sampled affected_lines"`
	UnknownIDs     string             `json:"unknown_ids" validate:"omitempty,oneof=ignore report"`
	Weights        *objective.Weights `json:"weights"`
	TimeoutSeconds int                `json:"timeout_seconds" validate:"omitempty,min=1,max=600"`
	Save           bool               `json:"save"`
}

// GenerateResponse 排班生成响应
type GenerateResponse struct {
	RunID         string                   `json:"run_id"`
	Cached        bool                     `json:"cached"`
	Valid         bool                     `json:"valid"`
	Seed          int64                    `json:"seed"`
	Runs          int                      `json:"runs"`
	Lines         []model.CrewEntry        `json:"lines"`
	ResolvedLines map[string]int           `json:"resolved_lines"`
	Issues        []model.ValidationIssue  `json:"issues"`
	Score         objective.ScoreBreakdown `json:"score"`
	Coverage      *stats.CoverageMetrics   `json:"coverage"`
	SnapshotID    string                   `json:"snapshot_id,omitempty"`
	Duration      string                   `json:"duration"`
}

// ValidateRequest 排班校验请求
type ValidateRequest struct {
	Lines      []model.Line       `json:"lines" validate:"required,min=1"`
	Persons    []*model.Person    `json:"persons" validate:"required"`
	Roster     []model.CrewEntry  `json:"roster" validate:"required"`
	Weeks      int                `json:"weeks" validate:"required,min=1,max=104"`
	Pattern    []string           `json:"pattern" validate:"omitempty,min=1"`
	UnknownIDs string             `json:"unknown_ids" validate:"omitempty,oneof=ignore report"`
	Weights    *objective.Weights `json:"weights"`
}

// ValidateResponse 排班校验响应
type ValidateResponse struct {
	Valid    bool                     `json:"valid"`
	Issues   []model.ValidationIssue  `json:"issues"`
	Score    objective.ScoreBreakdown `json:"score"`
	Coverage *stats.CoverageMetrics   `json:"coverage"`
}

// Generate 生成排班
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req GenerateRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	opts, err := h.generateOptions(&req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	log := logger.WithContext(ctx)
	h.runStarted()

	fingerprint := ""
	if h.cache != nil {
		if fingerprint, err = cache.Fingerprint(req.Persons, req.Lines, opts); err != nil {
			log.Warn().Err(err).Msg("计算输入指纹失败，跳过缓存")
		} else if resp, ok := h.fromCache(ctx, fingerprint, &req, opts); ok {
			resp.Duration = time.Since(start).String()
			h.runCompleted("cached", start)
			respondJSON(w, http.StatusOK, resp)
			return
		}
	}

	res, err := engine.New(opts, h.engineOptions()...).Run(ctx, req.Persons, req.Lines)
	if err != nil {
		h.runCompleted("failure", start)
		respondError(w, r, err)
		return
	}

	resp := newGenerateResponse(res.RunID, res.Seed, res.Runs, res.Roster, res.Issues, res.Score, opts.Weights.TargetStaff)
	h.recordResult(resp)

	if h.cache != nil && fingerprint != "" {
		if err := h.cache.Put(ctx, fingerprint, cache.NewEntry(res)); err != nil {
			log.Warn().Err(err).Msg("写入排班缓存失败")
		}
	}
	if req.Save {
		if h.store == nil {
			log.Warn().Msg("未配置数据库，忽略保存请求")
		} else {
			snap := repository.NewSnapshot(res.Roster, res.Seed, res.Score.Total, res.Valid())
			if err := h.store.Save(ctx, snap); err != nil {
				h.runCompleted("failure", start)
				respondError(w, r, err)
				return
			}
			resp.SnapshotID = snap.ID.String()
		}
	}

	h.runCompleted("success", start)
	resp.Duration = time.Since(start).String()
	respondJSON(w, http.StatusOK, resp)
}

// generateOptions 合并请求参数与默认运行参数
func (h *Handler) generateOptions(req *GenerateRequest) (engine.Options, error) {
	opts := h.opts
	if req.Weeks > 0 {
		opts.Weeks = req.Weeks
	}
	if len(req.Pattern) > 0 {
		p, err := model.ParseShiftPattern(req.Pattern)
		if err != nil {
			return opts, apperrors.Wrap(err, apperrors.CodeInvalidInput, "轮班周期无效")
		}
		opts.Pattern = p
	}
	if req.Seed != nil {
		opts.Optimizer.Seed = *req.Seed
	}
	if req.MaxIterations != nil {
		opts.Optimizer.MaxIterations = *req.MaxIterations
	}
	if req.Restarts > 0 {
		opts.Restarts = req.Restarts
	}
	if req.FastCheck != "" {
		opts.Optimizer.FastCheck = optimizer.FastCheckMode(req.FastCheck)
	}
	if req.UnknownIDs != "" {
		opts.Validation.UnknownIDs = rostervalidator.UnknownIDPolicy(req.UnknownIDs)
	}
	if req.Weights != nil {
		opts.Weights = *req.Weights
	}
	if req.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}
	return opts, nil
}

// fromCache 命中缓存时按请求线路重建排班表
func (h *Handler) fromCache(ctx context.Context, fingerprint string, req *GenerateRequest, opts engine.Options) (*GenerateResponse, bool) {
	log := logger.WithContext(ctx)
	entry, ok, err := h.cache.Get(ctx, fingerprint)
	if err != nil {
		log.Warn().Err(err).Msg("读取排班缓存失败")
	}
	if h.metrics != nil {
		h.metrics.CacheLookup(ok)
	}
	if !ok {
		return nil, false
	}

	roster, err := model.NewRoster(req.Lines, opts.Pattern, opts.Days())
	if err == nil {
		err = roster.Load(entry.Lines)
	}
	if err != nil {
		log.Warn().Err(err).Str("fingerprint", fingerprint).Msg("缓存结果与请求线路不一致")
		return nil, false
	}

	log.Info().Str("fingerprint", fingerprint).Str("cached_run_id", entry.RunID).Msg("命中排班缓存")
	resp := newGenerateResponse(entry.RunID, entry.Seed, entry.Runs, roster, entry.Issues, entry.Score, opts.Weights.TargetStaff)
	resp.Cached = true
	return resp, true
}

// Validate 校验已有排班并重新评分
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	opts := h.opts
	opts.Weeks = req.Weeks
	if len(req.Pattern) > 0 {
		p, err := model.ParseShiftPattern(req.Pattern)
		if err != nil {
			respondError(w, r, apperrors.Wrap(err, apperrors.CodeInvalidInput, "轮班周期无效"))
			return
		}
		opts.Pattern = p
	}
	if req.UnknownIDs != "" {
		opts.Validation.UnknownIDs = rostervalidator.UnknownIDPolicy(req.UnknownIDs)
	}
	if req.Weights != nil {
		opts.Weights = *req.Weights
	}

	roster, err := model.NewRoster(req.Lines, opts.Pattern, opts.Days())
	if err != nil {
		respondError(w, r, apperrors.Wrap(err, apperrors.CodeInvalidInput, "线路数据无效"))
		return
	}
	if err := roster.Load(req.Roster); err != nil {
		respondError(w, r, apperrors.Wrap(err, apperrors.CodeInvalidInput, "排班数据无效"))
		return
	}

	issues, score, err := engine.New(opts).Evaluate(roster, req.Persons)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if issues == nil {
		issues = []model.ValidationIssue{}
	}

	respondJSON(w, http.StatusOK, ValidateResponse{
		Valid:    !model.HasErrors(issues),
		Issues:   issues,
		Score:    score,
		Coverage: stats.NewCoverageAnalyzer(opts.Weights.TargetStaff).Analyze(roster),
	})
}

// GetSnapshot 按ID读取已保存的排班
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, r, apperrors.New(apperrors.CodeNotFound, "未配置排班存储"))
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, apperrors.InvalidInput("id", "无效的排班ID格式"))
		return
	}
	snap, err := h.store.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// GetLatest 读取最近保存的排班
func (h *Handler) GetLatest(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, r, apperrors.New(apperrors.CodeNotFound, "未配置排班存储"))
		return
	}
	snap, err := h.store.Latest(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func newGenerateResponse(runID string, seed int64, runs int, roster *model.Roster, issues []model.ValidationIssue, score objective.ScoreBreakdown, target int) *GenerateResponse {
	if issues == nil {
		issues = []model.ValidationIssue{}
	}
	return &GenerateResponse{
		RunID:         runID,
		Valid:         !model.HasErrors(issues),
		Seed:          seed,
		Runs:          runs,
		Lines:         roster.Entries(),
		ResolvedLines: roster.Assignments(),
		Issues:        issues,
		Score:         score,
		Coverage:      stats.NewCoverageAnalyzer(target).Analyze(roster),
	}
}

func (h *Handler) engineOptions() []engine.Option {
	if h.metrics == nil {
		return nil
	}
	return []engine.Option{engine.WithRecorder(h.metrics)}
}

func (h *Handler) runStarted() {
	if h.metrics != nil {
		h.metrics.RunStarted()
	}
}

func (h *Handler) runCompleted(status string, start time.Time) {
	if h.metrics != nil {
		h.metrics.RunCompleted(status, time.Since(start))
	}
}

func (h *Handler) recordResult(resp *GenerateResponse) {
	if h.metrics == nil {
		return
	}
	errs, warns := 0, 0
	for _, issue := range resp.Issues {
		if issue.Severity == model.SeverityError {
			errs++
		} else {
			warns++
		}
	}
	h.metrics.SetRosterResult(resp.Score.Total, errs, warns, resp.Coverage.BalancedRatio)
}
