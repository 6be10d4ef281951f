// Package engine 组装构建、校验、评分与优化，提供一次完整的排班运行
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/linecrew/pkg/errors"
	"github.com/paiban/linecrew/pkg/logger"
	"github.com/paiban/linecrew/pkg/model"
	"github.com/paiban/linecrew/pkg/scheduler/constraint"
	"github.com/paiban/linecrew/pkg/scheduler/objective"
	"github.com/paiban/linecrew/pkg/scheduler/optimizer"
	"github.com/paiban/linecrew/pkg/scheduler/solver"
	"github.com/paiban/linecrew/pkg/validator"
)

// Options 运行参数
type Options struct {
	Pattern    model.ShiftPattern
	Weeks      int
	Weights    objective.Weights
	Optimizer  optimizer.Config
	Restarts   int           // 多起点次数，<=1 时单次运行
	Workers    int           // 多起点并发数
	Timeout    time.Duration // 优化超时，0 表示不限
	Validation validator.Config
}

// DefaultOptions 默认运行参数：9周，默认轮转和权重
func DefaultOptions() Options {
	return Options{
		Pattern:    model.DefaultPattern(),
		Weeks:      9,
		Weights:    objective.DefaultWeights(),
		Optimizer:  optimizer.DefaultConfig(),
		Restarts:   1,
		Workers:    4,
		Validation: *validator.DefaultConfig(),
	}
}

// Days 排班天数
func (o Options) Days() int {
	return o.Weeks * 7
}

// Result 运行结果
type Result struct {
	RunID         string                   `json:"run_id"`
	Roster        *model.Roster            `json:"roster"`
	ResolvedLines map[string]int           `json:"resolved_lines"` // 优化后每人所在线路
	InitialLines  map[string]int           `json:"initial_lines"`  // 初始构建的线路分配
	Issues        []model.ValidationIssue  `json:"issues"`
	Score         objective.ScoreBreakdown `json:"score"`
	InitialScore  objective.ScoreBreakdown `json:"initial_score"`
	Build         *solver.Statistics       `json:"build"`
	Optimization  *optimizer.Result        `json:"-"`
	Runs          int                      `json:"runs"`
	Seed          int64                    `json:"seed"`
	Duration      time.Duration            `json:"duration"`
}

// Valid 是否不存在硬约束违反
func (r *Result) Valid() bool {
	return !model.HasErrors(r.Issues)
}

// Engine 排班引擎
type Engine struct {
	opts        Options
	constraints *constraint.Manager
	builder     *solver.GreedyBuilder
	validator   *validator.RosterValidator
	recorder    optimizer.Recorder
	onProgress  func(optimizer.Progress)
}

// Option 引擎选项
type Option func(*Engine)

// WithRecorder 设置优化指标记录器
func WithRecorder(r optimizer.Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithProgress 设置优化进度回调
func WithProgress(fn func(optimizer.Progress)) Option {
	return func(e *Engine) {
		e.onProgress = fn
	}
}

// WithConstraints 使用自定义同事约束
func WithConstraints(cm *constraint.Manager) Option {
	return func(e *Engine) {
		if cm != nil {
			e.constraints = cm
		}
	}
}

// New 创建排班引擎
func New(opts Options, options ...Option) *Engine {
	if opts.Pattern.Len() == 0 {
		opts.Pattern = model.DefaultPattern()
	}
	e := &Engine{
		opts:        opts,
		constraints: constraint.NewDefaultManager(),
		recorder:    optimizer.NopRecorder{},
	}
	for _, o := range options {
		o(e)
	}
	validation := opts.Validation
	e.builder = solver.NewGreedyBuilder(e.constraints)
	e.validator = validator.NewRosterValidator(&validation, e.constraints)
	return e
}

// Options 返回运行参数
func (e *Engine) Options() Options {
	return e.opts
}

// Run 构建初始排班并优化。只有构建阶段会返回错误。
func (e *Engine) Run(ctx context.Context, persons []*model.Person, lines []model.Line) (*Result, error) {
	start := time.Now()

	if e.opts.Weeks < 1 {
		return nil, errors.InvalidInput("weeks", "排班周数必须大于0")
	}
	dir, err := model.NewDirectory(persons)
	if err != nil {
		if dup, ok := err.(*model.DuplicateIDError); ok {
			return nil, errors.DuplicateID("person", dup.ID)
		}
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "人员数据无效")
	}
	for _, p := range dir.All() {
		if err := p.Validate(); err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidInput, "人员数据无效")
		}
	}

	runID := uuid.New().String()
	ctx = logger.ContextWithRunID(ctx, runID)
	runLog := logger.NewSchedulerLoggerFrom(logger.WithContext(ctx))
	runLog.StartRun(runID, dir.Len(), len(lines), e.opts.Days())

	assignment, err := e.builder.WithLogger(runLog).Build(ctx, &solver.Input{
		Directory: dir,
		Lines:     lines,
		Pattern:   e.opts.Pattern,
		Days:      e.opts.Days(),
	})
	if err != nil {
		return nil, err
	}

	optCtx := ctx
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		optCtx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	scorer := objective.NewScorer(dir, e.opts.Weights)
	optOpts := []optimizer.Option{
		optimizer.WithRecorder(e.recorder),
		optimizer.WithProgress(e.onProgress),
		optimizer.WithLogger(runLog),
	}

	var best *optimizer.Result
	runs := 1
	if e.opts.Restarts > 1 {
		runs = e.opts.Restarts
		best, _ = optimizer.NewMultiStartOptimizer(e.opts.Optimizer, e.opts.Restarts, e.opts.Workers,
			e.validator, scorer, dir, optOpts...).Optimize(optCtx, assignment.Roster)
	} else {
		best = optimizer.NewLocalSearchOptimizer(e.opts.Optimizer, e.validator, scorer, dir, optOpts...).
			Optimize(optCtx, assignment.Roster)
	}

	res := &Result{
		RunID:         runID,
		Roster:        best.Roster,
		ResolvedLines: best.Roster.Assignments(),
		InitialLines:  assignment.ResolvedLines,
		Issues:        best.Issues,
		Score:         best.Score,
		InitialScore:  best.InitialScore,
		Build:         assignment.Statistics,
		Optimization:  best,
		Runs:          runs,
		Seed:          best.Seed,
		Duration:      time.Since(start),
	}
	for _, issue := range res.Issues {
		if issue.Severity == model.SeverityError {
			runLog.ConstraintViolation(issue.Message, issue.String())
		}
	}
	runLog.RunComplete(runID, res.Duration, res.Score.Total, len(res.Issues))
	return res, nil
}

// Evaluate 对已有排班重新校验和评分
func (e *Engine) Evaluate(roster *model.Roster, persons []*model.Person) ([]model.ValidationIssue, objective.ScoreBreakdown, error) {
	dir, err := model.NewDirectory(persons)
	if err != nil {
		if dup, ok := err.(*model.DuplicateIDError); ok {
			return nil, objective.ScoreBreakdown{}, errors.DuplicateID("person", dup.ID)
		}
		return nil, objective.ScoreBreakdown{}, errors.Wrap(err, errors.CodeInvalidInput, "人员数据无效")
	}
	issues := e.validator.Validate(roster, dir)
	score := objective.NewScorer(dir, e.opts.Weights).Score(roster)
	return issues, score, nil
}
