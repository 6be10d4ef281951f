// Package optimizer 提供线路成员交换的局部搜索优化
package optimizer

import (
	"context"
	"math/rand"
	"time"

	"github.com/paiban/linecrew/pkg/logger"
	"github.com/paiban/linecrew/pkg/model"
	"github.com/paiban/linecrew/pkg/scheduler/objective"
	"github.com/paiban/linecrew/pkg/validator"
)

// FastCheckMode 交换后的快速校验范围
type FastCheckMode string

const (
	// FastCheckSampled 只校验提出交换时采样的 (day, shift)
	FastCheckSampled FastCheckMode = "sampled"
	// FastCheckAffectedLines 校验两个交换线路上岗的全部 (day, shift)
	FastCheckAffectedLines FastCheckMode = "affected_lines"
)

// Config 优化配置
type Config struct {
	MaxIterations     int           `json:"max_iterations"`      // 最大迭代次数
	NoImproveLimit    int           `json:"no_improve_limit"`    // 连续无改进迭代上限，0 表示不提前停止
	MovesPerIteration int           `json:"moves_per_iteration"` // 每次迭代尝试的交换数
	SampleShifts      int           `json:"sample_shifts"`       // 每次迭代采样的班次数
	Seed              int64         `json:"seed"`                // 随机种子
	LogEvery          int           `json:"log_every"`           // 进度日志间隔
	FastCheck         FastCheckMode `json:"fast_check"`          // 快速校验范围
}

// DefaultConfig 默认优化配置
func DefaultConfig() Config {
	return Config{
		MaxIterations:     50000,
		NoImproveLimit:    5000,
		MovesPerIteration: 1,
		SampleShifts:      50,
		Seed:              42,
		LogEvery:          500,
		FastCheck:         FastCheckSampled,
	}
}

// Phase 优化阶段
type Phase string

const (
	PhaseRunning   Phase = "running"
	PhaseImproving Phase = "improving"
	PhaseStalled   Phase = "stalled"
	PhaseStopped   Phase = "stopped"
)

// StopReason 停止原因
type StopReason string

const (
	StopMaxIterations StopReason = "max_iterations"
	StopNoImprove     StopReason = "no_improve"
	StopCancelled     StopReason = "cancelled"
)

// Progress 进度快照
type Progress struct {
	Iteration int     `json:"iteration"`
	Phase     Phase   `json:"phase"`
	Best      float64 `json:"best"`
	NoImprove int     `json:"no_improve"`
}

// Result 优化结果
type Result struct {
	Roster       *model.Roster            `json:"roster"`
	Issues       []model.ValidationIssue  `json:"issues"`
	Score        objective.ScoreBreakdown `json:"score"`
	InitialScore objective.ScoreBreakdown `json:"initial_score"`
	Iterations   int                      `json:"iterations"`
	Proposed     int                      `json:"proposed"`
	Accepted     int                      `json:"accepted"`
	Rejected     map[RejectReason]int     `json:"rejected"`
	StopReason   StopReason               `json:"stop_reason"`
	Seed         int64                    `json:"seed"`
	Duration     time.Duration            `json:"duration"`
}

// LocalSearchOptimizer 爬山法局部搜索：在线路之间交换成员，
// 快速校验通过且总分严格提高时接受，否则还原。
type LocalSearchOptimizer struct {
	config     Config
	validator  *validator.RosterValidator
	scorer     *objective.Scorer
	directory  *model.Directory
	neighbors  *NeighborhoodGenerator
	recorder   Recorder
	logger     *logger.SchedulerLogger
	onProgress func(Progress)
}

// Option 优化器选项
type Option func(*LocalSearchOptimizer)

// WithRecorder 设置指标记录器
func WithRecorder(r Recorder) Option {
	return func(o *LocalSearchOptimizer) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithProgress 设置进度回调（每 LogEvery 次迭代及停止时调用）
func WithProgress(fn func(Progress)) Option {
	return func(o *LocalSearchOptimizer) {
		o.onProgress = fn
	}
}

// WithLogger 设置日志器
func WithLogger(l *logger.SchedulerLogger) Option {
	return func(o *LocalSearchOptimizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewLocalSearchOptimizer 创建局部搜索优化器
func NewLocalSearchOptimizer(config Config, v *validator.RosterValidator, s *objective.Scorer, dir *model.Directory, opts ...Option) *LocalSearchOptimizer {
	if config.FastCheck == "" {
		config.FastCheck = FastCheckSampled
	}
	o := &LocalSearchOptimizer{
		config:    config,
		validator: v,
		scorer:    s,
		directory: dir,
		neighbors: NewNeighborhoodGenerator(dir),
		recorder:  NopRecorder{},
		logger:    logger.NewSchedulerLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Config 返回优化配置
func (o *LocalSearchOptimizer) Config() Config {
	return o.config
}

// Optimize 优化初始排班，不修改 initial。
// 上下文取消时在下一次迭代开始处停止并返回当前最优解。
func (o *LocalSearchOptimizer) Optimize(ctx context.Context, initial *model.Roster) *Result {
	start := time.Now()
	rng := rand.New(rand.NewSource(o.config.Seed))

	working := initial.Clone()
	best := working.Clone()
	bestScore := o.scorer.Score(best)

	res := &Result{
		InitialScore: bestScore,
		Rejected:     make(map[RejectReason]int),
		StopReason:   StopMaxIterations,
		Seed:         o.config.Seed,
	}
	reject := func(reason RejectReason) {
		res.Rejected[reason]++
		o.recorder.MoveRejected(string(reason))
	}

	initialIssues := o.validator.Validate(best, o.directory)
	o.logger.OptimizeStart(o.config.MaxIterations, o.config.NoImproveLimit, o.config.Seed, bestScore.Total, len(initialIssues))

	shiftKeys := working.ShiftKeys()
	sampled := make([]model.ShiftKey, len(shiftKeys))
	sampleSize := o.config.SampleShifts
	if sampleSize > len(shiftKeys) || sampleSize < 0 {
		sampleSize = len(shiftKeys)
	}

	var activeKeys map[int][]model.ShiftKey
	if o.config.FastCheck == FastCheckAffectedLines {
		activeKeys = activeShiftKeys(working, shiftKeys)
	}

	phase := PhaseRunning
	noImprove := 0

loop:
	for it := 1; it <= o.config.MaxIterations; it++ {
		select {
		case <-ctx.Done():
			res.StopReason = StopCancelled
			break loop
		default:
		}

		if o.config.NoImproveLimit > 0 && noImprove >= o.config.NoImproveLimit {
			res.StopReason = StopNoImprove
			break
		}

		copy(sampled, shiftKeys)
		rng.Shuffle(len(sampled), func(i, j int) { sampled[i], sampled[j] = sampled[j], sampled[i] })
		window := sampled[:sampleSize]

		improved := false
		for m := 0; m < o.config.MovesPerIteration; m++ {
			move, ok := o.neighbors.ProposeSwap(rng, working, window, reject)
			if !ok {
				continue
			}
			res.Proposed++
			o.recorder.MoveProposed()

			if err := move.Apply(working); err != nil {
				continue
			}

			if !o.fastCheck(working, move, activeKeys) {
				_ = move.Apply(working)
				reject(RejectFastCheck)
				continue
			}

			candidate := o.scorer.Score(working)
			if candidate.Total > bestScore.Total {
				bestScore = candidate
				best = working.Clone()
				improved = true
				res.Accepted++
				o.recorder.MoveAccepted(candidate.Total)
				o.logger.Improved(it, candidate.Total, move.LineA, move.LineB)
			} else {
				_ = move.Apply(working)
				reject(RejectNotBetter)
			}
		}

		res.Iterations = it
		if improved {
			noImprove = 0
			phase = PhaseImproving
		} else {
			noImprove++
			phase = PhaseStalled
		}

		if o.config.LogEvery > 0 && it%o.config.LogEvery == 0 {
			o.logger.Progress(it, bestScore.Total, noImprove)
			o.report(Progress{Iteration: it, Phase: phase, Best: bestScore.Total, NoImprove: noImprove})
		}
	}

	res.Roster = best
	res.Score = bestScore
	res.Issues = o.validator.Validate(best, o.directory)
	res.Duration = time.Since(start)

	o.report(Progress{Iteration: res.Iterations, Phase: PhaseStopped, Best: bestScore.Total, NoImprove: noImprove})
	o.recorder.RunFinished(string(res.StopReason), res.Iterations, bestScore.Total, res.Duration)
	o.logger.OptimizeComplete(string(res.StopReason), res.Iterations, res.InitialScore.Total, bestScore.Total, len(res.Issues), res.Duration)

	return res
}

// fastCheck 交换后的快速校验
func (o *LocalSearchOptimizer) fastCheck(r *model.Roster, move Move, activeKeys map[int][]model.ShiftKey) bool {
	if o.config.FastCheck != FastCheckAffectedLines {
		return o.validator.ValidateShift(r, o.directory, move.Day, move.Shift)
	}
	for _, lid := range []int{move.LineA, move.LineB} {
		for _, key := range activeKeys[lid] {
			if !o.validator.ValidateShift(r, o.directory, key.Day, key.Shift) {
				return false
			}
		}
	}
	return true
}

// report 调用进度回调
func (o *LocalSearchOptimizer) report(p Progress) {
	if o.onProgress != nil {
		o.onProgress(p)
	}
}

// activeShiftKeys 每条线路上岗的全部班次（线路成员变化不影响）
func activeShiftKeys(r *model.Roster, keys []model.ShiftKey) map[int][]model.ShiftKey {
	out := make(map[int][]model.ShiftKey)
	for _, l := range r.Lines() {
		for _, key := range keys {
			if r.LineShiftOnDay(key.Day, l.ID) == key.Shift {
				out[l.ID] = append(out[l.ID], key)
			}
		}
	}
	return out
}
