// Package logger 基于 zerolog 的全局日志器，以及排班引擎的组件日志器
package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	ready  atomic.Bool
	logger zerolog.Logger
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化全局日志器，只有第一次调用生效
func Init(cfg Config) {
	once.Do(func() {
		zerolog.SetGlobalLevel(parseLevel(cfg.Level))

		output := openOutput(cfg)
		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{Out: output, TimeFormat: cfg.TimeFormat}
		}
		logger = zerolog.New(output).With().Timestamp().Logger()
		ready.Store(true)
	})
}

// openOutput 打开日志输出，文件无法打开时退回标准输出
func openOutput(cfg Config) io.Writer {
	switch cfg.Output {
	case "stderr":
		return os.Stderr
	case "file":
		if cfg.FilePath == "" {
			return os.Stdout
		}
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return os.Stdout
		}
		f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return os.Stdout
		}
		return f
	default:
		return os.Stdout
	}
}

// parseLevel 解析日志级别，无法识别时为 info
func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	l, err := zerolog.ParseLevel(level)
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// Get 获取全局日志器，未初始化时按默认配置初始化
func Get() *zerolog.Logger {
	if !ready.Load() {
		Init(DefaultConfig())
	}
	return &logger
}

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	runIDKey     ctxKey = "run_id"
)

// ContextWithRequestID 在上下文中保存请求ID
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext 读取请求ID
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ContextWithRunID 在上下文中保存排班运行ID
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	c := Get().With()
	if reqID, ok := ctx.Value(requestIDKey).(string); ok {
		c = c.Str("request_id", reqID)
	}
	if runID, ok := ctx.Value(runIDKey).(string); ok {
		c = c.Str("run_id", runID)
	}
	l := c.Logger()
	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithFields 添加多个字段
func WithFields(fields map[string]interface{}) *zerolog.Logger {
	ctx := Get().With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	l := ctx.Logger()
	return &l
}

// SchedulerLogger 排班引擎专用日志器
type SchedulerLogger struct {
	base *zerolog.Logger
}

// NewSchedulerLogger 创建排班引擎日志器
func NewSchedulerLogger() *SchedulerLogger {
	l := Get().With().Str("component", "scheduler").Logger()
	return &SchedulerLogger{base: &l}
}

// NewSchedulerLoggerFrom 基于已有日志器创建（例如带请求ID的日志器）
func NewSchedulerLoggerFrom(base *zerolog.Logger) *SchedulerLogger {
	l := base.With().Str("component", "scheduler").Logger()
	return &SchedulerLogger{base: &l}
}

// StartRun 记录排班开始
func (l *SchedulerLogger) StartRun(runID string, persons, lines, days int) {
	l.base.Info().
		Str("run_id", runID).
		Int("persons", persons).
		Int("lines", lines).
		Int("days", days).
		Msg("开始生成排班")
}

// PreAssigned 记录锁定人员分布
func (l *SchedulerLogger) PreAssigned(perLine map[int]int, unresolved int) {
	l.base.Info().
		Interface("per_line", perLine).
		Int("unresolved", unresolved).
		Msg("锁定人员已就位")
}

// UnknownLock 记录锁定到未知线路的人员
func (l *SchedulerLogger) UnknownLock(personID string, lineID int) {
	l.base.Warn().
		Str("emp_id", personID).
		Int("line_id", lineID).
		Msg("锁定线路不存在，改为自动分配")
}

// LineResolved 记录自动分配结果
func (l *SchedulerLogger) LineResolved(personID string, lineID, remaining int) {
	l.base.Debug().
		Str("emp_id", personID).
		Int("line_id", lineID).
		Int("remaining", remaining).
		Msg("人员分配线路")
}

// BuildComplete 记录初始排班完成
func (l *SchedulerLogger) BuildComplete(perLine map[int]int, duration time.Duration) {
	l.base.Info().
		Interface("per_line", perLine).
		Dur("duration", duration).
		Msg("初始排班生成完成")
}

// OptimizeStart 记录优化开始
func (l *SchedulerLogger) OptimizeStart(maxIterations, noImproveLimit int, seed int64, initialScore float64, initialIssues int) {
	e := l.base.Info()
	if initialIssues > 0 {
		e = l.base.Warn()
	}
	e.Int("max_iterations", maxIterations).
		Int("no_improve_limit", noImproveLimit).
		Int64("seed", seed).
		Float64("initial_score", initialScore).
		Int("initial_issues", initialIssues).
		Msg("开始局部搜索优化")
}

// Improved 记录发现更优解
func (l *SchedulerLogger) Improved(iteration int, score float64, lineA, lineB int) {
	l.base.Debug().
		Int("iteration", iteration).
		Float64("score", score).
		Int("line_a", lineA).
		Int("line_b", lineB).
		Msg("发现更优解")
}

// Progress 记录优化进度
func (l *SchedulerLogger) Progress(iteration int, best float64, noImprove int) {
	l.base.Info().
		Int("iteration", iteration).
		Float64("best", best).
		Int("no_improve", noImprove).
		Msg("优化进度")
}

// OptimizeComplete 记录优化完成
func (l *SchedulerLogger) OptimizeComplete(reason string, iterations int, initial, final float64, issues int, duration time.Duration) {
	l.base.Info().
		Str("stop_reason", reason).
		Int("iterations", iterations).
		Float64("initial", initial).
		Float64("final", final).
		Float64("improvement", final-initial).
		Int("issues", issues).
		Dur("duration", duration).
		Msg("局部搜索优化完成")
}

// ConstraintViolation 记录约束违反
func (l *SchedulerLogger) ConstraintViolation(constraint, details string) {
	l.base.Warn().
		Str("constraint", constraint).
		Str("details", details).
		Msg("约束违反")
}

// RunComplete 记录排班完成
func (l *SchedulerLogger) RunComplete(runID string, duration time.Duration, score float64, issues int) {
	l.base.Info().
		Str("run_id", runID).
		Dur("duration", duration).
		Float64("score", score).
		Int("issues", issues).
		Msg("排班生成完成")
}
