// Package config 提供配置管理
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	apperrors "github.com/paiban/linecrew/pkg/errors"
	"github.com/paiban/linecrew/pkg/logger"
	"github.com/paiban/linecrew/pkg/model"
	"github.com/paiban/linecrew/pkg/scheduler/engine"
	"github.com/paiban/linecrew/pkg/scheduler/objective"
	"github.com/paiban/linecrew/pkg/scheduler/optimizer"
	rostervalidator "github.com/paiban/linecrew/pkg/validator"
)

// Config 应用配置
type Config struct {
	App        AppConfig        `yaml:"app" envPrefix:"APP_"`
	Problem    ProblemConfig    `yaml:"problem"`
	Optimizer  OptimizerConfig  `yaml:"optimizer" envPrefix:"OPT_"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Validation ValidationConfig `yaml:"validation"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database" envPrefix:"DB_"`
	Redis      RedisConfig      `yaml:"redis" envPrefix:"REDIS_"`
	Metrics    MetricsConfig    `yaml:"metrics" envPrefix:"METRICS_"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name string `yaml:"name" env:"NAME" validate:"required"`
	Env  string `yaml:"env" env:"ENV" validate:"oneof=development test production"`
	Port int    `yaml:"port" env:"PORT" validate:"min=1,max=65535"`

	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT" validate:"min=0"` // 排班接口每秒请求数，0 表示不限
}

// ProblemConfig 排班问题配置
type ProblemConfig struct {
	Weeks       int      `yaml:"weeks" env:"ROSTER_WEEKS" validate:"min=1"`
	Seed        int64    `yaml:"seed" env:"OPT_RANDOM_SEED"`
	Pattern     []string `yaml:"pattern" validate:"min=1,dive,oneof=D N OFF"`
	ScoringFile string   `yaml:"scoring_file" env:"ROSTER_SCORING_FILE"` // 独立评分文件，严格解析
}

// OptimizerConfig 局部搜索配置
type OptimizerConfig struct {
	MaxIterations     int           `yaml:"max_iterations" env:"MAX_ITERATIONS" validate:"min=0"`
	NoImproveLimit    int           `yaml:"no_improve_limit" env:"NO_IMPROVE_LIMIT" validate:"min=0"` // 0 表示不提前停止
	MovesPerIteration int           `yaml:"moves_per_iteration" env:"MOVES_PER_ITERATION" validate:"min=1"`
	SampleShifts      int           `yaml:"sample_shifts" env:"SAMPLE_SHIFTS" validate:"min=1"`
	LogEvery          int           `yaml:"log_every" env:"LOG_EVERY" validate:"min=0"`
	FastCheck         string        `yaml:"fast_check" env:"FAST_CHECK" validate:"oneof=sampled affected_lines"`
	Restarts          int           `yaml:"restarts" env:"RESTARTS" validate:"min=1"`
	Workers           int           `yaml:"workers" env:"WORKERS" validate:"min=1"`
	Timeout           time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// ScoringConfig 目标函数权重，结构与评分文件一致
type ScoringConfig struct {
	Coverage        CoverageWeights `yaml:"coverage"`
	LinePreferences LineWeights     `yaml:"line_preferences"`
	Coworkers       CoworkerWeights `yaml:"coworkers"`
	Synergy         SynergyWeights  `yaml:"synergy"`
}

// CoverageWeights 人数覆盖权重
type CoverageWeights struct {
	TargetStaff int     `yaml:"target_staff" validate:"min=0"`
	Weight      float64 `yaml:"weight" validate:"min=0"`
}

// LineWeights 线路偏好权重
type LineWeights struct {
	PreferredLine float64 `yaml:"preferred_line" validate:"min=0"`
	AvoidLine     float64 `yaml:"avoid_line" validate:"min=0"`
}

// CoworkerWeights 同事偏好权重
type CoworkerWeights struct {
	ShouldWorkWith    float64 `yaml:"should_work_with" validate:"min=0"`
	ShouldNotWorkWith float64 `yaml:"should_not_work_with" validate:"min=0"`
}

// SynergyWeights 搭配评分（保留）
type SynergyWeights struct {
	Weight float64 `yaml:"weight"`
}

// ValidationConfig 校验配置
type ValidationConfig struct {
	UnknownIDs string `yaml:"unknown_ids" env:"ROSTER_UNKNOWN_IDS" validate:"oneof=ignore report"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level" env:"APP_LOG_LEVEL" validate:"oneof=debug info warn warning error fatal"`
	Format     string `yaml:"format" env:"LOG_FORMAT" validate:"oneof=json console"`
	Output     string `yaml:"output" env:"LOG_OUTPUT" validate:"oneof=stdout stderr file"`
	FilePath   string `yaml:"file_path" env:"LOG_FILE" validate:"required_if=Output file"`
	TimeFormat string `yaml:"time_format" env:"LOG_TIME_FORMAT"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled" env:"ENABLED"`
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	Name            string        `yaml:"name" env:"NAME"`
	User            string        `yaml:"user" env:"USER"`
	Password        string        `yaml:"password" env:"PASSWORD"`
	SSLMode         string        `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS" validate:"min=1"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS" validate:"min=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled" env:"ENABLED"`
	Host     string        `yaml:"host" env:"HOST"`
	Port     int           `yaml:"port" env:"PORT"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db" env:"DB"`
	PoolSize int           `yaml:"pool_size" env:"POOL_SIZE"`
	TTL      time.Duration `yaml:"ttl" env:"TTL"` // 排班结果缓存时间
}

// Addr 返回Redis地址
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Path    string `yaml:"path" env:"PATH"`
}

var validate = validator.New()

// Default 返回完整的默认配置
func Default() *Config {
	w := objective.DefaultWeights()
	opt := optimizer.DefaultConfig()
	return &Config{
		App: AppConfig{
			Name: "linecrew",
			Env:  "development",
			Port: 7012,

			RateLimit: 100,
		},
		Problem: ProblemConfig{
			Weeks:   9,
			Seed:    opt.Seed,
			Pattern: model.DefaultPattern().Symbols(),
		},
		Optimizer: OptimizerConfig{
			MaxIterations:     opt.MaxIterations,
			NoImproveLimit:    opt.NoImproveLimit,
			MovesPerIteration: opt.MovesPerIteration,
			SampleShifts:      opt.SampleShifts,
			LogEvery:          opt.LogEvery,
			FastCheck:         string(opt.FastCheck),
			Restarts:          1,
			Workers:           4,
		},
		Scoring: ScoringConfig{
			Coverage:        CoverageWeights{TargetStaff: w.TargetStaff, Weight: w.Coverage},
			LinePreferences: LineWeights{PreferredLine: w.PreferredLine, AvoidLine: w.AvoidLine},
			Coworkers:       CoworkerWeights{ShouldWorkWith: w.ShouldWorkWith, ShouldNotWorkWith: w.ShouldNotWorkWith},
		},
		Validation: ValidationConfig{UnknownIDs: string(rostervalidator.UnknownIgnore)},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stdout",
			TimeFormat: time.RFC3339,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "linecrew",
			User:            "linecrew",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     6379,
			PoolSize: 10,
			TTL:      24 * time.Hour,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load 加载配置：默认值 → YAML 文件（path 为空时跳过）→ 环境变量 → 校验
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := decodeStrict(data, cfg); err != nil {
			return nil, apperrors.InvalidConfig(fmt.Sprintf("解析配置文件 %s 失败: %v", path, err))
		}
	}

	if err := env.Parse(cfg); err != nil {
		var aggErr env.AggregateError
		if errors.As(err, &aggErr) && len(aggErr.Errors) > 0 {
			// 只返回第一个错误使得日志更清晰
			err = aggErr.Errors[0]
		}
		return nil, apperrors.InvalidConfig(fmt.Sprintf("解析环境变量失败: %v", err))
	}

	if cfg.Problem.ScoringFile != "" {
		scoring, err := LoadScoring(cfg.Problem.ScoringFile)
		if err != nil {
			return nil, err
		}
		cfg.Scoring = *scoring
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.InvalidConfig(err.Error())
	}
	if _, err := model.ParseShiftPattern(c.Problem.Pattern); err != nil {
		return apperrors.InvalidConfig(err.Error())
	}
	return nil
}

// decodeStrict 解析 YAML，未知字段报错
func decodeStrict(data []byte, out interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// scoringFile 评分文件结构，所有键必须出现
type scoringFile struct {
	Coverage *struct {
		TargetStaff *int     `yaml:"target_staff" validate:"required"`
		Weight      *float64 `yaml:"weight" validate:"required"`
	} `yaml:"coverage" validate:"required"`
	LinePreferences *struct {
		PreferredLine *float64 `yaml:"preferred_line" validate:"required"`
		AvoidLine     *float64 `yaml:"avoid_line" validate:"required"`
	} `yaml:"line_preferences" validate:"required"`
	Coworkers *struct {
		ShouldWorkWith    *float64 `yaml:"should_work_with" validate:"required"`
		ShouldNotWorkWith *float64 `yaml:"should_not_work_with" validate:"required"`
	} `yaml:"coworkers" validate:"required"`
	Synergy *SynergyWeights `yaml:"synergy"`
}

// LoadScoring 严格加载评分文件（YAML 或 JSON）：未知键和缺失键都返回错误
func LoadScoring(path string) (*ScoringConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取评分文件失败: %w", err)
	}
	return ParseScoring(data)
}

// ParseScoring 严格解析评分配置
func ParseScoring(data []byte) (*ScoringConfig, error) {
	var raw scoringFile
	if err := decodeStrict(data, &raw); err != nil {
		return nil, apperrors.InvalidConfig(fmt.Sprintf("解析评分配置失败: %v", err))
	}
	if err := validate.Struct(&raw); err != nil {
		return nil, apperrors.InvalidConfig(fmt.Sprintf("评分配置缺少字段: %v", err))
	}

	sc := &ScoringConfig{
		Coverage: CoverageWeights{
			TargetStaff: *raw.Coverage.TargetStaff,
			Weight:      *raw.Coverage.Weight,
		},
		LinePreferences: LineWeights{
			PreferredLine: *raw.LinePreferences.PreferredLine,
			AvoidLine:     *raw.LinePreferences.AvoidLine,
		},
		Coworkers: CoworkerWeights{
			ShouldWorkWith:    *raw.Coworkers.ShouldWorkWith,
			ShouldNotWorkWith: *raw.Coworkers.ShouldNotWorkWith,
		},
	}
	if raw.Synergy != nil {
		sc.Synergy = *raw.Synergy
	}
	return sc, nil
}

// Weights 转换为目标函数权重
func (s ScoringConfig) Weights() objective.Weights {
	return objective.Weights{
		TargetStaff:       s.Coverage.TargetStaff,
		Coverage:          s.Coverage.Weight,
		PreferredLine:     s.LinePreferences.PreferredLine,
		AvoidLine:         s.LinePreferences.AvoidLine,
		ShouldWorkWith:    s.Coworkers.ShouldWorkWith,
		ShouldNotWorkWith: s.Coworkers.ShouldNotWorkWith,
	}
}

// Pattern 轮转模式
func (c *Config) Pattern() model.ShiftPattern {
	p, err := model.ParseShiftPattern(c.Problem.Pattern)
	if err != nil {
		return model.DefaultPattern()
	}
	return p
}

// EngineOptions 转换为引擎运行参数
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		Pattern: c.Pattern(),
		Weeks:   c.Problem.Weeks,
		Weights: c.Scoring.Weights(),
		Optimizer: optimizer.Config{
			MaxIterations:     c.Optimizer.MaxIterations,
			NoImproveLimit:    c.Optimizer.NoImproveLimit,
			MovesPerIteration: c.Optimizer.MovesPerIteration,
			SampleShifts:      c.Optimizer.SampleShifts,
			Seed:              c.Problem.Seed,
			LogEvery:          c.Optimizer.LogEvery,
			FastCheck:         optimizer.FastCheckMode(c.Optimizer.FastCheck),
		},
		Restarts:   c.Optimizer.Restarts,
		Workers:    c.Optimizer.Workers,
		Timeout:    c.Optimizer.Timeout,
		Validation: rostervalidator.Config{UnknownIDs: rostervalidator.UnknownIDPolicy(c.Validation.UnknownIDs)},
	}
}

// LoggerConfig 转换为日志配置
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		Output:     c.Log.Output,
		FilePath:   c.Log.FilePath,
		TimeFormat: c.Log.TimeFormat,
	}
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
