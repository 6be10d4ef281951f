package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/paiban/linecrew/pkg/errors"
	"github.com/paiban/linecrew/pkg/scheduler/objective"
	"github.com/paiban/linecrew/pkg/scheduler/optimizer"
	rostervalidator "github.com/paiban/linecrew/pkg/validator"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 9, cfg.Problem.Weeks)
	assert.Equal(t, int64(42), cfg.Problem.Seed)
	assert.Equal(t, []string{"D", "D", "N", "N", "OFF", "OFF", "OFF", "OFF", "OFF"}, cfg.Problem.Pattern)
	assert.Equal(t, objective.DefaultWeights(), cfg.Scoring.Weights())
	assert.Equal(t, "sampled", cfg.Optimizer.FastCheck)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
problem:
  weeks: 4
  seed: 7
  pattern: [D, N, OFF]
optimizer:
  max_iterations: 1000
  fast_check: affected_lines
  restarts: 3
  timeout: 30s
scoring:
  coverage:
    target_staff: 5
validation:
  unknown_ids: report
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Problem.Weeks)
	assert.Equal(t, 3, cfg.Pattern().Len())
	assert.Equal(t, 1000, cfg.Optimizer.MaxIterations)
	// 未出现的键保留默认值
	assert.Equal(t, 5000, cfg.Optimizer.NoImproveLimit)
	assert.Equal(t, 5, cfg.Scoring.Coverage.TargetStaff)
	assert.Equal(t, 1.0, cfg.Scoring.Coverage.Weight)

	opts := cfg.EngineOptions()
	assert.Equal(t, 4, opts.Weeks)
	assert.Equal(t, int64(7), opts.Optimizer.Seed)
	assert.Equal(t, optimizer.FastCheckAffectedLines, opts.Optimizer.FastCheck)
	assert.Equal(t, 3, opts.Restarts)
	assert.Equal(t, 30*time.Second, opts.Timeout)
	assert.Equal(t, rostervalidator.UnknownReport, opts.Validation.UnknownIDs)
	assert.Equal(t, 5, opts.Weights.TargetStaff)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("ROSTER_WEEKS", "3")
	t.Setenv("OPT_RANDOM_SEED", "99")
	t.Setenv("OPT_MAX_ITERATIONS", "10")
	t.Setenv("APP_LOG_LEVEL", "debug")
	t.Setenv("DB_HOST", "db.internal")

	path := writeFile(t, "config.yaml", "problem:\n  weeks: 5\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	// 环境变量优先于文件
	assert.Equal(t, 3, cfg.Problem.Weeks)
	assert.Equal(t, int64(99), cfg.Problem.Seed)
	assert.Equal(t, 10, cfg.Optimizer.MaxIterations)
	assert.Equal(t, "debug", cfg.LoggerConfig().Level)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Contains(t, cfg.Database.DSN(), "host=db.internal")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "未知字段", yaml: "problem:\n  weekz: 4\n"},
		{name: "周数为0", yaml: "problem:\n  weeks: 0\n"},
		{name: "未知班次符号", yaml: "problem:\n  pattern: [D, X]\n"},
		{name: "空轮转", yaml: "problem:\n  pattern: []\n"},
		{name: "快速校验模式无效", yaml: "optimizer:\n  fast_check: full\n"},
		{name: "未知ID策略无效", yaml: "validation:\n  unknown_ids: panic\n"},
		{name: "文件日志缺少路径", yaml: "log:\n  output: file\n"},
		{name: "环境变量格式错误", env: map[string]string{"ROSTER_WEEKS": "many"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeFile(t, "config.yaml", tt.yaml)
			}

			cfg, err := Load(path)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.True(t, apperrors.Is(err, apperrors.CodeConfigInvalid), "got %v", err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

const fullScoring = `{
  "coverage": {"target_staff": 6, "weight": 2},
  "line_preferences": {"preferred_line": 1.5, "avoid_line": 3},
  "coworkers": {"should_work_with": 1, "should_not_work_with": 0},
  "synergy": {}
}`

func TestParseScoring(t *testing.T) {
	sc, err := ParseScoring([]byte(fullScoring))
	require.NoError(t, err)

	assert.Equal(t, objective.Weights{
		TargetStaff:       6,
		Coverage:          2,
		PreferredLine:     1.5,
		AvoidLine:         3,
		ShouldWorkWith:    1,
		ShouldNotWorkWith: 0,
	}, sc.Weights())
}

func TestParseScoring_Strict(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"缺少分组", `{"coverage": {"target_staff": 6, "weight": 2}, "line_preferences": {"preferred_line": 1, "avoid_line": 1}}`},
		{"缺少键", `{"coverage": {"target_staff": 6}, "line_preferences": {"preferred_line": 1, "avoid_line": 1}, "coworkers": {"should_work_with": 1, "should_not_work_with": 1}}`},
		{"未知键", `{"coverage": {"target_staff": 6, "weight": 2, "extra": 1}, "line_preferences": {"preferred_line": 1, "avoid_line": 1}, "coworkers": {"should_work_with": 1, "should_not_work_with": 1}}`},
		{"类型错误", `{"coverage": {"target_staff": "six", "weight": 2}, "line_preferences": {"preferred_line": 1, "avoid_line": 1}, "coworkers": {"should_work_with": 1, "should_not_work_with": 1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScoring([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.CodeConfigInvalid))
		})
	}
}

func TestLoad_ScoringFile(t *testing.T) {
	scoring := writeFile(t, "scoring.json", fullScoring)
	t.Setenv("ROSTER_SCORING_FILE", scoring)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Scoring.Coverage.TargetStaff)
	assert.Equal(t, 3.0, cfg.Scoring.LinePreferences.AvoidLine)
}
