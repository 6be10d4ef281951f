package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/linecrew/internal/cache"
	"github.com/paiban/linecrew/internal/metrics"
	"github.com/paiban/linecrew/internal/middleware"
	"github.com/paiban/linecrew/internal/repository"
	apperrors "github.com/paiban/linecrew/pkg/errors"
	"github.com/paiban/linecrew/pkg/scheduler/engine"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*cache.Entry
	puts    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]*cache.Entry)}
}

func (c *memoryCache) Get(_ context.Context, fp string) (*cache.Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[fp]
	return e, ok, nil
}

func (c *memoryCache) Put(_ context.Context, fp string, e *cache.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fp] = e
	c.puts++
	return nil
}

type memoryStore struct {
	mu    sync.Mutex
	snaps []*repository.Snapshot
}

func (s *memoryStore) Save(_ context.Context, snap *repository.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
	return nil
}

func (s *memoryStore) Get(_ context.Context, id uuid.UUID) (*repository.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range s.snaps {
		if snap.ID == id {
			return snap, nil
		}
	}
	return nil, apperrors.NotFound("roster", id.String())
}

func (s *memoryStore) Latest(context.Context) (*repository.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snaps) == 0 {
		return nil, apperrors.NotFound("roster", "latest")
	}
	return s.snaps[len(s.snaps)-1], nil
}

func testOptions() engine.Options {
	opts := engine.DefaultOptions()
	opts.Weeks = 1
	opts.Optimizer.MaxIterations = 20
	opts.Optimizer.NoImproveLimit = 0
	opts.Optimizer.Seed = 7
	return opts
}

func newTestHandler(t *testing.T, options ...Option) *Handler {
	t.Helper()
	h, err := New(testOptions(), options...)
	require.NoError(t, err)
	return h
}

const generateBody = `{
	"lines": [
		{"line_id": 1, "offset": 0, "max_headcount": 2},
		{"line_id": 2, "offset": 2, "max_headcount": 2}
	],
	"persons": [
		{"emp_id": "A", "name": "Ann"},
		{"emp_id": "B", "name": "Ben", "cant_work_with": ["A"]},
		{"emp_id": "C", "name": "Cat", "line_id": 2},
		{"emp_id": "D", "name": "Dan"}
	]
}`

func doRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHandler_Health(t *testing.T) {
	tests := []struct {
		name       string
		check      HealthCheck
		wantStatus int
		wantState  string
	}{
		{"依赖正常", func(context.Context) error { return nil }, http.StatusOK, "ok"},
		{"依赖失败", func(context.Context) error { return errors.New("连接被拒绝") }, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, WithHealthCheck("redis", tt.check))
			rec := doRequest(h, http.MethodGet, "/health", "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tt.wantState, body["status"])
			assert.Equal(t, "linecrew", body["service"])
			assert.Contains(t, body["dependencies"], "redis")
		})
	}
}

func TestHandler_Version(t *testing.T) {
	h := newTestHandler(t, WithBuildInfo(BuildInfo{Version: "1.2.0", BuildTime: "2026-10-01", GitCommit: "abc123"}))
	rec := doRequest(h, http.MethodGet, "/version", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "1.2.0", body["version"])
	assert.Equal(t, "abc123", body["git_commit"])
}

func TestHandler_RequestID(t *testing.T) {
	h := newTestHandler(t)

	t.Run("生成请求ID", func(t *testing.T) {
		rec := doRequest(h, http.MethodGet, "/version", "")
		_, err := uuid.Parse(rec.Header().Get(middleware.RequestIDHeader))
		assert.NoError(t, err)
	})

	t.Run("沿用传入的请求ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/version", nil)
		req.Header.Set(middleware.RequestIDHeader, "req-42")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "req-42", rec.Header().Get(middleware.RequestIDHeader))
	})
}

func TestHandler_Generate(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(h, http.MethodPost, "/api/v1/roster/generate", generateBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.NotEmpty(t, resp.RunID)
	assert.False(t, resp.Cached)
	assert.Equal(t, int64(7), resp.Seed)
	assert.Equal(t, 1, resp.Runs)
	assert.Len(t, resp.Lines, 2)
	assert.Len(t, resp.ResolvedLines, 4)
	assert.Equal(t, 2, resp.ResolvedLines["C"], "锁定人员必须在锁定线路")
	assert.NotNil(t, resp.Issues)
	assert.Equal(t, !hasError(resp), resp.Valid)
	require.NotNil(t, resp.Coverage)
	assert.Equal(t, 14, resp.Coverage.TotalShifts)
	assert.Empty(t, resp.SnapshotID)
}

func hasError(resp GenerateResponse) bool {
	for _, i := range resp.Issues {
		if i.Severity == "ERROR" {
			return true
		}
	}
	return false
}

func TestHandler_Generate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "缺少线路",
			body:       `{"lines": [], "persons": [{"emp_id": "A"}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   string(apperrors.CodeValidationFail),
		},
		{
			name:       "周数超出范围",
			body:       `{"lines": [{"line_id": 1, "max_headcount": 1}], "persons": [{"emp_id": "A"}], "weeks": 500}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   string(apperrors.CodeValidationFail),
		},
		{
			name:       "快速校验模式非法",
			body:       `{"lines": [{"line_id": 1, "max_headcount": 1}], "persons": [{"emp_id": "A"}], "fast_check": "all"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   string(apperrors.CodeValidationFail),
		},
		{
			name:       "未知字段",
			body:       `{"lines": [{"line_id": 1, "max_headcount": 1}], "persons": [{"emp_id": "A"}], "shifts": 3}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   string(apperrors.CodeInvalidInput),
		},
		{
			name:       "非法JSON",
			body:       `{"lines": `,
			wantStatus: http.StatusBadRequest,
			wantCode:   string(apperrors.CodeInvalidInput),
		},
		{
			name:       "轮班符号非法",
			body:       `{"lines": [{"line_id": 1, "max_headcount": 1}], "persons": [{"emp_id": "A"}], "pattern": ["D", "X"]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   string(apperrors.CodeInvalidInput),
		},
		{
			name:       "人员ID重复",
			body:       `{"lines": [{"line_id": 1, "max_headcount": 2}], "persons": [{"emp_id": "A"}, {"emp_id": "A"}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   string(apperrors.CodeDuplicateID),
		},
		{
			name: "锁定人数超出容量",
			body: `{"lines": [{"line_id": 1, "max_headcount": 1}, {"line_id": 2, "max_headcount": 3}],
				"persons": [{"emp_id": "A", "line_id": 1}, {"emp_id": "B", "line_id": 1}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   string(apperrors.CodeCapacityExceeded),
		},
	}

	h := newTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(h, http.MethodPost, "/api/v1/roster/generate", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			body := decodeBody(t, rec)
			assert.Equal(t, true, body["error"])
			assert.Equal(t, tt.wantCode, body["code"])
		})
	}
}

func TestHandler_Generate_ValidationMessages(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(h, http.MethodPost, "/api/v1/roster/generate", `{"persons": [{"emp_id": "A"}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	fields, ok := body["fields"].(map[string]interface{})
	require.True(t, ok, "应返回字段级错误")
	msg, ok := fields["GenerateRequest.Lines"].(string)
	require.True(t, ok)
	assert.Contains(t, msg, "必填")
}

func TestHandler_Generate_Cache(t *testing.T) {
	c := newMemoryCache()
	m := metrics.New(nil, "")
	h := newTestHandler(t, WithCache(c), WithMetrics(m))

	first := doRequest(h, http.MethodPost, "/api/v1/roster/generate", generateBody)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.Equal(t, 1, c.puts)

	second := doRequest(h, http.MethodPost, "/api/v1/roster/generate", generateBody)
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())
	assert.Equal(t, 1, c.puts, "命中缓存不应重复写入")

	var a, b GenerateResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))
	assert.False(t, a.Cached)
	assert.True(t, b.Cached)
	assert.Equal(t, a.RunID, b.RunID)
	assert.Equal(t, a.Lines, b.Lines)
	assert.Equal(t, a.ResolvedLines, b.ResolvedLines)
	assert.Equal(t, a.Score.Total, b.Score.Total)

	t.Run("参数不同不命中", func(t *testing.T) {
		body := strings.Replace(generateBody, `"persons"`, `"seed": 99, "persons"`, 1)
		rec := doRequest(h, http.MethodPost, "/api/v1/roster/generate", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp GenerateResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Cached)
		assert.Equal(t, int64(99), resp.Seed)
		assert.Equal(t, 2, c.puts)
	})
}

func TestHandler_Snapshots(t *testing.T) {
	store := &memoryStore{}
	h := newTestHandler(t, WithStore(store))

	body := strings.Replace(generateBody, `"persons"`, `"save": true, "persons"`, 1)
	rec := doRequest(h, http.MethodPost, "/api/v1/roster/generate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SnapshotID)
	require.Len(t, store.snaps, 1)
	assert.Equal(t, resp.Seed, store.snaps[0].Seed)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"按ID读取", "/api/v1/roster/" + resp.SnapshotID, http.StatusOK},
		{"读取最新", "/api/v1/roster/latest", http.StatusOK},
		{"ID格式错误", "/api/v1/roster/not-a-uuid", http.StatusBadRequest},
		{"ID不存在", "/api/v1/roster/" + uuid.NewString(), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(h, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus == http.StatusOK {
				got := decodeBody(t, rec)
				assert.Equal(t, resp.SnapshotID, got["id"])
			}
		})
	}

	t.Run("未配置存储", func(t *testing.T) {
		bare := newTestHandler(t)
		rec := doRequest(bare, http.MethodGet, "/api/v1/roster/latest", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandler_Validate(t *testing.T) {
	tests := []struct {
		name      string
		roster    string
		wantValid bool
		wantCode  int
	}{
		{
			name:      "合法排班",
			roster:    `[{"line_id": 1, "employees": ["A", "B"]}, {"line_id": 2, "employees": ["C"]}]`,
			wantValid: true,
			wantCode:  http.StatusOK,
		},
		{
			name:      "同一班次重复出现",
			roster:    `[{"line_id": 1, "employees": ["A", "B"]}, {"line_id": 2, "employees": ["A", "C"]}]`,
			wantValid: false,
			wantCode:  http.StatusOK,
		},
		{
			name:     "未知线路",
			roster:   `[{"line_id": 9, "employees": ["A"]}]`,
			wantCode: http.StatusBadRequest,
		},
	}

	h := newTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{
				"weeks": 1,
				"lines": [{"line_id": 1, "offset": 0, "max_headcount": 3}, {"line_id": 2, "offset": 0, "max_headcount": 3}],
				"persons": [{"emp_id": "A"}, {"emp_id": "B"}, {"emp_id": "C"}],
				"roster": ` + tt.roster + `
			}`
			rec := doRequest(h, http.MethodPost, "/api/v1/roster/validate", body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp ValidateResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantValid, resp.Valid)
			assert.NotNil(t, resp.Issues)
			require.NotNil(t, resp.Coverage)
			assert.Equal(t, 14, resp.Coverage.TotalShifts)
			if !tt.wantValid {
				assert.Equal(t, "Employee assigned to multiple lines in same shift", resp.Issues[0].Message)
			}
		})
	}
}

func TestHandler_Metrics(t *testing.T) {
	m := metrics.New(nil, "")
	h := newTestHandler(t, WithMetrics(m))

	rec := doRequest(h, http.MethodPost, "/api/v1/roster/generate", generateBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `linecrew_http_requests_total{method="POST",path="/api/v1/roster/generate",status="200"} 1`)
	assert.Contains(t, body, `linecrew_roster_runs_total{status="success"} 1`)
	assert.Contains(t, body, "linecrew_optimizer_iterations_total 20")
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"业务错误", apperrors.NotFound("roster", "x"), http.StatusNotFound, string(apperrors.CodeNotFound)},
		{"普通错误", errors.New("boom"), http.StatusInternalServerError, string(apperrors.CodeInternal)},
		{"包装后的业务错误", apperrors.Wrap(errors.New("超时"), apperrors.CodeTimeout, "运行超时"), http.StatusGatewayTimeout, string(apperrors.CodeTimeout)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondError(rec, httptest.NewRequest(http.MethodGet, "/", bytes.NewReader(nil)), tt.err)
			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tt.wantCode, body["code"])
		})
	}
}

func TestHandler_RateLimit(t *testing.T) {
	h := newTestHandler(t, WithRateLimit(1))

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		rec := doRequest(h, http.MethodGet, "/api/v1/roster/not-a-uuid", "")
		codes = append(codes, rec.Code)
	}
	assert.Contains(t, codes, http.StatusTooManyRequests)

	rec := doRequest(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code, "健康检查不受限流影响")
}

func TestHandler_Constraints(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(h, http.MethodGet, "/api/v1/roster/constraints", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Library []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"library"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Library)

	names := make([]string, 0, len(resp.Library))
	for _, c := range resp.Library {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "cant_work_with")
	assert.Contains(t, names, "coverage_balance")
}

func TestHandler_Swaps(t *testing.T) {
	const base = `
		"weeks": 2,
		"lines": [
			{"line_id": 1, "offset": 0, "max_headcount": 2},
			{"line_id": 2, "offset": 0, "max_headcount": 2},
			{"line_id": 3, "offset": 4, "max_headcount": 3}
		],
		"persons": [{"emp_id": "A"}, {"emp_id": "B"}, {"emp_id": "C", "line_id": 2}, {"emp_id": "E"}],
		"roster": [
			{"line_id": 1, "employees": ["A", "B"]},
			{"line_id": 2, "employees": ["C"]},
			{"line_id": 3, "employees": ["E"]}
		]`

	tests := []struct {
		name         string
		extra        string
		wantCode     int
		wantFeasible *bool
		wantRecs     bool
	}{
		{name: "调入空位线路", extra: `"emp_id": "A", "target_line": 3`, wantCode: http.StatusOK, wantFeasible: boolPtr(true)},
		{name: "锁定人员互换", extra: `"emp_id": "A", "target_id": "C"`, wantCode: http.StatusOK, wantFeasible: boolPtr(false)},
		{name: "推荐列表", extra: `"emp_id": "B", "limit": 3`, wantCode: http.StatusOK, wantRecs: true},
		{name: "未知人员", extra: `"emp_id": "Z"`, wantCode: http.StatusNotFound},
		{name: "目标二选一", extra: `"emp_id": "A", "target_id": "E", "target_line": 3`, wantCode: http.StatusBadRequest},
	}

	h := newTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(h, http.MethodPost, "/api/v1/roster/swaps", "{"+base+", "+tt.extra+"}")
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp SwapResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			if tt.wantFeasible != nil {
				require.NotNil(t, resp.Evaluation)
				assert.Equal(t, *tt.wantFeasible, resp.Evaluation.Feasible)
			}
			if tt.wantRecs {
				require.NotEmpty(t, resp.Recommendations)
				assert.LessOrEqual(t, len(resp.Recommendations), 3)
				assert.Equal(t, 1, resp.Recommendations[0].Rank)
			}
		})
	}
}

func boolPtr(b bool) *bool { return &b }
