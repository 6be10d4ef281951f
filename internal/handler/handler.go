// Package handler 提供排班 HTTP API
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/google/uuid"

	"github.com/paiban/linecrew/internal/cache"
	"github.com/paiban/linecrew/internal/constraints"
	"github.com/paiban/linecrew/internal/metrics"
	"github.com/paiban/linecrew/internal/middleware"
	"github.com/paiban/linecrew/internal/repository"
	apperrors "github.com/paiban/linecrew/pkg/errors"
	"github.com/paiban/linecrew/pkg/logger"
	"github.com/paiban/linecrew/pkg/scheduler/engine"
)

// ResultCache 排班结果缓存
type ResultCache interface {
	Get(ctx context.Context, fingerprint string) (*cache.Entry, bool, error)
	Put(ctx context.Context, fingerprint string, e *cache.Entry) error
}

// SnapshotStore 排班快照存储
type SnapshotStore interface {
	Save(ctx context.Context, s *repository.Snapshot) error
	Get(ctx context.Context, id uuid.UUID) (*repository.Snapshot, error)
	Latest(ctx context.Context) (*repository.Snapshot, error)
}

// HealthCheck 依赖健康检查
type HealthCheck func(ctx context.Context) error

// BuildInfo 构建信息
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// Handler HTTP 处理器
type Handler struct {
	validate   *validator.Validate
	translator ut.Translator
	opts       engine.Options
	cache      ResultCache
	store      SnapshotStore
	metrics    *metrics.Collector
	checks     map[string]HealthCheck
	build      BuildInfo
	limiter    *middleware.RateLimiter

	Mux *chi.Mux
}

// Option 处理器选项
type Option func(*Handler)

// WithCache 启用结果缓存
func WithCache(c ResultCache) Option {
	return func(h *Handler) { h.cache = c }
}

// WithStore 启用快照存储
func WithStore(s SnapshotStore) Option {
	return func(h *Handler) { h.store = s }
}

// WithMetrics 启用指标
func WithMetrics(m *metrics.Collector) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithHealthCheck 注册依赖健康检查
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(h *Handler) { h.checks[name] = check }
}

// WithRateLimit 限制排班接口的请求速率，rps<=0 时不限流
func WithRateLimit(rps float64) Option {
	return func(h *Handler) {
		if rps > 0 {
			h.limiter = middleware.NewRateLimiter(rps)
		}
	}
}

// WithBuildInfo 设置构建信息
func WithBuildInfo(b BuildInfo) Option {
	return func(h *Handler) { h.build = b }
}

// New 创建处理器并注册路由，opts 为请求未覆盖参数时的默认运行参数
func New(opts engine.Options, options ...Option) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zhLocale := zh.New()
	uni := ut.New(zhLocale, zhLocale)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	h := &Handler{
		validate:   validate,
		translator: trans,
		opts:       opts,
		checks:     make(map[string]HealthCheck),
		build:      BuildInfo{Version: "dev", BuildTime: "unknown", GitCommit: "unknown"},
		Mux:        chi.NewRouter(),
	}
	for _, o := range options {
		o(h)
	}
	h.registerRoutes()
	return h, nil
}

func (h *Handler) registerRoutes() {
	h.Mux.Use(middleware.RequestID)
	h.Mux.Use(middleware.Logger)
	h.Mux.Use(middleware.Recoverer)
	h.Mux.Use(middleware.CORS)
	if h.metrics != nil {
		h.Mux.Use(middleware.Metrics(h.metrics))
		h.Mux.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	h.Mux.Get("/health", h.Health)
	h.Mux.Get("/version", h.Version)

	h.Mux.Route("/api/v1/roster", func(r chi.Router) {
		if h.limiter != nil {
			r.Use(middleware.RateLimit(h.limiter))
		}
		r.Post("/generate", h.Generate)
		r.Post("/validate", h.Validate)
		r.Post("/swaps", h.Swaps)
		r.Get("/constraints", h.Constraints)
		r.Get("/latest", h.GetLatest)
		r.Get("/{id}", h.GetSnapshot)
	})
}

// ServeHTTP 实现 http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Mux.ServeHTTP(w, r)
}

// Health 健康检查，任一依赖失败返回 503
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	respondJSON(w, status, map[string]interface{}{
		"status":       overall,
		"service":      "linecrew",
		"dependencies": deps,
	})
}

// Version 构建信息
func (h *Handler) Version(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.build)
}

// Constraints 规则目录，评分项参数取服务默认权重
func (h *Handler) Constraints(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, constraints.LibraryResponse{
		Library: constraints.GetLibrary(nil, h.opts.Weights),
	})
}

// decode 解析并校验请求体
func (h *Handler) decode(r *http.Request, v interface{}) *apperrors.AppError {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析请求失败").WithDetails(err.Error())
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apperrors.Wrap(err, apperrors.CodeInvalidInput, "请求校验失败")
		}
		ve := &apperrors.ValidationErrors{}
		for _, fe := range verrs {
			ve.Add(fe.Namespace(), fe.Translate(h.translator))
		}
		return ve.ToAppError()
	}
	return nil
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Wrap(err, apperrors.CodeInternal, "服务器内部错误")
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.WithContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("服务器内部错误")
	}

	body := map[string]interface{}{
		"error":   true,
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	respondJSON(w, appErr.HTTPStatus, body)
}
