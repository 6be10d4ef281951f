// Package middleware 提供HTTP中间件
package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/paiban/linecrew/pkg/errors"
	"github.com/paiban/linecrew/pkg/logger"
)

// RequestIDHeader 请求ID头
const RequestIDHeader = "X-Request-ID"

// HTTPObserver 请求指标记录
type HTTPObserver interface {
	ObserveHTTP(method, path string, status int, duration time.Duration)
}

// ResponseWriter 包装 ResponseWriter 以捕获状态码
type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

// WriteHeader 记录状态码
func (rw *ResponseWriter) WriteHeader(code int) {
	rw.StatusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func wrap(w http.ResponseWriter) *ResponseWriter {
	if rw, ok := w.(*ResponseWriter); ok {
		return rw
	}
	return &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
}

// RequestID 读取或生成请求ID，写入响应头和上下文
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := logger.ContextWithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger 访问日志
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := wrap(w)
		next.ServeHTTP(rw, r)

		logger.WithContext(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("ip", r.RemoteAddr).
			Int("status", rw.StatusCode).
			Dur("duration", time.Since(start)).
			Msg("已处理请求")
	})
}

// Recoverer 捕获 panic 并返回 500
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				logger.WithContext(r.Context()).Error().
					Interface("panic", p).
					Str("stack", string(debug.Stack())).
					Msg("请求处理发生panic")

				err := errors.New(errors.CodeInternal, "服务器内部错误")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(err.HTTPStatus)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error":   true,
					"code":    err.Code,
					"message": err.Message,
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Metrics 按路由模板记录请求数和延迟，须在 chi 路由器上使用
func Metrics(o HTTPObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := wrap(w)
			next.ServeHTTP(rw, r)

			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}
			o.ObserveHTTP(r.Method, path, rw.StatusCode, time.Since(start))
		})
	}
}

// CORS 跨域头，OPTIONS 预检请求直接返回
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimiter 令牌桶限流器
type RateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // 每秒补充的令牌数
	lastRefill time.Time
	now        func() time.Time
}

// NewRateLimiter 创建限流器，允许两倍速率的突发
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	return &RateLimiter{
		tokens:     requestsPerSecond,
		maxTokens:  requestsPerSecond * 2,
		refillRate: requestsPerSecond,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// Allow 是否放行当前请求
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.tokens += now.Sub(rl.lastRefill).Seconds() * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// RateLimit 超出速率时返回 429
func RateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow() {
				err := errors.New(errors.CodeRateLimited, "请求过于频繁，请稍后重试")
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(err.HTTPStatus)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error":   true,
					"code":    err.Code,
					"message": err.Message,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
