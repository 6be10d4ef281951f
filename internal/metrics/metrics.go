// Package metrics 提供 Prometheus 监控指标：HTTP 请求、排班运行和局部搜索过程
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paiban/linecrew/pkg/scheduler/optimizer"
)

// DefaultNamespace 默认指标命名空间
const DefaultNamespace = "linecrew"

// Collector 指标收集器，同时实现 optimizer.Recorder
type Collector struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	activeRuns    prometheus.Gauge
	cacheLookups  *prometheus.CounterVec
	rosterScore   prometheus.Gauge
	rosterIssues  *prometheus.GaugeVec
	coverageRatio prometheus.Gauge

	movesProposed prometheus.Counter
	movesAccepted prometheus.Counter
	movesRejected *prometheus.CounterVec
	iterations    prometheus.Counter
	stopReasons   *prometheus.CounterVec
	optimizeTime  prometheus.Histogram
	bestScore     prometheus.Gauge
}

var _ optimizer.Recorder = (*Collector)(nil)

// New 创建指标收集器并注册到 reg（为 nil 时新建注册表）
func New(reg *prometheus.Registry, namespace string) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{
		registry: reg,

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP请求总数",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP请求延迟",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "path"}),

		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "roster",
			Name:      "runs_total",
			Help:      "排班运行次数",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "roster",
			Name:      "run_duration_seconds",
			Help:      "排班运行耗时",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		activeRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "roster",
			Name:      "active_runs",
			Help:      "当前进行中的排班运行数",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "roster",
			Name:      "cache_lookups_total",
			Help:      "排班结果缓存查询次数",
		}, []string{"result"}),
		rosterScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "roster",
			Name:      "score",
			Help:      "最近一次排班的总评分",
		}),
		rosterIssues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "roster",
			Name:      "issues",
			Help:      "最近一次排班的校验问题数",
		}, []string{"severity"}),
		coverageRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "roster",
			Name:      "balanced_shift_ratio",
			Help:      "最近一次排班中人数达标的班次比例（百分比）",
		}),

		movesProposed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "moves_proposed_total",
			Help:      "提出的交换总数",
		}),
		movesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "moves_accepted_total",
			Help:      "接受的交换总数",
		}),
		movesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "moves_rejected_total",
			Help:      "按原因统计的拒绝交换数",
		}, []string{"reason"}),
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "iterations_total",
			Help:      "优化迭代总数",
		}),
		stopReasons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "runs_total",
			Help:      "按停止原因统计的优化次数",
		}, []string{"stop_reason"}),
		optimizeTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "duration_seconds",
			Help:      "单次优化耗时",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms .. ~82s
		}),
		bestScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "best_score",
			Help:      "最近一次接受交换后的评分",
		}),
	}

	reg.MustRegister(
		c.httpRequests, c.httpDuration,
		c.runs, c.runDuration, c.activeRuns, c.cacheLookups,
		c.rosterScore, c.rosterIssues, c.coverageRatio,
		c.movesProposed, c.movesAccepted, c.movesRejected,
		c.iterations, c.stopReasons, c.optimizeTime, c.bestScore,
	)
	return c
}

// Registry 返回底层注册表
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 返回 Prometheus 格式的指标处理器
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP 记录请求指标，path 为路由模板
func (c *Collector) ObserveHTTP(method, path string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RunStarted 排班运行开始
func (c *Collector) RunStarted() {
	c.activeRuns.Inc()
}

// RunCompleted 排班运行结束，status 为 success/failure/cached
func (c *Collector) RunCompleted(status string, duration time.Duration) {
	c.activeRuns.Dec()
	c.runs.WithLabelValues(status).Inc()
	c.runDuration.Observe(duration.Seconds())
}

// CacheLookup 记录缓存命中情况
func (c *Collector) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

// SetRosterResult 记录最近一次排班的评分、问题数和达标比例
func (c *Collector) SetRosterResult(score float64, errors, warnings int, balancedRatio float64) {
	c.rosterScore.Set(score)
	c.rosterIssues.WithLabelValues("ERROR").Set(float64(errors))
	c.rosterIssues.WithLabelValues("WARN").Set(float64(warnings))
	c.coverageRatio.Set(balancedRatio)
}

// MoveProposed 实现 optimizer.Recorder
func (c *Collector) MoveProposed() {
	c.movesProposed.Inc()
}

// MoveAccepted 实现 optimizer.Recorder
func (c *Collector) MoveAccepted(score float64) {
	c.movesAccepted.Inc()
	c.bestScore.Set(score)
}

// MoveRejected 实现 optimizer.Recorder
func (c *Collector) MoveRejected(reason string) {
	c.movesRejected.WithLabelValues(reason).Inc()
}

// RunFinished 实现 optimizer.Recorder
func (c *Collector) RunFinished(stopReason string, iterations int, score float64, duration time.Duration) {
	c.stopReasons.WithLabelValues(stopReason).Inc()
	c.iterations.Add(float64(iterations))
	c.optimizeTime.Observe(duration.Seconds())
	c.bestScore.Set(score)
}
