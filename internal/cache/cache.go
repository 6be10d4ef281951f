// Package cache 缓存排班结果。相同输入和相同种子的运行结果完全一致，
// 因此按输入指纹缓存，命中时跳过优化。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zeebo/xxh3"

	apperrors "github.com/paiban/linecrew/pkg/errors"
	"github.com/paiban/linecrew/pkg/logger"
	"github.com/paiban/linecrew/pkg/model"
	"github.com/paiban/linecrew/pkg/scheduler/engine"
	"github.com/paiban/linecrew/pkg/scheduler/objective"
)

// KeyPrefix 缓存键前缀
const KeyPrefix = "linecrew:roster:"

// fingerprintInput 参与指纹计算的输入，不含只影响日志和并发的参数
type fingerprintInput struct {
	Persons    []*model.Person   `json:"persons"`
	Lines      []model.Line      `json:"lines"`
	Pattern    []string          `json:"pattern"`
	Weeks      int               `json:"weeks"`
	Weights    objective.Weights `json:"weights"`
	Iterations int               `json:"max_iterations"`
	NoImprove  int               `json:"no_improve_limit"`
	Moves      int               `json:"moves_per_iteration"`
	Sample     int               `json:"sample_shifts"`
	Seed       int64             `json:"seed"`
	FastCheck  string            `json:"fast_check"`
	Restarts   int               `json:"restarts"`
	Timeout    time.Duration     `json:"timeout"`
	UnknownIDs string            `json:"unknown_ids"`
}

// Fingerprint 计算输入指纹（xxh3，16位十六进制）。
// 人员和线路按输入顺序参与计算，集合字段按排序后的数组序列化。
func Fingerprint(persons []*model.Person, lines []model.Line, opts engine.Options) (string, error) {
	in := fingerprintInput{
		Persons:    persons,
		Lines:      lines,
		Pattern:    opts.Pattern.Symbols(),
		Weeks:      opts.Weeks,
		Weights:    opts.Weights,
		Iterations: opts.Optimizer.MaxIterations,
		NoImprove:  opts.Optimizer.NoImproveLimit,
		Moves:      opts.Optimizer.MovesPerIteration,
		Sample:     opts.Optimizer.SampleShifts,
		Seed:       opts.Optimizer.Seed,
		FastCheck:  string(opts.Optimizer.FastCheck),
		Restarts:   opts.Restarts,
		Timeout:    opts.Timeout,
		UnknownIDs: string(opts.Validation.UnknownIDs),
	}

	h := xxh3.New()
	if err := json.NewEncoder(h).Encode(in); err != nil {
		return "", fmt.Errorf("计算输入指纹失败: %w", err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// Entry 缓存的排班结果（决策数据、问题和评分）
type Entry struct {
	RunID       string                   `json:"run_id"`
	Seed        int64                    `json:"seed"`
	Weeks       int                      `json:"weeks"`
	Runs        int                      `json:"runs"`
	Lines       []model.CrewEntry        `json:"lines"`
	Issues      []model.ValidationIssue  `json:"issues"`
	Score       objective.ScoreBreakdown `json:"score"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// NewEntry 由运行结果创建缓存项
func NewEntry(res *engine.Result) *Entry {
	return &Entry{
		RunID:       res.RunID,
		Seed:        res.Seed,
		Weeks:       res.Roster.Days() / 7,
		Runs:        res.Runs,
		Lines:       res.Roster.Entries(),
		Issues:      res.Issues,
		Score:       res.Score,
		GeneratedAt: time.Now().UTC(),
	}
}

// ResultCache 基于 Redis 的排班结果缓存
type ResultCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// New 创建结果缓存，ttl 为 0 表示不过期
func New(client redis.Cmdable, ttl time.Duration) *ResultCache {
	return &ResultCache{client: client, ttl: ttl}
}

// Key 指纹对应的缓存键
func Key(fingerprint string) string {
	return KeyPrefix + fingerprint
}

// Get 读取缓存，未命中返回 (nil, false, nil)
func (c *ResultCache) Get(ctx context.Context, fingerprint string) (*Entry, bool, error) {
	data, err := c.client.Get(ctx, Key(fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.CodeCacheError, "读取排班缓存失败")
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		// 格式不兼容的旧缓存视为未命中
		logger.WithContext(ctx).Warn().Err(err).Str("fingerprint", fingerprint).Msg("排班缓存格式无效")
		return nil, false, nil
	}
	return &e, true, nil
}

// Put 写入缓存
func (c *ResultCache) Put(ctx context.Context, fingerprint string, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "序列化排班缓存失败")
	}
	if err := c.client.Set(ctx, Key(fingerprint), data, c.ttl).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "写入排班缓存失败")
	}
	logger.WithContext(ctx).Debug().
		Str("fingerprint", fingerprint).
		Dur("ttl", c.ttl).
		Msg("排班结果已缓存")
	return nil
}

// NewClient 按地址创建 Redis 客户端并测试连接
func NewClient(ctx context.Context, addr, password string, db, poolSize int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "Redis 连接失败")
	}
	logger.Info().Str("addr", addr).Int("db", db).Msg("Redis 连接成功")
	return rdb, nil
}
