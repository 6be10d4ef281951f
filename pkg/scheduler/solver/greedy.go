// Package solver 提供初始排班构建器
package solver

import (
	"context"
	"sort"
	"time"

	"github.com/paiban/linecrew/pkg/errors"
	"github.com/paiban/linecrew/pkg/logger"
	"github.com/paiban/linecrew/pkg/model"
	"github.com/paiban/linecrew/pkg/scheduler/constraint"
)

// Builder 初始排班构建器接口
type Builder interface {
	// Build 生成初始排班
	Build(ctx context.Context, input *Input) (*Assignment, error)

	// Name 返回构建器名称
	Name() string
}

// Input 构建输入
type Input struct {
	Directory *model.Directory
	Lines     []model.Line
	Pattern   model.ShiftPattern
	Days      int
}

// Assignment 构建结果
type Assignment struct {
	Roster        *model.Roster  `json:"roster"`
	ResolvedLines map[string]int `json:"resolved_lines"` // 人员ID -> 线路ID
	Statistics    *Statistics    `json:"statistics"`
}

// Statistics 构建统计
type Statistics struct {
	Persons      int           `json:"persons"`
	PreAssigned  int           `json:"pre_assigned"`
	AutoAssigned int           `json:"auto_assigned"`
	PerLine      map[int]int   `json:"per_line"`
	Duration     time.Duration `json:"duration"`
}

// GreedyBuilder 确定性贪心构建器：
// 锁定人员先就位，其余人员按输入顺序放入剩余容量最大的兼容线路（并列取最小线路ID）。
type GreedyBuilder struct {
	constraints *constraint.Manager
	logger      *logger.SchedulerLogger
}

// NewGreedyBuilder 创建贪心构建器，cm 为 nil 时使用默认同事约束
func NewGreedyBuilder(cm *constraint.Manager) *GreedyBuilder {
	if cm == nil {
		cm = constraint.NewDefaultManager()
	}
	return &GreedyBuilder{
		constraints: cm,
		logger:      logger.NewSchedulerLogger(),
	}
}

// WithLogger 返回使用指定日志器的副本
func (b *GreedyBuilder) WithLogger(l *logger.SchedulerLogger) *GreedyBuilder {
	cp := *b
	if l != nil {
		cp.logger = l
	}
	return &cp
}

// Name 返回构建器名称
func (b *GreedyBuilder) Name() string {
	return "GreedyBuilder"
}

// Build 生成初始排班。任何人员无法放置或锁定人数超限时返回错误，不返回部分结果。
func (b *GreedyBuilder) Build(ctx context.Context, input *Input) (*Assignment, error) {
	startTime := time.Now()

	if input == nil || input.Directory == nil {
		return nil, errors.InvalidInput("input", "人员目录不能为空")
	}
	if err := model.ValidateLines(input.Lines); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "线路数据无效")
	}
	roster, err := model.NewRoster(input.Lines, input.Pattern, input.Days)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "创建排班表失败")
	}

	capacity := make(map[int]int, len(input.Lines))
	lineIDs := make([]int, 0, len(input.Lines))
	for _, l := range input.Lines {
		capacity[l.ID] = l.MaxHeadcount
		lineIDs = append(lineIDs, l.ID)
	}
	sort.Ints(lineIDs)

	buckets := make(map[int][]string, len(lineIDs))
	resolved := make(map[string]int, input.Directory.Len())
	stats := &Statistics{Persons: input.Directory.Len()}

	// 锁定人员就位
	for _, p := range input.Directory.All() {
		if !p.IsLocked() {
			continue
		}
		if _, ok := capacity[p.LockedLine]; !ok {
			b.logger.UnknownLock(p.ID, p.LockedLine)
			continue
		}
		buckets[p.LockedLine] = append(buckets[p.LockedLine], p.ID)
		resolved[p.ID] = p.LockedLine
		stats.PreAssigned++
	}

	remaining := make(map[int]int, len(lineIDs))
	for _, lid := range lineIDs {
		seeded := len(buckets[lid])
		if seeded > capacity[lid] {
			return nil, errors.CapacityExceeded(lid, seeded, capacity[lid])
		}
		remaining[lid] = capacity[lid] - seeded
	}
	b.logger.PreAssigned(headcounts(buckets, lineIDs), stats.Persons-stats.PreAssigned)

	// 其余人员按输入顺序自动分配
	for _, p := range input.Directory.All() {
		if _, done := resolved[p.ID]; done {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.CodeTimeout, "构建初始排班被取消")
		}

		chosen, best := 0, 0
		for _, lid := range lineIDs {
			if remaining[lid] <= 0 || remaining[lid] <= best {
				continue
			}
			tentative := append(append(make([]string, 0, len(buckets[lid])+1), buckets[lid]...), p.ID)
			if !b.constraints.Compatible(input.Directory, tentative) {
				continue
			}
			chosen, best = lid, remaining[lid]
		}
		if chosen == 0 {
			b.logger.ConstraintViolation("构建初始排班", p.ID)
			return nil, errors.Unplaceable(p.ID)
		}

		buckets[chosen] = append(buckets[chosen], p.ID)
		resolved[p.ID] = chosen
		remaining[chosen]--
		stats.AutoAssigned++
		b.logger.LineResolved(p.ID, chosen, remaining[chosen])
	}

	for _, lid := range lineIDs {
		if err := roster.SetCrew(lid, buckets[lid]); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "写入线路成员失败")
		}
	}

	stats.PerLine = headcounts(buckets, lineIDs)
	stats.Duration = time.Since(startTime)
	b.logger.BuildComplete(stats.PerLine, stats.Duration)

	return &Assignment{
		Roster:        roster,
		ResolvedLines: resolved,
		Statistics:    stats,
	}, nil
}

// headcounts 各线路人数
func headcounts(buckets map[int][]string, lineIDs []int) map[int]int {
	out := make(map[int]int, len(lineIDs))
	for _, lid := range lineIDs {
		out[lid] = len(buckets[lid])
	}
	return out
}
