package optimizer

import (
	"context"
	"sync"

	"github.com/paiban/linecrew/pkg/model"
	"github.com/paiban/linecrew/pkg/scheduler/objective"
	"github.com/paiban/linecrew/pkg/validator"
)

// MultiStartOptimizer 多起点优化：以 Seed, Seed+1, ... 并行运行多次局部搜索，取总分最高者。
// 总分相同时取种子最小的一次，结果与并发调度无关。
type MultiStartOptimizer struct {
	config    Config
	restarts  int
	workers   int
	validator *validator.RosterValidator
	scorer    *objective.Scorer
	directory *model.Directory
	opts      []Option
}

// NewMultiStartOptimizer 创建多起点优化器
func NewMultiStartOptimizer(config Config, restarts, workers int, v *validator.RosterValidator, s *objective.Scorer, dir *model.Directory, opts ...Option) *MultiStartOptimizer {
	if restarts <= 0 {
		restarts = 1
	}
	if workers <= 0 {
		workers = 4
	}
	if workers > restarts {
		workers = restarts
	}
	return &MultiStartOptimizer{
		config:    config,
		restarts:  restarts,
		workers:   workers,
		validator: v,
		scorer:    s,
		directory: dir,
		opts:      opts,
	}
}

// Optimize 并行优化，返回最优结果及全部运行结果（按种子顺序）
func (m *MultiStartOptimizer) Optimize(ctx context.Context, initial *model.Roster) (*Result, []*Result) {
	results := make([]*Result, m.restarts)
	jobs := make(chan int, m.restarts)

	var wg sync.WaitGroup
	for w := 0; w < m.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				cfg := m.config
				cfg.Seed = m.config.Seed + int64(i)
				// 进度回调只保留给第一次运行
				opts := m.opts
				if i > 0 {
					opts = append(append([]Option(nil), m.opts...), WithProgress(nil))
				}
				opt := NewLocalSearchOptimizer(cfg, m.validator, m.scorer, m.directory, opts...)
				results[i] = opt.Optimize(ctx, initial)
			}
		}()
	}

	for i := 0; i < m.restarts; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return Best(results), results
}

// Best 取总分最高的结果，相同时取下标最小者
func Best(results []*Result) *Result {
	var best *Result
	for _, r := range results {
		if r == nil {
			continue
		}
		if best == nil || r.Score.Total > best.Score.Total {
			best = r
		}
	}
	return best
}
