// Package database 提供 PostgreSQL 连接池和事务封装
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL 驱动

	"github.com/paiban/linecrew/internal/config"
	"github.com/paiban/linecrew/pkg/logger"
)

const (
	// SlowQueryThreshold 超过该耗时的语句记录告警
	SlowQueryThreshold = 100 * time.Millisecond
	maxQueryLog        = 200
)

// DB 连接池封装，执行语句时记录慢查询。实现 repository.DB
type DB struct {
	*sql.DB
}

// Open 打开连接池并测试连接
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("打开数据库连接失败: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Msg("数据库连接成功")

	return &DB{DB: db}, nil
}

// Close 关闭连接池
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	stats := db.Stats()
	logger.Info().
		Int("open", stats.OpenConnections).
		Int64("wait_count", stats.WaitCount).
		Dur("wait_duration", stats.WaitDuration).
		Msg("关闭数据库连接")
	return db.DB.Close()
}

// Health 健康检查
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}

// Transaction 在事务中执行 fn，出错或 panic 时回滚
func (db *DB) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("事务回滚失败: %v (原始错误: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("事务提交失败: %w", err)
	}
	return nil
}

// ExecContext 执行语句并记录慢查询
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := db.DB.ExecContext(ctx, query, args...)
	logSlow(ctx, query, time.Since(start))
	return result, err
}

// QueryContext 执行查询并记录慢查询
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := db.DB.QueryContext(ctx, query, args...)
	logSlow(ctx, query, time.Since(start))
	return rows, err
}

// QueryRowContext 查询单行并记录慢查询
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := db.DB.QueryRowContext(ctx, query, args...)
	logSlow(ctx, query, time.Since(start))
	return row
}

func logSlow(ctx context.Context, query string, d time.Duration) {
	if d <= SlowQueryThreshold {
		return
	}
	logger.WithContext(ctx).Warn().
		Str("query", truncateQuery(query)).
		Dur("duration", d).
		Msg("慢SQL查询")
}

// truncateQuery 压缩空白并截断到 maxQueryLog 个字符
func truncateQuery(query string) string {
	query = strings.Join(strings.Fields(query), " ")
	if r := []rune(query); len(r) > maxQueryLog {
		return string(r[:maxQueryLog]) + "..."
	}
	return query
}
