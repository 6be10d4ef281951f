// Package repository 提供人员数据和排班快照的 PostgreSQL 数据访问层
package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// DB 数据库接口，由 *database.DB 实现
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Scanner 行扫描接口（*sql.Row 与 *sql.Rows）
type Scanner interface {
	Scan(dest ...interface{}) error
}

// Schema 建表语句，可重复执行
const Schema = `
CREATE TABLE IF NOT EXISTS lines (
	line_id       INTEGER PRIMARY KEY CHECK (line_id > 0),
	"offset"      INTEGER NOT NULL DEFAULT 0,
	max_headcount INTEGER NOT NULL CHECK (max_headcount >= 0)
);

CREATE TABLE IF NOT EXISTS persons (
	emp_id               TEXT PRIMARY KEY,
	name                 TEXT NOT NULL,
	role                 TEXT NOT NULL DEFAULT 'PARAMEDIC',
	title                TEXT NOT NULL DEFAULT 'PARA',
	years_experience     INTEGER NOT NULL DEFAULT 0,
	is_ecp               BOOLEAN NOT NULL DEFAULT FALSE,
	cant_work_with       TEXT[] NOT NULL DEFAULT '{}',
	can_only_work_with   TEXT[] NOT NULL DEFAULT '{}',
	should_work_with     TEXT[] NOT NULL DEFAULT '{}',
	should_not_work_with TEXT[] NOT NULL DEFAULT '{}',
	locked_line          INTEGER,
	preferred_lines      INTEGER[] NOT NULL DEFAULT '{}',
	avoid_lines          INTEGER[] NOT NULL DEFAULT '{}',
	active               BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS roster_runs (
	id           UUID PRIMARY KEY,
	weeks        INTEGER NOT NULL,
	seed         BIGINT NOT NULL,
	pattern      TEXT[] NOT NULL,
	score        DOUBLE PRECISION NOT NULL,
	valid        BOOLEAN NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS roster_crews (
	run_id   UUID NOT NULL REFERENCES roster_runs(id) ON DELETE CASCADE,
	line_id  INTEGER NOT NULL,
	position INTEGER NOT NULL,
	emp_id   TEXT NOT NULL,
	PRIMARY KEY (run_id, line_id, position)
);

CREATE INDEX IF NOT EXISTS idx_roster_runs_generated_at ON roster_runs (generated_at DESC);
`

// Migrate 执行建表语句
func Migrate(ctx context.Context, db DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("初始化数据表失败: %w", err)
	}
	return nil
}
