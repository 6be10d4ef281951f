// LineCrew 排班命令行工具
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paiban/linecrew/internal/config"
	"github.com/paiban/linecrew/internal/database"
	"github.com/paiban/linecrew/internal/repository"
	"github.com/paiban/linecrew/pkg/logger"
)

// app 命令共享的依赖
type app struct {
	ctx context.Context
	cfg *config.Config
	db  *database.DB
}

var (
	configPath string
	current    *app
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "roster",
		Short:         "LineCrew 线路排班工具",
		Long:          "为急救线路分配人员：构建初始排班、局部搜索优化，以及对已有排班重新校验和评分。",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if current != nil && current.db != nil {
				current.db.Close()
			}
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径 (YAML)")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(swapsCmd())
	rootCmd.AddCommand(importCmd())
	return rootCmd
}

// initApp 加载配置并初始化日志
func initApp(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.Init(cfg.LoggerConfig())

	current = &app{ctx: ctx, cfg: cfg}
	return nil
}

// openDB 按需连接数据库并执行迁移
func (a *app) openDB() (*database.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	if !a.cfg.Database.Enabled {
		return nil, fmt.Errorf("未启用数据库，请设置 database.enabled 或 DB_ENABLED")
	}
	db, err := database.Open(a.ctx, a.cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(a.ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	a.db = db
	return db, nil
}
