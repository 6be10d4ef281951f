package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/paiban/linecrew/internal/dataset"
	"github.com/paiban/linecrew/internal/repository"
	"github.com/paiban/linecrew/pkg/logger"
	"github.com/paiban/linecrew/pkg/model"
	"github.com/paiban/linecrew/pkg/scheduler/engine"
	"github.com/paiban/linecrew/pkg/stats"
)

func generateCmd() *cobra.Command {
	var (
		linesPath   string
		personsPath string
		outPath     string
		seed        int64
		weeks       int
		save        bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "生成并优化排班",
		Long:  "读取线路和人员（文件或数据库），构建初始排班并做局部搜索，输出校验问题、评分和覆盖率报告。",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current
			opts := a.cfg.EngineOptions()
			if cmd.Flags().Changed("seed") {
				opts.Optimizer.Seed = seed
			}
			if cmd.Flags().Changed("weeks") {
				opts.Weeks = weeks
			}

			lines, persons, err := a.loadPersonnel(linesPath, personsPath)
			if err != nil {
				return err
			}

			res, err := engine.New(opts).Run(a.ctx, persons, lines)
			if err != nil {
				return err
			}

			if outPath != "" {
				score := res.Score.Total
				meta := dataset.Meta{
					RunID:       res.RunID,
					Weeks:       opts.Weeks,
					Seed:        res.Seed,
					GeneratedAt: time.Now().UTC(),
					Score:       &score,
				}
				if err := dataset.SaveRoster(outPath, res.Roster, meta); err != nil {
					return err
				}
				logger.Info().Str("path", outPath).Msg("排班已写入文件")
			}

			if save {
				db, err := a.openDB()
				if err != nil {
					return err
				}
				snap := repository.NewSnapshot(res.Roster, res.Seed, res.Score.Total, res.Valid())
				if err := repository.NewRosterRepository(db).Save(a.ctx, snap); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Snapshot: %s\n", snap.ID)
			}

			printResult(cmd.OutOrStdout(), res.Roster, res.Issues, res.Score.Total, opts.Weights.TargetStaff)
			return nil
		},
	}

	cmd.Flags().StringVar(&linesPath, "lines", "", "线路 JSON 文件，缺省时从数据库读取")
	cmd.Flags().StringVar(&personsPath, "persons", "", "人员 JSON 文件，缺省时从数据库读取")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "排班输出文件")
	cmd.Flags().Int64Var(&seed, "seed", 0, "随机种子（覆盖配置）")
	cmd.Flags().IntVar(&weeks, "weeks", 0, "排班周数（覆盖配置）")
	cmd.Flags().BoolVar(&save, "save", false, "保存排班快照到数据库")
	return cmd
}

// loadPersonnel 两个路径都给出时读文件，都为空时读数据库
func (a *app) loadPersonnel(linesPath, personsPath string) ([]model.Line, []*model.Person, error) {
	switch {
	case linesPath != "" && personsPath != "":
		lines, err := dataset.LoadLines(linesPath)
		if err != nil {
			return nil, nil, err
		}
		persons, err := dataset.LoadPersons(personsPath)
		if err != nil {
			return nil, nil, err
		}
		return lines, persons, nil
	case linesPath == "" && personsPath == "":
		db, err := a.openDB()
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewPersonnelRepository(db)
		lines, err := repo.ListLines(a.ctx)
		if err != nil {
			return nil, nil, err
		}
		persons, err := repo.ListPersons(a.ctx)
		if err != nil {
			return nil, nil, err
		}
		return lines, persons, nil
	default:
		return nil, nil, fmt.Errorf("--lines 和 --persons 必须同时提供")
	}
}

// printResult 输出校验问题、评分和覆盖率报告
func printResult(w io.Writer, roster *model.Roster, issues []model.ValidationIssue, score float64, target int) {
	if len(issues) == 0 {
		fmt.Fprintln(w, "Roster valid")
	} else {
		for _, issue := range issues {
			fmt.Fprintln(w, issue.String())
		}
	}
	fmt.Fprintf(w, "Score: %.2f\n", score)

	analyzer := stats.NewCoverageAnalyzer(target)
	fmt.Fprintln(w)
	fmt.Fprint(w, analyzer.GenerateCoverageReport(analyzer.Analyze(roster)))
}
