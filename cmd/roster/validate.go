package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/paiban/linecrew/internal/dataset"
	"github.com/paiban/linecrew/internal/repository"
	"github.com/paiban/linecrew/pkg/model"
	"github.com/paiban/linecrew/pkg/scheduler/engine"
	"github.com/paiban/linecrew/pkg/stats"
)

func validateCmd() *cobra.Command {
	var (
		rosterPath  string
		snapshotID  string
		linesPath   string
		personsPath string
		weeks       int
		fairness    bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "校验并重新评分已有排班",
		Long:  "从排班文件（--roster）或数据库快照（--snapshot）加载排班，重新执行硬约束校验和评分。",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (rosterPath == "") == (snapshotID == "") {
				return fmt.Errorf("--roster 和 --snapshot 必须且只能提供一个")
			}

			a := current
			opts := a.cfg.EngineOptions()
			lines, persons, err := a.loadPersonnel(linesPath, personsPath)
			if err != nil {
				return err
			}

			var roster *model.Roster
			if rosterPath != "" {
				roster, _, err = dataset.LoadRoster(rosterPath, lines, opts.Pattern, weeks)
			} else {
				roster, err = a.loadSnapshot(snapshotID, lines)
			}
			if err != nil {
				return err
			}
			opts.Weeks = roster.Days() / 7

			issues, score, err := engine.New(opts).Evaluate(roster, persons)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printResult(out, roster, issues, score.Total, opts.Weights.TargetStaff)
			for _, c := range score.Components {
				fmt.Fprintf(out, "  %-22s %.2f\n", c.Name, c.Value)
			}
			if fairness {
				m := stats.NewFairnessAnalyzer().Analyze(roster)
				fmt.Fprintf(out, "\nFairness: %.1f (shift gini %.3f, night gini %.3f, weekend gini %.3f)\n",
					m.OverallFairnessScore, m.ShiftGini, m.NightShiftGini, m.WeekendGini)
			}
			if model.HasErrors(issues) {
				return fmt.Errorf("排班存在 %d 个问题", len(issues))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rosterPath, "roster", "", "排班快照文件")
	cmd.Flags().StringVar(&snapshotID, "snapshot", "", "数据库快照ID，latest 表示最近一次")
	cmd.Flags().StringVar(&linesPath, "lines", "", "线路 JSON 文件，缺省时从数据库读取")
	cmd.Flags().StringVar(&personsPath, "persons", "", "人员 JSON 文件，缺省时从数据库读取")
	cmd.Flags().IntVar(&weeks, "weeks", 0, "排班周数，缺省时取快照元数据")
	cmd.Flags().BoolVar(&fairness, "fairness", false, "输出线路负载公平性指标")
	return cmd
}

// loadSnapshot 从数据库读取快照并按线路重建排班表
func (a *app) loadSnapshot(id string, lines []model.Line) (*model.Roster, error) {
	db, err := a.openDB()
	if err != nil {
		return nil, err
	}
	repo := repository.NewRosterRepository(db)

	var snap *repository.Snapshot
	if id == "latest" {
		snap, err = repo.Latest(a.ctx)
	} else {
		var uid uuid.UUID
		if uid, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("无效的快照ID %q: %w", id, err)
		}
		snap, err = repo.Get(a.ctx, uid)
	}
	if err != nil {
		return nil, err
	}
	return snap.Roster(lines)
}
