package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paiban/linecrew/internal/dataset"
	"github.com/paiban/linecrew/pkg/model"
	"github.com/paiban/linecrew/pkg/swap"
	"github.com/paiban/linecrew/pkg/validator"
)

func swapsCmd() *cobra.Command {
	var (
		rosterPath  string
		linesPath   string
		personsPath string
		targetID    string
		targetLine  int
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "swaps <emp_id>",
		Short: "评估或推荐人员换线",
		Long:  "指定 --with 或 --line 时评估单个换线方案，否则列出评分最高的可行方案。",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if targetID != "" && targetLine != 0 {
				return fmt.Errorf("--with 和 --line 只能提供一个")
			}

			a := current
			opts := a.cfg.EngineOptions()
			lines, persons, err := a.loadPersonnel(linesPath, personsPath)
			if err != nil {
				return err
			}
			roster, _, err := dataset.LoadRoster(rosterPath, lines, opts.Pattern, 0)
			if err != nil {
				return err
			}
			dir, err := model.NewDirectory(persons)
			if err != nil {
				return err
			}

			evaluator := swap.NewEvaluator(validator.NewRosterValidator(&opts.Validation, nil), dir, opts.Weights)
			out := cmd.OutOrStdout()

			if targetID != "" || targetLine != 0 {
				ev := evaluator.Evaluate(roster, swap.Request{PersonID: args[0], TargetID: targetID, TargetLine: targetLine})
				fmt.Fprintf(out, "%s 线路 %d → %d: %s (%+.2f)\n", ev.Kind, ev.FromLine, ev.ToLine, ev.Recommendation, ev.ScoreChange)
				for _, issue := range ev.Issues {
					fmt.Fprintf(out, "  [%s] %s: %s\n", issue.Severity, issue.Type, issue.Message)
				}
				return nil
			}

			recOpts := swap.DefaultRecommendOptions()
			recOpts.MaxRecommendations = limit
			recs := swap.NewRecommender(evaluator).Recommend(roster, args[0], recOpts)
			if len(recs) == 0 {
				fmt.Fprintln(out, "没有可行的换线方案")
				return nil
			}
			for _, rec := range recs {
				with := rec.Request.TargetID
				if with == "" {
					with = "-"
				}
				fmt.Fprintf(out, "%d. %-8s 线路 %d → %d  互换人员 %-8s %+.2f\n",
					rec.Rank, rec.Kind, rec.FromLine, rec.ToLine, with, rec.ScoreChange)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rosterPath, "roster", "", "排班快照文件")
	cmd.Flags().StringVar(&linesPath, "lines", "", "线路 JSON 文件，缺省时从数据库读取")
	cmd.Flags().StringVar(&personsPath, "persons", "", "人员 JSON 文件，缺省时从数据库读取")
	cmd.Flags().StringVar(&targetID, "with", "", "互换的人员ID")
	cmd.Flags().IntVar(&targetLine, "line", 0, "调入的目标线路")
	cmd.Flags().IntVar(&limit, "limit", 5, "推荐数量")
	cmd.MarkFlagRequired("roster")
	return cmd
}
