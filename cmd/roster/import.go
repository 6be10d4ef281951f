package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paiban/linecrew/internal/dataset"
	"github.com/paiban/linecrew/internal/repository"
)

func importCmd() *cobra.Command {
	var linesPath, personsPath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "将线路和人员 JSON 导入数据库",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current
			db, err := a.openDB()
			if err != nil {
				return err
			}
			lines, err := dataset.LoadLines(linesPath)
			if err != nil {
				return err
			}
			persons, err := dataset.LoadPersons(personsPath)
			if err != nil {
				return err
			}

			repo := repository.NewPersonnelRepository(db)
			for _, l := range lines {
				if err := repo.UpsertLine(a.ctx, l); err != nil {
					return err
				}
			}
			for _, p := range persons {
				if err := repo.UpsertPerson(a.ctx, p); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d lines, %d persons\n", len(lines), len(persons))
			return nil
		},
	}

	cmd.Flags().StringVar(&linesPath, "lines", "", "线路 JSON 文件")
	cmd.Flags().StringVar(&personsPath, "persons", "", "人员 JSON 文件")
	cmd.MarkFlagRequired("lines")
	cmd.MarkFlagRequired("persons")
	return cmd
}
