package cmd

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/jwizard/dbmigrator/pkg/migrator"
	"github.com/urfave/cli/v3"
)

// pipelines creates the pipelines command listing the pipelines of the project
// with their directories and the number of migration files in each.
func pipelines(p commandParams) *cli.Command {
	return &cli.Command{
		Name:  "pipelines",
		Usage: "List the migration pipelines of the project",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := p.loadConfig(cmd)
			if err != nil {
				return err
			}

			names, err := cfg.ListPipelines()
			if err != nil {
				return err
			}

			w := cmd.Root().Writer
			if len(names) == 0 {
				fmt.Fprintf(w, "No pipelines found in %s\n", cfg.Migrations)
				return nil
			}

			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PIPELINE\tFILES\tDIRECTORY")

			for _, name := range names {
				dir, err := cfg.PipelineDir(name)
				if err != nil {
					return err
				}

				files := "-"
				if paths, err := migrator.NewFileParser(dir, nil).ListMigrationFiles(); err == nil {
					files = strconv.Itoa(len(paths))
				}

				fmt.Fprintf(tw, "%s\t%s\t%s\n", name, files, dir)
			}

			return tw.Flush()
		},
	}
}
