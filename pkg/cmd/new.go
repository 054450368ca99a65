package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jwizard/dbmigrator/pkg/consts"
	"github.com/jwizard/dbmigrator/pkg/migrator"
	"github.com/jwizard/dbmigrator/pkg/utils"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const maxSequence = 99999

func newCmd(p commandParams) *cli.Command {
	return newMigrationCommand(p, time.Now)
}

// newMigrationCommand creates the new command scaffolding the next migration file
// of a pipeline.
//
// The file is named after today's UTC date and the next sequence number, which is
// one more than the highest sequence found in the pipeline directory. The author,
// sql and rollback sections are created with empty values, so the file is skipped
// until it has been filled in.
//
// Example usage:
//
//	# Creates db/migrations/core/2024-03-01_00004_add_users_table.yml
//	db-migrator new core "add users table"
//
//	db-migrator new core add_orders --author jane
func newMigrationCommand(p commandParams, now func() time.Time) *cli.Command {
	return &cli.Command{
		Name:      "new",
		Usage:     "Create the next migration file of a pipeline",
		ArgsUsage: "<pipeline> <description>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "author",
				Aliases:     []string{"a"},
				Usage:       "the author recorded in the migration",
				DefaultText: "the current user",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := p.loadConfig(cmd)
			if err != nil {
				return err
			}

			pl, err := p.resolvePipeline(cmd, cfg)
			if err != nil {
				return err
			}

			description := utils.Slugify(strings.Join(cmd.Args().Tail(), " "))
			if description == "" {
				return errors.New("a description is required")
			}

			author := cmd.String("author")
			if author == "" {
				author = initiator()
			}

			path, err := createMigrationFile(pl.dir, description, author, now().UTC())
			if err != nil {
				return err
			}

			pl.logger.Info("Created migration", "file", filepath.Base(path))
			fmt.Fprintf(cmd.Root().Writer, "Created migration %s\n", path)
			return nil
		},
	}
}

func createMigrationFile(dir, description, author string, date time.Time) (string, error) {
	if err := os.MkdirAll(filepath.FromSlash(dir), consts.ModeDir); err != nil {
		return "", errors.Wrapf(err, "failed to create pipeline directory: %s", dir)
	}

	seq, err := nextSequence(dir)
	if err != nil {
		return "", err
	}

	name := migrator.FileName{
		Year:        date.Year(),
		Month:       int(date.Month()),
		Day:         date.Day(),
		Sequence:    seq,
		Description: description,
	}

	content, err := migrationTemplate(author)
	if err != nil {
		return "", err
	}

	path := filepath.Join(filepath.FromSlash(dir), name.String())
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, consts.ModeFile)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create migration: %s", path)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(content); err != nil {
		return "", errors.Wrapf(err, "failed to write migration: %s", path)
	}

	return path, nil
}

// nextSequence returns one more than the highest sequence number in dir.
func nextSequence(dir string) (int, error) {
	entries, err := os.ReadDir(filepath.FromSlash(dir))
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read pipeline directory: %s", dir)
	}

	highest := 0
	for _, entry := range entries {
		if name, ok := migrator.ParseFileName(entry.Name()); ok && name.Sequence > highest {
			highest = name.Sequence
		}
	}

	if highest >= maxSequence {
		return 0, errors.Errorf("no sequence number left in %s", dir)
	}

	return highest + 1, nil
}

func migrationTemplate(author string) ([]byte, error) {
	str := func(value string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
	}

	key := func(name, comment string) *yaml.Node {
		node := str(name)
		node.HeadComment = comment
		return node
	}

	doc := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			key("author", ""), str(author),
			key("sql", "Statements applying the migration, each terminated by ';'"), str(""),
			key("rollback", "Statements reverting the migration, each terminated by ';'"), str(""),
		},
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render migration template")
	}

	return out, nil
}
