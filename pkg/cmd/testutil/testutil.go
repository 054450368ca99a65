package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jwizard/dbmigrator/pkg/config"
	"github.com/jwizard/dbmigrator/pkg/consts"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type (
	// ProjectFixture represents a temporary project directory with a migrator.yaml
	// and one directory per pipeline
	ProjectFixture struct {
		Dir    string
		Config *config.Config
		t      *testing.T
	}

	// Migration represents a test migration file
	Migration struct {
		Name     string
		Author   string
		SQL      string
		Rollback string
	}
)

// TestProject creates an isolated temp directory with a default migrator.yaml
func TestProject(t *testing.T) *ProjectFixture {
	t.Helper()

	fixture := &ProjectFixture{
		Dir:    t.TempDir(),
		Config: config.Defaults(),
		t:      t,
	}

	require.NoError(t, os.MkdirAll(filepath.Join(fixture.Dir, fixture.Config.Migrations), consts.ModeDir))
	fixture.writeConfig()

	return fixture
}

// WithTable changes the bookkeeping table name in the configuration
func (p *ProjectFixture) WithTable(table string) *ProjectFixture {
	p.t.Helper()

	p.Config.Table = table
	p.writeConfig()
	return p
}

// WithPipeline maps a pipeline name to an explicit directory in the configuration
func (p *ProjectFixture) WithPipeline(name, dir string) *ProjectFixture {
	p.t.Helper()

	if p.Config.Pipelines == nil {
		p.Config.Pipelines = make(map[string]string)
	}

	p.Config.Pipelines[name] = dir
	p.writeConfig()
	return p
}

// WithMigrations writes migration files into the pipeline directory
func (p *ProjectFixture) WithMigrations(pipeline string, migrations ...Migration) *ProjectFixture {
	p.t.Helper()

	dir := p.PipelineDir(pipeline)
	require.NoError(p.t, os.MkdirAll(dir, consts.ModeDir), "Failed to create pipeline directory")

	for _, m := range migrations {
		author := m.Author
		if author == "" {
			author = "tester"
		}

		content := fmt.Sprintf("author: %s\nsql: |\n  %s\nrollback: |\n  %s\n", author, m.SQL, m.Rollback)
		err := os.WriteFile(filepath.Join(dir, m.Name), []byte(content), consts.ModeFile)
		require.NoError(p.t, err, "Failed to write migration file: %s", m.Name)
	}

	return p
}

// WithFile writes a raw file into the pipeline directory
func (p *ProjectFixture) WithFile(pipeline, name, content string) *ProjectFixture {
	p.t.Helper()

	dir := p.PipelineDir(pipeline)
	require.NoError(p.t, os.MkdirAll(dir, consts.ModeDir))
	require.NoError(p.t, os.WriteFile(filepath.Join(dir, name), []byte(content), consts.ModeFile))
	return p
}

// PipelineDir returns the absolute path of a pipeline directory
func (p *ProjectFixture) PipelineDir(pipeline string) string {
	p.t.Helper()

	dir, err := p.Config.PipelineDir(pipeline)
	require.NoError(p.t, err)
	return filepath.Join(p.Dir, dir)
}

// ConfigPath returns the path to the migrator.yaml file
func (p *ProjectFixture) ConfigPath() string {
	return filepath.Join(p.Dir, consts.DefaultConfigFile)
}

func (p *ProjectFixture) writeConfig() {
	p.t.Helper()

	data, err := yaml.Marshal(p.Config)
	require.NoError(p.t, err, "Failed to marshal config")
	require.NoError(p.t, os.WriteFile(p.ConfigPath(), data, consts.ModeFile), "Failed to write config")
}
