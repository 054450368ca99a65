package config

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jwizard/dbmigrator/pkg/consts"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrUnknownPipeline is returned when a pipeline name cannot be resolved to a directory.
var ErrUnknownPipeline = errors.New("unknown pipeline")

type (
	// Vault represents the location of the database secrets.
	Vault struct {
		// Address is the URL of the Vault server
		Address string `yaml:"address"`

		// Backend is the KV (version 1) mount holding the secrets
		Backend string `yaml:"backend"`

		// Path is the secret path inside the mount
		Path string `yaml:"path"`
	}

	// Config represents the project configuration for running migration pipelines.
	//
	// A pipeline is a named directory of migration files. Pipelines live in
	// subdirectories of Migrations unless mapped explicitly in Pipelines.
	Config struct {
		// Migrations is the root directory holding one subdirectory per pipeline
		Migrations string `yaml:"migrations"`

		// Table is the bookkeeping table recording applied migrations
		Table string `yaml:"table"`

		// Pipelines maps pipeline names to directories outside the Migrations layout
		Pipelines map[string]string `yaml:"pipelines,omitempty"`

		// Vault locates the database connection secrets
		Vault Vault `yaml:"vault"`
	}
)

// Defaults returns the configuration used when no migrator.yaml exists.
func Defaults() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig parses a project configuration from the provided io.Reader.
//
// The function expects YAML-formatted configuration data. Empty values are
// replaced with their defaults after decoding.
//
// Example:
//
//	yamlData := `
//	migrations: db/migrations
//	table: schema_history
//	vault:
//	  address: https://vault.example.com
//	`
//
//	cfg, err := config.LoadConfig(strings.NewReader(yamlData))
//	if err != nil {
//		panic(err)
//	}
//
//	fmt.Printf("Bookkeeping table: %s\n", cfg.Table)
func LoadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal migrator config")
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadConfigFile loads a project configuration from the specified file path.
// This is a convenience function that opens the file and calls LoadConfig.
//
// Example:
//
//	cfg, err := config.LoadConfigFile("migrator.yaml")
//	if err != nil {
//		log.Fatal("Failed to load config:", err)
//	}
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file: %s", path)
	}
	defer func() { _ = f.Close() }()

	return LoadConfig(f)
}

// LoadOrDefault loads the configuration file at path, or returns Defaults when
// the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Defaults(), nil
	}

	return LoadConfigFile(path)
}

// PipelineDir resolves a pipeline name to its migration directory.
//
// Explicitly mapped pipelines take precedence, otherwise the pipeline is the
// subdirectory of Migrations with the same name. The result uses forward slashes
// since it is recorded as the base directory of every migration it applies.
//
// Returns ErrUnknownPipeline for empty names and names that are not a single
// directory name.
//
// Example:
//
//	dir, err := cfg.PipelineDir("core")
//	// dir == "db/migrations/core"
func (c *Config) PipelineDir(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.Wrap(ErrUnknownPipeline, "pipeline name is required")
	}

	if dir, ok := c.Pipelines[name]; ok {
		return path.Clean(filepath.ToSlash(dir)), nil
	}

	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", errors.Wrapf(ErrUnknownPipeline, "%q", name)
	}

	return path.Join(filepath.ToSlash(c.Migrations), name), nil
}

// ListPipelines returns the names of all pipelines: the explicitly mapped ones
// and every subdirectory of Migrations. A missing Migrations directory yields
// only the mapped pipelines.
func (c *Config) ListPipelines() ([]string, error) {
	names := make([]string, 0, len(c.Pipelines))
	for name := range c.Pipelines {
		names = append(names, name)
	}

	entries, err := os.ReadDir(filepath.FromSlash(c.Migrations))
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "failed to read migrations directory: %s", c.Migrations)
	}

	for _, entry := range entries {
		if entry.IsDir() && !slices.Contains(names, entry.Name()) {
			names = append(names, entry.Name())
		}
	}

	slices.Sort(names)
	return names, nil
}

func (c *Config) applyDefaults() {
	if c.Migrations == "" {
		c.Migrations = consts.DefaultMigrationsDir
	}
	if c.Table == "" {
		c.Table = consts.DefaultTable
	}
	if c.Vault.Address == "" {
		c.Vault.Address = consts.DefaultVaultAddress
	}
	if c.Vault.Backend == "" {
		c.Vault.Backend = consts.DefaultVaultBackend
	}
	if c.Vault.Path == "" {
		c.Vault.Path = consts.DefaultVaultPath
	}
}
