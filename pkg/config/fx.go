package config

import "go.uber.org/fx"

// Loader loads the project configuration from a path. Commands call it once the
// global --dir flag has moved the process into the project directory.
type Loader func(path string) (*Config, error)

var Module = fx.Module("config", fx.Provide(
	func() Loader {
		return LoadOrDefault
	},
))
