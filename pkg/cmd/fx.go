package cmd

import "go.uber.org/fx"

var Module = fx.Module("cli",
	fx.Provide(
		func() SecretsOpener { return openVault },
		fx.Annotate(migrate, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(status, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(newCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(pipelines, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(sandbox, fx.ResultTags(`group:"commands"`)),
	),
	fx.Invoke(Run),
)
