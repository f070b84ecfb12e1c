package domainlist

import "go.uber.org/fx"

var Module = fx.Module("domainlist",
	fx.Provide(New),
)
