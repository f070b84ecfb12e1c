package apptoken

import "go.uber.org/fx"

var Module = fx.Module("apptoken",
	fx.Provide(NewIssuer),
)
