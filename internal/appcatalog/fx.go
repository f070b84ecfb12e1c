package appcatalog

import (
	"context"

	"github.com/terralink/portal/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("appcatalog",
	fx.Provide(provideCatalog),
)

func provideCatalog(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*Catalog, error) {
	catalog, err := New(cfg.AppCatalogFile, log)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return catalog.Watch()
		},
		OnStop: func(context.Context) error {
			return catalog.Close()
		},
	})
	return catalog, nil
}
