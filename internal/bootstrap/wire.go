//go:build wireinject

package bootstrap

import (
	"context"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideConfig,
	ProvideRedisClient,
	ProvideCacheStore,
	ProvidePriceFetcher,
	ProvideCache,
	ProvideHistory,
)

var appSet = wire.NewSet(
	ProvideScheduler,
	ProvideJanitor,
	ProvideServer,
	ProvideApp,
)

// InitApp builds the tracker process and its aggregated cleanup.
func InitApp(ctx context.Context) (*App, func(), error) {
	wire.Build(infraSet, appSet)
	return nil, nil, nil
}
