package injector

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zeusync/entityundo/internal/config"
	"github.com/zeusync/entityundo/internal/core/assets"
	"github.com/zeusync/entityundo/internal/core/components"
	"github.com/zeusync/entityundo/internal/core/entitycontext"
	"github.com/zeusync/entityundo/internal/core/events/bus"
	"github.com/zeusync/entityundo/internal/core/observability/log"
	"github.com/zeusync/entityundo/internal/core/registry"
	"github.com/zeusync/entityundo/internal/core/selection"
	"github.com/zeusync/entityundo/internal/core/serialization"
	"github.com/zeusync/entityundo/internal/core/slice"
	"github.com/zeusync/entityundo/internal/core/snapshotcache"
	"github.com/zeusync/entityundo/internal/core/undo"
)

// SessionSet provides every collaborator of an editor session.
var SessionSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideEventBus,
	ProvideRegistry,
	ProvideAssets,
	ProvideSliceRoot,
	ProvideContexts,
	ProvideSelection,
	ProvideTypeRegistry,
	ProvideSerializer,
	ProvideCacheMetrics,
	ProvideCache,
	ProvideHistory,
)

func ProvideLogger(cfg *config.Config) (*log.Logger, func()) {
	logger := log.New(cfg.Level())
	return logger, func() { _ = logger.Sync() }
}

func ProvideEventBus() bus.EventBus {
	return bus.New()
}

func ProvideRegistry(events bus.EventBus, logger log.Log) *registry.Registry {
	return registry.New(events, logger)
}

func ProvideAssets(logger log.Log) *assets.Manager {
	return assets.NewManager(logger)
}

func ProvideSliceRoot(mgr *assets.Manager, logger log.Log) *slice.Root {
	return slice.NewRoot(mgr, logger)
}

func ProvideContexts(reg *registry.Registry, root *slice.Root, events bus.EventBus, logger log.Log) (*entitycontext.Manager, error) {
	return entitycontext.NewManager(reg, root, events, logger)
}

func ProvideSelection(events bus.EventBus) (*selection.Service, error) {
	return selection.New(events)
}

// ProvideTypeRegistry registers the stock components.
func ProvideTypeRegistry() (*serialization.TypeRegistry, error) {
	types := serialization.NewTypeRegistry()
	if err := components.Register(types); err != nil {
		return nil, err
	}
	return types, nil
}

func ProvideSerializer(types *serialization.TypeRegistry, mgr *assets.Manager) (*serialization.CBORSerializer, error) {
	return serialization.NewCBORSerializer(types, mgr)
}

// ProvideCacheMetrics returns nil when cache metrics are disabled.
func ProvideCacheMetrics(cfg *config.Config, reg prometheus.Registerer) *snapshotcache.Metrics {
	if !cfg.Cache.Metrics || reg == nil {
		return nil
	}
	return snapshotcache.NewMetrics(reg)
}

func ProvideCache(ser *serialization.CBORSerializer, reg *registry.Registry, metrics *snapshotcache.Metrics, logger log.Log) *snapshotcache.Cache {
	return snapshotcache.New(ser, reg, metrics, logger)
}

func ProvideHistory(cfg *config.Config, logger log.Log) *undo.Stack {
	return undo.New(cfg.Undo.Limit, logger)
}
