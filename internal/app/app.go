package app

import (
	"fmt"

	"object-denormalizer/internal/brokers"
	"object-denormalizer/internal/cache"
	"object-denormalizer/internal/cache/stores"
	"object-denormalizer/internal/common/logging"
	"object-denormalizer/internal/config"
	"object-denormalizer/internal/content"
	"object-denormalizer/internal/denormalization"
	"object-denormalizer/internal/metrics"
	"object-denormalizer/internal/search"
	"object-denormalizer/internal/strategy"
)

// App holds all the application dependencies
type App struct {
	Config     *config.Config
	Store      cache.Store
	Broker     brokers.Broker
	Search     *search.Client
	Metrics    *metrics.JobMetrics
	Strategies *strategy.Registry
	Service    *denormalization.Service
	Sink       *denormalization.BrokerSink
	Logger     logging.Logger
}

// New creates a new application instance with all dependencies. Anything
// opened before a failing step is closed again.
func New(cfg *config.Config) (_ *App, err error) {
	app := &App{
		Config: cfg,
		Logger: logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "app"}),
	}
	defer func() {
		if err != nil {
			app.Cleanup()
		}
	}()

	if err := app.initializeStore(); err != nil {
		return nil, err
	}

	if app.Metrics, err = metrics.New(nil); err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	if err := app.initializeDenormalization(); err != nil {
		return nil, err
	}

	if err := app.initializeBroker(); err != nil {
		return nil, err
	}

	app.Sink = denormalization.NewBrokerSink(app.Broker, cfg.Topics(), app.Metrics, app.Logger)
	return app, nil
}

func (app *App) initializeStore() error {
	storeConfig := app.Config.StoreConfig()

	store, err := stores.New(storeConfig)
	if err != nil {
		return fmt.Errorf("failed to open %s cache store: %w", storeConfig.Type, err)
	}
	app.Store = store

	app.Logger.Info("Cache store initialized", logging.Field{Key: "type", Value: storeConfig.Type})
	return nil
}

func (app *App) initializeDenormalization() error {
	client, err := search.NewClient(app.Config.SearchServiceEndpoint, app.Logger,
		search.WithTimeout(app.Config.SearchServiceTimeout))
	if err != nil {
		return err
	}
	app.Search = client

	var opts []cache.Option
	if app.Config.CacheKeyPrefix != "" {
		opts = append(opts, cache.WithKeyPrefix(app.Config.CacheKeyPrefix+content.KeyPrefix))
	}
	contents := content.NewService(app.Store, client, app.Metrics, app.Config.ContentCacheTTL, app.Logger, opts...)

	registry, err := strategy.NewRegistry(strategy.Default(contents))
	if err != nil {
		return fmt.Errorf("failed to build strategy registry: %w", err)
	}
	app.Strategies = registry
	app.Service = denormalization.NewService(registry, app.Logger)

	app.Logger.Info("Denormalization initialized",
		logging.Field{Key: "strategies", Value: registry.Types()},
		logging.Field{Key: "content_ttl", Value: app.Config.ContentCacheTTL},
	)
	return nil
}

func (app *App) initializeBroker() error {
	brokerConfig, err := app.Config.BrokerConfig()
	if err != nil {
		return err
	}

	broker, err := NewBrokerRegistry().Create(app.Config.BrokerType, brokerConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to %s broker: %w", app.Config.BrokerType, err)
	}
	app.Broker = broker

	app.Logger.Info("Broker connected",
		logging.Field{Key: "type", Value: app.Config.BrokerType},
		logging.Field{Key: "connection", Value: brokerConfig.GetConnectionString()},
	)
	return nil
}

// Handler returns the subscription handler for the input topic
func (app *App) Handler() brokers.MessageHandler {
	return denormalization.NewMessageHandler(app.Service, app.Sink)
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.Broker != nil {
		if err := app.Broker.Close(); err != nil {
			app.Logger.Warn("Error closing broker", logging.Field{Key: "error", Value: err})
		}
	}
	if app.Store != nil {
		if err := app.Store.Close(); err != nil {
			app.Logger.Warn("Error closing cache store", logging.Field{Key: "error", Value: err})
		}
	}
}
