package main

import (
	"fmt"

	"chain_reader/internal/app/port"
	"chain_reader/internal/app/service"
	"chain_reader/internal/infrastructure/cache"
	"chain_reader/internal/infrastructure/configloader"
	"chain_reader/internal/infrastructure/httpclient"
	clientprovider "chain_reader/internal/infrastructure/network/client"
	networkdefinition "chain_reader/internal/infrastructure/network/definition"
	"chain_reader/internal/pkg/logger"
	"chain_reader/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const metricsNamespace = "chain_reader"

// application holds the wired components shared by every command.
type application struct {
	cfg      *configloader.Config
	zap      *zap.Logger
	registry *prometheus.Registry
	networks *networkdefinition.NetworkDefinitionProvider
	queue    *service.MetadataQueue
	reader   *service.ReaderServiceImpl
}

func newApplication(cmd *cobra.Command) (*application, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := configloader.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := configloader.ApplyFlags(cfg, cmd.Flags()); err != nil {
		return nil, err
	}

	zapLogger, err := logger.NewZap(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}
	logger.InitWithZap(zapLogger)
	appLogger := logger.NewSlogAdapter()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry, metricsNamespace)

	networks, err := networkdefinition.NewNetworkDefinitionProvider(appLogger, networkdefinition.Options{
		Active:          cfg.Networks.Active,
		Overrides:       cfg.Networks.Overrides,
		PlatformMapping: cfg.CoinGecko.AssetPlatformMapping,
	})
	if err != nil {
		_ = zapLogger.Sync()
		return nil, err
	}

	aggregators := clientprovider.NewAggregatorProvider(clientprovider.Options{
		ConnectionTimeout: configloader.Seconds(cfg.Aggregator.ConnectionTimeoutSeconds),
		RPCCallTimeout:    configloader.Seconds(cfg.Performance.RPCCallTimeoutSeconds),
		MaxRetries:        cfg.Aggregator.Retries(),
		RetryDelay:        configloader.Millis(cfg.Aggregator.RetryDelayMs),
		VerifyChainID:     cfg.Aggregator.VerifyChainID,
	}, zapLogger, m)

	a := &application{cfg: cfg, zap: zapLogger, registry: registry, networks: networks}

	var enricher port.MetadataEnricher
	if !cfg.MetadataQueue.Disabled {
		fetcher := httpclient.NewCoinGeckoClient(
			cfg.CoinGecko.BaseURL,
			cfg.CoinGecko.APIKey,
			configloader.Seconds(cfg.CoinGecko.ClientTimeoutSeconds),
			zapLogger,
			m,
		)
		a.queue = service.NewMetadataQueue(
			fetcher,
			cache.NewMetadataCache(configloader.Seconds(cfg.MetadataQueue.NegativeCacheTTLSeconds)),
			networks.PlatformTable(),
			service.MetadataQueueOptions{
				RequestInterval:  configloader.Millis(cfg.MetadataQueue.RequestIntervalMs),
				RateLimitBackoff: configloader.Millis(cfg.MetadataQueue.RateLimitBackoffMs),
				MaxBackoff:       configloader.Millis(cfg.MetadataQueue.MaxBackoffMs),
				FetchTimeout:     configloader.Millis(cfg.MetadataQueue.FetchTimeoutMs),
			},
			appLogger,
			m,
		)
		enricher = a.queue
	} else {
		zapLogger.Info("Metadata enrichment disabled")
	}

	a.reader = service.NewReaderService(networks, aggregators, enricher, service.ReaderOptions{
		MaxCallsPerBatch:      cfg.Aggregator.MaxCallsPerBatch,
		MaxConcurrentRoutines: cfg.Performance.MaxConcurrentRoutines,
	}, appLogger, m)

	zapLogger.Info("Application initialized",
		zap.Int("networks", len(networks.GetAllNetworkDefinitions())),
		zap.Bool("metadata", a.queue != nil),
		zap.Int("max_calls_per_batch", cfg.Aggregator.MaxCallsPerBatch))
	return a, nil
}

// enricher returns the metadata queue as an interface, nil when disabled.
func (a *application) enricher() port.MetadataEnricher {
	if a.queue == nil {
		return nil
	}
	return a.queue
}

func (a *application) Close() {
	if a.queue != nil {
		a.queue.Close()
	}
	_ = a.zap.Sync()
}
