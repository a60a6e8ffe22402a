package api

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"infinite-experiment/reconboard/internal/auth"
	"infinite-experiment/reconboard/internal/common"
	"infinite-experiment/reconboard/internal/config"
	"infinite-experiment/reconboard/internal/db"
	"infinite-experiment/reconboard/internal/db/repositories"
	"infinite-experiment/reconboard/internal/decoder"
	"infinite-experiment/reconboard/internal/logging"
	"infinite-experiment/reconboard/internal/metrics"
	"infinite-experiment/reconboard/internal/models/entities"
	"infinite-experiment/reconboard/internal/providers"
	"infinite-experiment/reconboard/internal/services"
	"infinite-experiment/reconboard/internal/workers"
)

// RunHistory is the read side of the run ledger.
type RunHistory interface {
	RecentRuns(ctx context.Context, reconciliationID string, limit int) ([]entities.RunLedgerEntry, error)
	StatusCounts(ctx context.Context, reconciliationID string) (map[string]int64, error)
	Ping(ctx context.Context) error
}

// PollControl is the part of the workers container the handlers drive.
type PollControl interface {
	EnsurePolling() bool
	SetAutoRefresh(enabled bool) bool
	PollerStatus() entities.PollerStatus
}

type Services struct {
	Fields     services.FieldSource
	Mappings   *services.MappingStore
	Runs       *services.RunOrchestrator
	Pairings   *services.PairingRegistry
	Previews   *services.PreviewCache
	Advisories *services.AdvisoryBoard
}

type Dependencies struct {
	Services    *Services
	History     RunHistory
	Polling     PollControl
	DecoderOpts decoder.Options

	// Optional infrastructure, nil when disabled.
	Cache  common.CacheInterface
	Redis  *redis.Client
	Events *common.RedisRunEventPublisher
	Ledger *sqlx.DB

	workers *workers.WorkersContainer
}

// InitDependencies wires the backend client, caches, ledger, services and
// background workers from cfg. ctx bounds the lifetime of the workers.
func InitDependencies(ctx context.Context, cfg *config.Config, m *metrics.MetricsRegistry) (*Dependencies, error) {
	provider := providers.NewPlaygroundAPIProvider(cfg.Backend.BaseURL, credentialsFor(cfg.Backend), cfg.Backend.Timeout)

	deps := &Dependencies{
		DecoderOpts: decoder.Options{MaxRows: cfg.Preview.MaxRows},
	}

	var events common.RunEventPublisher = common.NopRunEventPublisher{}
	if cfg.Redis.Enabled {
		deps.Redis = common.NewRedisClient(cfg.Redis)
		deps.Cache = common.NewRedisCacheService(deps.Redis)
		deps.Events = common.NewRedisRunEventPublisher(deps.Redis, cfg.Redis.Stream)
		events = deps.Events
	} else {
		deps.Cache = common.NewCacheService(cfg.Preview.BlobCacheTTL, 2*cfg.Preview.BlobCacheTTL)
	}

	runOpts := []services.RunOrchestratorOption{
		services.WithRunEvents(events),
		services.WithRunMetrics(m),
	}
	if cfg.Database.Enabled {
		orm, err := db.InitORM(cfg.Database)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.InitSQLX(cfg.Database, orm)
		if err != nil {
			return nil, err
		}
		ledger := repositories.NewRunLedgerRepository(orm, sqlDB)
		deps.Ledger = sqlDB
		deps.History = ledger
		runOpts = append(runOpts, services.WithRunRecorder(ledger))
	}

	mappings := services.NewMappingStore(provider)
	runs := services.NewRunOrchestrator(provider, runOpts...)
	fetcher := services.NewCachedSampleFetcher(provider, deps.Cache, cfg.Preview.BlobCacheTTL, m)

	deps.Services = &Services{
		Fields:     provider,
		Mappings:   mappings,
		Runs:       runs,
		Pairings:   services.NewPairingRegistry(provider, mappings),
		Previews:   services.NewPreviewCache(fetcher, deps.DecoderOpts, m),
		Advisories: services.NewAdvisoryBoard(cfg.Advisory.SuccessTTL),
	}

	deps.workers = workers.InitWorkers(ctx, runs, cfg.Polling, m)
	deps.Polling = deps.workers

	logging.Info("Dependencies initialized",
		"backend", cfg.Backend.BaseURL,
		"redis", cfg.Redis.Enabled,
		"ledger", cfg.Database.Enabled,
	)
	return deps, nil
}

// credentialsFor forwards the caller's bearer and falls back to a static
// token or, failing that, a signed service token.
func credentialsFor(cfg config.BackendConfig) auth.CredentialSource {
	var fallback auth.CredentialSource
	switch {
	case cfg.Token != "":
		fallback = auth.StaticCredentials(cfg.Token)
	case cfg.SigningKey != "":
		fallback = auth.NewServiceTokenSigner([]byte(cfg.SigningKey), "reconboard", cfg.TokenTTL)
	}
	return auth.RequestCredentials{Fallback: fallback}
}

// Close stops the workers and releases every connection.
func (d *Dependencies) Close() error {
	if d.workers != nil {
		d.workers.Shutdown()
	}
	var errs []error
	if d.Services != nil {
		d.Services.Previews.CloseAll()
		d.Services.Advisories.Stop()
	}
	if d.Cache != nil {
		errs = append(errs, d.Cache.Close())
	}
	if d.Ledger != nil {
		errs = append(errs, d.Ledger.Close())
	}
	return errors.Join(errs...)
}
