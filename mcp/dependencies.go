package mcp

import (
	"context"
	"io"

	"github.com/apigovern/gatekeeper/app"
	"github.com/apigovern/gatekeeper/internal/config"
	"github.com/apigovern/gatekeeper/internal/storage"
	"github.com/apigovern/gatekeeper/service"
)

// Dependencies aggregates the shared services required by MCP handlers.
type Dependencies struct {
	svc     *service.SignatureService
	useCase *app.DedupUseCase
	cfg     *config.GatekeeperConfig
}

// NewDependencies constructs the dependency set over an existing service.
func NewDependencies(svc *service.SignatureService, cfg *config.GatekeeperConfig) *Dependencies {
	if cfg == nil {
		cfg = config.DefaultGatekeeperConfig()
	}
	return &Dependencies{
		svc:     svc,
		useCase: app.NewDedupUseCase(svc, io.Discard),
		cfg:     cfg,
	}
}

// BuildDependencies connects the signature store from configuration,
// constructs the service, and hydrates the index.
func BuildDependencies(ctx context.Context, cfg *config.GatekeeperConfig) (*Dependencies, error) {
	if cfg == nil {
		cfg = config.DefaultGatekeeperConfig()
	}

	store, err := storage.Connect(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	svc := service.NewSignatureService(store, service.SignatureServiceConfig{
		NumHashFunctions: cfg.Similarity.NumHashFunctions,
		NumBands:         cfg.Similarity.NumBands,
	})
	if err := svc.Initialize(ctx); err != nil {
		_ = svc.Shutdown()
		return nil, err
	}
	return NewDependencies(svc, cfg), nil
}

// Config exposes the loaded configuration snapshot.
func (d *Dependencies) Config() *config.GatekeeperConfig {
	return d.cfg
}

// UseCase exposes the dedup use case shared by the handlers.
func (d *Dependencies) UseCase() *app.DedupUseCase {
	return d.useCase
}

// Service exposes the underlying signature service.
func (d *Dependencies) Service() *service.SignatureService {
	return d.svc
}

// Close shuts down the underlying service and store.
func (d *Dependencies) Close() error {
	return d.svc.Shutdown()
}
