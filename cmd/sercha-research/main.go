// Command sercha-research answers questions over locally indexed documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/sercha-research/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-research/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-research/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-research/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-research/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-research/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-research/internal/core/services"
	"github.com/custodia-labs/sercha-research/internal/logger"
	"github.com/custodia-labs/sercha-research/internal/normalisers"
	"github.com/custodia-labs/sercha-research/internal/postprocessors"
)

// Set by the linker: -ldflags "-X main.version=v0.1.0".
var version = "dev"

func main() {
	if err := file.LoadDotEnv("."); err != nil {
		logger.Warn("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetInitializer(buildServices)

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// buildServices wires config, providers and storage into the driving ports.
func buildServices(_ context.Context, opts cli.Options) (*cli.Services, error) {
	configStore, err := openConfig(opts.Profile)
	if err != nil {
		return nil, err
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	providers := ai.Init(*settings)
	for _, w := range providers.Warnings {
		logger.Debug("%s", w)
	}

	docs, vectors, closeStore, err := openStorage(*settings)
	if err != nil {
		providers.Close()
		return nil, err
	}

	index := services.NewEvidenceIndex(providers.Embedding, vectors)
	research := services.NewResearchService(index, services.RoleLLMs{
		Default:  providers.LLM,
		Planner:  providers.Planner,
		Reasoner: providers.Reasoner,
		Reviewer: providers.Reviewer,
	}, settings.Research)

	prompts, err := file.NewPromptStore("", services.DefaultPrompts())
	if err != nil {
		logger.Warn("prompt overrides disabled: %v", err)
	} else {
		research.SetPromptStore(prompts)
	}

	registry := normalisers.Default()
	pipeline, err := postprocessors.DefaultPipeline(settings.Ingest.ChunkSize)
	if err != nil {
		providers.Close()
		_ = closeStore()
		return nil, fmt.Errorf("building chunk pipeline: %w", err)
	}
	ingest := services.NewIngestService(index, docs, registry, pipeline, settings.Ingest)
	ingest.SetDocumentIDFunc(filesystem.DocumentID)

	return &cli.Services{
		Research: research,
		Ingest:   ingest,
		Settings: settingsService,
		Watcher:  filesystem.NewWatcher(ingest, registry),
		Detector: registry,
		Close: func() error {
			providers.Close()
			return closeStore()
		},
	}, nil
}

// openConfig returns the TOML config store, layered under a YAML profile
// when one is given.
func openConfig(profile string) (driven.ConfigStore, error) {
	base, err := file.NewConfigStore("")
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	if profile == "" {
		return base, nil
	}
	store, err := file.NewProfileStore(base, profile)
	if err != nil {
		return nil, fmt.Errorf("loading profile %s: %w", profile, err)
	}
	return store, nil
}

func openStorage(settings domain.AppSettings) (driven.DocumentStore, driven.VectorStore, func() error, error) {
	switch settings.Storage {
	case domain.StorageMemory:
		vectors := memory.NewVectorStore(settings.Embedding.Dimensions)
		return memory.NewDocumentStore(), vectors, vectors.Close, nil
	case domain.StorageSQLite, "":
		store, err := sqlite.NewStore("")
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening storage: %w", err)
		}
		return store.DocumentStore(), store.VectorStore(), store.Close, nil
	default:
		return nil, nil, nil, errors.New("unknown storage backend " + string(settings.Storage))
	}
}
