package cmd

import (
	"fmt"
	"log"

	"github.com/ca-srg/aisearch/internal/crawler"
	"github.com/ca-srg/aisearch/internal/platform"
	"github.com/ca-srg/aisearch/internal/randsrc"
	"github.com/ca-srg/aisearch/internal/search"
	"github.com/ca-srg/aisearch/internal/store"
)

// core bundles the components shared by the server and the one-shot commands
type core struct {
	registry  *platform.Registry
	simulator *crawler.Simulator
	service   *search.Service
}

// loadRegistry reads the platform registry file, or returns the built-in five platforms
func loadRegistry(path string) (*platform.Registry, error) {
	if path == "" {
		return platform.Default(), nil
	}
	registry, err := platform.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load platform registry: %w", err)
	}
	return registry, nil
}

func newCore(registryFile string, seed uint64, persistence *store.BestEffort, publisher search.Publisher, logger *log.Logger) (*core, error) {
	registry, err := loadRegistry(registryFile)
	if err != nil {
		return nil, err
	}

	rnd := randsrc.New(seed)
	simulator := crawler.NewSimulator(registry, rnd)

	service, err := search.NewService(search.ServiceConfig{
		Registry:    registry,
		Aggregator:  search.NewAggregator(registry, search.NewGenerator(registry, rnd), rnd),
		Simulator:   simulator,
		Persistence: persistence,
		Publisher:   publisher,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create search service: %w", err)
	}

	return &core{registry: registry, simulator: simulator, service: service}, nil
}
