package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buildledger/unitfilter/config"
	httpDelivery "github.com/buildledger/unitfilter/internal/delivery/http"
	"github.com/buildledger/unitfilter/internal/domain"
	"github.com/buildledger/unitfilter/internal/infrastructure/cache"
	"github.com/buildledger/unitfilter/internal/infrastructure/seed"
	"github.com/buildledger/unitfilter/internal/infrastructure/storage"
	"github.com/buildledger/unitfilter/internal/platform/logger"
	"github.com/buildledger/unitfilter/internal/usecase"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	log.Info("starting unitfilter",
		"version", version,
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"store", cfg.Store.Type,
		"products", cfg.Products.Backend,
		"cache", cfg.Cache.Type,
	)

	// Initialize infrastructure dependencies
	stores, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.Close(context.Background())

	var seedFile *seed.File
	if stores.Ephemeral && cfg.Seed.File != "" {
		seedFile, err = seed.Load(cfg.Seed.File)
		if err != nil {
			return err
		}
		// Units first: the registry and the normalizer depend on them
		if _, err := seed.Apply(ctx, seedFile, seed.Targets{Units: stores.Units, Properties: stores.Properties}, log); err != nil {
			return err
		}
	}

	registry, err := stores.Registry(ctx)
	if err != nil {
		return err
	}

	metadataCache, closeCache, err := openCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	// Initialize usecase layer
	conversion := usecase.NewConversionService(registry, cfg.Query.Tolerance)
	metadata := usecase.NewPropertyMetadataService(
		stores.Properties,
		metadataCache,
		registry,
		log,
		usecase.PropertyMetadataConfig{CacheTTL: cfg.Cache.TTL},
	)
	builder := usecase.NewPropertyQueryBuilder(metadata, conversion, log, usecase.QueryBuilderConfig{
		Layout: usecase.Layout{
			PropertiesField: cfg.Query.PropertiesField,
			VariantsField:   cfg.Query.VariantsField,
			NormalizedField: cfg.Query.NormalizedField,
		},
		LookupConcurrency: cfg.Query.LookupConcurrency,
	})
	normalizer := usecase.NewDocumentNormalizer(conversion, builder.Layout())
	search := usecase.NewProductSearchService(builder, stores.Products, log).WithNormalizer(normalizer)

	if seedFile != nil {
		if _, err := seed.Apply(ctx, seedFile, seed.Targets{Products: stores.Products, Normalize: normalizer.Normalize}, log); err != nil {
			return err
		}
	}

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(httpDelivery.Dependencies{
		Conversion: conversion,
		Parser:     usecase.NewQuantityParser(registry),
		Metadata:   metadata,
		Search:     search,
		Renderers:  httpDelivery.DefaultRenderers(),
		Logger:     log,
		Version:    version,
	})

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, log)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// openCache returns the property metadata cache selected by cfg and its closer
func openCache(ctx context.Context, cfg *config.Config, log *logger.Logger) (domain.CacheRepository, func(), error) {
	switch cfg.Cache.Type {
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cfg.Cache.RedisURL, cfg.Cache.KeyPrefix, log)
		if err != nil {
			return nil, nil, err
		}
		return rc, func() { _ = rc.Close() }, nil
	default:
		mc := cache.NewMemoryCache(0)
		return mc, func() { _ = mc.Close() }, nil
	}
}
