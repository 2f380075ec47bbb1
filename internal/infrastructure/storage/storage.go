// Package storage opens the catalog, property and product stores selected by configuration.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/buildledger/unitfilter/config"
	"github.com/buildledger/unitfilter/internal/domain"
	"github.com/buildledger/unitfilter/internal/infrastructure/memstore"
	"github.com/buildledger/unitfilter/internal/infrastructure/mongostore"
	"github.com/buildledger/unitfilter/internal/infrastructure/sqlstore"
	"github.com/buildledger/unitfilter/internal/platform/logger"
	"github.com/buildledger/unitfilter/internal/usecase"
)

// Stores bundles the repositories of one process
type Stores struct {
	Units      domain.UnitCatalogRepository
	Properties domain.PropertyRepository
	Products   domain.ProductRepository

	// Ephemeral is true when nothing survives a restart
	Ephemeral bool

	closers []func(context.Context) error
}

// Open connects the configured backends
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Stores, error) {
	log = logger.OrNop(log).With("component", "storage")
	s := &Stores{}

	switch cfg.Store.Type {
	case "memory":
		s.Units = memstore.NewUnitRepository()
		s.Properties = memstore.NewPropertyRepository()
	case sqlstore.DriverPostgres, sqlstore.DriverSQLite:
		db, err := sqlstore.Open(cfg.Store.Type, cfg.Store.DSN, log)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
		s.Units = sqlstore.NewUnitRepository(db, log)
		s.Properties = sqlstore.NewPropertyRepository(db, log)
		if cfg.Products.Backend == "sql" {
			s.Products = sqlstore.NewProductRepository(db, log)
		}
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedStore, cfg.Store.Type)
	}

	switch cfg.Products.Backend {
	case "memory":
		s.Products = memstore.NewProductRepository()
	case "sql":
		if s.Products == nil {
			s.Close(ctx)
			return nil, fmt.Errorf("%w: products backend 'sql' needs a SQL store", domain.ErrUnsupportedStore)
		}
	case "mongo":
		client, err := mongostore.Connect(ctx, cfg.Products.MongoURI, log)
		if err != nil {
			s.Close(ctx)
			return nil, err
		}
		s.closers = append(s.closers, client.Disconnect)
		coll := client.Database(cfg.Products.MongoDatabase).Collection(cfg.Products.MongoCollection)
		s.Products = mongostore.NewProductRepository(coll, log)
	default:
		s.Close(ctx)
		return nil, fmt.Errorf("%w: products backend %q", domain.ErrUnsupportedStore, cfg.Products.Backend)
	}

	s.Ephemeral = cfg.Store.Type == "memory" && cfg.Products.Backend == "memory"
	log.Info("stores opened",
		"store", cfg.Store.Type,
		"products", cfg.Products.Backend,
		"ephemeral", s.Ephemeral,
	)
	return s, nil
}

// Registry builds the unit registry from the stored catalog. An empty catalog
// yields the built-in unit table.
func (s *Stores) Registry(ctx context.Context) (*usecase.UnitRegistry, error) {
	units, err := s.Units.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	if len(units) == 0 {
		return usecase.DefaultUnitRegistry(), nil
	}
	return usecase.NewUnitRegistry(units...)
}

// Close releases every connection; it is safe to call more than once
func (s *Stores) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
