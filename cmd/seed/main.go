package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/buildledger/unitfilter/config"
	"github.com/buildledger/unitfilter/internal/infrastructure/seed"
	"github.com/buildledger/unitfilter/internal/infrastructure/storage"
	"github.com/buildledger/unitfilter/internal/platform/logger"
	"github.com/buildledger/unitfilter/internal/usecase"
)

func main() {
	var file string
	var dryRun, skipProducts bool
	flag.StringVar(&file, "file", "", "seed YAML file (defaults to seed.file from config)")
	flag.BoolVar(&dryRun, "dry-run", false, "validate the file without writing")
	flag.BoolVar(&skipProducts, "skip-products", false, "load units and properties only")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("load config: %v\n", err)
		os.Exit(1)
	}
	if file == "" {
		file = cfg.Seed.File
	}
	if file == "" {
		fmt.Println("no seed file given; pass -file or set UNITFILTER_SEED_FILE")
		os.Exit(2)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	seedFile, err := seed.Load(file)
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
	if len(seedFile.Units) > 0 {
		if _, err := usecase.NewUnitRegistry(seedFile.Units...); err != nil {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}
	}
	if dryRun {
		fmt.Printf("%s: %d units, %d properties, %d products\n",
			file, len(seedFile.Units), len(seedFile.Properties), len(seedFile.Products))
		return
	}

	ctx := context.Background()
	stores, err := storage.Open(ctx, cfg, log)
	if err != nil {
		fmt.Printf("open stores: %v\n", err)
		os.Exit(1)
	}
	defer stores.Close(ctx)
	if stores.Ephemeral {
		log.Warn("stores are in-memory; the seed is lost when this command exits")
	}

	if _, err := seed.Apply(ctx, seedFile, seed.Targets{Units: stores.Units, Properties: stores.Properties}, log); err != nil {
		fmt.Printf("seed catalog: %v\n", err)
		os.Exit(1)
	}
	if skipProducts {
		return
	}

	registry, err := stores.Registry(ctx)
	if err != nil {
		fmt.Printf("build unit registry: %v\n", err)
		os.Exit(1)
	}
	conversion := usecase.NewConversionService(registry, cfg.Query.Tolerance)
	normalizer := usecase.NewDocumentNormalizer(conversion, usecase.Layout{
		PropertiesField: cfg.Query.PropertiesField,
		VariantsField:   cfg.Query.VariantsField,
		NormalizedField: cfg.Query.NormalizedField,
	})

	res, err := seed.Apply(ctx, seedFile, seed.Targets{Products: stores.Products, Normalize: normalizer.Normalize}, log)
	if err != nil {
		fmt.Printf("seed products: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded %d products (%d normalized values)\n", res.Products, res.Normalized)
}
