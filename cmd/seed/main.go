// Command seed loads a handful of sample products into an empty catalog.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/mernshop/storefront/pkg/global"
	"github.com/mernshop/storefront/pkg/models"
	"github.com/mernshop/storefront/pkg/mongo"
)

var sampleProducts = []*models.Product{
	{Title: "Stoneware Mug", Description: "12oz mug, dishwasher safe", Price: 14.5, Category: "kitchen", Images: []string{"https://picsum.photos/seed/mug/600/600"}},
	{Title: "Pour-Over Kettle", Description: "Gooseneck kettle, 1L", Price: 42, Category: "kitchen", Images: []string{"https://picsum.photos/seed/kettle/600/600"}},
	{Title: "Linen Apron", Description: "Adjustable straps, two pockets", Price: 28, Category: "kitchen"},
	{Title: "Desk Lamp", Description: "Dimmable LED, warm white", Price: 39.99, Category: "office", Images: []string{"https://picsum.photos/seed/lamp/600/600"}},
	{Title: "Notebook A5", Description: "Dot grid, 160 pages", Price: 9.5, Category: "office"},
	{Title: "Fountain Pen", Description: "Fine nib, converter included", Price: 24, Category: "office"},
	{Title: "Canvas Tote", Description: "Heavy cotton canvas", Price: 18, Category: "accessories"},
	{Title: "Wool Beanie", Description: "Merino wool, one size", Price: 22, Category: "accessories"},
	{Title: "Water Bottle", Description: "Insulated steel, 750ml", Price: 26, Stock: 40},
	{Title: "Gift Card", Description: "Redeemable on any order", Price: 50},
}

func main() {
	force, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg, err := global.Load()
	if err != nil {
		bootstrap := global.NewLogger(os.Stderr, "development", "info")
		bootstrap.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := global.NewLogger(os.Stderr, cfg.Env, cfg.LogLevel)
	if err := run(cfg, logger, force); err != nil {
		logger.Fatal().Err(err).Msg("seed failed")
	}
}

// parseFlags reports whether -force was given.
func parseFlags(args []string) (bool, error) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	force := fs.Bool("force", false, "insert the sample products even if the catalog is not empty")
	if err := fs.Parse(args); err != nil {
		return false, err
	}
	return *force, nil
}

func run(cfg *global.Config, logger zerolog.Logger, force bool) error {
	ctx, cancel := global.GetDefaultTimer()
	defer cancel()
	ctx = logger.WithContext(ctx)

	store, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.Error().Err(err).Msg("close mongo")
		}
	}()

	if err := store.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	_, total, err := store.ListProducts(ctx, models.ProductFilter{}, 0, 1)
	if err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if total > 0 && !force {
		logger.Info().Int64("existing", total).Msg("catalog is not empty, nothing to do (pass -force to add anyway)")
		return nil
	}

	inserted, err := store.InsertProducts(ctx, sampleProducts)
	if err != nil {
		return fmt.Errorf("insert products: %w", err)
	}
	logger.Info().Int("inserted", len(inserted)).Msg("seeded sample products")
	return nil
}
