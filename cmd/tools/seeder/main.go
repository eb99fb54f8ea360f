package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/noah-isme/toko-pos/internal/catalog"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	out := flag.String("out", "seed/catalog.json", "path for the JSON catalog seed")
	flag.Parse()

	items := demoItems()

	if err := writeSeedFile(*out, items); err != nil {
		log.Fatalf("Failed to write seed file: %v", err)
	}
	log.Printf("Wrote %d items to %s", len(items), *out)

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		if err := seedDatabase(dbURL, items); err != nil {
			log.Fatalf("Failed to seed database: %v", err)
		}
		log.Println("Database seeding completed successfully!")
	}
}

func writeSeedFile(path string, items []catalog.Item) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func seedDatabase(dbURL string, items []catalog.Item) error {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS pos_products (
			id           text PRIMARY KEY,
			name         text NOT NULL,
			price        bigint NOT NULL,
			category     text NOT NULL,
			unit         text NOT NULL DEFAULT '',
			stock        integer NOT NULL DEFAULT 0,
			discount_pct integer NOT NULL DEFAULT 0,
			promo        boolean NOT NULL DEFAULT false,
			is_new       boolean NOT NULL DEFAULT false,
			position     integer NOT NULL DEFAULT 0
		);
	`)
	if err != nil {
		return err
	}

	log.Println("Seeding products...")
	for i, item := range items {
		_, err := pool.Exec(ctx, `
			INSERT INTO pos_products (id, name, price, category, unit, stock, discount_pct, promo, is_new, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				price = EXCLUDED.price,
				category = EXCLUDED.category,
				unit = EXCLUDED.unit,
				stock = EXCLUDED.stock,
				discount_pct = EXCLUDED.discount_pct,
				promo = EXCLUDED.promo,
				is_new = EXCLUDED.is_new,
				position = EXCLUDED.position;
		`, item.ID, item.Name, item.Price, string(item.Category), item.Unit, item.Stock, item.DiscountPct, item.Promo, item.New, i)
		if err != nil {
			log.Printf("Failed to upsert product %s: %v", item.ID, err)
		}
	}
	return nil
}

func demoItems() []catalog.Item {
	return []catalog.Item{
		{ID: "p01", Name: "Gala Apple", Price: 349, Category: catalog.CategoryFruits, Unit: "kg", Stock: 24},
		{ID: "p02", Name: "Cavendish Banana", Price: 199, Category: catalog.CategoryFruits, Unit: "kg", Stock: 40, Promo: true, DiscountPct: 15},
		{ID: "p03", Name: "Navel Orange", Price: 429, Category: catalog.CategoryFruits, Unit: "kg", Stock: 18},
		{ID: "p04", Name: "Strawberries 250g", Price: 599, Category: catalog.CategoryFruits, Unit: "pack", Stock: 0},
		{ID: "p05", Name: "Roma Tomato", Price: 259, Category: catalog.CategoryVegetables, Unit: "kg", Stock: 30},
		{ID: "p06", Name: "Baby Spinach 200g", Price: 319, Category: catalog.CategoryVegetables, Unit: "pack", Stock: 12, New: true},
		{ID: "p07", Name: "Yellow Onion", Price: 149, Category: catalog.CategoryVegetables, Unit: "kg", Stock: 50},
		{ID: "p08", Name: "Whole Milk 1L", Price: 189, Category: catalog.CategoryDairy, Unit: "l", Stock: 36},
		{ID: "p09", Name: "Greek Yogurt 500g", Price: 449, Category: catalog.CategoryDairy, Unit: "pc", Stock: 14, Promo: true, DiscountPct: 10},
		{ID: "p10", Name: "Cheddar Block 400g", Price: 689, Category: catalog.CategoryDairy, Unit: "pc", Stock: 9},
		{ID: "p11", Name: "Apple Juice 1L", Price: 250, Category: catalog.CategoryBeverages, Unit: "l", Stock: 22},
		{ID: "p12", Name: "Sparkling Water 6-pack", Price: 479, Category: catalog.CategoryBeverages, Unit: "pack", Stock: 16},
		{ID: "p13", Name: "Cold Brew Coffee 330ml", Price: 379, Category: catalog.CategoryBeverages, Unit: "pc", Stock: 0, New: true},
		{ID: "p14", Name: "Sourdough Loaf", Price: 520, Category: catalog.CategoryBakery, Unit: "pc", Stock: 11, Promo: true, DiscountPct: 10},
		{ID: "p15", Name: "Butter Croissant", Price: 280, Category: catalog.CategoryBakery, Unit: "pc", Stock: 25},
		{ID: "p16", Name: "Sea Salt Crisps 150g", Price: 239, Category: catalog.CategorySnacks, Unit: "pack", Stock: 48},
		{ID: "p17", Name: "Dark Chocolate Bar", Price: 329, Category: catalog.CategorySnacks, Unit: "pc", Stock: 32, New: true},
		{ID: "p18", Name: "Chicken Breast", Price: 899, Category: catalog.CategoryMeat, Unit: "kg", Stock: 15},
		{ID: "p19", Name: "Ground Beef", Price: 1099, Category: catalog.CategoryMeat, Unit: "kg", Stock: 8},
		{ID: "p20", Name: "Smoked Bacon 200g", Price: 549, Category: catalog.CategoryMeat, Unit: "pack", Stock: 0, Promo: true, DiscountPct: 20},
	}
}
