package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Source supplies the catalog item set. The catalog itself never fetches;
// callers load via a Source and hand the result to Replace.
type Source interface {
	Load(ctx context.Context) ([]Item, error)
}

// FileSource reads the catalog from a JSON seed file.
type FileSource struct {
	Path string
}

// Load reads and decodes the seed file.
func (s FileSource) Load(_ context.Context) ([]Item, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read seed %s: %w", s.Path, err)
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("catalog: decode seed %s: %w", s.Path, err)
	}
	return items, nil
}

// PostgresSource reads the catalog from an externally managed table. The
// table is read-only from this service's perspective.
type PostgresSource struct {
	Pool  *pgxpool.Pool
	Table string
}

func (s PostgresSource) table() string {
	if s.Table == "" {
		return "pos_products"
	}
	return s.Table
}

// Load fetches all sellable items in display order.
func (s PostgresSource) Load(ctx context.Context) ([]Item, error) {
	if s.Pool == nil {
		return nil, fmt.Errorf("catalog: postgres source not configured")
	}
	query := fmt.Sprintf(`SELECT id, name, price, category, unit, stock, discount_pct, promo, is_new
FROM %s ORDER BY position, id`, s.table())
	rows, err := s.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: query products: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item     Item
			category string
		)
		if err := rows.Scan(&item.ID, &item.Name, &item.Price, &category, &item.Unit, &item.Stock, &item.DiscountPct, &item.Promo, &item.New); err != nil {
			return nil, fmt.Errorf("catalog: scan product: %w", err)
		}
		parsed, err := ParseCategory(category)
		if err != nil {
			return nil, fmt.Errorf("catalog: product %s: %w", item.ID, err)
		}
		item.Category = parsed
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate products: %w", err)
	}
	return items, nil
}
