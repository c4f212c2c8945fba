package catalog

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"github.com/Skotchmaster/hat_shop/internal/models"
)

//go:embed seed/*.json
var seedFS embed.FS

// Source supplies the raw catalog. Products come back in catalog order.
type Source interface {
	Products(ctx context.Context) ([]models.Product, error)
	Collections(ctx context.Context) ([]models.Collection, error)
}

// StaticSource serves a fixed catalog held in memory.
type StaticSource struct {
	products    []models.Product
	collections []models.Collection
}

func NewStaticSource(products []models.Product, collections []models.Collection) *StaticSource {
	return &StaticSource{
		products:    slices.Clone(products),
		collections: slices.Clone(collections),
	}
}

// LoadSeed builds a StaticSource from the catalog bundled with the binary.
func LoadSeed() (*StaticSource, error) {
	var products []models.Product
	if err := readSeed("seed/products.json", &products); err != nil {
		return nil, err
	}
	var collections []models.Collection
	if err := readSeed("seed/collections.json", &collections); err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Position = i
	}
	for i := range collections {
		collections[i].Position = i
	}
	return NewStaticSource(products, collections), nil
}

func readSeed(name string, dst any) error {
	raw, err := seedFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *StaticSource) Products(ctx context.Context) ([]models.Product, error) {
	return slices.Clone(s.products), nil
}

func (s *StaticSource) Collections(ctx context.Context) ([]models.Collection, error) {
	return slices.Clone(s.collections), nil
}

// GormSource reads the catalog from the products and collections tables.
type GormSource struct {
	DB *gorm.DB
}

func (r *GormSource) Products(ctx context.Context) ([]models.Product, error) {
	var items []models.Product
	if err := r.DB.WithContext(ctx).Order("position ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormSource) Collections(ctx context.Context) ([]models.Collection, error) {
	var items []models.Collection
	if err := r.DB.WithContext(ctx).Order("position ASC").Order("slug ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// SeedIfEmpty copies src into the database when the products table is empty.
// It reports whether anything was written.
func SeedIfEmpty(ctx context.Context, db *gorm.DB, src Source) (bool, error) {
	var total int64
	if err := db.WithContext(ctx).Model(&models.Product{}).Count(&total).Error; err != nil {
		return false, err
	}
	if total > 0 {
		return false, nil
	}

	products, err := src.Products(ctx)
	if err != nil {
		return false, err
	}
	collections, err := src.Collections(ctx)
	if err != nil {
		return false, err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(collections) > 0 {
			if err := tx.CreateInBatches(collections, 100).Error; err != nil {
				return err
			}
		}
		if len(products) > 0 {
			if err := tx.CreateInBatches(products, 100).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("seed catalog: %w", err)
	}
	return true, nil
}
