// Package search finds catalog products by free text.
package search

import (
	"context"
	"strings"

	"github.com/Skotchmaster/hat_shop/internal/models"
	"github.com/Skotchmaster/hat_shop/internal/util"
)

type Result struct {
	Total    int64
	Products []models.Product
}

type Searcher interface {
	Search(ctx context.Context, query string, from, size int) (Result, error)
}

type Catalog interface {
	Products(ctx context.Context) ([]models.Product, error)
}

// Local matches every query word as a case-insensitive substring of a
// product's name, description, collection or category. Results keep
// catalog order.
type Local struct {
	Catalog Catalog
}

func (s *Local) Search(ctx context.Context, query string, from, size int) (Result, error) {
	products, err := s.Catalog.Products(ctx)
	if err != nil {
		return Result{}, err
	}

	words := strings.Fields(strings.ToLower(query))
	var matched []models.Product
	for _, p := range products {
		if matches(p, words) {
			matched = append(matched, p)
		}
	}

	lo, hi := util.Window(len(matched), from, size)
	page := make([]models.Product, 0, hi-lo)
	page = append(page, matched[lo:hi]...)
	return Result{Total: int64(len(matched)), Products: page}, nil
}

func matches(p models.Product, words []string) bool {
	if len(words) == 0 {
		return false
	}
	text := strings.ToLower(strings.Join([]string{p.Name, p.Description, p.Collection, p.Category}, " "))
	for _, w := range words {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}
