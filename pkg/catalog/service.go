package catalog

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/mernshop/storefront/pkg/global"
	"github.com/mernshop/storefront/pkg/models"
)

const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100

	// MaxPage keeps (page-1)*limit well inside int64.
	MaxPage = math.MaxInt32
)

type Store interface {
	ListProducts(ctx context.Context, filter models.ProductFilter, skip, limit int64) ([]models.Product, int64, error)
	FindProduct(ctx context.Context, id bson.ObjectID) (models.Product, error)
	Categories(ctx context.Context) ([]string, error)
}

// Query is a listing request as it arrives from the query string.
type Query struct {
	Search   string
	Category string
	Page     string
	Limit    string
}

type Service struct {
	products Store
}

func NewService(products Store) *Service {
	return &Service{products: products}
}

// ListProducts returns one page of the catalog. Unusable page or limit values
// fall back to the defaults.
func (s *Service) ListProducts(ctx context.Context, q Query) (models.ProductPage, error) {
	const op = "catalog.list"

	page := min(positiveOr(q.Page, DefaultPage), MaxPage)
	limit := min(positiveOr(q.Limit, DefaultLimit), MaxLimit)

	filter := models.ProductFilter{
		Search:   strings.TrimSpace(q.Search),
		Category: strings.TrimSpace(q.Category),
	}

	skip := int64(page-1) * int64(limit)
	products, total, err := s.products.ListProducts(ctx, filter, skip, int64(limit))
	if err != nil {
		return models.ProductPage{}, global.WrapError(err, global.EINTERNAL, op, "list products")
	}

	return models.ProductPage{
		Products: products,
		Total:    total,
		Page:     page,
		Pages:    PageCount(total, limit),
	}, nil
}

// GetProduct looks up one product. The ID is validated before the store is
// queried.
func (s *Service) GetProduct(ctx context.Context, rawID string) (models.Product, error) {
	const op = "catalog.get"

	id, err := bson.ObjectIDFromHex(rawID)
	if err != nil {
		return models.Product{}, global.Errorf(global.EINVALID, op, "Invalid product id")
	}

	p, err := s.products.FindProduct(ctx, id)
	if err != nil {
		if errors.Is(err, global.ErrNotFound) {
			return models.Product{}, global.Errorf(global.ENOTFOUND, op, "Product not found")
		}
		return models.Product{}, global.WrapError(err, global.EINTERNAL, op, "find product")
	}
	return p, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]string, error) {
	categories, err := s.products.Categories(ctx)
	if err != nil {
		return nil, global.WrapError(err, global.EINTERNAL, "catalog.categories", "list categories")
	}
	return categories, nil
}

// PageCount is ceil(total/limit).
func PageCount(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func positiveOr(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
