package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/mernshop/storefront/pkg/global"
	"github.com/mernshop/storefront/pkg/memstore"
	"github.com/mernshop/storefront/pkg/models"
)

func seeded(t *testing.T, n int) (*memstore.Store, []*models.Product) {
	t.Helper()

	store := memstore.New()
	base := time.Now().UTC()
	products := make([]*models.Product, n)
	for i := range products {
		category := "kitchen"
		if i%2 == 1 {
			category = "office"
		}
		products[i] = &models.Product{
			Title:     fmt.Sprintf("Item %02d", i),
			Price:     float64(i),
			Category:  category,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
	}
	_, err := store.InsertProducts(context.Background(), products)
	require.NoError(t, err)
	return store, products
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		total int64
		limit int
		want  int
	}{
		{total: 0, limit: 12, want: 0},
		{total: 1, limit: 12, want: 1},
		{total: 12, limit: 12, want: 1},
		{total: 13, limit: 12, want: 2},
		{total: 25, limit: 5, want: 5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.total, tt.limit), func(t *testing.T) {
			assert.Equal(t, tt.want, PageCount(tt.total, tt.limit))
		})
	}
}

func TestService_ListProducts_Paging(t *testing.T) {
	store, _ := seeded(t, 30)
	svc := NewService(store)
	ctx := context.Background()

	tests := []struct {
		name      string
		query     Query
		wantPage  int
		wantPages int
		wantLen   int
		wantFirst string
	}{
		{name: "defaults", query: Query{}, wantPage: 1, wantPages: 3, wantLen: 12, wantFirst: "Item 29"},
		{name: "second page", query: Query{Page: "2", Limit: "10"}, wantPage: 2, wantPages: 3, wantLen: 10, wantFirst: "Item 19"},
		{name: "garbage falls back", query: Query{Page: "abc", Limit: "-4"}, wantPage: 1, wantPages: 3, wantLen: 12, wantFirst: "Item 29"},
		{name: "limit capped", query: Query{Limit: "1000"}, wantPage: 1, wantPages: 1, wantLen: 30, wantFirst: "Item 29"},
		{name: "past the end", query: Query{Page: "9"}, wantPage: 9, wantPages: 3, wantLen: 0},
		{name: "huge page clamped", query: Query{Page: "9223372036854775807", Limit: "100"}, wantPage: MaxPage, wantPages: 1, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.ListProducts(ctx, tt.query)
			require.NoError(t, err)
			assert.EqualValues(t, 30, page.Total)
			assert.Equal(t, tt.wantPage, page.Page)
			assert.Equal(t, tt.wantPages, page.Pages)
			require.Len(t, page.Products, tt.wantLen)
			assert.NotNil(t, page.Products)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantFirst, page.Products[0].Title)
			}
		})
	}
}

func TestService_ListProducts_Filters(t *testing.T) {
	store, _ := seeded(t, 10)
	svc := NewService(store)
	ctx := context.Background()

	page, err := svc.ListProducts(ctx, Query{Category: "office"})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.Total)
	for _, p := range page.Products {
		assert.Equal(t, "office", p.Category)
	}

	page, err = svc.ListProducts(ctx, Query{Search: "item 0"})
	require.NoError(t, err)
	assert.EqualValues(t, 10, page.Total)

	page, err = svc.ListProducts(ctx, Query{Search: "ITEM 07"})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, "Item 07", page.Products[0].Title)
}

func TestService_GetProduct(t *testing.T) {
	store, products := seeded(t, 3)
	svc := NewService(store)
	ctx := context.Background()

	p, err := svc.GetProduct(ctx, products[1].ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Item 01", p.Title)

	_, err = svc.GetProduct(ctx, "not-an-id")
	assert.Equal(t, global.EINVALID, global.ErrorCode(err))
	assert.Equal(t, "Invalid product id", global.ErrorMessage(err))

	_, err = svc.GetProduct(ctx, bson.NewObjectID().Hex())
	assert.Equal(t, global.ENOTFOUND, global.ErrorCode(err))
}

func TestService_ListCategories(t *testing.T) {
	store, _ := seeded(t, 4)
	svc := NewService(store)

	categories, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"kitchen", "office"}, categories)
}

type brokenStore struct{}

func (brokenStore) ListProducts(context.Context, models.ProductFilter, int64, int64) ([]models.Product, int64, error) {
	return nil, 0, errors.New("boom")
}
func (brokenStore) FindProduct(context.Context, bson.ObjectID) (models.Product, error) {
	return models.Product{}, errors.New("boom")
}
func (brokenStore) Categories(context.Context) ([]string, error) { return nil, errors.New("boom") }

func TestService_StoreFaults(t *testing.T) {
	svc := NewService(brokenStore{})
	ctx := context.Background()

	_, err := svc.ListProducts(ctx, Query{})
	assert.Equal(t, global.EINTERNAL, global.ErrorCode(err))

	_, err = svc.GetProduct(ctx, bson.NewObjectID().Hex())
	assert.Equal(t, global.EINTERNAL, global.ErrorCode(err))

	_, err = svc.ListCategories(ctx)
	assert.Equal(t, global.EINTERNAL, global.ErrorCode(err))
}
