package memstore

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/mernshop/storefront/pkg/global"
	"github.com/mernshop/storefront/pkg/models"
)

func TestStore_IncrementLine_ConcurrentConverges(t *testing.T) {
	s := New()
	ctx := context.Background()
	userID, productID := bson.NewObjectID(), bson.NewObjectID()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.IncrementLine(ctx, userID, productID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	lines, err := s.ListLines(ctx, userID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 50, lines[0].Quantity)
}

func TestStore_IncrementLine_Floor(t *testing.T) {
	s := New()
	ctx := context.Background()

	line, err := s.IncrementLine(ctx, bson.NewObjectID(), bson.NewObjectID(), -4)
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)
}

func TestStore_OwnerFiltered(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner, other := bson.NewObjectID(), bson.NewObjectID()

	line, err := s.IncrementLine(ctx, owner, bson.NewObjectID(), 2)
	require.NoError(t, err)

	_, err = s.SetLineQuantity(ctx, line.ID, other, 5)
	assert.ErrorIs(t, err, global.ErrNotFound)
	_, err = s.DeleteLine(ctx, line.ID, other)
	assert.ErrorIs(t, err, global.ErrNotFound)

	got, err := s.FindLine(ctx, line.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity)

	_, err = s.DeleteLine(ctx, line.ID, owner)
	require.NoError(t, err)
	_, err = s.DeleteLine(ctx, line.ID, owner)
	assert.ErrorIs(t, err, global.ErrNotFound)
}

func TestStore_ListProducts(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Now().UTC()

	_, err := s.InsertProducts(ctx, []*models.Product{
		{Title: "Old Mug", Category: "kitchen", CreatedAt: base.Add(-2 * time.Hour)},
		{Title: "New mug", Category: "kitchen", CreatedAt: base.Add(-time.Hour)},
		{Title: "Lamp", CreatedAt: base},
	})
	require.NoError(t, err)

	got, total, err := s.ListProducts(ctx, models.ProductFilter{Search: "MUG"}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, got, 2)
	assert.Equal(t, "New mug", got[0].Title)
	assert.Equal(t, models.DefaultStock, got[0].Stock)

	got, total, err = s.ListProducts(ctx, models.ProductFilter{}, 5, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Empty(t, got)
	assert.NotNil(t, got)

	got, _, err = s.ListProducts(ctx, models.ProductFilter{}, -5, math.MaxInt64)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	categories, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"general", "kitchen"}, categories)
}
