package mongo

import (
	"context"
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/mernshop/storefront/pkg/models"
)

func productQuery(filter models.ProductFilter) bson.D {
	query := bson.D{}
	if filter.Search != "" {
		// substring match, not a user-supplied pattern
		query = append(query, bson.E{Key: "title", Value: bson.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}})
	}
	if filter.Category != "" {
		query = append(query, bson.E{Key: "category", Value: filter.Category})
	}
	return query
}

// ListProducts returns one page of matching products, newest first, and the
// total number of matches.
func (s *Store) ListProducts(ctx context.Context, filter models.ProductFilter, skip, limit int64) ([]models.Product, int64, error) {
	collection := s.collection(productsCollection)
	query := productQuery(filter)

	total, err := collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)

	products, err := findAll[models.Product](ctx, collection, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (s *Store) FindProduct(ctx context.Context, id bson.ObjectID) (models.Product, error) {
	var p models.Product
	err := s.collection(productsCollection).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&p)
	if err != nil {
		return models.Product{}, translate(err)
	}
	return p, nil
}

// FindProducts loads the given products in one query. Missing IDs are simply
// absent from the result.
func (s *Store) FindProducts(ctx context.Context, ids []bson.ObjectID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}
	return findAll[models.Product](ctx, s.collection(productsCollection), filter)
}

// InsertProducts stores new catalog entries after applying defaults.
func (s *Store) InsertProducts(ctx context.Context, products []*models.Product) ([]*models.Product, error) {
	if len(products) == 0 {
		return products, nil
	}

	docs := make([]any, len(products))
	for i, p := range products {
		p.ApplyDefaults()
		docs[i] = p
	}

	if _, err := s.collection(productsCollection).InsertMany(ctx, docs); err != nil {
		return nil, translate(err)
	}
	return products, nil
}
