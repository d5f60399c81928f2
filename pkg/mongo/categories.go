package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type categoryBucket struct {
	Category string `bson:"_id"`
}

// Categories returns the distinct product categories in ascending order.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	pipeline := bson.A{
		bson.D{
			{Key: "$group", Value: bson.D{
				{Key: "_id", Value: "$category"},
			}},
		},
		bson.D{
			{Key: "$match", Value: bson.D{
				{Key: "_id", Value: bson.D{{Key: "$ne", Value: nil}}},
			}},
		},
		bson.D{
			{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}},
		},
	}

	cursor, err := s.collection(productsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var buckets []categoryBucket
	if err := cursor.All(ctx, &buckets); err != nil {
		return nil, err
	}

	categories := make([]string, 0, len(buckets))
	for _, b := range buckets {
		categories = append(categories, b.Category)
	}
	return categories, nil
}
