package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/mernshop/storefront/pkg/global"
	"github.com/mernshop/storefront/pkg/models"
)

// incrementPipeline adds delta to the line quantity, creating the line when it
// does not exist yet, and never lets the result drop below 1.
func incrementPipeline(delta int, now time.Time) any {
	quantity := bson.D{{Key: "$max", Value: bson.A{
		1,
		bson.D{{Key: "$add", Value: bson.A{
			bson.D{{Key: "$ifNull", Value: bson.A{"$quantity", 0}}},
			delta,
		}}},
	}}}

	return bson.A{
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "quantity", Value: quantity},
			{Key: "created_at", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$created_at", now}}}},
			{Key: "updated_at", Value: now},
		}}},
	}
}

// IncrementLine adds delta to the (user, product) line in a single upsert and
// returns the line as stored afterwards.
//
// Two first-time adds can race on the insert; the loser gets a duplicate key
// error from idx_cart_user_product_unique and is retried once, which then
// updates the winner's line.
func (s *Store) IncrementLine(ctx context.Context, userID, productID bson.ObjectID, delta int) (models.CartLine, error) {
	filter := bson.D{
		{Key: "user_id", Value: userID},
		{Key: "product_id", Value: productID},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var (
		line models.CartLine
		err  error
	)
	for attempt := 0; attempt < 2; attempt++ {
		update := incrementPipeline(delta, time.Now().UTC())
		err = translate(s.collection(cartLinesCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&line))
		if !errors.Is(err, global.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return models.CartLine{}, err
	}
	return line, nil
}

func (s *Store) FindLine(ctx context.Context, lineID bson.ObjectID) (models.CartLine, error) {
	var line models.CartLine
	err := s.collection(cartLinesCollection).FindOne(ctx, bson.D{{Key: "_id", Value: lineID}}).Decode(&line)
	if err != nil {
		return models.CartLine{}, translate(err)
	}
	return line, nil
}

// ListLines returns the user's lines in the order they were first added.
func (s *Store) ListLines(ctx context.Context, userID bson.ObjectID) ([]models.CartLine, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return findAll[models.CartLine](ctx, s.collection(cartLinesCollection), bson.D{{Key: "user_id", Value: userID}}, opts)
}

// SetLineQuantity overwrites the quantity of a line owned by userID. It
// returns global.ErrNotFound when no such line belongs to that user.
func (s *Store) SetLineQuantity(ctx context.Context, lineID, userID bson.ObjectID, quantity int) (models.CartLine, error) {
	filter := bson.D{
		{Key: "_id", Value: lineID},
		{Key: "user_id", Value: userID},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "quantity", Value: quantity},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var line models.CartLine
	if err := s.collection(cartLinesCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&line); err != nil {
		return models.CartLine{}, translate(err)
	}
	return line, nil
}

// DeleteLine removes a line owned by userID and returns it.
func (s *Store) DeleteLine(ctx context.Context, lineID, userID bson.ObjectID) (models.CartLine, error) {
	filter := bson.D{
		{Key: "_id", Value: lineID},
		{Key: "user_id", Value: userID},
	}

	var line models.CartLine
	if err := s.collection(cartLinesCollection).FindOneAndDelete(ctx, filter).Decode(&line); err != nil {
		return models.CartLine{}, translate(err)
	}
	return line, nil
}
