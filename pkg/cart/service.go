// Package cart keeps each user's cart consistent: one line per product, a
// quantity of at least 1, and no access to lines owned by someone else.
package cart

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/mernshop/storefront/pkg/global"
	"github.com/mernshop/storefront/pkg/models"
	"github.com/mernshop/storefront/pkg/telemetry"
)

// Store persists cart lines. SetLineQuantity and DeleteLine only match lines
// owned by userID and report a miss as global.ErrNotFound.
type Store interface {
	IncrementLine(ctx context.Context, userID, productID bson.ObjectID, delta int) (models.CartLine, error)
	FindLine(ctx context.Context, lineID bson.ObjectID) (models.CartLine, error)
	ListLines(ctx context.Context, userID bson.ObjectID) ([]models.CartLine, error)
	SetLineQuantity(ctx context.Context, lineID, userID bson.ObjectID, quantity int) (models.CartLine, error)
	DeleteLine(ctx context.Context, lineID, userID bson.ObjectID) (models.CartLine, error)
}

type ProductLookup interface {
	FindProduct(ctx context.Context, id bson.ObjectID) (models.Product, error)
	FindProducts(ctx context.Context, ids []bson.ObjectID) ([]models.Product, error)
}

type Service struct {
	lines    Store
	products ProductLookup
	metrics  *telemetry.Metrics
}

func NewService(lines Store, products ProductLookup, metrics *telemetry.Metrics) *Service {
	return &Service{lines: lines, products: products, metrics: metrics}
}

// ReadCart returns the user's lines joined with their products and the cart
// total, computed fresh on every call.
func (s *Service) ReadCart(ctx context.Context, userID bson.ObjectID) (models.Cart, error) {
	const op = "cart.read"

	lines, err := s.lines.ListLines(ctx, userID)
	if err != nil {
		return models.Cart{}, global.WrapError(err, global.EINTERNAL, op, "list lines")
	}

	ids := make([]bson.ObjectID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.products.FindProducts(ctx, ids)
	if err != nil {
		return models.Cart{}, global.WrapError(err, global.EINTERNAL, op, "load products")
	}

	cart, orphans := Summarize(lines, IndexProducts(products))
	if orphans > 0 {
		zerolog.Ctx(ctx).Warn().
			Str("user_id", userID.Hex()).
			Int("orphaned_lines", orphans).
			Msg("cart lines reference missing products")
		s.metrics.OrphanedLines(orphans)
	}
	return cart, nil
}

// AddOrIncrement adds quantity to the user's line for productID, creating the
// line on first add. An absent quantity counts as 1.
func (s *Service) AddOrIncrement(ctx context.Context, userID bson.ObjectID, productID string, quantity Quantity) (models.CartView, error) {
	const op = "cart.add"

	if productID == "" {
		return models.CartView{}, global.Errorf(global.EINVALID, op, "productId required")
	}
	pid, err := bson.ObjectIDFromHex(productID)
	if err != nil {
		return models.CartView{}, global.Errorf(global.EINVALID, op, "Invalid product id")
	}

	delta := 1
	if quantity.Present() {
		if !quantity.Numeric() {
			return models.CartView{}, global.Errorf(global.EINVALID, op, "Quantity must be a number")
		}
		delta = quantity.Int()
	}

	product, err := s.findProduct(ctx, op, pid)
	if err != nil {
		return models.CartView{}, err
	}

	line, err := s.lines.IncrementLine(ctx, userID, pid, delta)
	if err != nil {
		return models.CartView{}, global.WrapError(err, global.EINTERNAL, op, "increment line")
	}

	s.metrics.CartLineAdded()
	return s.view(line, product), nil
}

// SetQuantity overwrites the quantity of one of the user's lines. Missing,
// zero or non-numeric input keeps the current quantity; anything below 1 is
// raised to 1.
func (s *Service) SetQuantity(ctx context.Context, userID bson.ObjectID, lineID string, quantity Quantity) (models.CartView, error) {
	const op = "cart.set_quantity"

	line, err := s.ownedLine(ctx, op, userID, lineID)
	if err != nil {
		return models.CartView{}, err
	}

	product, err := s.findProduct(ctx, op, line.ProductID)
	if err != nil {
		return models.CartView{}, err
	}

	if !quantity.Numeric() || quantity.IsZero() {
		zerolog.Ctx(ctx).Warn().
			Str("line_id", line.ID.Hex()).
			Bool("present", quantity.Present()).
			Msg("unusable quantity, keeping current value")
		return s.view(line, product), nil
	}

	updated, err := s.lines.SetLineQuantity(ctx, line.ID, userID, max(1, quantity.Int()))
	if err != nil {
		if errors.Is(err, global.ErrNotFound) {
			return models.CartView{}, global.Errorf(global.ENOTFOUND, op, "Cart item not found")
		}
		return models.CartView{}, global.WrapError(err, global.EINTERNAL, op, "update line")
	}

	s.metrics.CartLineUpdated()
	return s.view(updated, product), nil
}

// Remove deletes one of the user's lines. A second Remove of the same line
// reports NotFound.
func (s *Service) Remove(ctx context.Context, userID bson.ObjectID, lineID string) error {
	const op = "cart.remove"

	id, err := parseLineID(op, lineID)
	if err != nil {
		return err
	}

	_, err = s.lines.DeleteLine(ctx, id, userID)
	if err == nil {
		s.metrics.CartLineRemoved()
		return nil
	}
	if !errors.Is(err, global.ErrNotFound) {
		return global.WrapError(err, global.EINTERNAL, op, "delete line")
	}

	// nothing of ours matched; tell absent apart from someone else's
	line, err := s.lines.FindLine(ctx, id)
	switch {
	case errors.Is(err, global.ErrNotFound):
		return global.Errorf(global.ENOTFOUND, op, "Cart item not found")
	case err != nil:
		return global.WrapError(err, global.EINTERNAL, op, "find line")
	case line.UserID != userID:
		return global.Errorf(global.EFORBIDDEN, op, "Forbidden")
	default:
		return global.Errorf(global.ENOTFOUND, op, "Cart item not found")
	}
}

// ownedLine loads a line and checks it belongs to userID before any write.
func (s *Service) ownedLine(ctx context.Context, op string, userID bson.ObjectID, lineID string) (models.CartLine, error) {
	id, err := parseLineID(op, lineID)
	if err != nil {
		return models.CartLine{}, err
	}

	line, err := s.lines.FindLine(ctx, id)
	if err != nil {
		if errors.Is(err, global.ErrNotFound) {
			return models.CartLine{}, global.Errorf(global.ENOTFOUND, op, "Cart item not found")
		}
		return models.CartLine{}, global.WrapError(err, global.EINTERNAL, op, "find line")
	}
	if line.UserID != userID {
		return models.CartLine{}, global.Errorf(global.EFORBIDDEN, op, "Forbidden")
	}
	return line, nil
}

func (s *Service) findProduct(ctx context.Context, op string, id bson.ObjectID) (models.Product, error) {
	product, err := s.products.FindProduct(ctx, id)
	if err != nil {
		if errors.Is(err, global.ErrNotFound) {
			return models.Product{}, global.Errorf(global.ENOTFOUND, op, "Product not found")
		}
		return models.Product{}, global.WrapError(err, global.EINTERNAL, op, "find product")
	}
	return product, nil
}

func (s *Service) view(line models.CartLine, product models.Product) models.CartView {
	view, _ := Enrich(line, IndexProducts([]models.Product{product}))
	return view
}

func parseLineID(op, raw string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(raw)
	if err != nil {
		return bson.ObjectID{}, global.Errorf(global.EINVALID, op, "Invalid cart item id")
	}
	return id, nil
}
