package cart

import (
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/mernshop/storefront/pkg/models"
)

// Lookup resolves a product by ID.
type Lookup func(id bson.ObjectID) (models.Product, bool)

// IndexProducts builds a Lookup over an already loaded product batch.
func IndexProducts(products []models.Product) Lookup {
	byID := make(map[bson.ObjectID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return func(id bson.ObjectID) (models.Product, bool) {
		p, ok := byID[id]
		return p, ok
	}
}

// Enrich joins a line with its product. It returns false when the product no
// longer exists.
func Enrich(line models.CartLine, lookup Lookup) (models.CartView, bool) {
	product, ok := lookup(line.ProductID)
	if !ok {
		return models.CartView{}, false
	}
	return models.CartView{
		CartLine:  line,
		Product:   product,
		LineTotal: product.Price * float64(line.Quantity),
	}, true
}

// Summarize enriches every line and totals them. Lines whose product is gone
// are left out of both and counted in orphans.
func Summarize(lines []models.CartLine, lookup Lookup) (cart models.Cart, orphans int) {
	cart.Items = make([]models.CartView, 0, len(lines))
	for _, line := range lines {
		view, ok := Enrich(line, lookup)
		if !ok {
			orphans++
			continue
		}
		cart.Items = append(cart.Items, view)
		cart.Total += view.LineTotal
	}
	return cart, orphans
}
