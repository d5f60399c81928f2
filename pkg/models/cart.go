package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// CartLine binds one user to one product. (UserID, ProductID) is unique and
// Quantity is never below 1.
type CartLine struct {
	ID        bson.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    bson.ObjectID `json:"userId" bson:"user_id"`
	ProductID bson.ObjectID `json:"productId" bson:"product_id"`
	Quantity  int           `json:"quantity" bson:"quantity"`
	CreatedAt time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time     `json:"updatedAt" bson:"updated_at"`
}

// CartView is a line joined with its product. It is computed on every read.
type CartView struct {
	CartLine
	Product   Product `json:"product"`
	LineTotal float64 `json:"lineTotal"`
}

// Cart is the body of GET /cart.
type Cart struct {
	Items []CartView `json:"items"`
	Total float64    `json:"total"`
}

// AddToCartRequest is the body of POST /cart. Quantity is coerced by the cart
// service, so it is kept untyped here.
type AddToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  any    `json:"quantity"`
}

type UpdateCartLineRequest struct {
	Quantity any `json:"quantity"`
}
