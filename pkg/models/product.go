package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	DefaultCategory = "general"
	DefaultStock    = 100
)

// Product is a catalog entry. Carts reference it by ID only.
type Product struct {
	ID          bson.ObjectID `json:"id" bson:"_id,omitempty"`
	Title       string        `json:"title" bson:"title"`
	Description string        `json:"description" bson:"description"`
	Price       float64       `json:"price" bson:"price"`
	Images      []string      `json:"images" bson:"images"`
	Category    string        `json:"category" bson:"category"`
	Stock       int           `json:"stock" bson:"stock"`
	CreatedAt   time.Time     `json:"createdAt" bson:"created_at"`
}

// ProductFilter narrows GET /products. Empty fields do not filter.
type ProductFilter struct {
	Search   string
	Category string
}

// ProductPage is the body of GET /products.
type ProductPage struct {
	Products []Product `json:"products"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	Pages    int       `json:"pages"`
}

// ApplyDefaults fills the fields the catalog never stores empty. A product
// inserted without stock gets DefaultStock.
func (p *Product) ApplyDefaults() {
	if p.ID.IsZero() {
		p.ID = bson.NewObjectID()
	}
	if p.Category == "" {
		p.Category = DefaultCategory
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Price < 0 {
		p.Price = 0
	}
	if p.Stock <= 0 {
		p.Stock = DefaultStock
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
}
