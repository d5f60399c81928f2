// Package memstore is an in-memory implementation of the user, product and
// cart-line stores. It mirrors the document store's semantics, including the
// unique (user, product) line and owner-filtered mutations, and is used by
// tests and local demos.
package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/mernshop/storefront/pkg/global"
	"github.com/mernshop/storefront/pkg/models"
)

type lineKey struct {
	user, product bson.ObjectID
}

type Store struct {
	mu sync.Mutex

	users    map[string]models.User // by email
	products map[bson.ObjectID]models.Product
	lines    map[bson.ObjectID]models.CartLine
	byPair   map[lineKey]bson.ObjectID

	now func() time.Time
}

func New() *Store {
	return &Store{
		users:    make(map[string]models.User),
		products: make(map[bson.ObjectID]models.Product),
		lines:    make(map[bson.ObjectID]models.CartLine),
		byPair:   make(map[lineKey]bson.ObjectID),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.Email]; ok {
		return global.ErrDuplicate
	}
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	u.SetTimestamps()
	s.users[u.Email] = *u
	return nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		return models.User{}, global.ErrNotFound
	}
	return u, nil
}

func (s *Store) InsertProducts(_ context.Context, products []*models.Product) ([]*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range products {
		p.ApplyDefaults()
		if _, ok := s.products[p.ID]; ok {
			return nil, global.ErrDuplicate
		}
		s.products[p.ID] = cloneProduct(*p)
	}
	return products, nil
}

// ReplaceProduct overwrites an existing product, e.g. to change its price.
func (s *Store) ReplaceProduct(_ context.Context, p models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[p.ID]; !ok {
		return global.ErrNotFound
	}
	s.products[p.ID] = cloneProduct(p)
	return nil
}

// DeleteProduct removes a product without touching cart lines that point at it.
func (s *Store) DeleteProduct(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return global.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) ListProducts(_ context.Context, filter models.ProductFilter, skip, limit int64) ([]models.Product, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	search := strings.ToLower(filter.Search)
	matched := []models.Product{}
	for _, p := range s.products {
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		matched = append(matched, cloneProduct(p))
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.Hex() < matched[j].ID.Hex()
	})

	total := int64(len(matched))
	skip = max(skip, 0)
	if skip >= total {
		return []models.Product{}, total, nil
	}
	end := total
	if limit > 0 && limit < total-skip {
		end = skip + limit
	}
	return matched[skip:end], total, nil
}

func (s *Store) FindProduct(_ context.Context, id bson.ObjectID) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return models.Product{}, global.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (s *Store) FindProducts(_ context.Context, ids []bson.ObjectID) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := []models.Product{}
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			found = append(found, cloneProduct(p))
		}
	}
	return found, nil
}

func (s *Store) Categories(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	categories := []string{}
	for _, p := range s.products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

// IncrementLine has the same contract as the document store's upsert: one
// line per (user, product), quantity never below 1.
func (s *Store) IncrementLine(_ context.Context, userID, productID bson.ObjectID, delta int) (models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := lineKey{user: userID, product: productID}

	line := models.CartLine{
		ID:        bson.NewObjectID(),
		UserID:    userID,
		ProductID: productID,
		CreatedAt: now,
	}
	if id, ok := s.byPair[key]; ok {
		line = s.lines[id]
	}

	line.Quantity = max(1, line.Quantity+delta)
	line.UpdatedAt = now

	s.lines[line.ID] = line
	s.byPair[key] = line.ID
	return line, nil
}

func (s *Store) FindLine(_ context.Context, lineID bson.ObjectID) (models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, ok := s.lines[lineID]
	if !ok {
		return models.CartLine{}, global.ErrNotFound
	}
	return line, nil
}

func (s *Store) ListLines(_ context.Context, userID bson.ObjectID) ([]models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := []models.CartLine{}
	for _, line := range s.lines {
		if line.UserID == userID {
			lines = append(lines, line)
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		if !lines[i].CreatedAt.Equal(lines[j].CreatedAt) {
			return lines[i].CreatedAt.Before(lines[j].CreatedAt)
		}
		return lines[i].ID.Hex() < lines[j].ID.Hex()
	})
	return lines, nil
}

func (s *Store) SetLineQuantity(_ context.Context, lineID, userID bson.ObjectID, quantity int) (models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, ok := s.lines[lineID]
	if !ok || line.UserID != userID {
		return models.CartLine{}, global.ErrNotFound
	}
	line.Quantity = quantity
	line.UpdatedAt = s.now()
	s.lines[lineID] = line
	return line, nil
}

func (s *Store) DeleteLine(_ context.Context, lineID, userID bson.ObjectID) (models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, ok := s.lines[lineID]
	if !ok || line.UserID != userID {
		return models.CartLine{}, global.ErrNotFound
	}
	delete(s.lines, lineID)
	delete(s.byPair, lineKey{user: line.UserID, product: line.ProductID})
	return line, nil
}

func cloneProduct(p models.Product) models.Product {
	p.Images = slices.Clone(p.Images)
	if p.Images == nil {
		p.Images = []string{}
	}
	return p
}
