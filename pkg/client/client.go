// Package client is a Go client for the storefront API. It keeps the signed-in
// session explicitly and never retries failed mutations.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mernshop/storefront/pkg/models"
)

// Error is a non-2xx API response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("storefront: %d %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err means the caller has to sign in again.
func IsUnauthorized(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusUnauthorized
}

type Client struct {
	baseURL string
	http    *http.Client
	gate    *AuthGate
}

// Options configure New. OnExpired is called once each time the session is
// signed out because its token expired or was rejected.
type Options struct {
	Session   *Session
	Transport http.RoundTripper
	OnExpired func()
	Timeout   time.Duration
}

func New(baseURL string, opts Options) *Client {
	session := opts.Session
	if session == nil {
		session = NewSession()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	gate := &AuthGate{
		Session:   session,
		Next:      opts.Transport,
		OnExpired: opts.OnExpired,
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: gate, Timeout: timeout},
		gate:    gate,
	}
}

func (c *Client) Session() *Session {
	return c.gate.Session
}

// Restore resumes a saved session unless its token has expired.
func (c *Client) Restore(token string, user models.User) bool {
	return c.gate.Restore(token, user)
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (c *Client) Register(ctx context.Context, email, password string) (models.User, error) {
	return c.authenticate(ctx, "/auth/register", email, password)
}

func (c *Client) Login(ctx context.Context, email, password string) (models.User, error) {
	return c.authenticate(ctx, "/auth/login", email, password)
}

// Logout forgets the session locally. Tokens are stateless, so the server is
// not involved.
func (c *Client) Logout() {
	c.gate.Session.Clear()
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (models.User, error) {
	var res authResponse
	err := c.do(ctx, http.MethodPost, path, models.Credentials{Email: email, Password: password}, &res)
	if err != nil {
		return models.User{}, err
	}
	c.gate.Session.Set(res.Token, res.User)
	return res.User, nil
}

// ProductQuery mirrors the listing query string. Zero values are omitted.
type ProductQuery struct {
	Search   string
	Category string
	Page     int
	Limit    int
}

func (q ProductQuery) encode() string {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (c *Client) Products(ctx context.Context, q ProductQuery) (models.ProductPage, error) {
	var page models.ProductPage
	err := c.do(ctx, http.MethodGet, "/products"+q.encode(), nil, &page)
	return page, err
}

func (c *Client) Product(ctx context.Context, id string) (models.Product, error) {
	var p models.Product
	err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &p)
	return p, err
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var res struct {
		Categories []string `json:"categories"`
	}
	err := c.do(ctx, http.MethodGet, "/products/categories", nil, &res)
	return res.Categories, err
}

func (c *Client) Cart(ctx context.Context) (models.Cart, error) {
	var cart models.Cart
	err := c.do(ctx, http.MethodGet, "/cart", nil, &cart)
	return cart, err
}

func (c *Client) AddToCart(ctx context.Context, productID string, quantity int) (models.CartView, error) {
	var view models.CartView
	err := c.do(ctx, http.MethodPost, "/cart", models.AddToCartRequest{ProductID: productID, Quantity: quantity}, &view)
	return view, err
}

func (c *Client) SetQuantity(ctx context.Context, lineID string, quantity int) (models.CartView, error) {
	var view models.CartView
	err := c.do(ctx, http.MethodPut, "/cart/"+url.PathEscape(lineID), models.UpdateCartLineRequest{Quantity: quantity}, &view)
	return view, err
}

func (c *Client) Remove(ctx context.Context, lineID string) error {
	return c.do(ctx, http.MethodDelete, "/cart/"+url.PathEscape(lineID), nil, nil)
}

// Decrement lowers a line by one. The server never stores a quantity below 1,
// so a line at 1 is removed explicitly instead; removed reports which
// happened.
func (c *Client) Decrement(ctx context.Context, line models.CartView) (view models.CartView, removed bool, err error) {
	if line.Quantity <= 1 {
		if err := c.Remove(ctx, line.ID.Hex()); err != nil {
			return models.CartView{}, false, err
		}
		return models.CartView{}, true, nil
	}

	view, err = c.SetQuantity(ctx, line.ID.Hex(), line.Quantity-1)
	return view, false, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var body struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &body) == nil && body.Message != "" {
			apiErr.Message = body.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
