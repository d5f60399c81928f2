package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mernshop/storefront/pkg/auth"
	"github.com/mernshop/storefront/pkg/cart"
	"github.com/mernshop/storefront/pkg/catalog"
	"github.com/mernshop/storefront/pkg/global"
	"github.com/mernshop/storefront/pkg/memstore"
	"github.com/mernshop/storefront/pkg/models"
	"github.com/mernshop/storefront/pkg/telemetry"
)

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) Allow(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

type testServer struct {
	engine   *gin.Engine
	store    *memstore.Store
	products []*models.Product
}

func newTestServer(t *testing.T, limiter Limiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memstore.New()
	products := []*models.Product{
		{Title: "Mug", Price: 100, Category: "kitchen"},
		{Title: "Lamp", Price: 40, Category: "office"},
	}
	_, err := store.InsertProducts(context.Background(), products)
	require.NoError(t, err)

	cfg := &global.Config{
		AllowedOrigins: []string{"http://localhost:5173"},
		RequestTimeout: 5 * time.Second,
	}
	metrics := telemetry.New()
	deps := Deps{
		Auth:    auth.NewService(store, auth.NewTokens("test-secret", time.Hour), 4, metrics),
		Catalog: catalog.NewService(store),
		Cart:    cart.NewService(store, store, metrics),
		Metrics: metrics,
		Logger:  zerolog.Nop(),
	}
	if limiter != nil {
		deps.Limiter = limiter
	}

	return &testServer{
		engine:   NewEngine(cfg, deps),
		store:    store,
		products: products,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(t *testing.T, email string) auth.Result {
	t.Helper()
	w := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res auth.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, true, body["ok"])
	assert.NotEmpty(t, body["time"])
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "a@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "a@x.com", user["email"])
	assert.NotEmpty(t, user["id"])
	assert.NotContains(t, w.Body.String(), "password")

	w = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decode[global.APIError](t, w).Message)

	w = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "A@X.com", "password": "secret1"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "a@x.com", "password": "again"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "nope", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuth_MalformedBody(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[global.APIError](t, w)
	assert.Equal(t, "Invalid JSON body", body.Message)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "body", body.Errors[0].Field)
}

func TestProducts(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/products?category=kitchen", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[models.ProductPage](t, w)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.Pages)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Mug", page.Products[0].Title)

	w = s.do(t, http.MethodGet, "/products/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"categories":["kitchen","office"]}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/products/"+s.products[1].ID.Hex(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	product := decode[map[string]any](t, w)
	assert.Equal(t, "Lamp", product["title"])
	assert.Equal(t, s.products[1].ID.Hex(), product["id"])
	assert.Contains(t, product, "createdAt")
}

func TestProducts_MalformedID(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/products/not-an-id", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid product id", decode[global.APIError](t, w).Message)

	w = s.do(t, http.MethodGet, "/products/65f000000000000000000000", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCart_RequiresToken(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		header string
		msg    string
	}{
		{name: "missing", header: "", msg: "Unauthorized: token missing"},
		{name: "wrong scheme", header: "Basic abc", msg: "Unauthorized: token missing"},
		{name: "garbage token", header: "Bearer abc.def.ghi", msg: "Unauthorized: invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/cart", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			s.engine.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.msg, decode[global.APIError](t, w).Message)
		})
	}
}

func TestCart_Flow(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.register(t, "a@x.com").Token
	mug := s.products[0].ID.Hex()

	w := s.do(t, http.MethodGet, "/cart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[],"total":0}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/cart", token, map[string]any{"productId": mug, "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, "/cart", token, map[string]any{"productId": mug, "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code)

	view := decode[map[string]any](t, w)
	assert.EqualValues(t, 3, view["quantity"])
	assert.EqualValues(t, 300, view["lineTotal"])
	assert.Equal(t, mug, view["productId"])
	assert.Equal(t, "Mug", view["product"].(map[string]any)["title"])
	lineID := view["id"].(string)

	w = s.do(t, http.MethodGet, "/cart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	c := decode[models.Cart](t, w)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 300.0, c.Total)

	w = s.do(t, http.MethodPut, "/cart/"+lineID, token, map[string]any{"quantity": -5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, w)["quantity"])

	w = s.do(t, http.MethodPut, "/cart/"+lineID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, w)["quantity"])

	w = s.do(t, http.MethodDelete, "/cart/"+lineID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Deleted"}`, w.Body.String())

	w = s.do(t, http.MethodDelete, "/cart/"+lineID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCart_Errors(t *testing.T) {
	s := newTestServer(t, nil)
	owner := s.register(t, "owner@x.com").Token
	intruder := s.register(t, "intruder@x.com").Token

	w := s.do(t, http.MethodPost, "/cart", owner, map[string]any{"productId": s.products[0].ID.Hex()})
	require.Equal(t, http.StatusOK, w.Code)
	lineID := decode[map[string]any](t, w)["id"].(string)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
	}{
		{name: "add without product", method: http.MethodPost, path: "/cart", token: owner, body: map[string]any{}, status: http.StatusBadRequest},
		{name: "add empty body", method: http.MethodPost, path: "/cart", token: owner, status: http.StatusBadRequest},
		{name: "add unknown product", method: http.MethodPost, path: "/cart", token: owner, body: map[string]any{"productId": "65f000000000000000000000"}, status: http.StatusNotFound},
		{name: "add non-numeric quantity", method: http.MethodPost, path: "/cart", token: owner, body: map[string]any{"productId": s.products[0].ID.Hex(), "quantity": "lots"}, status: http.StatusBadRequest},
		{name: "update other user's line", method: http.MethodPut, path: "/cart/" + lineID, token: intruder, body: map[string]any{"quantity": 9}, status: http.StatusForbidden},
		{name: "delete other user's line", method: http.MethodDelete, path: "/cart/" + lineID, token: intruder, status: http.StatusForbidden},
		{name: "update malformed id", method: http.MethodPut, path: "/cart/xyz", token: owner, body: map[string]any{"quantity": 2}, status: http.StatusBadRequest},
		{name: "delete malformed id", method: http.MethodDelete, path: "/cart/xyz", token: owner, status: http.StatusBadRequest},
		{name: "update missing line", method: http.MethodPut, path: "/cart/65f000000000000000000000", token: owner, body: map[string]any{"quantity": 2}, status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.NotEmpty(t, decode[global.APIError](t, w).Message)
		})
	}

	// the owner's line survived the intruder
	w = s.do(t, http.MethodGet, "/cart", owner, nil)
	c := decode[models.Cart](t, w)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 1, c.Items[0].Quantity)
}

func TestRateLimit(t *testing.T) {
	limiter := new(mockLimiter)
	limiter.On("Allow", mock.Anything, "/auth/login:192.0.2.1").Return(false, nil).Once()
	limiter.On("Allow", mock.Anything, "/auth/register:192.0.2.1").Return(true, nil).Once()
	s := newTestServer(t, limiter)

	w := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@x.com", "password": "pw"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = s.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "a@x.com", "password": "pw"})
	assert.Equal(t, http.StatusOK, w.Code)

	limiter.AssertExpectations(t)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	limiter := new(mockLimiter)
	limiter.On("Allow", mock.Anything, mock.Anything).Return(false, errors.New("connection refused"))
	s := newTestServer(t, limiter)

	w := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "a@x.com", "password": "pw"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodGet, "/products", "", nil)

	w := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `route="/products"`)
}

func TestBasePath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memstore.New()
	cfg := &global.Config{BasePath: "/api", RequestTimeout: time.Second}
	engine := NewEngine(cfg, Deps{
		Auth:    auth.NewService(store, auth.NewTokens("s", time.Hour), 4, nil),
		Catalog: catalog.NewService(store),
		Cart:    cart.NewService(store, store, nil),
		Logger:  zerolog.Nop(),
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORS_Preflight(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/cart", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/products", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
