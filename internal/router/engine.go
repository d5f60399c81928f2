package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mernshop/storefront/pkg/auth"
	"github.com/mernshop/storefront/pkg/cart"
	"github.com/mernshop/storefront/pkg/catalog"
	"github.com/mernshop/storefront/pkg/global"
	"github.com/mernshop/storefront/pkg/telemetry"
)

// Limiter caps repeated attempts per key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Verifier resolves a bearer token to an identity.
type Verifier interface {
	Verify(token string) (auth.Identity, error)
}

// Deps are the services behind the HTTP surface. Limiter and Metrics are
// optional.
type Deps struct {
	Auth    *auth.Service
	Catalog *catalog.Service
	Cart    *cart.Service
	Limiter Limiter
	Metrics *telemetry.Metrics
	Logger  zerolog.Logger
}

// NewEngine builds the gin engine with middleware and every route mounted
// under cfg.BasePath. The gin mode is set by the caller.
func NewEngine(cfg *global.Config, deps Deps) *gin.Engine {
	r := gin.New()

	r.Use(
		RequestID(),
		RequestLogger(deps.Logger),
		Recovery(),
		deps.Metrics.Middleware(),
	)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
			ExposeHeaders:    []string{"Content-Length", requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(Timeout(cfg.RequestTimeout))

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	h := &handler{
		auth:    deps.Auth,
		catalog: deps.Catalog,
		cart:    deps.Cart,
	}

	api := r.Group(cfg.BasePath)
	{
		api.GET("/", HealthCheck)

		authGroup := api.Group("/auth")
		if deps.Limiter != nil {
			authGroup.Use(RateLimit(deps.Limiter, deps.Metrics))
		}
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
		}

		products := api.Group("/products")
		{
			products.GET("", h.ListProducts)
			products.GET("/categories", h.ListCategories)
			products.GET("/:id", h.GetProduct)
		}

		cartGroup := api.Group("/cart")
		cartGroup.Use(RequireAuth(deps.Auth))
		{
			cartGroup.GET("", h.GetCart)
			cartGroup.POST("", h.AddToCart)
			cartGroup.PUT("/:id", h.UpdateCartLine)
			cartGroup.DELETE("/:id", h.RemoveCartLine)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, global.ErrorResponse("Not found", nil))
	})

	return r
}
