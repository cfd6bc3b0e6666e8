package server

import (
	"context"
	"net/http"
	"strings"

	"storefront-api/internal/config"
	"storefront-api/internal/handler"
	"storefront-api/internal/middleware"
	"storefront-api/internal/model"
	"storefront-api/internal/service"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const webhookPath = "/api/payments/webhook"

type Services struct {
	Auth    service.AuthService
	Catalog service.CatalogService
	Order   service.OrderService
	Payment service.PaymentService
}

type Server struct {
	echo           *echo.Echo
	authService    service.AuthService
	userHandler    *handler.UserHandler
	productHandler *handler.ProductHandler
	orderHandler   *handler.OrderHandler
	paymentHandler *handler.PaymentHandler
}

func NewServer(cfg *config.Config, services Services, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler(logger)

	e.Use(echomw.RequestID())
	e.Use(requestLogger(logger))
	e.Use(echomw.Recover())
	e.Use(echomw.SecureWithConfig(echomw.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		HSTSMaxAge:         31536000,
		ReferrerPolicy:     "no-referrer",
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowCredentials: true,
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		// provider retries must never be throttled
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == webhookPath
		},
		Store: echomw.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimit.RequestsPerSecond)),
	}))

	s := &Server{
		echo:           e,
		authService:    services.Auth,
		userHandler:    handler.NewUserHandler(services.Auth, cfg.Environment.IsProduction(), cfg.Auth.RefreshTTL),
		productHandler: handler.NewProductHandler(services.Catalog),
		orderHandler:   handler.NewOrderHandler(services.Order),
		paymentHandler: handler.NewPaymentHandler(services.Payment),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	protect := middleware.Authenticate(s.authService)
	admin := middleware.RequireRole(model.RoleAdmin)

	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// -------- auth --------
	auth := api.Group("/auth")
	auth.POST("/register", s.userHandler.Register)
	auth.POST("/login", s.userHandler.Login)
	auth.POST("/logout", s.userHandler.Logout, protect)
	auth.POST("/refresh-token", s.userHandler.RefreshToken)

	api.GET("/users", s.userHandler.ListUsers, protect, admin)

	// -------- catalog --------
	api.GET("/categories", s.productHandler.ListCategories)
	api.POST("/categories", s.productHandler.CreateCategory, protect, admin)

	products := api.Group("/products")
	products.GET("", s.productHandler.ListProducts)
	products.POST("", s.productHandler.CreateProduct, protect, admin)
	products.GET("/:id", s.productHandler.GetProduct)
	products.PUT("/:id", s.productHandler.UpdateProduct, protect, admin)
	products.DELETE("/:id", s.productHandler.DeleteProduct, protect, admin)
	products.POST("/:id/reviews", s.productHandler.CreateReview, protect)

	api.DELETE("/reviews/:id", s.productHandler.DeleteReview, protect, admin)

	// -------- orders --------
	orders := api.Group("/orders", protect)
	orders.POST("", s.orderHandler.CreateOrder)
	orders.GET("", s.orderHandler.ListOrders, admin)
	orders.GET("/myorders", s.orderHandler.GetMyOrders)
	orders.GET("/:id", s.orderHandler.GetOrder)
	orders.PUT("/:id/status", s.orderHandler.UpdateOrderStatus, admin)

	// -------- payments --------
	payments := api.Group("/payments")
	payments.POST("/create-checkout-session", s.paymentHandler.CreateCheckoutSession, protect)
	payments.POST("/webhook", s.paymentHandler.StripeWebhook)
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			switch {
			case v.Status >= http.StatusInternalServerError:
				logger.Error("request", append(fields, zap.Error(v.Error))...)
			case v.Error != nil && !strings.HasPrefix(v.URI, "/api/health"):
				logger.Warn("request", append(fields, zap.Error(v.Error))...)
			default:
				logger.Info("request", fields...)
			}
			return nil
		},
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
