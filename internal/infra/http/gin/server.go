package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"opalestay/internal/infra/config"
	"opalestay/internal/infra/obs"
)

type Handlers struct {
	Availability AvailabilityHTTP
	Pricing      PricingHTTP
	Booking      BookingHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine with every /api/v1 route.
func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Idempotency-Key", "X-Request-ID"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"result": false, "error": "route not found"})
	})

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	props := api.Group("/properties/:property")
	if h.Availability != nil {
		props.GET("/availability", h.Availability.Check)
		props.GET("/disabled-dates", h.Availability.DisabledDates)
		props.GET("/blocked-periods", h.Availability.ListBlocked)
		props.POST("/blocked-periods", h.Availability.Block)
		props.POST("/unblock", h.Availability.Unblock)
		api.DELETE("/blocked-periods/:id", h.Availability.DeleteBlocked)
	}
	if h.Pricing != nil {
		props.GET("/price", h.Pricing.PriceForDate)
		props.GET("/prices", h.Pricing.PriceForRange)
		props.GET("/price-rules", h.Pricing.ListRules)
		props.POST("/price-rules", h.Pricing.CreateRule)
		api.PUT("/price-rules/:id", h.Pricing.UpdateRule)
		api.DELETE("/price-rules/:id", h.Pricing.DeleteRule)
		api.POST("/price-rules/:id/toggle", h.Pricing.ToggleRule)
	}
	if h.Booking != nil {
		props.GET("/bookings", h.Booking.List)
		bookings := api.Group("/bookings")
		bookings.POST("", h.Booking.Request)
		bookings.GET("/actions/:token", h.Booking.Action)
		bookings.GET("/:id", h.Booking.Get)
		bookings.POST("/:id/accept", h.Booking.Accept)
		bookings.POST("/:id/refuse", h.Booking.Refuse)
		bookings.POST("/:id/confirm", h.Booking.Confirm)
		bookings.POST("/:id/cancel", h.Booking.Cancel)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
