// Package v1 provides HTTP API version 1.
package v1

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"retailhub/internal/domain/auth"
	"retailhub/internal/domain/credits"
	"retailhub/internal/domain/inventory"
	"retailhub/internal/domain/products"
	"retailhub/internal/infrastructure/http/v1/handlers"
	"retailhub/internal/infrastructure/http/v1/middleware"
	"retailhub/pkg/logger"
)

// RouterConfig wires services into the API.
type RouterConfig struct {
	Logger       *logger.Logger
	JWTValidator middleware.JWTValidator

	Recorder  *inventory.Recorder
	Inspector *inventory.Inspector
	Products  *products.Service
	Credits   *credits.Service
	Renderer  handlers.ReportRenderer

	DB            handlers.Pinger
	StorageDriver string

	CORSOrigins []string
	Development bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Order matters: errors are rendered inside logging and tracing.
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(corsMiddleware(cfg.CORSOrigins))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.StorageDriver)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTValidator))
	v1.Use(middleware.StoreScope())

	base := handlers.NewBaseHandler()
	registerInventoryRoutes(v1, handlers.NewInventoryHandler(base, cfg.Recorder, cfg.Inspector, cfg.Products, cfg.Renderer))
	registerProductRoutes(v1, handlers.NewProductHandler(base, cfg.Products))
	registerCreditRoutes(v1, handlers.NewCreditHandler(base, cfg.Credits, cfg.Renderer))

	return router
}

func registerInventoryRoutes(rg *gin.RouterGroup, h *handlers.InventoryHandler) {
	inv := rg.Group("/inventory")

	movements := inv.Group("/movements")
	{
		movements.GET("", h.ListMovements)
		movements.POST("", middleware.RequirePermission(auth.PermRecordMovements), h.RecordMovement)
		movements.POST("/batch", middleware.RequirePermission(auth.PermRecordMovements), h.RecordBatch)
	}

	product := inv.Group("/products/:productId")
	{
		product.GET("/summary", h.Summary)
		product.GET("/consistency", h.Consistency)
		product.GET("/chain", h.Chain)
	}

	recon := inv.Group("/reconciliation")
	{
		recon.POST("/validate", h.ValidateReconciliation)
		recon.POST("/repair", middleware.RequirePermission(auth.PermRepairInventory), h.RepairReconciliation)
		recon.GET("/report.pdf", h.ReconciliationReport)
	}
}

func registerProductRoutes(rg *gin.RouterGroup, h *handlers.ProductHandler) {
	p := rg.Group("/products")
	p.POST("", middleware.RequirePermission(auth.PermManageProducts), h.Create)
	p.GET("/:productId", h.Get)
}

func registerCreditRoutes(rg *gin.RouterGroup, h *handlers.CreditHandler) {
	cr := rg.Group("/credits")

	sales := cr.Group("/sales")
	{
		sales.POST("", middleware.RequirePermission(auth.PermRecordCredits), h.RecordSale)
		sales.POST("/:saleId/payments", middleware.RequirePermission(auth.PermRecordCredits), h.RecordPayment)
	}

	recon := cr.Group("/reconciliation")
	{
		recon.POST("/validate", h.ValidateReconciliation)
		recon.POST("/repair", middleware.RequirePermission(auth.PermRepairCredits), h.RepairReconciliation)
		recon.GET("/report.pdf", h.ReconciliationReport)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Authorization", "Content-Type",
			middleware.HeaderStoreID, middleware.HeaderRequestID, handlers.HeaderIdempotencyKey,
		},
		ExposeHeaders: []string{middleware.HeaderRequestID, middleware.HeaderTraceID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
