package router

import (
	"time"

	"shopledger/internal/config"
	"shopledger/internal/handler"
	"shopledger/internal/middleware"
	"shopledger/internal/repository"
	"shopledger/internal/service"
	"shopledger/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, rdb, cfg)
	productSvc := service.NewProductService(productRepo, rdb)
	inventorySvc := service.NewInventoryService(productRepo, movementRepo)
	saleSvc := service.NewSaleService(saleRepo, productRepo, movementRepo, sequenceRepo, dispatcher)
	expenseSvc := service.NewExpenseService(expenseRepo, sequenceRepo)
	reportSvc := service.NewReportService(saleRepo, expenseRepo, productRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	productsH := handler.NewProductsHandler(productSvc)
	inventoryH := handler.NewInventoryHandler(inventorySvc)
	salesH := handler.NewSalesHandler(saleSvc)
	expensesH := handler.NewExpensesHandler(expenseSvc)
	reportsH := handler.NewReportsHandler(reportSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
	}

	// Price check — no auth required
	r.GET("/v1/price/:barcode", productsH.PriceLookup)

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Sales — any authenticated user can sell; reversal is admin-only
		v1.POST("/sales", salesH.CreateSale)
		v1.GET("/sales", salesH.ListSales)
		v1.GET("/sales/analytics", salesH.SalesAnalytics)
		v1.GET("/sales/:id", salesH.GetSale)
		v1.POST("/sales/:id/payments", salesH.AddPayment)
		v1.PATCH("/sales/:id/delivery", salesH.UpdateDelivery)
		v1.DELETE("/sales/:id", middleware.RequireRole("admin"), salesH.DeleteSale)

		// Products — reads for everyone, writes for admin
		v1.GET("/products", productsH.ListProducts)
		v1.GET("/products/categories", productsH.ListCategories)
		v1.GET("/products/statistics", productsH.ProductStatistics)
		v1.GET("/products/:id", productsH.GetProduct)
		prods := v1.Group("/products", middleware.RequireRole("admin"))
		{
			prods.POST("", productsH.CreateProduct)
			prods.PUT("/:id", productsH.UpdateProduct)
			prods.DELETE("/:id", productsH.DeactivateProduct)
			prods.POST("/:id/reactivate", productsH.ReactivateProduct)
		}

		inv := v1.Group("/inventory")
		{
			inv.GET("/movements", inventoryH.ListMovements)
			inv.GET("/low-stock", inventoryH.LowStock)
			inv.GET("/:id/audit", inventoryH.AuditStock)
			inv.POST("/:id/adjust", middleware.RequireRole("admin"), inventoryH.AdjustStock)
		}

		exp := v1.Group("/expenses")
		{
			exp.POST("", expensesH.CreateExpense)
			exp.GET("", expensesH.ListExpenses)
			exp.GET("/by-category", expensesH.ExpensesByCategory)
			exp.GET("/:id", expensesH.GetExpense)
			exp.PUT("/:id", expensesH.UpdateExpense)
			exp.DELETE("/:id", middleware.RequireRole("admin"), expensesH.DeleteExpense)
		}

		v1.GET("/reports/dashboard", reportsH.Dashboard)

		v1.POST("/auth/refresh", authH.Refresh)

		users := v1.Group("/auth/users", middleware.RequireRole("admin"))
		{
			users.POST("", authH.CreateUser)
			users.GET("", authH.ListUsers)
			users.PUT("/:id", authH.UpdateUser)
			users.DELETE("/:id", authH.DeactivateUser)
			users.POST("/:id/reactivate", authH.ReactivateUser)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
