package main

import (
	_ "bomtrack/api/swagger" // swagger docs
	"bomtrack/internal/database"
	"bomtrack/internal/handler"
	"bomtrack/internal/middleware"
	"bomtrack/internal/repository"
	"bomtrack/internal/service"
	"bomtrack/internal/websocket"
	"context"
	"log"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           BOM Tracking API
// @version         1.0
// @description     Plant-scoped bill-of-materials lifecycle management: versioned BOMs, approval and activation workflow, cost roll-up, and assembly seeding.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Permission middleware needs the DB for role lookups
	middleware.InitPermissionMiddleware(db)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	plantRepo := repository.NewPlantRepository(db)
	partyRepo := repository.NewPartyRepository(db)
	assemblyRepo := repository.NewAssemblyRepository(db)
	bomRepo := repository.NewBOMRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	costEngine := service.NewCostEngine()

	roleRepo := repository.NewRoleRepository(db)

	userService := service.NewUserService(userRepo)
	roleService := service.NewRoleService(roleRepo, txManager)
	auditService := service.NewAuditService(auditRepo)
	bomService := service.NewBOMService(assemblyRepo, bomRepo, auditRepo, txManager, costEngine, wsHub)
	seedService := service.NewSeedService(productRepo, plantRepo, assemblyRepo, auditRepo, txManager, wsHub)
	searchService := service.NewSearchService(assemblyRepo)
	catalogService := service.NewCatalogService(productRepo, plantRepo, partyRepo, assemblyRepo, auditRepo, txManager)

	// Seed built-in roles and permissions on boot (idempotent)
	if err := roleService.SeedDefaultRolesAndPermissions(context.Background()); err != nil {
		log.Fatalf("Failed to seed roles and permissions: %v", err)
	}

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleService)
	auditHandler := handler.NewAuditHandler(auditService)
	bomHandler := handler.NewBOMHandler(bomService)
	seedHandler := handler.NewSeedHandler(seedService)
	searchHandler := handler.NewSearchHandler(searchService)
	catalogHandler := handler.NewCatalogHandler(catalogService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration. CORS_ORIGINS is a comma-separated list of allowed
	// frontend origins; unset it falls back to the local dev server.
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		corsConfig.AllowOrigins = strings.Split(origins, ",")
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint for BOM lifecycle events
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	roleHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))
	bomHandler.RegisterRoutes(router.Group(""))
	seedHandler.RegisterRoutes(router.Group(""))
	searchHandler.RegisterRoutes(router.Group(""))
	catalogHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
