package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tender-response-platform/internal/ai"
	"tender-response-platform/internal/config"
	"tender-response-platform/internal/logger"
	"tender-response-platform/internal/queue"
	"tender-response-platform/internal/telemetry"
	"tender-response-platform/middleware"
	"tender-response-platform/routes"
	"tender-response-platform/services"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("tender-response-api", cfg.OTLPEndpoint)
		if err != nil {
			log.Printf("Tracing disabled: %v", err)
		} else {
			defer shutdown()
		}
	}

	storage, err := services.NewObjectStorage(cfg)
	if err != nil {
		log.Fatal("Failed to initialize object storage:", err)
	}
	if err := storage.EnsureBucket(context.Background()); err != nil {
		log.Fatal("Failed to ensure storage bucket:", err)
	}

	var completionClient services.CompletionClient
	if cfg.GeminiAPIKey != "" {
		geminiClient, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTier)
		if err != nil {
			log.Fatal("Failed to initialize Gemini client:", err)
		}
		defer geminiClient.Close()
		completionClient = geminiClient
	} else {
		log.Println("GEMINI_API_KEY not set, running heuristics-only with fallback answers")
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisURL, Password: cfg.RedisPassword})
	defer asynqClient.Close()

	ocrClient := services.NewOCRClient(cfg)
	pipeline := services.NewPipeline(cfg, db, storage, completionClient, ocrClient)
	tenderService := services.NewTenderService(cfg, db, storage, queue.NewEnqueuer(asynqClient))

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	router.Use(otelgin.Middleware("tender-response-api"))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	api := router.Group("/api")
	{
		api.POST("/tenders", routes.HandleTenderUpload(cfg, tenderService))
		api.GET("/tenders", routes.HandleTenderList(tenderService))
		api.GET("/tenders/:id", routes.HandleTenderStatus(tenderService))
		api.POST("/tenders/:id/process", routes.HandleTenderProcess(pipeline))
		api.GET("/tenders/:id/responses", routes.HandleTenderResponses(tenderService))
		api.DELETE("/tenders/:id", routes.HandleTenderDelete(tenderService))
		api.GET("/quota", routes.HandleQuotaStatus(cfg, db))
		api.PUT("/quota/limit", routes.HandleQuotaLimit(db))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
