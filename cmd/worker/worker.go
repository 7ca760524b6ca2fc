package main

import (
	"context"
	"log"

	"tender-response-platform/internal/ai"
	"tender-response-platform/internal/config"
	"tender-response-platform/internal/logger"
	"tender-response-platform/internal/queue"
	"tender-response-platform/internal/telemetry"
	"tender-response-platform/services"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
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
	defer mongoClient.Disconnect(context.Background())
	db := mongoClient.Database(cfg.DBName)

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("tender-response-worker", cfg.OTLPEndpoint)
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

	ocrClient := services.NewOCRClient(cfg)
	pipeline := services.NewPipeline(cfg, db, storage, completionClient, ocrClient)

	reaperCtx, stopReaper := context.WithCancel(context.Background())
	defer stopReaper()
	go services.NewStuckTenderReaper(cfg, db).Start(reaperCtx)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("Task failed: %s, error: %v", task.Type(), err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(pipeline, rdb)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskProcessTender, processor.ProcessTender)

	log.Printf("Starting worker: redis=%s queues=critical(6),default(3),low(1)", cfg.RedisURL)
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
