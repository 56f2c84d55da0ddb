package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/novaavatar/api/internal/auth"
	"github.com/novaavatar/api/internal/client"
	"github.com/novaavatar/api/internal/config"
	"github.com/novaavatar/api/internal/generate"
	"github.com/novaavatar/api/internal/handler"
	"github.com/novaavatar/api/internal/middleware"
	"github.com/novaavatar/api/internal/model"
	"github.com/novaavatar/api/internal/pipeline"
	"github.com/novaavatar/api/internal/service"
	"github.com/novaavatar/api/internal/store"
	ws "github.com/novaavatar/api/internal/websocket"
	"github.com/novaavatar/api/internal/worker"
	"github.com/novaavatar/api/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize storage. Without a redis address the server runs inline:
	// in-memory records and pipeline runs on goroutines instead of asynq.
	var (
		st          store.Store
		redisClient *redis.Client
		asynqClient *asynq.Client
	)
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Warning: Redis not available: %v", err)
		}
		st = store.NewRedisStore(redisClient)

		asynqClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer asynqClient.Close()
	} else {
		log.Println("Info: Redis not configured, running inline with in-memory storage")
		st = store.NewMemoryStore()
	}

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize external clients
	llmClient := client.NewLLMClient(&cfg.LLM)
	imageClient := client.NewImageClient(&cfg.Image, cfg.Pipeline.OutputDir)
	primaryTTS := client.NewTTSClient(&cfg.TTS.Primary, cfg.Pipeline.OutputDir)
	fallbackTTS := client.NewTTSClient(&cfg.TTS.Fallback, cfg.Pipeline.OutputDir)
	avatarClient := client.NewAvatarClient(&cfg.Avatar, cfg.Pipeline.OutputDir)
	rssClient := client.NewRSSClient(&cfg.Scraper)

	// Initialize object storage (optional - continues if not configured)
	var storageClient client.StorageClient
	if cfg.Storage.AccessKeyID != "" && cfg.Storage.SecretAccessKey != "" {
		s3Client, err := client.NewS3Client(&cfg.Storage)
		if err != nil {
			log.Printf("Warning: storage client not initialized: %v", err)
		} else {
			storageClient = s3Client
		}
	} else {
		log.Println("Info: object storage not configured, approved videos stay local")
	}

	// Initialize generation adapters
	speech := []pipeline.SpeechSynthesizer{
		generate.NewSpeechBackend(primaryTTS, cfg.Pipeline.OutputDir),
		generate.NewSpeechBackend(fallbackTTS, cfg.Pipeline.OutputDir),
	}
	renderer := generate.NewAvatarRenderer(avatarClient, cfg.Pipeline.OutputDir)
	stitcher := generate.NewFFmpegStitcher(cfg.Pipeline.OutputDir)
	scraper := generate.NewContentScraper(rssClient, cfg.Scraper.MaxFullText)

	// Initialize the pipeline orchestrator and conversation coordinator
	orchestrator := pipeline.New(st, pipeline.Adapters{
		Script:   generate.NewScriptWriter(llmClient),
		Image:    generate.NewImagePainter(imageClient, cfg.Pipeline.OutputDir),
		Speech:   speech,
		Renderer: renderer,
	}, pipeline.Config{
		DefaultBackground: cfg.Image.DefaultBackground,
		RenderSlots:       cfg.Pipeline.RenderSlots,
		LeaseTTL:          time.Duration(cfg.Pipeline.LeaseTTLMinutes) * time.Minute,
		ScriptTimeout:     time.Duration(cfg.Pipeline.ScriptTimeout) * time.Second,
		ImageTimeout:      time.Duration(cfg.Pipeline.AssetsTimeout) * time.Second,
		SpeechTimeout:     time.Duration(cfg.Pipeline.AssetsTimeout) * time.Second,
		RenderTimeout:     time.Duration(cfg.Pipeline.RenderTimeout) * time.Second,
	}, hub)

	coordinator := pipeline.NewCoordinator(st,
		generate.NewDialogueWriter(llmClient),
		speech, renderer, stitcher,
		pipeline.CoordinatorConfig{
			MaxConcurrentRenders: cfg.Conversation.MaxConcurrentRenders,
			StitchTimeout:        time.Duration(cfg.Conversation.StitchTimeout) * time.Second,
		})

	// Initialize services
	scrapeService := service.NewScrapeService(scraper, st)
	videoService := service.NewVideoService(st, asynqClient, orchestrator, storageClient, cfg.Pipeline.AutoApprove)
	conversationService := service.NewConversationService(st, asynqClient, coordinator, model.TurnPolicy(cfg.Conversation.TurnPolicy))
	avatarService := service.NewAvatarService(st)
	if err := avatarService.SeedDefaults(context.Background()); err != nil {
		log.Printf("Warning: failed to seed default avatars: %v", err)
	}

	// Initialize handlers
	scrapeHandler := handler.NewScrapeHandler(scrapeService, validate)
	videoHandler := handler.NewVideoHandler(videoService, validate)
	reviewHandler := handler.NewReviewHandler(videoService, validate)
	conversationHandler := handler.NewConversationHandler(conversationService, validate)
	avatarHandler := handler.NewAvatarHandler(avatarService, validate)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    50 * 1024 * 1024, // 50MB
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"llm":     llmClient.IsConfigured(),
				"image":   imageClient.IsConfigured(),
				"tts":     primaryTTS.IsConfigured() || fallbackTTS.IsConfigured(),
				"avatar":  avatarClient.IsConfigured(),
				"scraper": rssClient.IsConfigured(),
				"storage": storageClient != nil,
				"redis":   redisClient != nil,
			},
		})
	})

	// Dev token mint, not registered in production
	if !strings.EqualFold(cfg.Server.Env, "production") {
		app.Post("/auth/token", func(c *fiber.Ctx) error {
			var req struct {
				UserID string `json:"userId"`
				Email  string `json:"email"`
			}
			if err := c.BodyParser(&req); err != nil {
				return response.ValidationError(c, "Invalid request body", nil)
			}
			if req.UserID == "" {
				req.UserID = "dev-user"
			}
			token, err := auth.IssueToken(req.UserID, req.Email, cfg.JWT.Secret, cfg.JWT.Expiration)
			if err != nil {
				return response.ServiceError(c, err.Error())
			}
			return c.JSON(fiber.Map{
				"token":     token,
				"expiresIn": cfg.JWT.Expiration * 3600,
			})
		})
	}

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	// Scrape routes
	api.Post("/scrape", rateLimiter.ScrapeLimit(cfg.RateLimit.ScrapePerMin), scrapeHandler.Scrape)

	// Video routes
	videos := api.Group("/videos")
	videos.Post("/generate", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), videoHandler.Create)
	videos.Post("/batch", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), videoHandler.BatchCreate)
	videos.Get("/", videoHandler.List)
	videos.Get("/:jobId", videoHandler.Get)
	videos.Get("/:jobId/file", videoHandler.File)
	videos.Post("/:jobId/retry", videoHandler.Retry)
	videos.Post("/:jobId/cancel", videoHandler.Cancel)

	// Review routes
	review := api.Group("/review")
	review.Get("/", reviewHandler.Queue)
	review.Post("/:jobId/approve", reviewHandler.Approve)
	review.Post("/:jobId/reject", reviewHandler.Reject)

	// Avatar routes
	avatars := api.Group("/avatars")
	avatars.Post("/", avatarHandler.Create)
	avatars.Get("/", avatarHandler.List)
	avatars.Get("/:avatarId", avatarHandler.Get)

	// Conversation routes
	conversations := api.Group("/conversations")
	conversations.Post("/", rateLimiter.ConversationLimit(cfg.RateLimit.ConversationPerDay), conversationHandler.Create)
	conversations.Get("/", conversationHandler.List)
	conversations.Get("/:conversationId", conversationHandler.Get)
	conversations.Get("/:conversationId/file", conversationHandler.File)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start Asynq worker server (queue mode only)
	if asynqClient != nil {
		go startWorkerServer(cfg, orchestrator, coordinator)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, orch *pipeline.Orchestrator, coord *pipeline.Coordinator) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				service.QueueVideo:        6,
				service.QueueConversation: 4,
			},
			LogLevel: asynqLogLevel,
		},
	)

	videoWorker := worker.NewVideoWorker(orch)
	conversationWorker := worker.NewConversationWorker(coord)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeVideo, videoWorker.ProcessTask)
	mux.HandleFunc(service.TaskTypeConversation, conversationWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
