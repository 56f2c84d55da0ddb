package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/novaavatar/api/internal/auth"
	"github.com/novaavatar/api/internal/client"
	"github.com/novaavatar/api/internal/config"
	"github.com/novaavatar/api/internal/generate"
	"github.com/novaavatar/api/internal/handler"
	"github.com/novaavatar/api/internal/middleware"
	"github.com/novaavatar/api/internal/pipeline"
	"github.com/novaavatar/api/internal/service"
	"github.com/novaavatar/api/internal/store"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app   *fiber.App
	store store.Store
}

// setupApp creates a Fiber app identical to main.go but in inline mode: no
// redis, no asynq, and unconfigured external clients so every adapter uses
// its mock fallback.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	st := store.NewMemoryStore()
	validate := validator.New()
	outputDir := t.TempDir()

	// External clients, all unconfigured so adapters use mock fallbacks
	primaryTTS := client.NewTTSClient(&config.TTSBackendConfig{Name: "primary"}, outputDir)
	fallbackTTS := client.NewTTSClient(&config.TTSBackendConfig{Name: "fallback"}, outputDir)

	speech := []pipeline.SpeechSynthesizer{
		generate.NewSpeechBackend(primaryTTS, outputDir),
		generate.NewSpeechBackend(fallbackTTS, outputDir),
	}
	renderer := generate.NewAvatarRenderer(nil, outputDir)
	stitcher := generate.NewFFmpegStitcher(outputDir)
	scraper := generate.NewContentScraper(nil, 5000)

	orchestrator := pipeline.New(st, pipeline.Adapters{
		Script:   generate.NewScriptWriter(nil),
		Image:    generate.NewImagePainter(nil, outputDir),
		Speech:   speech,
		Renderer: renderer,
	}, pipeline.Config{}, nil)

	coordinator := pipeline.NewCoordinator(st,
		generate.NewDialogueWriter(nil),
		speech, renderer, stitcher,
		pipeline.CoordinatorConfig{})

	// Services (nil asynq client runs the pipeline inline)
	scrapeService := service.NewScrapeService(scraper, st)
	videoService := service.NewVideoService(st, nil, orchestrator, nil, false)
	conversationService := service.NewConversationService(st, nil, coordinator, "")
	avatarService := service.NewAvatarService(st)
	if err := avatarService.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("failed to seed avatars: %v", err)
	}

	// Handlers
	scrapeHandler := handler.NewScrapeHandler(scrapeService, validate)
	videoHandler := handler.NewVideoHandler(videoService, validate)
	reviewHandler := handler.NewReviewHandler(videoService, validate)
	conversationHandler := handler.NewConversationHandler(conversationService, validate)
	avatarHandler := handler.NewAvatarHandler(avatarService, validate)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(nil) // nil redis disables limiting

	app := fiber.New(fiber.Config{
		BodyLimit: 50 * 1024 * 1024,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"llm":     false,
				"image":   false,
				"tts":     false,
				"avatar":  false,
				"scraper": false,
				"storage": false,
				"redis":   false,
			},
		})
	})

	api := app.Group("/api", authMiddleware.Authenticate())

	api.Post("/scrape", rateLimiter.ScrapeLimit(10000), scrapeHandler.Scrape)

	videos := api.Group("/videos")
	videos.Post("/generate", rateLimiter.GenerateLimit(10000), videoHandler.Create)
	videos.Post("/batch", rateLimiter.GenerateLimit(10000), videoHandler.BatchCreate)
	videos.Get("/", videoHandler.List)
	videos.Get("/:jobId", videoHandler.Get)
	videos.Get("/:jobId/file", videoHandler.File)
	videos.Post("/:jobId/retry", videoHandler.Retry)
	videos.Post("/:jobId/cancel", videoHandler.Cancel)

	review := api.Group("/review")
	review.Get("/", reviewHandler.Queue)
	review.Post("/:jobId/approve", reviewHandler.Approve)
	review.Post("/:jobId/reject", reviewHandler.Reject)

	avatars := api.Group("/avatars")
	avatars.Post("/", avatarHandler.Create)
	avatars.Get("/", avatarHandler.List)
	avatars.Get("/:avatarId", avatarHandler.Get)

	conversations := api.Group("/conversations")
	conversations.Post("/", rateLimiter.ConversationLimit(10000), conversationHandler.Create)
	conversations.Get("/", conversationHandler.List)
	conversations.Get("/:conversationId", conversationHandler.Get)
	conversations.Get("/:conversationId/file", conversationHandler.File)

	return &testApp{app: app, store: st}
}

// generateToken creates an HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	token, err := auth.IssueToken("test-user-123", "test@example.com", testJWTSecret, 1)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
