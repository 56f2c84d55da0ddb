package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server       ServerConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	Scraper      ScraperConfig
	LLM          LLMConfig
	Image        ImageConfig
	TTS          TTSConfig
	Avatar       AvatarConfig
	Storage      StorageConfig
	Pipeline     PipelineConfig
	Conversation ConversationConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	ScrapePerMin       int
	GeneratePerHour    int
	ConversationPerDay int
}

// FeedConfig names one RSS feed to pull content from.
type FeedConfig struct {
	Name string
	URL  string
}

type ScraperConfig struct {
	Feeds       []FeedConfig
	MaxPerFeed  int
	MaxFullText int // characters retained from a fetched article
}

type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type ImageConfig struct {
	APIKey            string
	BaseURL           string
	AspectRatio       string
	DefaultBackground string
}

// TTSBackendConfig describes one speech synthesis backend. Backends are
// tried in the order primary, fallback.
type TTSBackendConfig struct {
	Name    string
	BaseURL string
	APIKey  string
	Voice   string
}

type TTSConfig struct {
	Primary  TTSBackendConfig
	Fallback TTSBackendConfig
}

type AvatarConfig struct {
	BaseURL         string
	APIKey          string
	PollIntervalSec int
	MaxWaitSec      int
}

type StorageConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type PipelineConfig struct {
	OutputDir       string
	AutoApprove     bool
	RenderSlots     int
	ScriptTimeout   int // seconds
	AssetsTimeout   int
	RenderTimeout   int
	LeaseTTLMinutes int
}

type ConversationConfig struct {
	MaxConcurrentRenders int
	TurnPolicy           string
	StitchTimeout        int // seconds
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("LLM_API_KEY")
	readSecret("IMAGE_API_KEY")
	readSecret("TTS_PRIMARY_API_KEY")
	readSecret("TTS_FALLBACK_API_KEY")
	readSecret("AVATAR_API_KEY")
	readSecret("STORAGE_ACCESS_KEY_ID")
	readSecret("STORAGE_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("llm.api_key", "LLM_API_KEY")
	_ = viper.BindEnv("llm.base_url", "LLM_BASE_URL")
	_ = viper.BindEnv("llm.model", "LLM_MODEL")
	_ = viper.BindEnv("image.api_key", "IMAGE_API_KEY")
	_ = viper.BindEnv("image.base_url", "IMAGE_BASE_URL")
	_ = viper.BindEnv("image.aspect_ratio", "IMAGE_ASPECT_RATIO")
	_ = viper.BindEnv("image.default_background", "IMAGE_DEFAULT_BACKGROUND")
	_ = viper.BindEnv("tts.primary.name", "TTS_PRIMARY_NAME")
	_ = viper.BindEnv("tts.primary.base_url", "TTS_PRIMARY_BASE_URL")
	_ = viper.BindEnv("tts.primary.api_key", "TTS_PRIMARY_API_KEY")
	_ = viper.BindEnv("tts.primary.voice", "TTS_PRIMARY_VOICE")
	_ = viper.BindEnv("tts.fallback.name", "TTS_FALLBACK_NAME")
	_ = viper.BindEnv("tts.fallback.base_url", "TTS_FALLBACK_BASE_URL")
	_ = viper.BindEnv("tts.fallback.api_key", "TTS_FALLBACK_API_KEY")
	_ = viper.BindEnv("tts.fallback.voice", "TTS_FALLBACK_VOICE")
	_ = viper.BindEnv("avatar.base_url", "AVATAR_BASE_URL")
	_ = viper.BindEnv("avatar.api_key", "AVATAR_API_KEY")
	_ = viper.BindEnv("avatar.poll_interval_sec", "AVATAR_POLL_INTERVAL_SEC")
	_ = viper.BindEnv("avatar.max_wait_sec", "AVATAR_MAX_WAIT_SEC")
	_ = viper.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	_ = viper.BindEnv("storage.region", "STORAGE_REGION")
	_ = viper.BindEnv("storage.access_key_id", "STORAGE_ACCESS_KEY_ID")
	_ = viper.BindEnv("storage.secret_access_key", "STORAGE_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("storage.bucket_name", "STORAGE_BUCKET_NAME")
	_ = viper.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	_ = viper.BindEnv("pipeline.output_dir", "PIPELINE_OUTPUT_DIR")
	_ = viper.BindEnv("pipeline.auto_approve", "PIPELINE_AUTO_APPROVE")
	_ = viper.BindEnv("pipeline.render_slots", "PIPELINE_RENDER_SLOTS")
	_ = viper.BindEnv("pipeline.script_timeout", "PIPELINE_SCRIPT_TIMEOUT")
	_ = viper.BindEnv("pipeline.assets_timeout", "PIPELINE_ASSETS_TIMEOUT")
	_ = viper.BindEnv("pipeline.render_timeout", "PIPELINE_RENDER_TIMEOUT")
	_ = viper.BindEnv("pipeline.lease_ttl_minutes", "PIPELINE_LEASE_TTL_MINUTES")
	_ = viper.BindEnv("conversation.max_concurrent_renders", "CONVERSATION_MAX_CONCURRENT_RENDERS")
	_ = viper.BindEnv("conversation.turn_policy", "CONVERSATION_TURN_POLICY")
	_ = viper.BindEnv("conversation.stitch_timeout", "CONVERSATION_STITCH_TIMEOUT")
	_ = viper.BindEnv("scraper.max_per_feed", "SCRAPER_MAX_PER_FEED")
	_ = viper.BindEnv("scraper.max_full_text", "SCRAPER_MAX_FULL_TEXT")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.scrape_per_min", 10)
	viper.SetDefault("ratelimit.generate_per_hour", 20)
	viper.SetDefault("ratelimit.conversation_per_day", 10)

	// LLM defaults
	viper.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("llm.model", "llama-3.3-70b-versatile")

	// Image defaults
	viper.SetDefault("image.aspect_ratio", "9:16")
	viper.SetDefault("image.default_background", "assets/default_background.png")

	// TTS defaults
	viper.SetDefault("tts.primary.name", "primary")
	viper.SetDefault("tts.primary.voice", "alloy")
	viper.SetDefault("tts.fallback.name", "fallback")
	viper.SetDefault("tts.fallback.voice", "default")

	// Avatar render service defaults
	viper.SetDefault("avatar.poll_interval_sec", 5)
	viper.SetDefault("avatar.max_wait_sec", 600)

	// Pipeline defaults
	viper.SetDefault("pipeline.output_dir", "output")
	viper.SetDefault("pipeline.auto_approve", false)
	viper.SetDefault("pipeline.render_slots", 1)
	viper.SetDefault("pipeline.script_timeout", 120)
	viper.SetDefault("pipeline.assets_timeout", 300)
	viper.SetDefault("pipeline.render_timeout", 900)
	viper.SetDefault("pipeline.lease_ttl_minutes", 30)

	// Conversation defaults
	viper.SetDefault("conversation.max_concurrent_renders", 0) // 0 = one slot per participant
	viper.SetDefault("conversation.turn_policy", "drop_failed")
	viper.SetDefault("conversation.stitch_timeout", 300)

	// Scraper defaults
	viper.SetDefault("scraper.max_per_feed", 10)
	viper.SetDefault("scraper.max_full_text", 6000)
	viper.SetDefault("scraper.feeds", []map[string]string{
		{"name": "TechCrunch", "url": "https://techcrunch.com/feed/"},
		{"name": "The Verge", "url": "https://www.theverge.com/rss/index.xml"},
	})

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	var feeds []FeedConfig
	if err := viper.UnmarshalKey("scraper.feeds", &feeds); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			LogLevel:  viper.GetString("server.log_level"),
			ApiDomain: viper.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			ScrapePerMin:       viper.GetInt("ratelimit.scrape_per_min"),
			GeneratePerHour:    viper.GetInt("ratelimit.generate_per_hour"),
			ConversationPerDay: viper.GetInt("ratelimit.conversation_per_day"),
		},
		Scraper: ScraperConfig{
			Feeds:       feeds,
			MaxPerFeed:  viper.GetInt("scraper.max_per_feed"),
			MaxFullText: viper.GetInt("scraper.max_full_text"),
		},
		LLM: LLMConfig{
			APIKey:  viper.GetString("llm.api_key"),
			BaseURL: viper.GetString("llm.base_url"),
			Model:   viper.GetString("llm.model"),
		},
		Image: ImageConfig{
			APIKey:            viper.GetString("image.api_key"),
			BaseURL:           viper.GetString("image.base_url"),
			AspectRatio:       viper.GetString("image.aspect_ratio"),
			DefaultBackground: viper.GetString("image.default_background"),
		},
		TTS: TTSConfig{
			Primary: TTSBackendConfig{
				Name:    viper.GetString("tts.primary.name"),
				BaseURL: viper.GetString("tts.primary.base_url"),
				APIKey:  viper.GetString("tts.primary.api_key"),
				Voice:   viper.GetString("tts.primary.voice"),
			},
			Fallback: TTSBackendConfig{
				Name:    viper.GetString("tts.fallback.name"),
				BaseURL: viper.GetString("tts.fallback.base_url"),
				APIKey:  viper.GetString("tts.fallback.api_key"),
				Voice:   viper.GetString("tts.fallback.voice"),
			},
		},
		Avatar: AvatarConfig{
			BaseURL:         viper.GetString("avatar.base_url"),
			APIKey:          viper.GetString("avatar.api_key"),
			PollIntervalSec: viper.GetInt("avatar.poll_interval_sec"),
			MaxWaitSec:      viper.GetInt("avatar.max_wait_sec"),
		},
		Storage: StorageConfig{
			Endpoint:        viper.GetString("storage.endpoint"),
			Region:          viper.GetString("storage.region"),
			AccessKeyID:     viper.GetString("storage.access_key_id"),
			SecretAccessKey: viper.GetString("storage.secret_access_key"),
			BucketName:      viper.GetString("storage.bucket_name"),
			PublicURL:       viper.GetString("storage.public_url"),
		},
		Pipeline: PipelineConfig{
			OutputDir:       viper.GetString("pipeline.output_dir"),
			AutoApprove:     viper.GetBool("pipeline.auto_approve"),
			RenderSlots:     viper.GetInt("pipeline.render_slots"),
			ScriptTimeout:   viper.GetInt("pipeline.script_timeout"),
			AssetsTimeout:   viper.GetInt("pipeline.assets_timeout"),
			RenderTimeout:   viper.GetInt("pipeline.render_timeout"),
			LeaseTTLMinutes: viper.GetInt("pipeline.lease_ttl_minutes"),
		},
		Conversation: ConversationConfig{
			MaxConcurrentRenders: viper.GetInt("conversation.max_concurrent_renders"),
			TurnPolicy:           viper.GetString("conversation.turn_policy"),
			StitchTimeout:        viper.GetInt("conversation.stitch_timeout"),
		},
	}

	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "auto"
	}

	return cfg, nil
}
