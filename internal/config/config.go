package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type LoggerConfig struct {
	LogLevel string
	LogFile  string
}

type SummaryConfig struct {
	// Provider is either "groq" or "gemini"
	Provider    string
	GroqAPIKey  string
	GroqModel   string
	GroqBaseURL string
	GeminiModel string
	MaxWords    int
}

type SpeechConfig struct {
	APIKey  string
	BaseURL string
	VoiceID string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	EnrichmentsPerHour int
	Redis              RedisConfig
}

type AppConfig struct {
	Environment string
	PSQL        PostgresConfig
	CSRF        struct {
		Key    string
		Secure bool
	}
	Server struct {
		Address string
	}
	Logging   LoggerConfig
	Summary   SummaryConfig
	Speech    SpeechConfig
	RateLimit RateLimitConfig
}

func (cfg *AppConfig) IsProduction() bool {
	return cfg.Environment == "production"
}

// LoadEnvConfig reads the given env files (".env" when none is given) and
// builds the configuration from the process environment. A missing env file
// is not an error, since production sets the variables directly.
func LoadEnvConfig(envFiles ...string) (*AppConfig, error) {
	var cfg AppConfig
	err := LoadEnvFiles(envFiles...)
	if err != nil {
		return nil, err
	}

	cfg.Environment = GetEnvWithDefault("ENVIRONMENT", "development")

	// DB
	cfg.PSQL = DefaultPostgresConfig()

	// CSRF
	cfg.CSRF.Key = GetEnvOrDie("CSRF_TOKEN")
	cfg.CSRF.Secure = GetEnvWithDefault("CSRF_SECURE", "false") == "true"

	// Server
	cfg.Server.Address = GetEnvWithDefault("SERVER_ADDRESS", ":8000")

	cfg.Logging = LoggerConfig{
		LogLevel: GetEnvWithDefault("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
	}

	cfg.Summary, err = LoadSummaryConfig()
	if err != nil {
		return nil, err
	}

	cfg.Speech = SpeechConfig{
		APIKey:  GetEnvOrDie("ELEVENLABS_API_KEY"),
		BaseURL: GetEnvWithDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io/v1"),
		VoiceID: GetEnvWithDefault("ELEVENLABS_VOICE_ID", "I6FCyzfC1FISEENiALlo"),
	}

	perHour, err := getEnvInt("ENRICHMENTS_PER_HOUR", 30)
	if err != nil {
		return nil, err
	}
	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	cfg.RateLimit = RateLimitConfig{
		EnrichmentsPerHour: perHour,
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
	}

	return &cfg, nil
}

// LoadEnvFiles loads env files into the process environment without
// overriding variables that are already set.
func LoadEnvFiles(envFiles ...string) error {
	err := godotenv.Load(envFiles...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env file: %w", err)
	}
	return nil
}

// LoadSummaryConfig reads the summary provider settings on their own, for
// tools that do not need the rest of the server configuration.
func LoadSummaryConfig() (SummaryConfig, error) {
	maxWords, err := getEnvInt("SUMMARY_MAX_WORDS", 150)
	if err != nil {
		return SummaryConfig{}, err
	}
	cfg := SummaryConfig{
		Provider:    GetEnvWithDefault("SUMMARY_PROVIDER", "groq"),
		GroqAPIKey:  os.Getenv("GROQ_API_KEY"),
		GroqModel:   GetEnvWithDefault("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GroqBaseURL: GetEnvWithDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GeminiModel: GetEnvWithDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		MaxWords:    maxWords,
	}
	switch cfg.Provider {
	case "groq":
		if cfg.GroqAPIKey == "" {
			return SummaryConfig{}, fmt.Errorf("GROQ_API_KEY is required for the groq summary provider")
		}
	case "gemini":
	default:
		return SummaryConfig{}, fmt.Errorf("unknown SUMMARY_PROVIDER %q", cfg.Provider)
	}
	return cfg, nil
}

// Window is the period the enrichment budget applies to.
func (rl RateLimitConfig) Window() time.Duration {
	return time.Hour
}

func GetEnvWithDefault(envName, defaultValue string) string {
	if value := os.Getenv(envName); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvOrDie(envName string) string {
	value := os.Getenv(envName)
	if value == "" {
		panic("Environment variable " + envName + " is not set")
	}
	return value
}

func getEnvInt(envName string, defaultValue int) (int, error) {
	value := os.Getenv(envName)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", envName, err)
	}
	return n, nil
}
