package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ConfigurationError indicates required external configuration is missing at
// startup. It is fatal: the server must fail fast before serving traffic.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

// LoadENV loads environment variables from .env unless GO_ENV says otherwise
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		if err := godotenv.Load(); err != nil {
			// A missing .env is fine when variables come from the environment
			if !os.IsNotExist(err) {
				return err
			}
		}
	}

	return nil
}

type EnvironmentVariable struct {
	GO_ENV string
	PORT   int

	// Database
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string

	// Redis
	REDIS_URL string

	// Dashboard identity (JWT)
	JWT_SECRET string
	JWT_ISSUER string

	// Billing webhook shared secret
	BILLING_WEBHOOK_SECRET string

	// Blob store (S3-compatible Spaces)
	SPACES_ACCESS_KEY string
	SPACES_SECRET_KEY string
	SPACES_BUCKET     string
	SPACES_REGION     string
	SPACES_ENDPOINT   string

	// Tagging provider
	TAGGER_PROVIDER string // "openai" (default) or "gemini"
	OPENAI_API_KEY  string
	GEMINI_API_KEY  string

	// CORS
	ALLOWED_ORIGINS string
}

func Get() (*EnvironmentVariable, error) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	// Database defaults
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	provider := os.Getenv("TAGGER_PROVIDER")
	if provider == "" {
		provider = "openai"
	}

	envVariables := &EnvironmentVariable{
		GO_ENV: os.Getenv("GO_ENV"),
		PORT:   port,

		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  os.Getenv("DB_SSL_MODE"),

		REDIS_URL: os.Getenv("REDIS_URL"),

		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: os.Getenv("JWT_ISSUER"),

		BILLING_WEBHOOK_SECRET: os.Getenv("BILLING_WEBHOOK_SECRET"),

		SPACES_ACCESS_KEY: os.Getenv("SPACES_ACCESS_KEY"),
		SPACES_SECRET_KEY: os.Getenv("SPACES_SECRET_KEY"),
		SPACES_BUCKET:     os.Getenv("SPACES_BUCKET"),
		SPACES_REGION:     os.Getenv("SPACES_REGION"),
		SPACES_ENDPOINT:   os.Getenv("SPACES_ENDPOINT"),

		TAGGER_PROVIDER: provider,
		OPENAI_API_KEY:  os.Getenv("OPENAI_API_KEY"),
		GEMINI_API_KEY:  os.Getenv("GEMINI_API_KEY"),

		ALLOWED_ORIGINS: os.Getenv("ALLOWED_ORIGINS"),
	}

	return envVariables, nil
}

// Validate checks that everything the server cannot run without is present.
// Returns a *ConfigurationError naming every missing setting at once.
func (e *EnvironmentVariable) Validate() error {
	var missing []string

	if e.DB_NAME == "" {
		missing = append(missing, "DB_NAME")
	}
	if e.DB_USER_NAME == "" {
		missing = append(missing, "DB_USER_NAME")
	}
	if e.JWT_SECRET == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if e.BILLING_WEBHOOK_SECRET == "" {
		missing = append(missing, "BILLING_WEBHOOK_SECRET")
	}

	switch e.TAGGER_PROVIDER {
	case "openai":
		if e.OPENAI_API_KEY == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	case "gemini":
		if e.GEMINI_API_KEY == "" {
			missing = append(missing, "GEMINI_API_KEY")
		}
	default:
		missing = append(missing, "TAGGER_PROVIDER (must be openai or gemini)")
	}

	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}
