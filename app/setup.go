package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferly/content-tags/api"
	"github.com/inferly/content-tags/config"
	"github.com/inferly/content-tags/database"
	"github.com/inferly/content-tags/router"
	"github.com/inferly/content-tags/services"
	"github.com/inferly/content-tags/services/cron"
	"github.com/inferly/content-tags/services/storage"
	"github.com/inferly/content-tags/services/tagging"
	"github.com/inferly/content-tags/utils"
	"github.com/inferly/content-tags/utils/cache"
	"github.com/inferly/content-tags/utils/middleware"
)

// SetupAndRunServer wires the whole service together and blocks
// serving until shutdown.
func SetupAndRunServer() error {
	utils.InitLogger()

	if err := config.LoadENV(); err != nil {
		return err
	}

	env, err := config.Get()
	if err != nil {
		return err
	}

	// Refuse to boot with an incomplete configuration. The error
	// names every missing setting at once.
	if err := env.Validate(); err != nil {
		return err
	}

	store, err := database.StartGORM()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if err := store.Init(); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	defer store.Close()

	// Redis is optional. Without it the tag cache is skipped and
	// every request hits the provider.
	var redisCache *cache.RedisCache
	if env.REDIS_URL != "" {
		redisCache, err = cache.NewRedisCache(env.REDIS_URL)
		if err != nil {
			logrus.WithError(err).Warn("redis unavailable, tag caching disabled")
			redisCache = nil
		} else {
			defer redisCache.Close()
		}
	}

	tagger, cleanup, err := buildTagger(env, redisCache)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	var spaces *storage.SpacesClient
	if env.SPACES_ACCESS_KEY != "" && env.SPACES_BUCKET != "" {
		spaces, err = storage.NewSpacesClient(storage.SpacesConfig{
			AccessKey: env.SPACES_ACCESS_KEY,
			SecretKey: env.SPACES_SECRET_KEY,
			Bucket:    env.SPACES_BUCKET,
			Region:    env.SPACES_REGION,
			Endpoint:  env.SPACES_ENDPOINT,
		})
		if err != nil {
			logrus.WithError(err).Warn("blob store unavailable, inline images disabled")
			spaces = nil
		}
	}

	meter := services.NewMeter(store.DB())
	meter.Start()
	defer meter.Stop()

	var cronManager *cron.Manager
	if os.Getenv("CRON_ENABLED") != "false" {
		cronManager = cron.NewManager(store.DB())
		if err := cronManager.Start(); err != nil {
			logrus.WithError(err).Warn("failed to start cron jobs")
			cronManager = nil
		}
	}
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
	}()

	server := api.NewAPIServer(fmt.Sprintf(":%d", env.PORT))
	app := server.GetEngine()

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    env.ALLOWED_ORIGINS,
		RateLimitRequests: 600,
		RateLimitWindow:   time.Minute,
	})

	router.SetupRoutes(app, router.Dependencies{
		Env:    env,
		Store:  store,
		DB:     store.DB(),
		Meter:  meter,
		Tagger: tagger,
		Spaces: spaces,
	})

	return server.Run()
}

// buildTagger constructs the configured provider and wraps it with the
// Redis result cache when available. The returned cleanup closes
// provider connections and may be nil.
func buildTagger(env *config.EnvironmentVariable, redisCache *cache.RedisCache) (tagging.Tagger, func(), error) {
	var (
		inner   tagging.Tagger
		cleanup func()
	)

	switch env.TAGGER_PROVIDER {
	case "gemini":
		client, err := tagging.NewGeminiTagger(context.Background(), env.GEMINI_API_KEY)
		if err != nil {
			return nil, nil, fmt.Errorf("gemini client failed: %w", err)
		}
		inner = client
		cleanup = func() { client.Close() }
	case "openai":
		inner = tagging.NewOpenAITagger(env.OPENAI_API_KEY)
	default:
		return nil, nil, fmt.Errorf("unknown TAGGER_PROVIDER %q", env.TAGGER_PROVIDER)
	}

	if redisCache != nil {
		return tagging.NewCachedTagger(inner, redisCache), cleanup, nil
	}
	return inner, cleanup, nil
}
