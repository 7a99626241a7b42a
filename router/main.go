package router

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/inferly/content-tags/config"
	"github.com/inferly/content-tags/database"
	"github.com/inferly/content-tags/handlers"
	billing_handlers "github.com/inferly/content-tags/handlers/billing"
	keys_handlers "github.com/inferly/content-tags/handlers/keys"
	tags_handlers "github.com/inferly/content-tags/handlers/tags"
	"github.com/inferly/content-tags/services"
	"github.com/inferly/content-tags/services/storage"
	"github.com/inferly/content-tags/services/tagging"
	"github.com/inferly/content-tags/utils/auth"
	"github.com/inferly/content-tags/utils/middleware"
)

// Dependencies carries everything the route tree needs. The app layer
// constructs these once at startup.
type Dependencies struct {
	Env    *config.EnvironmentVariable
	Store  *database.GORMStore
	DB     *gorm.DB
	Meter  *services.Meter
	Tagger tagging.Tagger
	Spaces *storage.SpacesClient
}

// SetupRoutes wires all endpoints onto the Fiber app.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	jwtManager := auth.NewJWTManager(deps.Env.JWT_SECRET, deps.Env.JWT_ISSUER)

	authMiddleware := middleware.NewAuthMiddleware(jwtManager)
	keyMiddleware := middleware.NewAPIKeyMiddleware(services.NewAuthenticator(deps.DB))

	keyService := services.NewKeyService(deps.DB)

	tagsHandler := tags_handlers.NewHandler(deps.Tagger, deps.Meter, deps.Spaces)
	keysHandler := keys_handlers.NewHandler(keyService)
	billingHandler := billing_handlers.NewHandler(keyService, deps.Env.BILLING_WEBHOOK_SECRET)

	// Liveness
	app.Get("/ping", handlers.HandlePing(deps.Store))

	// Public tagging API, authenticated by API key
	v1 := app.Group("/v1", keyMiddleware.Authenticate())
	v1.Post("/image/tags", tagsHandler.TagImage)
	v1.Post("/text/tags", tagsHandler.TagText)
	v1.Post("/document/tags", tagsHandler.TagDocument)

	// Dashboard API, authenticated by session token
	dashboard := app.Group("/api/v1/keys", authMiddleware.Required())
	dashboard.Post("/", keysHandler.CreateKey)
	dashboard.Get("/", keysHandler.GetKey)
	dashboard.Post("/regenerate", keysHandler.RegenerateKey)
	dashboard.Delete("/", keysHandler.DeleteKey)
	dashboard.Get("/usage", keysHandler.GetUsage)

	// Billing webhook, authenticated by shared secret header
	app.Post("/api/v1/billing/events", billingHandler.HandleEvent)
}
