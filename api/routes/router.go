package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kaclira/kaclira-backend/api/controllers"
	"github.com/kaclira/kaclira-backend/api/middleware"
	"github.com/kaclira/kaclira-backend/internal/favorites"
	"github.com/kaclira/kaclira-backend/internal/notifications"
	"github.com/kaclira/kaclira-backend/internal/pricing"
	"github.com/kaclira/kaclira-backend/internal/sellers"
	"github.com/kaclira/kaclira-backend/internal/stats"
	"github.com/kaclira/kaclira-backend/pkg/config"
	"github.com/kaclira/kaclira-backend/pkg/enums"
	"github.com/kaclira/kaclira-backend/pkg/logger"
	"github.com/kaclira/kaclira-backend/pkg/redis"
)

// RouterParams groups everything the HTTP surface depends on.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	Redis         *redis.Client
	ReadyChecks   map[string]controllers.Pinger
	Sellers       sellers.Service
	Pricing       pricing.Service
	Favorites     favorites.Service
	Notifications notifications.Service
	Stats         stats.Service
}

func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.Logger, p.ReadyChecks))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public comparison endpoint, no authentication.
		r.Get("/products/{productId}/price-summary", controllers.ProductPriceSummary(p.Pricing, p.Logger))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(p.Config.JWT, p.Logger))
			r.Use(middleware.RateLimit(p.Redis, p.Config.RateLimit, p.Logger))

			r.Route("/seller", func(r chi.Router) {
				r.Use(middleware.RequireSeller(p.Logger))

				r.Get("/me", controllers.SellerProfile(p.Sellers, p.Logger))
				r.Get("/stats", controllers.SellerStats(p.Stats, p.Logger))

				r.Route("/sub-sellers", func(r chi.Router) {
					r.Post("/", controllers.CreateSubSeller(p.Sellers, p.Logger))
					r.Get("/", controllers.ListSubSellers(p.Sellers, p.Logger))
					r.Put("/{subSellerId}/permissions", controllers.GrantSubSellerPermissions(p.Sellers, p.Logger))
				})

				r.Route("/products/{productId}", func(r chi.Router) {
					r.Put("/price", controllers.SetPrice(p.Pricing, p.Logger))
					r.Get("/price-history", controllers.PriceHistory(p.Pricing, p.Logger))
					r.Delete("/price", controllers.DeactivatePrice(p.Pricing, p.Logger))
				})
				r.Post("/prices/bulk", controllers.BulkSetPrices(p.Pricing, p.Logger))
			})

			r.Route("/favorites", func(r chi.Router) {
				r.Get("/", controllers.ListFavorites(p.Favorites, p.Logger))
				r.Post("/{productId}", controllers.AddFavorite(p.Favorites, p.Logger))
				r.Delete("/{productId}", controllers.RemoveFavorite(p.Favorites, p.Logger))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(p.Notifications, p.Logger))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, p.Logger))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, p.Logger))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(p.Config.JWT, p.Logger))
		r.Use(middleware.RequireRole(p.Logger, enums.UserRoleAdmin))
		r.Use(middleware.RateLimit(p.Redis, p.Config.RateLimit, p.Logger))

		r.Route("/sellers/{sellerId}", func(r chi.Router) {
			r.Get("/", controllers.AdminGetSeller(p.Sellers, p.Logger))
			r.Patch("/status", controllers.AdminUpdateSellerStatus(p.Sellers, p.Logger))
		})
	})

	return r
}
