package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"gearshare/internal/api"
	"gearshare/internal/availability"
	"gearshare/internal/booking"
	"gearshare/internal/evidence"
	"gearshare/internal/listing"
	"gearshare/internal/payment"
	"gearshare/pkg/config"
)

type Dependencies struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client // optional; nil disables the blocked-dates cache
	Engine *booking.Engine
	Store  *booking.PGStore
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	evidenceRepo := evidence.NewRepository(deps.DB)
	listingRepo := listing.NewRepository(deps.DB)
	paymentRepo := payment.NewRepository(deps.DB)

	listingHandlers := listing.Handlers{
		DB:       deps.DB,
		Listings: listingRepo,
		Blocked:  availability.NewCache(deps.Redis, deps.Cfg.BlockedCacheTTL),
	}
	bookingHandlers := booking.Handlers{
		DB:       deps.DB,
		Engine:   deps.Engine,
		Store:    deps.Store,
		Evidence: evidenceRepo,
	}
	paymentHandlers := payment.Handlers{
		Cfg:  deps.Cfg,
		Repo: paymentRepo,
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(api.CORSMiddleware(api.CORSOptions{
			AllowedOrigins: deps.Cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", "X-User-ID"},
			MaxAgeSeconds:  600,
		}))

		// Public listing browse surface.
		r.Get("/listings", listingHandlers.List)
		r.Get("/listings/{id}", listingHandlers.Get)
		r.Get("/listings/{id}/blocked-dates", listingHandlers.BlockedDates)

		// Authenticated marketplace surface.
		r.Group(func(r chi.Router) {
			r.Use(api.UserAuth(deps.Cfg))

			r.Post("/listings", listingHandlers.Create)

			r.Post("/bookings", bookingHandlers.Create)
			r.Get("/bookings", bookingHandlers.List)
			r.Get("/bookings/{id}", bookingHandlers.Get)
			r.Get("/bookings/{id}/history", bookingHandlers.History)
			r.Post("/bookings/{id}/photos", bookingHandlers.AddPhoto)
			r.Get("/bookings/{id}/photos", bookingHandlers.ListPhotos)

			// Admin dispute resolution sits before the generic action route so
			// chi never treats "resolve-dispute" as a lifecycle action name.
			r.With(api.AdminAuth(deps.Cfg)).
				Post("/bookings/{id}/resolve-dispute", bookingHandlers.ResolveDispute)

			r.Post("/bookings/{id}/{action}", bookingHandlers.Act)
		})

		// Webhooks
		r.Post("/webhooks/payments/{provider}", paymentHandlers.Webhook)
	})

	return r
}
