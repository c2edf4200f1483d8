package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/bumothekid/clothing-booth-api-v2/internal/account"
	"github.com/bumothekid/clothing-booth-api-v2/internal/auth"
	"github.com/bumothekid/clothing-booth-api-v2/internal/blob"
	"github.com/bumothekid/clothing-booth-api-v2/internal/catalog"
	"github.com/bumothekid/clothing-booth-api-v2/internal/config"
	"github.com/bumothekid/clothing-booth-api-v2/internal/db"
	"github.com/bumothekid/clothing-booth-api-v2/internal/imaging"
)

// Dependencies are the services the HTTP layer routes to. Redis is optional.
type Dependencies struct {
	DB       *db.DB
	Redis    *redis.Client
	Blobs    *blob.Service
	Tokens   *auth.TokenService
	Accounts *account.Manager
	Images   *imaging.Pipeline
	Clothing *catalog.ClothingManager
	Outfits  *catalog.OutfitManager
}

type Server struct {
	router *chi.Mux
	config *config.Config
}

func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	clientIPs, err := NewClientIPResolver(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("initializing client ip resolver: %w", err)
	}

	limits := NewRateLimits(cfg.RateLimit.Enabled, deps.Redis, cfg.RateLimit.Prefix, clientIPs)
	baseURL := cfg.Server.BaseURL

	authHandler := NewAuthHandler(deps.Tokens, deps.Accounts, baseURL)
	userHandler := NewUserHandler(deps.Accounts, baseURL, cfg.Storage.ProfileMaxBytes)
	imageHandler := NewImageHandler(deps.Images, cfg.Storage.UploadMaxBytes)
	clothingHandler := NewClothingHandler(deps.Clothing)
	outfitHandler := NewOutfitHandler(deps.Outfits)
	uploadHandler := NewUploadHandler(deps.Blobs)
	healthHandler := NewHealthHandler(deps.DB, deps.Redis)

	authMiddleware := NewAuthMiddleware(deps.Tokens)
	standard := limits.Route("default", 60, time.Minute)
	jsonBody := maxBodySizeMiddleware(1 << 20)

	r := chi.NewRouter()
	r.Use(slogRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(cfg.Server.AllowedOrigins))
	r.Use(securityHeadersMiddleware)

	r.Get("/health", healthHandler.Check)

	r.With(limits.Route("uploads", 60, time.Minute)).Get("/uploads/{area}/{imageID}", uploadHandler.ServeImage)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(limits.Global(cfg.RateLimit.GlobalPerMinute))

		r.Route("/auth", func(r chi.Router) {
			r.Use(jsonBody)
			r.With(limits.Route("guest", 5, time.Hour)).Post("/guest", authHandler.Guest)
			r.With(limits.Route("login", 5, time.Minute)).Post("/login", authHandler.Login)
			r.With(limits.Route("refresh", 5, time.Minute)).Post("/refresh", authHandler.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireAuth)
				r.With(limits.Route("signout", 2, time.Minute)).Post("/signout", authHandler.SignOut)
				r.With(limits.Route("upgrade", 5, time.Minute)).Post("/upgrade", authHandler.Upgrade)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)

			r.With(limits.Route("preview", 10, time.Minute)).Post("/images/preview", imageHandler.Preview)

			r.Route("/clothing", func(r chi.Router) {
				r.Use(jsonBody, standard)
				r.Post("/", clothingHandler.Create)
				r.Get("/{clothingID}", clothingHandler.Get)
				r.Patch("/{clothingID}", clothingHandler.Update)
				r.Delete("/{clothingID}", clothingHandler.Delete)
			})

			r.Route("/outfits", func(r chi.Router) {
				r.Use(jsonBody, standard)
				r.Post("/", outfitHandler.Create)
				r.Get("/{outfitID}", outfitHandler.Get)
				r.Patch("/{outfitID}", outfitHandler.Update)
				r.Delete("/{outfitID}", outfitHandler.Delete)
				r.Post("/{outfitID}/collage", outfitHandler.ComposeCollage)
			})

			r.Route("/users", func(r chi.Router) {
				r.With(jsonBody, standard).Get("/profile-pictures", userHandler.ListDefaultProfilePictures)
				r.With(jsonBody, standard).Get("/me", userHandler.GetMe)
				r.With(jsonBody, standard).Delete("/me", userHandler.DeleteMe)
				r.With(jsonBody, limits.Route("username", 1, time.Hour)).Put("/me/username", userHandler.UpdateUsername)
				r.With(standard).Put("/me/profile-picture", userHandler.SetProfilePicture)
				r.With(standard).Delete("/me/profile-picture", userHandler.RemoveProfilePicture)
				r.With(jsonBody, standard).Post("/me/outfits", outfitHandler.Create)
				r.With(standard).Get("/{userID}", userHandler.GetUser)
				r.With(standard).Get("/{userID}/clothing", clothingHandler.ListByUser)
				r.With(standard).Get("/{userID}/outfits", outfitHandler.ListByUser)
			})
		})
	})

	return &Server{
		router: r,
		config: cfg,
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
