package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bumothekid/clothing-booth-api-v2/internal/account"
	"github.com/bumothekid/clothing-booth-api-v2/internal/api"
	"github.com/bumothekid/clothing-booth-api-v2/internal/auth"
	"github.com/bumothekid/clothing-booth-api-v2/internal/blob"
	"github.com/bumothekid/clothing-booth-api-v2/internal/catalog"
	"github.com/bumothekid/clothing-booth-api-v2/internal/config"
	"github.com/bumothekid/clothing-booth-api-v2/internal/db"
	"github.com/bumothekid/clothing-booth-api-v2/internal/imaging"
)

func main() {
	level := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if l, err := config.ParseLevel(cfg.Log.Level); err == nil {
		level.Set(l)
	}

	slog.Info("starting server", "name", cfg.Server.Name)

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.Info("database opened", "path", cfg.Database.Path)

	blobService, err := blob.NewService(cfg.Storage.Root, cfg.Storage.UploadMaxBytes)
	if err != nil {
		slog.Error("failed to initialize blob storage", "error", err)
		os.Exit(1)
	}
	slog.Info("blob storage initialized", "root", cfg.Storage.Root, "upload_max_bytes", cfg.Storage.UploadMaxBytes)

	pictures, err := account.NewDefaultPictures(blobService, cfg.Account.DefaultProfilePictures)
	if err != nil {
		slog.Error("failed to load default profile pictures", "error", err)
		os.Exit(1)
	}
	if err := pictures.Seed(); err != nil {
		slog.Error("failed to seed default profile pictures", "error", err)
		os.Exit(1)
	}

	userRepo := db.NewUserRepository(database)
	refreshRepo := db.NewRefreshTokenRepository(database)
	imageRepo := db.NewImageRepository(database)
	clothingRepo := db.NewClothingRepository(database)
	outfitRepo := db.NewOutfitRepository(database)

	var segmenter imaging.Segmenter = imaging.NewBackgroundKeyer()
	if cfg.Imaging.SegmentationURL != "" {
		segmenter = imaging.NewRemoteSegmenter(cfg.Imaging.SegmentationURL, cfg.Imaging.InferenceTimeout)
	}
	var embedder imaging.Embedder = imaging.ShapeEmbedder{}
	if cfg.Imaging.EmbeddingURL != "" {
		embedder = imaging.NewRemoteEmbedder(cfg.Imaging.EmbeddingURL, cfg.Imaging.InferenceTimeout)
	}
	slog.Info("imaging configured",
		"remote_segmentation", cfg.Imaging.SegmentationURL != "",
		"remote_embedding", cfg.Imaging.EmbeddingURL != "",
		"color_clusters", cfg.Imaging.ColorClusters)

	pipeline := imaging.NewPipeline(blobService, imageRepo, segmenter, imaging.NewClassifier(embedder), imaging.Config{
		BaseURL:          cfg.Server.BaseURL,
		UploadMaxBytes:   cfg.Storage.UploadMaxBytes,
		InferenceTimeout: cfg.Imaging.InferenceTimeout,
		ColorClusters:    cfg.Imaging.ColorClusters,
	})

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	tokens := auth.NewTokenService(userRepo, refreshRepo, jwtService, cfg.Auth.RefreshTokenTTL, cfg.Auth.MaxSessions)
	accounts := account.NewManager(userRepo, imageRepo, blobService, pipeline, pictures, cfg.Auth.RefreshTokenTTL).
		WithProfilePictureLimit(cfg.Storage.ProfileMaxBytes)

	var redisClient *redis.Client
	if cfg.RateLimit.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		defer redisClient.Close()

		pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			slog.Warn("redis unreachable, rate limits fail open until it recovers", "addr", cfg.RateLimit.RedisAddr, "error", err)
		} else {
			slog.Info("redis connected", "addr", cfg.RateLimit.RedisAddr)
		}
		pingCancel()
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	go db.NewCleanupService(refreshRepo, cfg.Storage.ReapInterval).Start(cleanupCtx)
	go blob.NewCleanupService(blobService, imageRepo, cfg.Storage.ReapInterval, cfg.Storage.TempTTL).Start(cleanupCtx)

	server, err := api.NewServer(cfg, api.Dependencies{
		DB:       database,
		Redis:    redisClient,
		Blobs:    blobService,
		Tokens:   tokens,
		Accounts: accounts,
		Images:   pipeline,
		Clothing: catalog.NewClothingManager(clothingRepo, pipeline),
		Outfits:  catalog.NewOutfitManager(outfitRepo, clothingRepo, pipeline),
	})
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	addr := cfg.Addr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", addr, "base_url", cfg.Server.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down")

	cleanupCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
