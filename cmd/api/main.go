package main

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mpratt/folio-api/internal/auth"
	"github.com/mpratt/folio-api/internal/authclient"
	"github.com/mpratt/folio-api/internal/config"
	"github.com/mpratt/folio-api/internal/handlers"
	"github.com/mpratt/folio-api/internal/imgproc"
	"github.com/mpratt/folio-api/internal/middleware"
	"github.com/mpratt/folio-api/internal/repository"
	"github.com/mpratt/folio-api/internal/storage"
	"github.com/mpratt/folio-api/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// Database connection
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.Photo{}); err != nil {
		logger.Fatal("failed to auto migrate models", zap.Error(err))
	}

	// Custom HTTP client with pinned TLS config for the storage endpoint
	tr := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS13,
			CipherSuites: []uint16{
				tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			},
		},
	}
	httpClient := &http.Client{Transport: tr}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithHTTPClient(httpClient),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.StorageAccessKey, cfg.StorageSecret, "")),
		awsconfig.WithRegion(cfg.StorageRegion),
	)
	if err != nil {
		logger.Fatal("failed to load storage config", zap.Error(err))
	}
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.StorageEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.StorageEndpoint)
		}
	})

	store := storage.NewS3Store(s3Client, cfg.StorageBucket, cfg.PublicBaseURL)
	photos := repository.NewGormPhotoRepository(db)
	authSvc := authclient.New(cfg.AuthURL, cfg.AuthAPIKey)

	cookies := auth.CookieWriter{Secure: cfg.Production(), RefreshTTL: cfg.RefreshTTL}
	authHandlers := handlers.NewAuthHandlers(authSvc, cookies, logger)
	healthHandler := handlers.NewHealthHandler(db, logger)
	photoHandlers := handlers.NewPhotoHandlers(
		photos, store, imgproc.NewProcessor(), logger,
		cfg.MaxUploadBytes, cfg.MaxUploadBytesV2, cfg.ProcessUploads,
	)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders)

	r.Get("/healthz", healthHandler.Check)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandlers.Login)
			r.Post("/register", authHandlers.Register)
			r.Post("/logout", authHandlers.Logout)
			r.Post("/refresh", authHandlers.Refresh)
		})
		r.Get("/me", authHandlers.Me)

		r.Route("/photos", func(r chi.Router) {
			// Public reads
			r.Get("/feed", photoHandlers.Feed)
			r.Get("/", photoHandlers.Get)

			// Authenticated mutations
			r.Group(func(r chi.Router) {
				r.Use(auth.UserMiddleware(authSvc))
				r.Use(httprate.Limit(
					20,
					1*time.Minute,
					httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
				))
				r.Post("/upload", photoHandlers.Upload)
				r.Post("/upload-v2", photoHandlers.UploadV2)
				r.Delete("/", photoHandlers.Delete)
			})
		})
	})

	logger.Info("starting API server", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
