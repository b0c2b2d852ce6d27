package main

import (
	"log"
	"log/slog"

	"github.com/vbonduro/adbuilder/internal/auth"
	"github.com/vbonduro/adbuilder/internal/blobstore"
	"github.com/vbonduro/adbuilder/internal/blobstore/cloudinary"
	"github.com/vbonduro/adbuilder/internal/blobstore/local"
	"github.com/vbonduro/adbuilder/internal/config"
	"github.com/vbonduro/adbuilder/internal/db"
	"github.com/vbonduro/adbuilder/internal/logging"
	"github.com/vbonduro/adbuilder/internal/qrcode"
	"github.com/vbonduro/adbuilder/internal/service"
	"github.com/vbonduro/adbuilder/internal/store"
	"github.com/vbonduro/adbuilder/internal/web"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	spaceStore := store.NewAdSpaceStore(database)
	designStore := store.NewAdDesignStore(database)

	blobs, media, err := newBlobStore(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize blob store", "backend", cfg.BlobBackend, "error", err)
		return
	}

	level, err := qrcode.ParseLevel(cfg.QRLevel)
	if err != nil {
		logger.Error("invalid code level", "error", err)
		return
	}

	var authn *auth.JWTAuthenticator
	if cfg.JWTSecret != "" {
		authn = auth.NewJWTAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)
	} else {
		logger.Warn("JWT_SECRET not set, all requests are anonymous")
	}

	adService := service.NewAdService(spaceStore, designStore, blobs, logger)
	server := web.NewServer(adService, web.Options{
		Origin:      cfg.PublicOrigin,
		Code:        qrcode.Options{Level: level, Size: cfg.QRSize, IncludeMargin: true},
		Media:       media,
		Auth:        authn,
		CORSOrigins: cfg.CORSOrigins,
		SessionTTL:  cfg.SessionTTL,
		MaxSessions: cfg.MaxSessions,
	}, logger)

	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

// newBlobStore returns the configured backend and, for the local backend, the
// reader that serves its objects under /media.
func newBlobStore(cfg *config.Config, logger *slog.Logger) (blobstore.Store, blobstore.Reader, error) {
	switch cfg.BlobBackend {
	case "cloudinary":
		logger.Info("using Cloudinary media backend", "bucket", cfg.BlobBucket)
		s, err := cloudinary.NewCloudinaryStore(cfg.CloudinaryURL, cfg.BlobBucket)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	default:
		logger.Info("using local media backend", "path", cfg.BlobLocalPath)
		s, err := local.NewLocalStore(cfg.BlobLocalPath, cfg.BlobBucket, cfg.PublicOrigin+"/media")
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
}
