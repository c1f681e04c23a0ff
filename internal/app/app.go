package app

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/templui/contentops/internal/archive"
	"github.com/templui/contentops/internal/config"
	"github.com/templui/contentops/internal/db"
	"github.com/templui/contentops/internal/extsync"
	"github.com/templui/contentops/internal/hosting"
	"github.com/templui/contentops/internal/middleware"
	"github.com/templui/contentops/internal/repository"
	"github.com/templui/contentops/internal/service"
	"github.com/templui/contentops/internal/storage"
)

type App struct {
	Cfg                *config.Config
	DB                 *sqlx.DB
	RateLimiter        *middleware.RateLimiter
	ArticleService     *service.ArticleService
	UploadTokenService *service.UploadTokenService
	UploadService      *service.UploadService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		_ = db.Close(database)
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	articleRepository := repository.NewArticleRepository(database)
	tokenRepository := repository.NewUploadTokenRepository(database)
	activityRepository := repository.NewActivityRepository(database)

	// Processors
	host, err := NewHost(cfg)
	if err != nil {
		_ = db.Close(database)
		return nil, fmt.Errorf("failed to initialize image host: %v", err)
	}
	archiveProcessor := archive.NewProcessor(cfg.TempDir, cfg.ArchiveSanitizeHTML)
	syncer := NewSyncer(cfg)

	// Services
	articleService := service.NewArticleService(articleRepository)
	uploadTokenService := service.NewUploadTokenService(
		tokenRepository,
		activityRepository,
		articleService,
		cfg.AppURL,
		cfg.TokenLength,
		cfg.TokenDefaultExpiry,
	)
	uploadService := service.NewUploadService(
		articleService,
		articleRepository,
		tokenRepository,
		activityRepository,
		host,
		archiveProcessor,
		syncer,
		cfg.TempDir,
	)

	slog.Info("app initialized",
		"image_host", host.Name(),
		"sync_targets", syncer.Targets(),
		"db_driver", cfg.DBDriver,
	)

	return &App{
		Cfg:                cfg,
		DB:                 database,
		RateLimiter:        middleware.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow),
		ArticleService:     articleService,
		UploadTokenService: uploadTokenService,
		UploadService:      uploadService,
	}, nil
}

// NewHost selects the image hosting backend named by IMAGE_HOST and bounds it by HOSTING_TIMEOUT.
func NewHost(cfg *config.Config) (hosting.Host, error) {
	var host hosting.Host
	switch cfg.ImageHost {
	case "imgbb", "":
		host = hosting.NewImgBB(cfg.ImgBBAPIKey)
	case "imgur":
		host = hosting.NewImgur(cfg.ImgurClientID)
	case "s3":
		store, err := storage.New(cfg)
		if err != nil {
			return nil, err
		}
		host = hosting.NewObjectStore(store, "public-uploads")
	default:
		return nil, fmt.Errorf("unknown IMAGE_HOST %q", cfg.ImageHost)
	}
	return hosting.Bounded(host, cfg.HostingTimeout), nil
}

// NewSyncer registers every external target that is configured.
func NewSyncer(cfg *config.Config) *extsync.Syncer {
	var targets []extsync.Target
	if cfg.AirtableEnabled() {
		targets = append(targets, extsync.NewAirtable(extsync.AirtableConfig{
			APIKey:         cfg.AirtableAPIKey,
			BaseID:         cfg.AirtableBaseID,
			Table:          cfg.AirtableTable,
			ImageField:     cfg.AirtableImageField,
			InstagramField: cfg.AirtableInstagramField,
			ContentField:   cfg.AirtableContentField,
		}))
	}
	if cfg.DiscordWebhookURL != "" {
		targets = append(targets, extsync.NewDiscord(cfg.DiscordWebhookURL))
	}
	return extsync.NewSyncer(cfg.SyncTimeout, targets...)
}

func (a *App) Close() error {
	if a.RateLimiter != nil {
		a.RateLimiter.Stop()
	}
	if a.DB != nil {
		return db.Close(a.DB)
	}
	return nil
}
