package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/chi-demo/middleware"

	"github.com/jmathew12/nsc-events-fullstack/internal/api"
	"github.com/jmathew12/nsc-events-fullstack/pkg/media"
	repopg "github.com/jmathew12/nsc-events-fullstack/pkg/media/repo/postgres"
	"github.com/jmathew12/nsc-events-fullstack/pkg/media/storage/s3"
	"github.com/jmathew12/nsc-events-fullstack/pkg/media/transform"
)

type Config struct {
	DB           DbConfig
	S3           S3Config
	ApiKeySHA256 string `env:"API_KEY_SHA256" env-default:"1"`
	JwtSecret    string `env:"JWT_SECRET" env-default:"dev-secret"`
}

type DbConfig struct {
	Port     uint16 `env:"MEDIA_PG_PORT" env-default:"5432"`
	Host     string `env:"MEDIA_PG_HOST" env-default:"localhost"`
	Name     string `env:"MEDIA_PG_NAME" env-default:"nsc_events"`
	User     string `env:"MEDIA_PG_USER" env-default:"nsc"`
	Password string `env:"MEDIA_PG_PASSWORD" env-default:"pwd"`
}

type S3Config struct {
	Endpoint        string `env:"AWS_S3_ENDPOINT" env-default:"http://localhost:9000"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	BucketName      string `env:"AWS_S3_BUCKET" env-default:"media-bucket"`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
}

func (c DbConfig) toDatabaseUrl() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}
	return u.String()
}

func NewDbPool(ctx context.Context, dbConfig DbConfig) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dbConfig.toDatabaseUrl())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func initializeS3Backend(config S3Config) (media.BlobStore, error) {
	backend, err := s3.New(s3.Config{
		Endpoint:        config.Endpoint,
		AccessKeyID:     config.AccessKeyID,
		SecretAccessKey: config.SecretAccessKey,
		Bucket:          config.BucketName,
		Region:          config.Region,
		UsePathStyle:    config.Endpoint != "",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 backend: %w", err)
	}
	return backend, nil
}

func main() {
	// Load configuration
	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}
	apiKeyConfig := middleware.ApiKeyConfig{
		APIKeys: map[string]string{
			"key1": config.ApiKeySHA256,
		},
	}

	// Initialize database connection
	ctx := context.Background()
	dbPool, err := NewDbPool(ctx, config.DB)
	if err != nil {
		slog.Error("Failed to connect to database", "err", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	mediaRepo := repopg.NewWithPool(dbPool, repopg.ActivitySlots...)

	// Initialize S3 storage backend
	s3Backend, err := initializeS3Backend(config.S3)
	if err != nil {
		slog.Error("Failed to initialize S3 backend", "err", err)
		os.Exit(1)
	}

	// Initialize service
	mediaService, err := media.New(
		media.WithRepository(mediaRepo),
		media.WithBlobStore(s3Backend),
		media.WithTransformer(transform.NewJPEGTransformer()),
		media.WithEventSink(media.NewLogEventSink(slog.Default())),
	)
	if err != nil {
		slog.Error("Failed to initialize media service", "err", err)
		os.Exit(1)
	}

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	mediaHandler := api.NewMediaHandler(mediaService)

	apiKeyMiddleware, err := middleware.ApiKeyMiddleware(apiKeyConfig)
	if err != nil {
		slog.Error("Failed initialize API Key middleware", "err", err)
		return
	}

	// Reconcile is destructive; it sits behind JWT auth rather than the
	// shared API key.
	tokenAuth := jwtauth.New("HS256", []byte(config.JwtSecret), nil)

	server.R.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(apiKeyMiddleware)
			r.Mount("/media", mediaHandler.Routes())
		})
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(tokenAuth))
			r.Use(jwtauth.Authenticator)
			r.Post("/admin/reconcile", mediaHandler.Reconcile)
		})
	})

	// Start server
	server.Run()
}
