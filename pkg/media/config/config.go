// Package config wires the media subsystem together from declarative
// configuration: which metadata store, which blob store, and which options.
// The resulting ServerConfig is built once and treated as immutable.
package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmathew12/nsc-events-fullstack/pkg/media"
	"github.com/jmathew12/nsc-events-fullstack/pkg/media/blobkey"
	repomemory "github.com/jmathew12/nsc-events-fullstack/pkg/media/repo/memory"
	repopg "github.com/jmathew12/nsc-events-fullstack/pkg/media/repo/postgres"
	fsstorage "github.com/jmathew12/nsc-events-fullstack/pkg/media/storage/fs"
	memorystorage "github.com/jmathew12/nsc-events-fullstack/pkg/media/storage/memory"
	s3storage "github.com/jmathew12/nsc-events-fullstack/pkg/media/storage/s3"
	"github.com/jmathew12/nsc-events-fullstack/pkg/media/transform"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		DatabaseType: "memory",
		StorageType:  "memory",
	}
}

// ServerConfig represents configuration for the media service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"

	// Storage configuration
	StorageType string // "memory", "fs", "s3"
	FS          fsstorage.Config
	S3          s3storage.Config
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	switch c.StorageType {
	case "memory":
	case "fs":
		if c.FS.BaseDir == "" {
			return errors.New("fs base directory is required when using fs storage")
		}
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("s3 bucket is required when using s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}

	return nil
}

// BuildRepository creates the metadata repository from the configuration.
// The Activity reference slots are registered on the Postgres repository so
// reconciliation sees the application's owning-entity foreign keys.
func (c *ServerConfig) BuildRepository(ctx context.Context) (media.Repository, error) {
	switch c.DatabaseType {
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return repopg.NewWithPool(pool, repopg.ActivitySlots...), nil
	default:
		return repomemory.New(), nil
	}
}

// BuildBlobStore creates the blob storage backend from the configuration.
func (c *ServerConfig) BuildBlobStore() (media.BlobStore, error) {
	switch c.StorageType {
	case "fs":
		return fsstorage.New(c.FS)
	case "s3":
		return s3storage.New(c.S3)
	default:
		return memorystorage.New(), nil
	}
}

// BuildService creates a media Service instance from the configuration.
func (c *ServerConfig) BuildService(ctx context.Context) (media.Service, error) {
	repo, err := c.BuildRepository(ctx)
	if err != nil {
		return nil, err
	}

	store, err := c.BuildBlobStore()
	if err != nil {
		return nil, err
	}

	return media.New(
		media.WithRepository(repo),
		media.WithBlobStore(store),
		media.WithKeyGenerator(blobkey.NewTimePrefixGenerator()),
		media.WithTransformer(transform.NewJPEGTransformer()),
		media.WithEventSink(media.NewLogEventSink(nil)),
	)
}
