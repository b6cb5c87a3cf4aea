package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/jmathew12/nsc-events-fullstack/pkg/media"
	"github.com/jmathew12/nsc-events-fullstack/pkg/media/admin"
	memoryrepo "github.com/jmathew12/nsc-events-fullstack/pkg/media/repo/memory"
	repopg "github.com/jmathew12/nsc-events-fullstack/pkg/media/repo/postgres"
	memorystorage "github.com/jmathew12/nsc-events-fullstack/pkg/media/storage/memory"
	"github.com/jmathew12/nsc-events-fullstack/pkg/media/storage/s3"
)

const usage = `Media Admin CLI

A lightweight admin tool for media management.

USAGE:
  admin <command> [options]

COMMANDS:
  list       List media records with optional filtering
  count      Count media records with optional filtering
  delete     Delete media records by id
  reconcile  Delete all media records no owning entity references

ENVIRONMENT VARIABLES:
  DATABASE_URL      PostgreSQL connection string (required for postgres)
  DATABASE_TYPE     Database type: postgres or memory (default: memory)
  STORAGE_TYPE      Storage type: s3 or memory (default: memory)
  AWS_S3_BUCKET     S3 bucket name (required for s3)
  AWS_S3_REGION     S3 region (default: us-east-1)
  AWS_S3_ENDPOINT   Custom S3 endpoint (e.g. MinIO)

  Configuration can be loaded from a .env file in the current directory.
  Command line environment variables override .env file values.

EXAMPLES:
  # List all media
  admin list

  # List media for a specific owner
  admin list --owner-id=550e8400-e29b-41d4-a716-446655440000

  # List with pagination
  admin list --limit=10 --offset=0

  # List by kind
  admin list --kind=image

  # Count all media
  admin count

  # Delete specific media records (needs storage access)
  admin delete 550e8400-e29b-41d4-a716-446655440000 6ba7b810-9dad-11d1-80b4-00c04fd430c8

  # Delete unreferenced media (needs storage access)
  admin reconcile

  # Output as JSON
  admin list --json
  admin reconcile --json

OPTIONS (for list/count):
  --owner-id=<uuid>            Filter by owner ID
  --kind=<kind>                Filter by kind (image, document)
  --created-after=<RFC3339>    Filter by creation time lower bound
  --created-before=<RFC3339>   Filter by creation time upper bound
  --limit=<n>                  Maximum results (list only, default: 100)
  --offset=<n>                 Pagination offset (list only, default: 0)
  --json                       Output as JSON
`

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	// Check for help
	if command == "help" || command == "--help" || command == "-h" {
		fmt.Println(usage)
		os.Exit(0)
	}

	adminSvc, mediaSvc, err := createServices()
	if err != nil {
		log.Fatalf("Failed to create admin service: %v", err)
	}

	ctx := context.Background()

	// Parse common flags
	filters, useJSON := parseFilters(os.Args[2:])

	// Execute command
	switch command {
	case "list":
		handleList(ctx, adminSvc, filters, useJSON)
	case "count":
		handleCount(ctx, adminSvc, filters, useJSON)
	case "delete":
		handleDelete(ctx, mediaSvc, os.Args[2:], useJSON)
	case "reconcile":
		handleReconcile(ctx, adminSvc, useJSON)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func createServices() (admin.Service, media.Service, error) {
	repo, err := createRepository()
	if err != nil {
		return nil, nil, err
	}

	store, err := createBlobStore()
	if err != nil {
		return nil, nil, err
	}

	svc, err := media.New(
		media.WithRepository(repo),
		media.WithBlobStore(store),
	)
	if err != nil {
		return nil, nil, err
	}

	return admin.New(repo, svc), svc, nil
}

func createRepository() (media.Repository, error) {
	dbType := getEnv("DATABASE_TYPE", "memory")

	switch dbType {
	case "postgres":
		dbURL := os.Getenv("DATABASE_URL")
		if dbURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required for postgres")
		}

		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		// Test connection
		if err := pool.Ping(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}

		return repopg.NewWithPool(pool, repopg.ActivitySlots...), nil

	case "memory":
		return memoryrepo.New(), nil

	default:
		return nil, fmt.Errorf("unsupported database type: %s (use 'postgres' or 'memory')", dbType)
	}
}

func createBlobStore() (media.BlobStore, error) {
	storageType := getEnv("STORAGE_TYPE", "memory")

	switch storageType {
	case "s3":
		bucket := os.Getenv("AWS_S3_BUCKET")
		if bucket == "" {
			return nil, fmt.Errorf("AWS_S3_BUCKET environment variable is required for s3")
		}
		endpoint := os.Getenv("AWS_S3_ENDPOINT")
		return s3.New(s3.Config{
			Bucket:          bucket,
			Region:          getEnv("AWS_S3_REGION", "us-east-1"),
			Endpoint:        endpoint,
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			UsePathStyle:    endpoint != "",
		})

	case "memory":
		return memorystorage.New(), nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s (use 's3' or 'memory')", storageType)
	}
}

func parseFilters(args []string) (media.MediaListFilters, bool) {
	filters := media.MediaListFilters{}
	useJSON := false

	// Default pagination
	defaultLimit := 100
	defaultOffset := 0
	filters.Limit = &defaultLimit
	filters.Offset = &defaultOffset

	for _, arg := range args {
		if arg == "--json" {
			useJSON = true
			continue
		}

		// Parse key=value flags
		key, value := parseFlag(arg)

		switch key {
		case "owner-id":
			if id, err := uuid.Parse(value); err == nil {
				filters.OwnerID = &id
			}
		case "kind":
			kind := media.MediaKind(value)
			if kind.Valid() {
				filters.Kind = &kind
			}
		case "created-after":
			if t, err := time.Parse(time.RFC3339, value); err == nil {
				filters.CreatedAfter = &t
			}
		case "created-before":
			if t, err := time.Parse(time.RFC3339, value); err == nil {
				filters.CreatedBefore = &t
			}
		case "limit":
			if n, err := strconv.Atoi(value); err == nil {
				filters.Limit = &n
			}
		case "offset":
			if n, err := strconv.Atoi(value); err == nil {
				filters.Offset = &n
			}
		}
	}

	return filters, useJSON
}

func parseFlag(arg string) (string, string) {
	if len(arg) > 2 && arg[:2] == "--" {
		arg = arg[2:]
		for i, c := range arg {
			if c == '=' {
				return arg[:i], arg[i+1:]
			}
		}
		return arg, "true"
	}
	return "", ""
}

func handleList(ctx context.Context, adminSvc admin.Service, filters media.MediaListFilters, useJSON bool) {
	resp, err := adminSvc.ListAllMedia(ctx, admin.ListMediaRequest{
		Filters: filters,
	})
	if err != nil {
		log.Fatalf("Failed to list media: %v", err)
	}

	if useJSON {
		data, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(data))
		return
	}

	// Table output
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tKIND\tMIME\tSIZE\tOWNER\tCREATED\n")

	for _, m := range resp.Media {
		owner := "-"
		if m.OwnerID != nil {
			owner = m.OwnerID.String()[:8] + "..."
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			m.ID.String()[:8]+"...",
			truncate(m.OriginalName, 20),
			m.Kind,
			truncate(m.MimeType, 25),
			m.SizeBytes,
			owner,
			m.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d", len(resp.Media))
	if resp.HasMore {
		fmt.Printf(" (has more, use --offset=%d to continue)", resp.Offset+resp.Limit)
	}
	fmt.Println()
}

func handleCount(ctx context.Context, adminSvc admin.Service, filters media.MediaListFilters, useJSON bool) {
	resp, err := adminSvc.CountMedia(ctx, admin.CountRequest{
		Filters: filters,
	})
	if err != nil {
		log.Fatalf("Failed to count media: %v", err)
	}

	if useJSON {
		data, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Total count: %d\n", resp.Count)
}

func handleDelete(ctx context.Context, svc media.Service, args []string, useJSON bool) {
	var ids []uuid.UUID
	for _, arg := range args {
		if arg == "--json" {
			continue
		}
		id, err := uuid.Parse(arg)
		if err != nil {
			log.Fatalf("Invalid media id %q: %v", arg, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		log.Fatal("delete requires at least one media id")
	}

	result := svc.DeleteMediaBatch(ctx, ids)

	if useJSON {
		resp := struct {
			DeletedCount int      `json:"deleted_count"`
			FailedIDs    []string `json:"failed_ids"`
		}{DeletedCount: result.DeletedCount, FailedIDs: []string{}}
		for _, id := range result.FailedIDs() {
			resp.FailedIDs = append(resp.FailedIDs, id.String())
		}
		data, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Deleted: %d\n", result.DeletedCount)
	for _, f := range result.Failed {
		fmt.Printf("  %s: %v\n", f.ID, f.Err)
	}
}

func handleReconcile(ctx context.Context, adminSvc admin.Service, useJSON bool) {
	resp, err := adminSvc.Reconcile(ctx)
	if err != nil {
		log.Fatalf("Failed to reconcile: %v", err)
	}

	if useJSON {
		data, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Deleted: %d\n", resp.DeletedCount)
	if len(resp.FailedIDs) > 0 {
		fmt.Println("Failed:")
		for _, id := range resp.FailedIDs {
			fmt.Printf("  %s\n", id)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
