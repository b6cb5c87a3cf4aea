package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmathew12/nsc-events-fullstack/pkg/media"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// ReferenceSlot names one owning-entity foreign-key column that can point at
// a media record. The unreferenced query is built from the configured slots,
// so adding a new owning-entity kind means registering a slot here rather
// than editing the repository.
type ReferenceSlot struct {
	Table  string
	Column string
}

// ActivitySlots are the reference slots of the events application's Activity
// entity: one cover image and one attached document per activity.
var ActivitySlots = []ReferenceSlot{
	{Table: "activity", Column: "cover_image_id"},
	{Table: "activity", Column: "document_id"},
}

// Repository implements media.Repository using PostgreSQL
type Repository struct {
	db    DBTX
	slots []ReferenceSlot
}

// New creates a new PostgreSQL repository. With no slots the unreferenced
// query matches every record, so callers almost always want to pass some.
func New(db DBTX, slots ...ReferenceSlot) *Repository {
	return &Repository{db: db, slots: slots}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool, slots ...ReferenceSlot) *Repository {
	return &Repository{db: pool, slots: slots}
}

var _ media.Repository = (*Repository)(nil)

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %w", media.ErrMediaExists, pgErr)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found: %w", pgErr)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing: %w", pgErr.ColumnName, pgErr)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required: %w", pgErr)
		default:
			return fmt.Errorf("database error in %s (code %s): %w", operation, pgErr.Code, pgErr)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

const mediaColumns = `id, file_name, original_name, mime_type, size_bytes, blob_key, blob_url, kind, owner_id, created_at`

func scanMedia(row pgx.Row) (*media.Media, error) {
	var m media.Media
	err := row.Scan(
		&m.ID, &m.FileName, &m.OriginalName, &m.MimeType, &m.SizeBytes,
		&m.BlobKey, &m.BlobURL, &m.Kind, &m.OwnerID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) CreateMedia(ctx context.Context, m *media.Media) error {
	query := `
		INSERT INTO media (
			id, file_name, original_name, mime_type, size_bytes,
			blob_key, blob_url, kind, owner_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		m.ID, m.FileName, m.OriginalName, m.MimeType, m.SizeBytes,
		m.BlobKey, m.BlobURL, m.Kind, m.OwnerID, m.CreatedAt)

	if err != nil {
		return r.handlePostgresError("create media", err)
	}

	return nil
}

func (r *Repository) GetMedia(ctx context.Context, id uuid.UUID) (*media.Media, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE id = $1`

	m, err := scanMedia(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, media.ErrMediaNotFound
		}
		return nil, r.handlePostgresError("get media", err)
	}

	return m, nil
}

func (r *Repository) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete media", err)
	}
	if tag.RowsAffected() == 0 {
		return media.ErrMediaNotFound
	}
	return nil
}

// ListUnreferenced returns records no configured reference slot points at.
func (r *Repository) ListUnreferenced(ctx context.Context) ([]*media.Media, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + mediaColumns + ` FROM media m WHERE 1=1`)
	for _, slot := range r.slots {
		fmt.Fprintf(&sb, ` AND NOT EXISTS (SELECT 1 FROM %s e WHERE e.%s = m.id)`, slot.Table, slot.Column)
	}
	sb.WriteString(` ORDER BY m.created_at DESC`)

	rows, err := r.db.Query(ctx, sb.String())
	if err != nil {
		return nil, r.handlePostgresError("list unreferenced media", err)
	}
	defer rows.Close()

	return collectMedia(rows)
}

func (r *Repository) ListMedia(ctx context.Context, filters media.MediaListFilters) ([]*media.Media, error) {
	query, args := buildFilterQuery(`SELECT `+mediaColumns+` FROM media WHERE 1=1`, filters)
	query += ` ORDER BY created_at DESC`

	if filters.Limit != nil {
		args = append(args, *filters.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filters.Offset != nil {
		args = append(args, *filters.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list media", err)
	}
	defer rows.Close()

	return collectMedia(rows)
}

func (r *Repository) CountMedia(ctx context.Context, filters media.MediaListFilters) (int64, error) {
	query, args := buildFilterQuery(`SELECT COUNT(*) FROM media WHERE 1=1`, filters)

	var count int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, r.handlePostgresError("count media", err)
	}

	return count, nil
}

func buildFilterQuery(base string, filters media.MediaListFilters) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(base)
	var args []interface{}

	if filters.Kind != nil {
		args = append(args, *filters.Kind)
		fmt.Fprintf(&sb, ` AND kind = $%d`, len(args))
	}
	if filters.OwnerID != nil {
		args = append(args, *filters.OwnerID)
		fmt.Fprintf(&sb, ` AND owner_id = $%d`, len(args))
	}
	if filters.CreatedAfter != nil {
		args = append(args, *filters.CreatedAfter)
		fmt.Fprintf(&sb, ` AND created_at > $%d`, len(args))
	}
	if filters.CreatedBefore != nil {
		args = append(args, *filters.CreatedBefore)
		fmt.Fprintf(&sb, ` AND created_at < $%d`, len(args))
	}

	return sb.String(), args
}

func collectMedia(rows pgx.Rows) ([]*media.Media, error) {
	var result []*media.Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
