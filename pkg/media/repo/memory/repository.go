package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jmathew12/nsc-events-fullstack/pkg/media"
)

// Repository implements media.Repository using in-memory storage. It also
// tracks owning-entity reference slots so ListUnreferenced can be exercised
// without a database.
type Repository struct {
	mu         sync.RWMutex
	records    map[uuid.UUID]*media.Media
	references map[refKey]uuid.UUID // (entity, slot) -> media id
}

type refKey struct {
	entityID uuid.UUID
	slot     string
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		records:    make(map[uuid.UUID]*media.Media),
		references: make(map[refKey]uuid.UUID),
	}
}

var _ media.Repository = (*Repository)(nil)

func (r *Repository) CreateMedia(ctx context.Context, m *media.Media) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy to avoid external modifications
	mCopy := *m
	r.records[m.ID] = &mCopy

	return nil
}

func (r *Repository) GetMedia(ctx context.Context, id uuid.UUID) (*media.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.records[id]
	if !exists {
		return nil, media.ErrMediaNotFound
	}

	mCopy := *m
	return &mCopy, nil
}

func (r *Repository) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[id]; !exists {
		return media.ErrMediaNotFound
	}

	delete(r.records, id)

	// Set-null semantics: drop any slot still pointing at the record.
	for k, refID := range r.references {
		if refID == id {
			delete(r.references, k)
		}
	}

	return nil
}

func (r *Repository) ListUnreferenced(ctx context.Context) ([]*media.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	referenced := make(map[uuid.UUID]bool, len(r.references))
	for _, id := range r.references {
		referenced[id] = true
	}

	var result []*media.Media
	for id, m := range r.records {
		if !referenced[id] {
			mCopy := *m
			result = append(result, &mCopy)
		}
	}

	sortByCreatedAtDesc(result)
	return result, nil
}

func (r *Repository) ListMedia(ctx context.Context, filters media.MediaListFilters) ([]*media.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*media.Media
	for _, m := range r.records {
		if !matches(m, filters) {
			continue
		}
		mCopy := *m
		result = append(result, &mCopy)
	}

	sortByCreatedAtDesc(result)

	offset := 0
	if filters.Offset != nil {
		offset = *filters.Offset
	}
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]

	if filters.Limit != nil && *filters.Limit < len(result) {
		result = result[:*filters.Limit]
	}

	return result, nil
}

func (r *Repository) CountMedia(ctx context.Context, filters media.MediaListFilters) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, m := range r.records {
		if matches(m, filters) {
			count++
		}
	}
	return count, nil
}

func matches(m *media.Media, filters media.MediaListFilters) bool {
	if filters.Kind != nil && m.Kind != *filters.Kind {
		return false
	}
	if filters.OwnerID != nil {
		if m.OwnerID == nil || *m.OwnerID != *filters.OwnerID {
			return false
		}
	}
	if filters.CreatedAfter != nil && !m.CreatedAt.After(*filters.CreatedAfter) {
		return false
	}
	if filters.CreatedBefore != nil && !m.CreatedAt.Before(*filters.CreatedBefore) {
		return false
	}
	return true
}

func sortByCreatedAtDesc(ms []*media.Media) {
	sort.Slice(ms, func(i, j int) bool {
		return ms[i].CreatedAt.After(ms[j].CreatedAt)
	})
}

// SetReference records that an owning entity's slot points at a media
// record, mirroring a foreign-key column in the relational store.
func (r *Repository) SetReference(entityID uuid.UUID, slot string, mediaID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.references[refKey{entityID: entityID, slot: slot}] = mediaID
}

// ClearReference drops an owning entity's slot reference.
func (r *Repository) ClearReference(entityID uuid.UUID, slot string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.references, refKey{entityID: entityID, slot: slot})
}

// RemoveOwner nulls the owner on all media the principal uploaded,
// mirroring the relational store's ON DELETE SET NULL rule.
func (r *Repository) RemoveOwner(ownerID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.records {
		if m.OwnerID != nil && *m.OwnerID == ownerID {
			m.OwnerID = nil
		}
	}
}
