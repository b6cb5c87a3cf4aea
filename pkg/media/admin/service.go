// Package admin provides administrative operations over the media subsystem:
// listing and counting records across all owners, and the on-demand orphan
// reconcile trigger.
package admin

import (
	"context"

	"github.com/jmathew12/nsc-events-fullstack/pkg/media"
)

// Service defines the interface for administrative media operations.
//
// Endpoints using this service should be protected with appropriate
// authentication and authorization middleware; the reconcile sweep deletes
// data.
type Service interface {
	// ListAllMedia returns a paginated list of media records with optional
	// filtering, across all owners.
	ListAllMedia(ctx context.Context, req ListMediaRequest) (*ListMediaResponse, error)

	// CountMedia returns the count of media records matching the filters.
	CountMedia(ctx context.Context, req CountRequest) (*CountResponse, error)

	// Reconcile runs the orphan sweep: every record no owning entity
	// references is deleted. The response always carries counts plus failed
	// ids; partial failure is not an error.
	Reconcile(ctx context.Context) (*ReconcileResponse, error)
}

// New creates a new admin Service over the given repository and media
// service.
func New(repo media.Repository, svc media.Service) Service {
	return &adminService{repo: repo, svc: svc}
}

// ListMediaRequest contains filters and pagination for listing media.
type ListMediaRequest struct {
	Filters media.MediaListFilters
}

// ListMediaResponse is a page of media records.
type ListMediaResponse struct {
	Media   []*media.Media
	Limit   int
	Offset  int
	HasMore bool
}

// CountRequest contains filters for counting media.
type CountRequest struct {
	Filters media.MediaListFilters
}

// CountResponse carries the count of matching records.
type CountResponse struct {
	Count int64
}

// ReconcileResponse carries the outcome of an orphan sweep.
type ReconcileResponse struct {
	DeletedCount int
	FailedIDs    []string
}
