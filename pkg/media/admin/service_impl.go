package admin

import (
	"context"

	"github.com/jmathew12/nsc-events-fullstack/pkg/media"
)

// adminService implements the Service interface
type adminService struct {
	repo media.Repository
	svc  media.Service
}

// Ensure adminService implements Service
var _ Service = (*adminService)(nil)

// ListAllMedia returns a paginated list of media records with optional filtering
func (s *adminService) ListAllMedia(ctx context.Context, req ListMediaRequest) (*ListMediaResponse, error) {
	filters := req.Filters

	limit := 100 // default
	if filters.Limit != nil {
		limit = *filters.Limit
	} else {
		filters.Limit = &limit
	}
	offset := 0
	if filters.Offset != nil {
		offset = *filters.Offset
	}

	records, err := s.repo.ListMedia(ctx, filters)
	if err != nil {
		return nil, err
	}

	return &ListMediaResponse{
		Media:   records,
		Limit:   limit,
		Offset:  offset,
		HasMore: len(records) == limit,
	}, nil
}

// CountMedia returns the count of media records matching the given filters
func (s *adminService) CountMedia(ctx context.Context, req CountRequest) (*CountResponse, error) {
	count, err := s.repo.CountMedia(ctx, req.Filters)
	if err != nil {
		return nil, err
	}

	return &CountResponse{Count: count}, nil
}

// Reconcile triggers the orphan sweep through the media service
func (s *adminService) Reconcile(ctx context.Context) (*ReconcileResponse, error) {
	result, err := s.svc.ReconcileOrphans(ctx)
	if err != nil {
		return nil, err
	}

	resp := &ReconcileResponse{DeletedCount: result.DeletedCount}
	for _, id := range result.FailedIDs() {
		resp.FailedIDs = append(resp.FailedIDs, id.String())
	}

	return resp, nil
}
