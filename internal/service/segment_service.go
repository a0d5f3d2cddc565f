package service

import (
	"context"

	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/repository"
)

// SegmentService serves the route segments and anomaly events written by
// the batch jobs
type SegmentService struct {
	segments  *repository.SegmentRepository
	anomalies *repository.AnomalyRepository
}

// NewSegmentService creates a new segment service
func NewSegmentService(segments *repository.SegmentRepository, anomalies *repository.AnomalyRepository) *SegmentService {
	return &SegmentService{segments: segments, anomalies: anomalies}
}

// GetSegments retrieves route segments with filtering and pagination
func (s *SegmentService) GetSegments(ctx context.Context, filter models.SegmentFilter) ([]repository.SegmentRow, int64, error) {
	return s.segments.List(ctx, filter)
}

// GetSegmentByID retrieves a single route segment
func (s *SegmentService) GetSegmentByID(ctx context.Context, id int64) (*repository.SegmentRow, error) {
	return s.segments.GetByID(ctx, id)
}

// GetAnomalyEvents returns the points flagged for a device, most recent first
func (s *SegmentService) GetAnomalyEvents(ctx context.Context, filter models.AnomalyEventFilter) ([]models.AnomalyEvent, error) {
	events, err := s.anomalies.ListByDevice(ctx, filter.DeviceID, filter.Limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.AnomalyEvent{}
	}
	return events, nil
}
