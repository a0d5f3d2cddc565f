package service

import (
	"context"
	"fmt"

	"github.com/jengzang/regps-supervision-go/internal/analysis/anomaly"
	"github.com/jengzang/regps-supervision-go/internal/analysis/scoring"
	"github.com/jengzang/regps-supervision-go/internal/errorutil"
	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/spatial"
)

// AnomalyService evaluates short windows of readings against the anomaly rules
type AnomalyService struct{}

func NewAnomalyService() *AnomalyService {
	return &AnomalyService{}
}

// Detect evaluates the supplied speeds of a request window
func (s *AnomalyService) Detect(req models.AnomalyRequest) (models.AnomalyVerdict, error) {
	return anomaly.Evaluate(models.Speeds(req.Locations))
}

// BehaviorService scores short windows of readings
type BehaviorService struct{}

func NewBehaviorService() *BehaviorService {
	return &BehaviorService{}
}

// Classify scores the supplied speeds of a request window
func (s *BehaviorService) Classify(req models.BehaviorRequest) (models.BehaviorScore, error) {
	return scoring.WindowScore(models.Speeds(req.Locations), len(req.Locations))
}

// ZoneLister lists the configured zones
type ZoneLister interface {
	ListZones(ctx context.Context) ([]models.Zone, error)
}

// GeofenceService checks locations against the configured zones
type GeofenceService struct {
	zones ZoneLister
}

func NewGeofenceService(zones ZoneLister) *GeofenceService {
	return &GeofenceService{zones: zones}
}

// Verify returns every zone whose circle contains the location
func (s *GeofenceService) Verify(ctx context.Context, req models.GeofenceRequest) (*models.GeofenceResult, error) {
	if req.Location == nil {
		return nil, errorutil.NewValidationError("location", "location is required")
	}
	zones, err := s.zones.ListZones(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load zones: %w", err)
	}

	p := spatial.Point{Lat: req.Location.Latitude, Lon: req.Location.Longitude}
	res := &models.GeofenceResult{DeviceID: req.DeviceID, Zones: []models.GeofenceMatch{}}
	for _, z := range zones {
		center := spatial.Point{Lat: z.Latitude, Lon: z.Longitude}
		if !spatial.PointInCircle(p, center, z.RadiusKm) {
			continue
		}
		res.Zones = append(res.Zones, models.GeofenceMatch{
			Zone:       z,
			DistanceKm: round2(spatial.Distance(p.Lat, p.Lon, center.Lat, center.Lon)),
		})
		if z.Type == models.ZoneTypeRestricted {
			res.Restricted = true
		}
	}
	res.Inside = len(res.Zones) > 0
	return res, nil
}
