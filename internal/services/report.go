package services

import (
	"context"
	"time"

	"fleet-manager/internal/inspection"
	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"
	"fleet-manager/pkg/cache"

	log "github.com/sirupsen/logrus"
)

const fleetReportCacheKey = "fleet_report"

// VehicleReport is the per vehicle line of the fleet report.
type VehicleReport struct {
	VehicleID                 string            `json:"vehicleId"`
	Plate                     string            `json:"plate"`
	Status                    inspection.Status `json:"inspectionStatus"`
	NextInspection            *time.Time        `json:"nextInspection,omitempty"`
	DaysUntilInspection       *int              `json:"daysUntilInspection,omitempty"`
	AverageKmPerYear          int               `json:"averageKmPerYear"`
	KmPerMonthSinceInspection int               `json:"kmPerMonthSinceInspection"`
}

type FleetReport struct {
	GeneratedAt  time.Time                   `json:"generatedAt"`
	Total        int                         `json:"total"`
	StatusCounts map[inspection.Status]int64 `json:"statusCounts"`
	Vehicles     []VehicleReport             `json:"vehicles"`
}

type ReportService struct {
	vehicles     VehicleStore
	cacheManager cache.CacheManager
	cacheConfig  cache.CacheConfig
	calendar
}

func NewReportService(vehicles VehicleStore, loc *time.Location) *ReportService {
	return &ReportService{
		vehicles:    vehicles,
		cacheConfig: cache.DefaultCacheConfig(),
		calendar:    newCalendar(loc),
	}
}

func (s *ReportService) SetCacheManager(cacheManager cache.CacheManager) {
	s.cacheManager = cacheManager
}

// FleetReport summarises inspection status and odometer usage of the fleet.
func (s *ReportService) FleetReport(ctx context.Context) (*FleetReport, error) {
	if s.cacheManager != nil {
		var cached FleetReport
		found, err := s.cacheManager.Get(ctx, fleetReportCacheKey, &cached)
		if err != nil {
			log.WithError(err).Warn("Cache error for fleet report")
		} else if found {
			return &cached, nil
		}
	}

	vehicles, err := s.vehicles.FindAll(ctx, repository.VehicleFilter{})
	if err != nil {
		return nil, err
	}
	counts, err := s.vehicles.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := s.today()
	report := &FleetReport{
		GeneratedAt:  now.UTC(),
		Total:        len(vehicles),
		StatusCounts: counts,
		Vehicles:     make([]VehicleReport, 0, len(vehicles)),
	}
	for _, v := range vehicles {
		report.Vehicles = append(report.Vehicles, vehicleReport(v, today, now))
	}

	if s.cacheManager != nil {
		ttl := s.cacheConfig.GetTTLForDataType("report")
		if err := s.cacheManager.Set(ctx, fleetReportCacheKey, report, ttl, cache.TagReports, cache.TagAllVehicles); err != nil {
			log.WithError(err).Warn("Failed to cache fleet report")
		}
	}

	return report, nil
}

func vehicleReport(v *models.Vehicle, today, now time.Time) VehicleReport {
	line := VehicleReport{
		VehicleID:                 v.ID.Hex(),
		Plate:                     v.Plate,
		Status:                    inspection.Normalize(v.InspectionStatus),
		NextInspection:            v.NextInspection,
		AverageKmPerYear:          inspection.AverageKmPerYear(v.CurrentMileage, v.InitialMileage, v.FirstRegistrationDate, now),
		KmPerMonthSinceInspection: inspection.KmPerMonthSinceInspection(v.CurrentMileage, v.LastInspectionMileage, v.LastInspection, now),
	}
	if v.NextInspection != nil {
		days := inspection.DaysUntil(*v.NextInspection, today)
		line.DaysUntilInspection = &days
	}
	return line
}
