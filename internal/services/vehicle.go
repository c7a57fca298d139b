package services

import (
	"context"
	"strings"
	"time"

	"fleet-manager/internal/inspection"
	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"
	"fleet-manager/pkg/apperr"
	"fleet-manager/pkg/cache"
	"fleet-manager/pkg/jwt"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const allVehiclesCacheKey = "all_vehicles"

type VehicleService struct {
	vehicles     VehicleStore
	maintenance  MaintenanceStore
	tasks        TaskStore
	cacheManager cache.CacheManager
	cacheConfig  cache.CacheConfig
	tokens       *jwt.JWTUtil
	calendar
}

func NewVehicleService(vehicles VehicleStore, loc *time.Location) *VehicleService {
	return &VehicleService{
		vehicles:    vehicles,
		cacheConfig: cache.DefaultCacheConfig(),
		calendar:    newCalendar(loc),
	}
}

// SetCacheManager enables the read cache.
func (s *VehicleService) SetCacheManager(cacheManager cache.CacheManager) {
	s.cacheManager = cacheManager
}

// SetCacheConfig allows setting custom cache configuration
func (s *VehicleService) SetCacheConfig(config cache.CacheConfig) {
	s.cacheConfig = config
}

// SetDependents wires the stores whose records are deleted with a vehicle.
func (s *VehicleService) SetDependents(maintenance MaintenanceStore, tasks TaskStore) {
	s.maintenance = maintenance
	s.tasks = tasks
}

// SetTokenSigner enables confirmation by signed link.
func (s *VehicleService) SetTokenSigner(tokens *jwt.JWTUtil) {
	s.tokens = tokens
}

type CreateVehicleRequest struct {
	Plate                 string `json:"plate" validate:"required,min=1,max=20"`
	Brand                 string `json:"brand,omitempty" validate:"max=60"`
	Model                 string `json:"model,omitempty" validate:"max=60"`
	Company               string `json:"company,omitempty" validate:"max=100"`
	UserID                string `json:"userId,omitempty" validate:"omitempty,objectid"`
	FirstRegistrationDate string `json:"firstRegistrationDate" validate:"required,calendardate"`
	LastInspection        string `json:"lastInspection,omitempty" validate:"omitempty,calendardate"`
	NextInspection        string `json:"nextInspection,omitempty" validate:"omitempty,calendardate"`
	InspectionStatus      string `json:"inspectionStatus,omitempty"`
	InitialMileage        *int   `json:"initialMileage,omitempty" validate:"omitempty,min=0"`
	CurrentMileage        *int   `json:"currentMileage,omitempty" validate:"omitempty,min=0"`
	LastInspectionMileage *int   `json:"lastInspectionMileage,omitempty" validate:"omitempty,min=0"`
	FrontTires            string `json:"frontTires,omitempty"`
	RearTires             string `json:"rearTires,omitempty"`
	Notes                 string `json:"notes,omitempty"`
}

// UpdateVehicleRequest is a partial update. The plate cannot be changed.
type UpdateVehicleRequest struct {
	Brand                 *string `json:"brand,omitempty" validate:"omitempty,max=60"`
	Model                 *string `json:"model,omitempty" validate:"omitempty,max=60"`
	Company               *string `json:"company,omitempty" validate:"omitempty,max=100"`
	UserID                *string `json:"userId,omitempty" validate:"omitempty,objectid"`
	FirstRegistrationDate *string `json:"firstRegistrationDate,omitempty" validate:"omitempty,calendardate"`
	LastInspection        *string `json:"lastInspection,omitempty" validate:"omitempty,calendardate"`
	InspectionStatus      *string `json:"inspectionStatus,omitempty"`
	EmailSent             *bool   `json:"emailSent,omitempty"`
	InitialMileage        *int    `json:"initialMileage,omitempty" validate:"omitempty,min=0"`
	CurrentMileage        *int    `json:"currentMileage,omitempty" validate:"omitempty,min=0"`
	LastInspectionMileage *int    `json:"lastInspectionMileage,omitempty" validate:"omitempty,min=0"`
	FrontTires            *string `json:"frontTires,omitempty"`
	RearTires             *string `json:"rearTires,omitempty"`
	Notes                 *string `json:"notes,omitempty"`
}

// GetAllVehicles lists vehicles. The unfiltered list is served from the
// cache when one is configured.
func (s *VehicleService) GetAllVehicles(ctx context.Context, filter repository.VehicleFilter) ([]*models.Vehicle, error) {
	cacheable := s.cacheManager != nil && filter == (repository.VehicleFilter{})

	if cacheable {
		cached, err := s.cacheManager.GetVehicleList(ctx, allVehiclesCacheKey)
		if err != nil {
			log.WithError(err).Warn("Cache error for vehicle list")
		} else if cached != nil {
			return cached, nil
		}
	}

	vehicles, err := s.vehicles.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	if cacheable {
		ttl := s.cacheConfig.GetTTLForDataType("vehicle_list")
		if err := s.cacheManager.SetVehicleList(ctx, allVehiclesCacheKey, vehicles, ttl); err != nil {
			log.WithError(err).Warn("Failed to cache vehicle list")
		}
	}

	return vehicles, nil
}

func (s *VehicleService) GetVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	objectID, err := repository.ParseID(id, "vehicle")
	if err != nil {
		return nil, err
	}

	if s.cacheManager != nil {
		cached, err := s.cacheManager.GetVehicle(ctx, id)
		if err != nil {
			log.WithError(err).WithField("vehicle_id", id).Warn("Cache error for vehicle")
		} else if cached != nil {
			return cached, nil
		}
	}

	vehicle, err := s.vehicles.FindByID(ctx, objectID)
	if err != nil {
		return nil, err
	}

	if s.cacheManager != nil {
		ttl := s.cacheConfig.GetTTLForDataType("vehicle")
		if err := s.cacheManager.SetVehicle(ctx, vehicle, ttl); err != nil {
			log.WithError(err).WithField("vehicle_id", id).Warn("Failed to cache vehicle")
		}
	}

	return vehicle, nil
}

// CreateVehicle stores a new vehicle. A missing next inspection is computed
// from the registration date and the status is classified the same way the
// reconciliation job would.
func (s *VehicleService) CreateVehicle(ctx context.Context, req *CreateVehicleRequest) (*models.Vehicle, error) {
	plate := strings.ToUpper(strings.TrimSpace(req.Plate))
	if plate == "" {
		return nil, apperr.Validation("plate is required")
	}

	firstRegistration, err := s.date(req.FirstRegistrationDate, "firstRegistrationDate")
	if err != nil {
		return nil, err
	}
	lastInspection, err := s.optionalDate(req.LastInspection, "lastInspection")
	if err != nil {
		return nil, err
	}
	next, err := s.optionalDate(req.NextInspection, "nextInspection")
	if err != nil {
		return nil, err
	}
	userID, err := optionalID(req.UserID, "user")
	if err != nil {
		return nil, err
	}

	var requested inspection.Status
	if req.InspectionStatus != "" {
		if requested, err = inspection.ParseStatus(req.InspectionStatus); err != nil {
			return nil, apperr.Validation("%v", err)
		}
	}

	today := s.today()
	if next == nil {
		due := inspection.NextInspectionDue(firstRegistration, lastInspection, today)
		next = &due
	}

	initial := 0
	if req.InitialMileage != nil {
		initial = *req.InitialMileage
	}
	current := initial
	if req.CurrentMileage != nil {
		current = *req.CurrentMileage
	}
	atInspection := current
	if req.LastInspectionMileage != nil {
		atInspection = *req.LastInspectionMileage
	}

	now := s.now().UTC()
	vehicle := &models.Vehicle{
		ID:                    primitive.NewObjectID(),
		Plate:                 plate,
		Brand:                 strings.TrimSpace(req.Brand),
		Model:                 strings.TrimSpace(req.Model),
		Company:               strings.TrimSpace(req.Company),
		UserID:                userID,
		FirstRegistrationDate: firstRegistration,
		LastInspection:        lastInspection,
		NextInspection:        next,
		InspectionStatus:      inspection.InitialStatus(firstRegistration, lastInspection, *next, requested, today),
		EmailSent:             false,
		InitialMileage:        &initial,
		CurrentMileage:        &current,
		LastInspectionMileage: &atInspection,
		FrontTires:            req.FrontTires,
		RearTires:             req.RearTires,
		Notes:                 req.Notes,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.vehicles.Create(ctx, vehicle); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"vehicle_id":      vehicle.ID.Hex(),
		"plate":           vehicle.Plate,
		"next_inspection": next.Format(time.DateOnly),
		"status":          vehicle.InspectionStatus,
	}).Info("Vehicle created")

	s.invalidate(ctx, vehicle.ID.Hex())
	return vehicle, nil
}

// UpdateVehicle applies a partial update. When the registration date, the
// last inspection or the status changes, the next inspection and status are
// derived again.
func (s *VehicleService) UpdateVehicle(ctx context.Context, id string, req *UpdateVehicleRequest) (*models.Vehicle, error) {
	objectID, err := repository.ParseID(id, "vehicle")
	if err != nil {
		return nil, err
	}

	vehicle, err := s.vehicles.FindByID(ctx, objectID)
	if err != nil {
		return nil, err
	}

	patch, err := s.buildPatch(vehicle, req)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return vehicle, nil
	}

	if err := s.vehicles.Update(ctx, objectID, patch); err != nil {
		return nil, err
	}
	patch.Apply(vehicle)
	vehicle.UpdatedAt = s.now().UTC()

	s.invalidate(ctx, id)
	return vehicle, nil
}

func (s *VehicleService) buildPatch(vehicle *models.Vehicle, req *UpdateVehicleRequest) (models.VehiclePatch, error) {
	patch := models.VehiclePatch{
		Brand:                 req.Brand,
		Model:                 req.Model,
		Company:               req.Company,
		EmailSent:             req.EmailSent,
		InitialMileage:        req.InitialMileage,
		CurrentMileage:        req.CurrentMileage,
		LastInspectionMileage: req.LastInspectionMileage,
		FrontTires:            req.FrontTires,
		RearTires:             req.RearTires,
		Notes:                 req.Notes,
	}

	if req.UserID != nil {
		userID, err := repository.ParseID(*req.UserID, "user")
		if err != nil {
			return patch, err
		}
		patch.UserID = &userID
	}

	if req.InspectionStatus != nil {
		status, err := inspection.ParseStatus(*req.InspectionStatus)
		if err != nil {
			return patch, apperr.Validation("%v", err)
		}
		patch.InspectionStatus = &status
	}

	// A supplied status still goes through the rules so an exempt or
	// inspected vehicle stays confirmed.
	derive := req.InspectionStatus != nil
	if req.FirstRegistrationDate != nil {
		firstRegistration, err := s.date(*req.FirstRegistrationDate, "firstRegistrationDate")
		if err != nil {
			return patch, err
		}
		patch.FirstRegistrationDate = &firstRegistration
		derive = derive || !firstRegistration.Equal(vehicle.FirstRegistrationDate)
	}
	if req.LastInspection != nil {
		lastInspection, err := s.date(*req.LastInspection, "lastInspection")
		if err != nil {
			return patch, err
		}
		patch.LastInspection = &lastInspection
		if vehicle.LastInspection == nil || !lastInspection.Equal(*vehicle.LastInspection) {
			derive = true
			if patch.LastInspectionMileage == nil {
				patch.LastInspectionMileage = currentMileage(vehicle, patch)
			}
		}
	}

	if derive {
		after := *vehicle
		patch.Apply(&after)

		today := s.today()
		next := inspection.NextInspectionDue(after.FirstRegistrationDate, after.LastInspection, today)
		status := inspection.DeriveStatus(after.FirstRegistrationDate, after.LastInspection, next, after.InspectionStatus, today)
		patch.NextInspection = &next
		patch.InspectionStatus = &status
	}

	return patch, nil
}

func currentMileage(vehicle *models.Vehicle, patch models.VehiclePatch) *int {
	if patch.CurrentMileage != nil {
		return patch.CurrentMileage
	}
	return vehicle.CurrentMileage
}

// ConfirmInspection records an inspection performed today and starts a new
// reminder cycle.
func (s *VehicleService) ConfirmInspection(ctx context.Context, id string) (*models.Vehicle, error) {
	objectID, err := repository.ParseID(id, "vehicle")
	if err != nil {
		return nil, err
	}

	vehicle, err := s.vehicles.FindByID(ctx, objectID)
	if err != nil {
		return nil, err
	}

	today := s.today()
	next := inspection.NextInspectionDue(vehicle.FirstRegistrationDate, &today, today)
	status := inspection.StatusConfirmed
	sent := false

	patch := models.VehiclePatch{
		LastInspection:        &today,
		LastInspectionMileage: vehicle.CurrentMileage,
		NextInspection:        &next,
		InspectionStatus:      &status,
		EmailSent:             &sent,
	}
	if err := s.vehicles.Update(ctx, objectID, patch); err != nil {
		return nil, err
	}
	patch.Apply(vehicle)

	log.WithFields(log.Fields{"vehicle_id": id, "plate": vehicle.Plate}).Info("Inspection confirmed")
	s.invalidate(ctx, id)
	return vehicle, nil
}

// ConfirmByToken confirms the inspection named by a signed reminder link.
func (s *VehicleService) ConfirmByToken(ctx context.Context, token string) (*models.Vehicle, error) {
	if s.tokens == nil {
		return nil, apperr.Validation("confirmation links are not enabled")
	}
	if strings.TrimSpace(token) == "" {
		return nil, apperr.Validation("token is required")
	}

	claims, err := s.tokens.ValidateConfirmToken(token)
	if err != nil {
		return nil, apperr.Validation("invalid or expired confirmation link")
	}
	return s.ConfirmInspection(ctx, claims.VehicleID)
}

// DeleteVehicle removes a vehicle together with its maintenance records and
// tasks.
func (s *VehicleService) DeleteVehicle(ctx context.Context, id string) error {
	objectID, err := repository.ParseID(id, "vehicle")
	if err != nil {
		return err
	}

	if err := s.vehicles.Delete(ctx, objectID); err != nil {
		return err
	}

	entry := log.WithField("vehicle_id", id)
	if s.maintenance != nil {
		n, err := s.maintenance.DeleteByVehicleID(ctx, objectID)
		if err != nil {
			return err
		}
		entry = entry.WithField("maintenance_deleted", n)
	}
	if s.tasks != nil {
		n, err := s.tasks.DeleteByVehicleID(ctx, objectID)
		if err != nil {
			return err
		}
		entry = entry.WithField("tasks_deleted", n)
	}
	entry.Info("Vehicle deleted")

	s.invalidate(ctx, id)
	return nil
}

// SetMileage stores an odometer reading taken outside a vehicle edit, e.g. by
// a maintenance record.
func (s *VehicleService) SetMileage(ctx context.Context, id primitive.ObjectID, mileage int) error {
	if err := s.vehicles.Update(ctx, id, models.VehiclePatch{CurrentMileage: &mileage}); err != nil {
		return err
	}
	s.invalidate(ctx, id.Hex())
	return nil
}

func (s *VehicleService) invalidate(ctx context.Context, vehicleID string) {
	if s.cacheManager == nil {
		return
	}
	if err := s.cacheManager.InvalidateVehicle(ctx, vehicleID); err != nil {
		log.WithError(err).WithField("vehicle_id", vehicleID).Warn("Failed to invalidate vehicle cache")
	}
	for _, tag := range []string{cache.TagVehicleLists, cache.TagReports} {
		if err := s.cacheManager.InvalidateByTag(ctx, tag); err != nil {
			log.WithError(err).WithField("tag", tag).Warn("Failed to invalidate cache tag")
		}
	}
}
