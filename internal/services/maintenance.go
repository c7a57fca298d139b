package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"
	"fleet-manager/pkg/notify"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MileageRecorder stores a new odometer reading on a vehicle.
type MileageRecorder interface {
	SetMileage(ctx context.Context, vehicleID primitive.ObjectID, mileage int) error
}

type MaintenanceService struct {
	records  MaintenanceStore
	vehicles VehicleStore
	mileage  MileageRecorder
	notifier *NotificationService
	calendar
}

func NewMaintenanceService(records MaintenanceStore, vehicles VehicleStore, mileage MileageRecorder, loc *time.Location) *MaintenanceService {
	return &MaintenanceService{
		records:  records,
		vehicles: vehicles,
		mileage:  mileage,
		calendar: newCalendar(loc),
	}
}

// SetNotifier enables owner notices for new records.
func (s *MaintenanceService) SetNotifier(notifier *NotificationService) {
	s.notifier = notifier
}

type CreateMaintenanceRequest struct {
	VehicleID   string   `json:"vehicleId" validate:"required,objectid"`
	Date        string   `json:"date,omitempty" validate:"omitempty,calendardate"`
	Type        string   `json:"type" validate:"required,oneof=oil_change tires brakes inspection repair other"`
	Description string   `json:"description,omitempty" validate:"max=500"`
	Cost        *float64 `json:"cost,omitempty" validate:"omitempty,min=0"`
	Mileage     *int     `json:"mileage,omitempty" validate:"omitempty,min=0"`
	Workshop    string   `json:"workshop,omitempty" validate:"max=100"`
	Notes       string   `json:"notes,omitempty"`
}

type UpdateMaintenanceRequest struct {
	Date        *string  `json:"date,omitempty" validate:"omitempty,calendardate"`
	Type        *string  `json:"type,omitempty" validate:"omitempty,oneof=oil_change tires brakes inspection repair other"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=500"`
	Cost        *float64 `json:"cost,omitempty" validate:"omitempty,min=0"`
	Mileage     *int     `json:"mileage,omitempty" validate:"omitempty,min=0"`
	Workshop    *string  `json:"workshop,omitempty" validate:"omitempty,max=100"`
	Notes       *string  `json:"notes,omitempty"`
}

func (s *MaintenanceService) GetAllMaintenanceRecords(ctx context.Context) ([]*models.MaintenanceRecord, error) {
	return s.records.FindAll(ctx)
}

func (s *MaintenanceService) GetMaintenanceByVehicle(ctx context.Context, vehicleID string) ([]*models.MaintenanceRecord, error) {
	objectID, err := repository.ParseID(vehicleID, "vehicle")
	if err != nil {
		return nil, err
	}
	return s.records.FindByVehicleID(ctx, objectID)
}

func (s *MaintenanceService) GetMaintenanceRecord(ctx context.Context, id string) (*models.MaintenanceRecord, error) {
	objectID, err := repository.ParseID(id, "maintenance record")
	if err != nil {
		return nil, err
	}
	return s.records.FindByID(ctx, objectID)
}

// CreateMaintenanceRecord stores a record for an existing vehicle. A mileage
// reading becomes the vehicle's current mileage.
func (s *MaintenanceService) CreateMaintenanceRecord(ctx context.Context, req *CreateMaintenanceRequest) (*models.MaintenanceRecord, error) {
	vehicleID, err := repository.ParseID(req.VehicleID, "vehicle")
	if err != nil {
		return nil, err
	}
	vehicle, err := s.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	date := s.today()
	if req.Date != "" {
		if date, err = s.date(req.Date, "date"); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	record := &models.MaintenanceRecord{
		ID:          primitive.NewObjectID(),
		VehicleID:   vehicleID,
		Date:        date,
		Type:        req.Type,
		Description: strings.TrimSpace(req.Description),
		Mileage:     req.Mileage,
		Workshop:    strings.TrimSpace(req.Workshop),
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Cost != nil {
		record.Cost = *req.Cost
	}

	if err := s.records.Create(ctx, record); err != nil {
		return nil, err
	}
	if err := s.recordMileage(ctx, vehicleID, req.Mileage); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"vehicle_id": vehicleID.Hex(), "plate": vehicle.Plate, "type": record.Type}).Info("Maintenance record created")

	s.notifier.NotifyVehicleOwner(ctx, vehicleID, models.NotificationMaintenanceCreated, notify.Notice{
		Title: fmt.Sprintf("Nova manutenção registada: %s", vehicle.Plate),
		Lines: maintenanceLines(record),
	})
	return record, nil
}

func (s *MaintenanceService) UpdateMaintenanceRecord(ctx context.Context, id string, req *UpdateMaintenanceRequest) (*models.MaintenanceRecord, error) {
	record, err := s.GetMaintenanceRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Date != nil {
		if record.Date, err = s.date(*req.Date, "date"); err != nil {
			return nil, err
		}
	}
	if req.Type != nil {
		record.Type = *req.Type
	}
	if req.Description != nil {
		record.Description = strings.TrimSpace(*req.Description)
	}
	if req.Cost != nil {
		record.Cost = *req.Cost
	}
	if req.Mileage != nil {
		record.Mileage = req.Mileage
	}
	if req.Workshop != nil {
		record.Workshop = strings.TrimSpace(*req.Workshop)
	}
	if req.Notes != nil {
		record.Notes = *req.Notes
	}
	record.UpdatedAt = s.now().UTC()

	if err := s.records.Update(ctx, record); err != nil {
		return nil, err
	}
	if err := s.recordMileage(ctx, record.VehicleID, req.Mileage); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *MaintenanceService) DeleteMaintenanceRecord(ctx context.Context, id string) error {
	objectID, err := repository.ParseID(id, "maintenance record")
	if err != nil {
		return err
	}
	return s.records.Delete(ctx, objectID)
}

func (s *MaintenanceService) recordMileage(ctx context.Context, vehicleID primitive.ObjectID, mileage *int) error {
	if mileage == nil || s.mileage == nil {
		return nil
	}
	return s.mileage.SetMileage(ctx, vehicleID, *mileage)
}

func maintenanceLines(r *models.MaintenanceRecord) []string {
	lines := []string{
		"Data: " + r.Date.Format(notify.DateLayout),
		"Tipo: " + r.Type,
	}
	if r.Description != "" {
		lines = append(lines, "Descrição: "+r.Description)
	}
	if r.Cost > 0 {
		lines = append(lines, fmt.Sprintf("Custo: %.2f €", r.Cost))
	}
	if r.Mileage != nil {
		lines = append(lines, fmt.Sprintf("Quilometragem: %d km", *r.Mileage))
	}
	return lines
}
