package services

import (
	"context"
	"strings"
	"time"

	"fleet-manager/internal/inspection"
	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"
	"fleet-manager/pkg/apperr"
	"fleet-manager/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The stores below are satisfied by the Mongo repositories.

type VehicleStore interface {
	Create(ctx context.Context, vehicle *models.Vehicle) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Vehicle, error)
	FindAll(ctx context.Context, filter repository.VehicleFilter) ([]*models.Vehicle, error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.VehiclePatch) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
	CountByStatus(ctx context.Context) (map[inspection.Status]int64, error)
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindAll(ctx context.Context) ([]*models.User, error)
	FindPrimaryManagers(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type MaintenanceStore interface {
	Create(ctx context.Context, record *models.MaintenanceRecord) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.MaintenanceRecord, error)
	FindAll(ctx context.Context) ([]*models.MaintenanceRecord, error)
	FindByVehicleID(ctx context.Context, vehicleID primitive.ObjectID) ([]*models.MaintenanceRecord, error)
	Update(ctx context.Context, record *models.MaintenanceRecord) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByVehicleID(ctx context.Context, vehicleID primitive.ObjectID) (int64, error)
}

type TaskStore interface {
	Create(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	Find(ctx context.Context, filter repository.TaskFilter) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByVehicleID(ctx context.Context, vehicleID primitive.ObjectID) (int64, error)
}

type NotificationStore interface {
	Insert(ctx context.Context, entry *models.NotificationLog) error
	List(ctx context.Context, filter repository.NotificationFilter) ([]*models.NotificationLog, int64, error)
}

// calendar resolves "today" in the fleet's timezone.
type calendar struct {
	loc *time.Location
	now func() time.Time
}

func newCalendar(loc *time.Location) calendar {
	if loc == nil {
		loc = time.UTC
	}
	return calendar{loc: loc, now: time.Now}
}

func (c calendar) today() time.Time {
	return inspection.DateOf(c.now(), c.loc)
}

// date parses a request date. Plain dates are taken as written; timestamps
// are read in the fleet's timezone.
func (c calendar) date(raw, field string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	t, err := utils.ParseDate(raw)
	if err != nil {
		return time.Time{}, apperr.Validation("%s must be a date (YYYY-MM-DD)", field)
	}
	if len(raw) == len(time.DateOnly) {
		return t, nil
	}
	return inspection.DateOf(t, c.loc), nil
}

// optionalDate parses raw when it is not empty.
func (c calendar) optionalDate(raw, field string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := c.date(raw, field)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func optionalID(hex, what string) (*primitive.ObjectID, error) {
	if hex == "" {
		return nil, nil
	}
	id, err := repository.ParseID(hex, what)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
