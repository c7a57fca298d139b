package services

import (
	"context"
	"testing"
	"time"

	"fleet-manager/internal/models"
	"fleet-manager/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type maintenanceFixture struct {
	service  *MaintenanceService
	records  *memMaintenance
	vehicles *memVehicles
	sink     *recordingSink
	vehicle  *models.Vehicle
}

func newMaintenanceFixture() *maintenanceFixture {
	owner := &models.User{ID: primitive.NewObjectID(), Name: "Ana", Email: "ana@example.pt"}
	vehicle := oldVehicle()
	vehicle.UserID = &owner.ID

	vehicles := newMemVehicles(vehicle)
	vehicleService := NewVehicleService(vehicles, time.UTC)
	records := newMemMaintenance()
	sink := &recordingSink{}

	service := NewMaintenanceService(records, vehicles, vehicleService, time.UTC)
	service.now = fixedClock
	service.SetNotifier(NewNotificationService(sink, newMemUsers(owner), vehicles, &memNotifications{}))

	return &maintenanceFixture{service: service, records: records, vehicles: vehicles, sink: sink, vehicle: vehicle}
}

func TestCreateMaintenanceRecord_UpdatesMileageAndNotifies(t *testing.T) {
	f := newMaintenanceFixture()
	cost := 120.5

	record, err := f.service.CreateMaintenanceRecord(context.Background(), &CreateMaintenanceRequest{
		VehicleID:   f.vehicle.ID.Hex(),
		Type:        "brakes",
		Description: " Pastilhas ",
		Cost:        &cost,
		Mileage:     intPtr(151000),
	})

	require.NoError(t, err)
	assert.Equal(t, date(2024, time.June, 1), record.Date, "date defaults to today")
	assert.Equal(t, "Pastilhas", record.Description)
	assert.Equal(t, 151000, *f.vehicles.get(f.vehicle.ID).CurrentMileage)

	sent := f.sink.messages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].msg.Subject, f.vehicle.Plate)
	assert.Contains(t, sent[0].msg.Text, "Custo: 120.50 €")
	assert.Contains(t, sent[0].msg.Text, "Quilometragem: 151000 km")
}

func TestCreateMaintenanceRecord_WithoutMileageKeepsVehicle(t *testing.T) {
	f := newMaintenanceFixture()

	record, err := f.service.CreateMaintenanceRecord(context.Background(), &CreateMaintenanceRequest{
		VehicleID: f.vehicle.ID.Hex(),
		Date:      "2024-04-02",
		Type:      "oil_change",
	})

	require.NoError(t, err)
	assert.Equal(t, date(2024, time.April, 2), record.Date)
	assert.Equal(t, 150000, *f.vehicles.get(f.vehicle.ID).CurrentMileage)
}

func TestCreateMaintenanceRecord_UnknownVehicle(t *testing.T) {
	f := newMaintenanceFixture()

	_, err := f.service.CreateMaintenanceRecord(context.Background(), &CreateMaintenanceRequest{
		VehicleID: primitive.NewObjectID().Hex(),
		Type:      "tires",
	})

	assert.True(t, apperr.IsNotFound(err))
	all, _ := f.records.FindAll(context.Background())
	assert.Empty(t, all)
	assert.Empty(t, f.sink.messages())
}

func TestUpdateMaintenanceRecord(t *testing.T) {
	f := newMaintenanceFixture()
	existing := &models.MaintenanceRecord{
		ID:        primitive.NewObjectID(),
		VehicleID: f.vehicle.ID,
		Date:      date(2024, time.March, 1),
		Type:      "repair",
	}
	require.NoError(t, f.records.Create(context.Background(), existing))

	updated, err := f.service.UpdateMaintenanceRecord(context.Background(), existing.ID.Hex(), &UpdateMaintenanceRequest{
		Workshop: strPtr(" Oficina Central "),
		Mileage:  intPtr(150500),
	})

	require.NoError(t, err)
	assert.Equal(t, "Oficina Central", updated.Workshop)
	assert.Equal(t, "repair", updated.Type)
	assert.Equal(t, 150500, *f.vehicles.get(f.vehicle.ID).CurrentMileage)

	_, err = f.service.UpdateMaintenanceRecord(context.Background(), existing.ID.Hex(), &UpdateMaintenanceRequest{Date: strPtr("yesterday")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestGetMaintenanceByVehicle(t *testing.T) {
	f := newMaintenanceFixture()
	other := primitive.NewObjectID()
	for _, r := range []*models.MaintenanceRecord{
		{ID: primitive.NewObjectID(), VehicleID: f.vehicle.ID, Date: date(2024, time.January, 1)},
		{ID: primitive.NewObjectID(), VehicleID: f.vehicle.ID, Date: date(2024, time.May, 1)},
		{ID: primitive.NewObjectID(), VehicleID: other, Date: date(2024, time.May, 2)},
	} {
		require.NoError(t, f.records.Create(context.Background(), r))
	}

	records, err := f.service.GetMaintenanceByVehicle(context.Background(), f.vehicle.ID.Hex())

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, date(2024, time.May, 1), records[0].Date)

	require.NoError(t, f.service.DeleteMaintenanceRecord(context.Background(), records[0].ID.Hex()))
	assert.True(t, apperr.IsNotFound(f.service.DeleteMaintenanceRecord(context.Background(), records[0].ID.Hex())))
}
