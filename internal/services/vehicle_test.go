package services

import (
	"context"
	"testing"
	"time"

	"fleet-manager/internal/inspection"
	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"
	"fleet-manager/pkg/apperr"
	"fleet-manager/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestVehicleService(vehicles ...*models.Vehicle) (*VehicleService, *memVehicles) {
	store := newMemVehicles(vehicles...)
	service := NewVehicleService(store, time.UTC)
	service.now = fixedClock
	return service, store
}

// oldVehicle was registered in 2010 and missed its last due date.
func oldVehicle() *models.Vehicle {
	next := date(2024, time.May, 1)
	return &models.Vehicle{
		ID:                    primitive.NewObjectID(),
		Plate:                 "10-AB-20",
		FirstRegistrationDate: date(2010, time.March, 10),
		NextInspection:        &next,
		InspectionStatus:      inspection.StatusOverdue,
		EmailSent:             true,
		CurrentMileage:        intPtr(150000),
		LastInspectionMileage: intPtr(140000),
	}
}

func TestCreateVehicle_ComputesScheduleAndDefaults(t *testing.T) {
	service, store := newTestVehicleService()

	vehicle, err := service.CreateVehicle(context.Background(), &CreateVehicleRequest{
		Plate:                 " aa-00-bb ",
		FirstRegistrationDate: "2020-01-15",
		InitialMileage:        intPtr(1000),
	})

	require.NoError(t, err)
	assert.Equal(t, "AA-00-BB", vehicle.Plate)
	require.NotNil(t, vehicle.NextInspection)
	assert.Equal(t, date(2026, time.January, 15), *vehicle.NextInspection)
	assert.Equal(t, inspection.StatusPending, vehicle.InspectionStatus)
	assert.False(t, vehicle.EmailSent)
	assert.Equal(t, 1000, *vehicle.InitialMileage)
	assert.Equal(t, 1000, *vehicle.CurrentMileage)
	assert.Equal(t, 1000, *vehicle.LastInspectionMileage)
	assert.NotNil(t, store.get(vehicle.ID))
}

func TestCreateVehicle_ExemptIsConfirmed(t *testing.T) {
	service, _ := newTestVehicleService()

	vehicle, err := service.CreateVehicle(context.Background(), &CreateVehicleRequest{
		Plate:                 "BB-11-CC",
		FirstRegistrationDate: "2022-06-01",
	})

	require.NoError(t, err)
	assert.Equal(t, date(2026, time.June, 1), *vehicle.NextInspection)
	assert.Equal(t, inspection.StatusConfirmed, vehicle.InspectionStatus)
	assert.Equal(t, 0, *vehicle.InitialMileage)
}

func TestCreateVehicle_KeepsExplicitNextInspection(t *testing.T) {
	service, _ := newTestVehicleService()

	vehicle, err := service.CreateVehicle(context.Background(), &CreateVehicleRequest{
		Plate:                 "CC-22-DD",
		FirstRegistrationDate: "2010-03-10",
		NextInspection:        "2024-05-01",
	})

	require.NoError(t, err)
	assert.Equal(t, date(2024, time.May, 1), *vehicle.NextInspection)
	assert.Equal(t, inspection.StatusOverdue, vehicle.InspectionStatus)
}

func TestCreateVehicle_Rejections(t *testing.T) {
	tests := []struct {
		name string
		req  CreateVehicleRequest
		kind apperr.Kind
	}{
		{"blank plate", CreateVehicleRequest{Plate: "  ", FirstRegistrationDate: "2020-01-15"}, apperr.KindValidation},
		{"bad registration date", CreateVehicleRequest{Plate: "X", FirstRegistrationDate: "not-a-date"}, apperr.KindValidation},
		{"bad status", CreateVehicleRequest{Plate: "X", FirstRegistrationDate: "2020-01-15", InspectionStatus: "done"}, apperr.KindValidation},
		{"bad user", CreateVehicleRequest{Plate: "X", FirstRegistrationDate: "2020-01-15", UserID: "nope"}, apperr.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newTestVehicleService()
			_, err := service.CreateVehicle(context.Background(), &tt.req)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func TestCreateVehicle_DuplicatePlate(t *testing.T) {
	service, _ := newTestVehicleService()
	req := &CreateVehicleRequest{Plate: "aa-00-bb", FirstRegistrationDate: "2020-01-15"}

	_, err := service.CreateVehicle(context.Background(), req)
	require.NoError(t, err)

	req.Plate = "AA-00-BB"
	_, err = service.CreateVehicle(context.Background(), req)
	assert.True(t, apperr.IsConflict(err))
}

func TestUpdateVehicle_LastInspectionRederivesSchedule(t *testing.T) {
	existing := oldVehicle()
	service, store := newTestVehicleService(existing)

	updated, err := service.UpdateVehicle(context.Background(), existing.ID.Hex(), &UpdateVehicleRequest{
		LastInspection: strPtr("2024-05-20"),
	})

	require.NoError(t, err)
	assert.Equal(t, inspection.StatusConfirmed, updated.InspectionStatus)
	assert.Equal(t, date(2025, time.March, 10), *updated.NextInspection)
	assert.Equal(t, 150000, *updated.LastInspectionMileage)

	stored := store.get(existing.ID)
	assert.Equal(t, inspection.StatusConfirmed, stored.InspectionStatus)
	assert.Equal(t, date(2024, time.May, 20), *stored.LastInspection)
}

func TestUpdateVehicle_ExplicitInspectionMileageWins(t *testing.T) {
	existing := oldVehicle()
	service, _ := newTestVehicleService(existing)

	updated, err := service.UpdateVehicle(context.Background(), existing.ID.Hex(), &UpdateVehicleRequest{
		LastInspection:        strPtr("2024-05-20"),
		LastInspectionMileage: intPtr(149000),
	})

	require.NoError(t, err)
	assert.Equal(t, 149000, *updated.LastInspectionMileage)
}

func TestUpdateVehicle_StatusOnExemptVehicleStaysConfirmed(t *testing.T) {
	next := date(2026, time.June, 1)
	existing := &models.Vehicle{
		ID:                    primitive.NewObjectID(),
		Plate:                 "NEW-1",
		FirstRegistrationDate: date(2022, time.June, 1),
		NextInspection:        &next,
		InspectionStatus:      inspection.StatusConfirmed,
	}
	service, _ := newTestVehicleService(existing)

	updated, err := service.UpdateVehicle(context.Background(), existing.ID.Hex(), &UpdateVehicleRequest{
		InspectionStatus: strPtr("pending"),
	})

	require.NoError(t, err)
	assert.Equal(t, inspection.StatusConfirmed, updated.InspectionStatus)
}

func TestUpdateVehicle_PlainFieldsKeepSchedule(t *testing.T) {
	existing := oldVehicle()
	service, _ := newTestVehicleService(existing)

	updated, err := service.UpdateVehicle(context.Background(), existing.ID.Hex(), &UpdateVehicleRequest{
		Brand:          strPtr("Toyota"),
		CurrentMileage: intPtr(152000),
	})

	require.NoError(t, err)
	assert.Equal(t, "Toyota", updated.Brand)
	assert.Equal(t, 152000, *updated.CurrentMileage)
	assert.Equal(t, inspection.StatusOverdue, updated.InspectionStatus)
	assert.Equal(t, date(2024, time.May, 1), *updated.NextInspection)
	assert.True(t, updated.EmailSent)
}

func TestUpdateVehicle_EmptyRequestIsNoop(t *testing.T) {
	existing := oldVehicle()
	service, _ := newTestVehicleService(existing)

	updated, err := service.UpdateVehicle(context.Background(), existing.ID.Hex(), &UpdateVehicleRequest{})

	require.NoError(t, err)
	assert.Equal(t, existing.Plate, updated.Plate)
}

func TestUpdateVehicle_Errors(t *testing.T) {
	service, _ := newTestVehicleService()

	_, err := service.UpdateVehicle(context.Background(), "bad-id", &UpdateVehicleRequest{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = service.UpdateVehicle(context.Background(), primitive.NewObjectID().Hex(), &UpdateVehicleRequest{})
	assert.True(t, apperr.IsNotFound(err))
}

func TestConfirmInspection(t *testing.T) {
	existing := oldVehicle()
	service, store := newTestVehicleService(existing)

	confirmed, err := service.ConfirmInspection(context.Background(), existing.ID.Hex())

	require.NoError(t, err)
	assert.Equal(t, date(2024, time.June, 1), *confirmed.LastInspection)
	assert.Equal(t, date(2025, time.March, 10), *confirmed.NextInspection)
	assert.Equal(t, inspection.StatusConfirmed, confirmed.InspectionStatus)
	assert.Equal(t, 150000, *confirmed.LastInspectionMileage)
	assert.False(t, confirmed.EmailSent)

	stored := store.get(existing.ID)
	assert.False(t, stored.EmailSent)
	assert.Equal(t, inspection.StatusConfirmed, stored.InspectionStatus)
}

func TestConfirmByToken(t *testing.T) {
	existing := oldVehicle()
	service, _ := newTestVehicleService(existing)

	_, err := service.ConfirmByToken(context.Background(), "anything")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "links disabled")

	signer := jwt.NewJWTUtil("test-secret", time.Hour)
	service.SetTokenSigner(signer)

	_, err = service.ConfirmByToken(context.Background(), "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = service.ConfirmByToken(context.Background(), "not.a.token")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	forged, err := jwt.NewJWTUtil("other-secret", time.Hour).GenerateConfirmToken(existing.ID.Hex(), "2024-05-01")
	require.NoError(t, err)
	_, err = service.ConfirmByToken(context.Background(), forged)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	token, err := signer.GenerateConfirmToken(existing.ID.Hex(), "2024-05-01")
	require.NoError(t, err)
	confirmed, err := service.ConfirmByToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, inspection.StatusConfirmed, confirmed.InspectionStatus)
}

func TestDeleteVehicle_CascadesRecords(t *testing.T) {
	doomed := oldVehicle()
	kept := oldVehicle()
	kept.Plate = "KEEP-1"

	service, store := newTestVehicleService(doomed, kept)
	records := newMemMaintenance(
		&models.MaintenanceRecord{VehicleID: doomed.ID, Type: "tires"},
		&models.MaintenanceRecord{VehicleID: kept.ID, Type: "brakes"},
	)
	tasks := newMemTasks(
		&models.Task{VehicleID: doomed.ID, Title: "Inspect"},
		&models.Task{VehicleID: doomed.ID, Title: "Wash"},
		&models.Task{VehicleID: kept.ID, Title: "Oil"},
	)
	service.SetDependents(records, tasks)

	require.NoError(t, service.DeleteVehicle(context.Background(), doomed.ID.Hex()))

	assert.Nil(t, store.get(doomed.ID))
	assert.NotNil(t, store.get(kept.ID))

	remaining, _ := records.FindAll(context.Background())
	require.Len(t, remaining, 1)
	assert.Equal(t, kept.ID, remaining[0].VehicleID)

	leftTasks, _ := tasks.Find(context.Background(), repository.TaskFilter{})
	require.Len(t, leftTasks, 1)
	assert.Equal(t, "Oil", leftTasks[0].Title)

	err := service.DeleteVehicle(context.Background(), doomed.ID.Hex())
	assert.True(t, apperr.IsNotFound(err))
}

func TestSetMileage(t *testing.T) {
	existing := oldVehicle()
	service, store := newTestVehicleService(existing)

	require.NoError(t, service.SetMileage(context.Background(), existing.ID, 155000))
	assert.Equal(t, 155000, *store.get(existing.ID).CurrentMileage)

	err := service.SetMileage(context.Background(), primitive.NewObjectID(), 1)
	assert.True(t, apperr.IsNotFound(err))
}
