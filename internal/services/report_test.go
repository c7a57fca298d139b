package services

import (
	"context"
	"testing"
	"time"

	"fleet-manager/internal/inspection"
	"fleet-manager/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFleetReport(t *testing.T) {
	overdue := oldVehicle()
	overdue.Plate = "AA-01-AA"

	next := date(2026, time.June, 1)
	fresh := &models.Vehicle{
		ID:                    primitive.NewObjectID(),
		Plate:                 "BB-02-BB",
		FirstRegistrationDate: date(2022, time.June, 1),
		NextInspection:        &next,
		InspectionStatus:      "confirmada",
		InitialMileage:        intPtr(0),
		CurrentMileage:        intPtr(30000),
	}

	service := NewReportService(newMemVehicles(overdue, fresh), time.UTC)
	service.now = fixedClock

	report, err := service.FleetReport(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, int64(1), report.StatusCounts[inspection.StatusOverdue])
	assert.Equal(t, int64(1), report.StatusCounts[inspection.StatusConfirmed])

	require.Len(t, report.Vehicles, 2)
	first := report.Vehicles[0]
	assert.Equal(t, "AA-01-AA", first.Plate)
	require.NotNil(t, first.DaysUntilInspection)
	assert.Equal(t, -31, *first.DaysUntilInspection)

	second := report.Vehicles[1]
	assert.Equal(t, inspection.StatusConfirmed, second.Status)
	assert.Equal(t, 730, *second.DaysUntilInspection)
	assert.InDelta(t, 15000, second.AverageKmPerYear, 50)
}
