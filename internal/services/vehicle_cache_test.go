package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleet-manager/internal/inspection"
	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"
	"fleet-manager/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockCacheManager is a mock implementation of the CacheManager interface
type MockCacheManager struct {
	mock.Mock
}

func (m *MockCacheManager) GetVehicle(ctx context.Context, vehicleID string) (*models.Vehicle, error) {
	args := m.Called(vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vehicle), args.Error(1)
}

func (m *MockCacheManager) SetVehicle(ctx context.Context, vehicle *models.Vehicle, ttl time.Duration) error {
	args := m.Called(vehicle, ttl)
	return args.Error(0)
}

func (m *MockCacheManager) InvalidateVehicle(ctx context.Context, vehicleID string) error {
	args := m.Called(vehicleID)
	return args.Error(0)
}

func (m *MockCacheManager) GetVehicleList(ctx context.Context, key string) ([]*models.Vehicle, error) {
	args := m.Called(key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Vehicle), args.Error(1)
}

func (m *MockCacheManager) SetVehicleList(ctx context.Context, key string, vehicles []*models.Vehicle, ttl time.Duration) error {
	args := m.Called(key, vehicles, ttl)
	return args.Error(0)
}

func (m *MockCacheManager) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	args := m.Called(key, dest)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheManager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration, tags ...string) error {
	args := m.Called(key, value, ttl, tags)
	return args.Error(0)
}

func (m *MockCacheManager) TagKey(ctx context.Context, key string, ttl time.Duration, tags ...string) error {
	args := m.Called(key, ttl, tags)
	return args.Error(0)
}

func (m *MockCacheManager) InvalidateByTag(ctx context.Context, tag string) error {
	args := m.Called(tag)
	return args.Error(0)
}

func (m *MockCacheManager) GetCacheStats(ctx context.Context) cache.CacheStats {
	args := m.Called()
	return args.Get(0).(cache.CacheStats)
}

func (m *MockCacheManager) HealthCheck(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}

func cachedVehicle() *models.Vehicle {
	next := date(2026, time.January, 15)
	return &models.Vehicle{
		ID:                    primitive.NewObjectID(),
		Plate:                 "AA-00-BB",
		Brand:                 "Renault",
		FirstRegistrationDate: date(2020, time.January, 15),
		NextInspection:        &next,
		InspectionStatus:      inspection.StatusPending,
	}
}

// Test cache-first strategy for GetVehicleByID with cache hit
func TestVehicleService_GetVehicleByID_CacheHit(t *testing.T) {
	mockCache := new(MockCacheManager)
	store := newMemVehicles()
	service := NewVehicleService(store, time.UTC)
	service.SetCacheManager(mockCache)

	testVehicle := cachedVehicle()
	vehicleID := testVehicle.ID.Hex()

	mockCache.On("GetVehicle", vehicleID).Return(testVehicle, nil)

	result, err := service.GetVehicleByID(context.Background(), vehicleID)

	assert.NoError(t, err)
	assert.Equal(t, testVehicle, result)
	assert.Zero(t, store.findCalls)
	mockCache.AssertExpectations(t)
}

// Test cache-first strategy for GetVehicleByID with cache miss
func TestVehicleService_GetVehicleByID_CacheMiss(t *testing.T) {
	mockCache := new(MockCacheManager)
	testVehicle := cachedVehicle()
	store := newMemVehicles(testVehicle)
	service := NewVehicleService(store, time.UTC)
	service.SetCacheManager(mockCache)

	vehicleID := testVehicle.ID.Hex()
	ttl := cache.DefaultCacheConfig().GetTTLForDataType("vehicle")

	mockCache.On("GetVehicle", vehicleID).Return(nil, nil)
	mockCache.On("SetVehicle", mock.AnythingOfType("*models.Vehicle"), ttl).Return(nil)

	result, err := service.GetVehicleByID(context.Background(), vehicleID)

	require.NoError(t, err)
	assert.Equal(t, "AA-00-BB", result.Plate)
	assert.Equal(t, 1, store.findCalls)
	mockCache.AssertExpectations(t)
}

// A broken cache must not break reads.
func TestVehicleService_GetVehicleByID_CacheError(t *testing.T) {
	mockCache := new(MockCacheManager)
	testVehicle := cachedVehicle()
	service := NewVehicleService(newMemVehicles(testVehicle), time.UTC)
	service.SetCacheManager(mockCache)

	vehicleID := testVehicle.ID.Hex()
	mockCache.On("GetVehicle", vehicleID).Return(nil, errors.New("connection refused"))
	mockCache.On("SetVehicle", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	result, err := service.GetVehicleByID(context.Background(), vehicleID)

	require.NoError(t, err)
	assert.Equal(t, testVehicle.ID, result.ID)
	mockCache.AssertExpectations(t)
}

func TestVehicleService_GetAllVehicles_CacheHit(t *testing.T) {
	mockCache := new(MockCacheManager)
	store := newMemVehicles()
	service := NewVehicleService(store, time.UTC)
	service.SetCacheManager(mockCache)

	testVehicles := []*models.Vehicle{cachedVehicle(), cachedVehicle()}
	mockCache.On("GetVehicleList", allVehiclesCacheKey).Return(testVehicles, nil)

	result, err := service.GetAllVehicles(context.Background(), repository.VehicleFilter{})

	assert.NoError(t, err)
	assert.Len(t, result, 2)
	assert.Zero(t, store.findCalls)
	mockCache.AssertExpectations(t)
}

// Filtered lists bypass the cache entirely.
func TestVehicleService_GetAllVehicles_FilteredSkipsCache(t *testing.T) {
	mockCache := new(MockCacheManager)
	pending := cachedVehicle()
	overdue := cachedVehicle()
	overdue.Plate = "ZZ-99-ZZ"
	overdue.InspectionStatus = inspection.StatusOverdue
	service := NewVehicleService(newMemVehicles(pending, overdue), time.UTC)
	service.SetCacheManager(mockCache)

	result, err := service.GetAllVehicles(context.Background(), repository.VehicleFilter{Status: inspection.StatusOverdue})

	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "ZZ-99-ZZ", result[0].Plate)
	mockCache.AssertNotCalled(t, "GetVehicleList", mock.Anything)
}

func TestVehicleService_UpdateVehicle_InvalidatesCache(t *testing.T) {
	mockCache := new(MockCacheManager)
	testVehicle := cachedVehicle()
	service := NewVehicleService(newMemVehicles(testVehicle), time.UTC)
	service.SetCacheManager(mockCache)
	service.now = fixedClock

	vehicleID := testVehicle.ID.Hex()
	mockCache.On("InvalidateVehicle", vehicleID).Return(nil)
	mockCache.On("InvalidateByTag", cache.TagVehicleLists).Return(nil)
	mockCache.On("InvalidateByTag", cache.TagReports).Return(nil)

	result, err := service.UpdateVehicle(context.Background(), vehicleID, &UpdateVehicleRequest{Brand: strPtr("Peugeot")})

	require.NoError(t, err)
	assert.Equal(t, "Peugeot", result.Brand)
	mockCache.AssertExpectations(t)
}

func TestVehicleService_DeleteVehicle_InvalidatesCache(t *testing.T) {
	mockCache := new(MockCacheManager)
	testVehicle := cachedVehicle()
	service := NewVehicleService(newMemVehicles(testVehicle), time.UTC)
	service.SetCacheManager(mockCache)

	vehicleID := testVehicle.ID.Hex()
	mockCache.On("InvalidateVehicle", vehicleID).Return(nil)
	mockCache.On("InvalidateByTag", mock.AnythingOfType("string")).Return(nil)

	err := service.DeleteVehicle(context.Background(), vehicleID)

	assert.NoError(t, err)
	mockCache.AssertNumberOfCalls(t, "InvalidateByTag", 2)
	mockCache.AssertExpectations(t)
}

func TestReportService_FleetReport_CacheHit(t *testing.T) {
	mockCache := new(MockCacheManager)
	store := newMemVehicles(cachedVehicle())
	service := NewReportService(store, time.UTC)
	service.SetCacheManager(mockCache)

	mockCache.On("Get", fleetReportCacheKey, mock.AnythingOfType("*services.FleetReport")).Return(true, nil)

	_, err := service.FleetReport(context.Background())

	assert.NoError(t, err)
	assert.Zero(t, store.findCalls)
	mockCache.AssertExpectations(t)
}

func TestReportService_FleetReport_CacheMissStoresTagged(t *testing.T) {
	mockCache := new(MockCacheManager)
	service := NewReportService(newMemVehicles(cachedVehicle()), time.UTC)
	service.SetCacheManager(mockCache)
	service.now = fixedClock

	ttl := cache.DefaultCacheConfig().GetTTLForDataType("report")
	mockCache.On("Get", fleetReportCacheKey, mock.Anything).Return(false, nil)
	mockCache.On("Set", fleetReportCacheKey, mock.AnythingOfType("*services.FleetReport"), ttl,
		[]string{cache.TagReports, cache.TagAllVehicles}).Return(nil)

	report, err := service.FleetReport(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
	mockCache.AssertExpectations(t)
}
