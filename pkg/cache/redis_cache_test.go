package cache

import (
	"context"
	"testing"
	"time"

	"fleet-manager/internal/inspection"
	"fleet-manager/internal/models"

	"github.com/alicebob/miniredis/v2"
	redisClient "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func setupCache(t *testing.T) (*RedisCacheManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client := redisClient.NewClient(&redisClient.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	config := DefaultCacheConfig()
	config.KeyPrefix = "test:"
	config.TagPrefix = "test_tag:"

	return NewRedisCacheManager(client, config), mr
}

func testVehicle(plate string) *models.Vehicle {
	userID := primitive.NewObjectID()
	next := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	return &models.Vehicle{
		ID:                    primitive.NewObjectID(),
		Plate:                 plate,
		Brand:                 "Renault",
		Model:                 "Clio",
		UserID:                &userID,
		FirstRegistrationDate: time.Date(2018, time.March, 10, 0, 0, 0, 0, time.UTC),
		NextInspection:        &next,
		InspectionStatus:      inspection.StatusPending,
	}
}

func TestRedisCacheManager_VehicleOperations(t *testing.T) {
	manager, _ := setupCache(t)
	ctx := context.Background()
	vehicle := testVehicle("AA-00-BB")
	id := vehicle.ID.Hex()

	t.Run("SetVehicle", func(t *testing.T) {
		assert.NoError(t, manager.SetVehicle(ctx, vehicle, time.Minute))
	})

	t.Run("GetVehicle", func(t *testing.T) {
		cached, err := manager.GetVehicle(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, cached)
		assert.Equal(t, vehicle.Plate, cached.Plate)
		assert.Equal(t, vehicle.ID, cached.ID)
		assert.Equal(t, inspection.StatusPending, cached.InspectionStatus)
		assert.True(t, vehicle.NextInspection.Equal(*cached.NextInspection))
	})

	t.Run("GetVehicle_Miss", func(t *testing.T) {
		cached, err := manager.GetVehicle(ctx, primitive.NewObjectID().Hex())
		assert.NoError(t, err)
		assert.Nil(t, cached)
	})

	t.Run("InvalidateVehicle", func(t *testing.T) {
		require.NoError(t, manager.InvalidateVehicle(ctx, id))

		cached, err := manager.GetVehicle(ctx, id)
		assert.NoError(t, err)
		assert.Nil(t, cached)
	})
}

func TestRedisCacheManager_TTL(t *testing.T) {
	manager, mr := setupCache(t)
	ctx := context.Background()
	vehicle := testVehicle("TT-11-LL")

	require.NoError(t, manager.SetVehicle(ctx, vehicle, time.Second))
	mr.FastForward(2 * time.Second)

	cached, err := manager.GetVehicle(ctx, vehicle.ID.Hex())
	assert.NoError(t, err)
	assert.Nil(t, cached)
}

func TestRedisCacheManager_ListInvalidatedByMember(t *testing.T) {
	manager, _ := setupCache(t)
	ctx := context.Background()

	a, b := testVehicle("AA-00-AA"), testVehicle("BB-00-BB")
	require.NoError(t, manager.SetVehicleList(ctx, "all", []*models.Vehicle{a, b}, time.Minute))

	list, err := manager.GetVehicleList(ctx, "all")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, manager.InvalidateVehicle(ctx, b.ID.Hex()))

	list, err = manager.GetVehicleList(ctx, "all")
	assert.NoError(t, err)
	assert.Nil(t, list)
}

func TestRedisCacheManager_InvalidateAllVehicles(t *testing.T) {
	manager, _ := setupCache(t)
	ctx := context.Background()

	a, b := testVehicle("AA-00-AA"), testVehicle("BB-00-BB")
	require.NoError(t, manager.SetVehicle(ctx, a, time.Minute))
	require.NoError(t, manager.SetVehicle(ctx, b, time.Minute))

	require.NoError(t, manager.InvalidateByTag(ctx, TagAllVehicles))

	for _, v := range []*models.Vehicle{a, b} {
		cached, err := manager.GetVehicle(ctx, v.ID.Hex())
		assert.NoError(t, err)
		assert.Nil(t, cached)
	}
	assert.EqualValues(t, 2, manager.GetCacheStats(ctx).EvictionCount)
}

func TestRedisCacheManager_GenericValues(t *testing.T) {
	manager, _ := setupCache(t)
	ctx := context.Background()

	type report struct {
		Total int `json:"total"`
	}

	var got report
	found, err := manager.Get(ctx, "fleet-report", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, manager.Set(ctx, "fleet-report", report{Total: 7}, time.Minute, TagReports))

	found, err = manager.Get(ctx, "fleet-report", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 7, got.Total)

	require.NoError(t, manager.InvalidateByTag(ctx, TagReports))
	found, err = manager.Get(ctx, "fleet-report", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCacheManager_Stats(t *testing.T) {
	manager, _ := setupCache(t)
	ctx := context.Background()
	vehicle := testVehicle("ST-00-AT")

	require.NoError(t, manager.SetVehicle(ctx, vehicle, time.Minute))
	_, _ = manager.GetVehicle(ctx, vehicle.ID.Hex())
	_, _ = manager.GetVehicle(ctx, "missing")

	stats := manager.GetCacheStats(ctx)
	assert.EqualValues(t, 1, stats.TotalHits)
	assert.EqualValues(t, 1, stats.TotalMisses)
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)
	assert.Equal(t, 1, stats.KeyCount)
	assert.NoError(t, manager.HealthCheck(ctx))
}

func TestCacheConfig_TTLForDataType(t *testing.T) {
	config := DefaultCacheConfig()
	assert.Equal(t, config.VehicleListTTL, config.GetTTLForDataType("vehicle_list"))
	assert.Equal(t, config.ReportTTL, config.GetTTLForDataType("report"))
	assert.Equal(t, config.VehicleDataTTL, config.GetTTLForDataType("unknown"))
}
