package temperature

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/science/HotTubController-sub005/internal/model"
)

func setupTestCloudProvider(t *testing.T, server *httptest.Server) (*CloudProvider, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	baseURL := ""
	if server != nil {
		baseURL = server.URL
	}

	p := NewCloudProvider(
		server.Client(),
		redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		baseURL,
		"device-1",
		"test-oauth-token",
		logger,
	)
	return p, mr
}

func TestReadCachedMissReturnsInvalidReading(t *testing.T) {
	p, mr := setupTestCloudProvider(t, httptest.NewServer(http.NotFoundHandler()))
	defer mr.Close()

	reading, err := p.ReadCached(context.Background())
	require.NoError(t, err)
	assert.False(t, reading.Valid(time.Hour))
}

func TestReadCachedHit(t *testing.T) {
	p, mr := setupTestCloudProvider(t, httptest.NewServer(http.NotFoundHandler()))
	defer mr.Close()

	now := time.Now().UTC()
	water := 38.2
	stored := model.TemperatureReading{
		WaterTempC:      &water,
		SourceTimestamp: now,
		ReceivedAt:      now,
		SourceTag:       model.SourceCloudCached,
	}
	encoded, err := json.Marshal(stored)
	require.NoError(t, err)
	require.NoError(t, mr.Set(cloudCacheKey, string(encoded)))

	reading, err := p.ReadCached(context.Background())
	require.NoError(t, err)
	require.NotNil(t, reading.WaterTempC)
	assert.InDelta(t, water, *reading.WaterTempC, 0.001)
}

func TestReadCachedExpiresAfterTTL(t *testing.T) {
	p, mr := setupTestCloudProvider(t, httptest.NewServer(http.NotFoundHandler()))
	defer mr.Close()

	water := 38.2
	encoded, err := json.Marshal(model.TemperatureReading{WaterTempC: &water})
	require.NoError(t, err)
	require.NoError(t, mr.Set(cloudCacheKey, string(encoded)))
	require.True(t, mr.SetTTL(cloudCacheKey, cloudCacheTTL))

	mr.FastForward(cloudCacheTTL + time.Minute)

	reading, err := p.ReadCached(context.Background())
	require.NoError(t, err)
	assert.False(t, reading.Valid(time.Hour))
}

func TestReadFreshRefreshesAndCaches(t *testing.T) {
	var refreshHit, readingHit bool
	mux := http.NewServeMux()
	mux.HandleFunc("/devices/device-1/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshHit = true
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-oauth-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/devices/device-1/reading", func(w http.ResponseWriter, r *http.Request) {
		readingHit = true
		_ = json.NewEncoder(w).Encode(cloudReadingPayload{
			TemperatureC:   39.1,
			CapacitiveC:    24.0,
			BatteryVoltage: 3.7,
			SignalDBM:      -55,
			Timestamp:      time.Now().UTC().Unix(),
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	p, mr := setupTestCloudProvider(t, server)
	defer mr.Close()

	reading, err := p.ReadFresh(context.Background())
	require.NoError(t, err)
	assert.True(t, refreshHit)
	assert.True(t, readingHit)
	require.NotNil(t, reading.WaterTempC)
	assert.InDelta(t, 39.1, *reading.WaterTempC, 0.001)
	require.NotNil(t, reading.AmbientTempC)
	assert.InDelta(t, 22.5, *reading.AmbientTempC, 0.001)
	assert.Equal(t, model.SourceCloudFresh, reading.SourceTag)

	cached, err := mr.Get(cloudCacheKey)
	require.NoError(t, err)
	assert.NotEmpty(t, cached)
}

func TestReadFreshPropagatesRefreshFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/devices/device-1/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	p, mr := setupTestCloudProvider(t, server)
	defer mr.Close()

	_, err := p.ReadFresh(context.Background())
	assert.Error(t, err)
}
