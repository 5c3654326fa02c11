package temperature

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/science/HotTubController-sub005/internal/apperror"
	"github.com/science/HotTubController-sub005/internal/model"
)

const (
	cloudCacheKey        = "hottub:temperature:cloud"
	cloudCacheTTL        = 30 * time.Minute
	refreshWaitBound     = 15 * time.Second
	ambientCoupledOffset = -1.5 // °C correction for thermal coupling of the ambient probe to water, per spec.md §4.5
)

// CloudProvider polls the sensor cloud's API over bearer-token HTTP,
// grounded on the teacher's WeatherCache: a Redis-backed cache in front of
// a network fetch, with the fetch de-duplicated by singleflight so
// concurrent ReadFresh calls during one tick don't each re-trigger the
// sensor's physical refresh.
type CloudProvider struct {
	httpClient *http.Client
	redis      *redis.Client
	group      singleflight.Group
	logger     *zap.Logger

	baseURL    string
	deviceID   string
	oauthToken string
}

func NewCloudProvider(httpClient *http.Client, redisClient *redis.Client, baseURL, deviceID, oauthToken string, logger *zap.Logger) *CloudProvider {
	return &CloudProvider{
		httpClient: httpClient,
		redis:      redisClient,
		baseURL:    baseURL,
		deviceID:   deviceID,
		oauthToken: oauthToken,
		logger:     logger,
	}
}

// ReadCached returns the sensor's latest known sample from Redis without
// forcing a hardware read — battery-friendly per spec.md §4.5. A cache
// miss is not an error; callers see a reading that fails Valid().
func (p *CloudProvider) ReadCached(ctx context.Context) (*model.TemperatureReading, error) {
	raw, err := p.redis.Get(ctx, cloudCacheKey).Result()
	if err == redis.Nil {
		return &model.TemperatureReading{}, nil
	}
	if err != nil {
		return nil, apperror.SensorUnreachable(fmt.Errorf("reading cloud cache: %w", err))
	}
	var reading model.TemperatureReading
	if err := json.Unmarshal([]byte(raw), &reading); err != nil {
		return nil, apperror.Internal("decoding cached reading: " + err.Error())
	}
	return &reading, nil
}

// ReadFresh issues a refresh command to the sensor cloud, waits a bounded
// time, then reads — used only when a precise decision is needed, per
// spec.md §4.5. Concurrent callers within the same tick collapse onto one
// in-flight refresh via singleflight.
func (p *CloudProvider) ReadFresh(ctx context.Context) (*model.TemperatureReading, error) {
	v, err, _ := p.group.Do(cloudCacheKey, func() (any, error) {
		return p.refreshAndRead(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.TemperatureReading), nil
}

func (p *CloudProvider) refreshAndRead(ctx context.Context) (*model.TemperatureReading, error) {
	if err := p.requestRefresh(ctx); err != nil {
		return nil, apperror.SensorUnreachable(err)
	}

	refreshCtx, cancel := context.WithTimeout(ctx, refreshWaitBound)
	defer cancel()
	select {
	case <-time.After(2 * time.Second):
	case <-refreshCtx.Done():
		return nil, apperror.SensorUnreachable(refreshCtx.Err())
	}

	reading, err := p.fetchReading(ctx)
	if err != nil {
		return nil, apperror.SensorUnreachable(err)
	}

	encoded, err := json.Marshal(reading)
	if err == nil {
		if err := p.redis.Set(ctx, cloudCacheKey, encoded, cloudCacheTTL).Err(); err != nil {
			p.logger.Warn("failed to cache fresh reading", zap.Error(err))
		}
	}
	return reading, nil
}

func (p *CloudProvider) requestRefresh(ctx context.Context) error {
	url := fmt.Sprintf("%s/devices/%s/refresh", p.baseURL, p.deviceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("building refresh request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.oauthToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting sensor refresh: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("refresh request status %d", resp.StatusCode)
	}
	return nil
}

type cloudReadingPayload struct {
	TemperatureC   float64 `json:"temperature"`
	CapacitiveC    float64 `json:"cap"`
	BatteryVoltage float64 `json:"battery_voltage"`
	SignalDBM      int     `json:"signal_dbm"`
	Timestamp      int64   `json:"timestamp"`
}

func (p *CloudProvider) fetchReading(ctx context.Context) (*model.TemperatureReading, error) {
	url := fmt.Sprintf("%s/devices/%s/reading", p.baseURL, p.deviceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building reading request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.oauthToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching reading: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("reading request status %d", resp.StatusCode)
	}

	var payload cloudReadingPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding sensor payload: %w", err)
	}

	water := payload.TemperatureC
	ambient := payload.CapacitiveC + ambientCoupledOffset
	battery := payload.BatteryVoltage
	signal := payload.SignalDBM
	now := time.Now().UTC()

	return &model.TemperatureReading{
		WaterTempC:      &water,
		AmbientTempC:    &ambient,
		BatteryVoltage:  &battery,
		SignalDBM:       &signal,
		SourceTimestamp: time.Unix(payload.Timestamp, 0).UTC(),
		ReceivedAt:      now,
		SourceTag:       model.SourceCloudFresh,
	}, nil
}
