package equipment

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/science/HotTubController-sub005/internal/apperror"
	"github.com/science/HotTubController-sub005/internal/equipmentstore"
)

type fakeWebhookClient struct {
	events  []string
	failOn  string
	failErr error
}

func (f *fakeWebhookClient) Trigger(_ context.Context, eventName string) error {
	if f.failOn != "" && eventName == f.failOn {
		return f.failErr
	}
	f.events = append(f.events, eventName)
	return nil
}

func newTestService(t *testing.T, webhooks *fakeWebhookClient, coupled bool) *Service {
	dir := t.TempDir()
	store := equipmentstore.New(filepath.Join(dir, "equipment-status.json"), filepath.Join(dir, ".lock"))
	return New(store, webhooks, zap.NewNop(), coupled, nil)
}

func TestHeaterOnCoupledAlsoStartsPump(t *testing.T) {
	webhooks := &fakeWebhookClient{}
	svc := newTestService(t, webhooks, true)

	action, err := svc.HeaterOn(context.Background())
	require.NoError(t, err)
	require.NotNil(t, action.Heater)
	require.NotNil(t, action.Pump)
	assert.True(t, *action.Heater)
	assert.True(t, *action.Pump)
	assert.Equal(t, []string{EventPumpOn, EventHeaterOn}, webhooks.events)
}

func TestHeaterOnUncoupledLeavesPumpAlone(t *testing.T) {
	webhooks := &fakeWebhookClient{}
	svc := newTestService(t, webhooks, false)

	action, err := svc.HeaterOn(context.Background())
	require.NoError(t, err)
	assert.True(t, *action.Heater)
	assert.Equal(t, []string{EventHeaterOn}, webhooks.events)

	status, err := svc.Status()
	require.NoError(t, err)
	assert.False(t, status.Pump.On)
}

func TestHeaterOnSkipsPumpEventWhenAlreadyOn(t *testing.T) {
	webhooks := &fakeWebhookClient{}
	svc := newTestService(t, webhooks, true)

	_, err := svc.PumpRun(context.Background())
	require.NoError(t, err)
	webhooks.events = nil

	_, err = svc.HeaterOn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{EventHeaterOn}, webhooks.events)
}

func TestHeaterOffTurnsOffPumpToo(t *testing.T) {
	webhooks := &fakeWebhookClient{}
	svc := newTestService(t, webhooks, true)

	_, err := svc.HeaterOn(context.Background())
	require.NoError(t, err)

	action, err := svc.HeaterOff(context.Background())
	require.NoError(t, err)
	assert.False(t, *action.Heater)
	assert.False(t, *action.Pump)
}

func TestHeaterOffUncoupledLeavesPumpAlone(t *testing.T) {
	webhooks := &fakeWebhookClient{}
	svc := newTestService(t, webhooks, false)

	_, err := svc.PumpRun(context.Background())
	require.NoError(t, err)
	_, err = svc.HeaterOn(context.Background())
	require.NoError(t, err)
	webhooks.events = nil

	action, err := svc.HeaterOff(context.Background())
	require.NoError(t, err)
	assert.False(t, *action.Heater)
	assert.Equal(t, []string{EventHeaterOff}, webhooks.events)

	status, err := svc.Status()
	require.NoError(t, err)
	assert.True(t, status.Pump.On)
}

func TestHeaterOffSkipsPumpEventWhenAlreadyOff(t *testing.T) {
	webhooks := &fakeWebhookClient{}
	svc := newTestService(t, webhooks, true)

	_, err := svc.HeaterOn(context.Background())
	require.NoError(t, err)
	_, err = svc.HeaterOff(context.Background())
	require.NoError(t, err)
	webhooks.events = nil

	_, err = svc.HeaterOff(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{EventHeaterOff}, webhooks.events)
}

func TestHeaterOnWebhookFailureSurfacesAppError(t *testing.T) {
	webhooks := &fakeWebhookClient{failOn: EventHeaterOn, failErr: errors.New("gateway down")}
	svc := newTestService(t, webhooks, false)

	_, err := svc.HeaterOn(context.Background())
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeWebhookFailed, appErr.Code)
}

func TestPumpRunMarksPumpOnOnly(t *testing.T) {
	webhooks := &fakeWebhookClient{}
	svc := newTestService(t, webhooks, false)

	action, err := svc.PumpRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, action.Pump)
	assert.True(t, *action.Pump)
	assert.Nil(t, action.Heater)
}
