package runner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/science/HotTubController-sub005/internal/jobstore"
	"github.com/science/HotTubController-sub005/internal/model"
)

func newTestRunner(t *testing.T, server *httptest.Server) (*Runner, *jobstore.Store) {
	dir := t.TempDir()
	jobs := jobstore.New(filepath.Join(dir, "scheduled-jobs"))
	logPath := filepath.Join(dir, "logs", "cron.log")
	r := New(jobs, nil, server.Client(), server.URL, "test-bearer", logPath)
	return r, jobs
}

// Recurring jobs never touch the crontab adapter in Run, since self-removal
// and job-file deletion are one-shot-only steps — so a nil *cronadapter.Adapter
// is safe for these cases.
func recurringJob(id, endpoint string) model.ScheduledJob {
	return model.ScheduledJob{
		JobID:     id,
		Kind:      model.JobKindMonitorTick,
		Recurring: true,
		Endpoint:  endpoint,
		CreatedAt: time.Now().UTC(),
		Owner:     "scheduler",
	}
}

func TestRunMissingJobReturnsError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	r, _ := newTestRunner(t, server)

	result := r.Run(context.Background(), "no-such-job")
	assert.False(t, result.Success)
	assert.Error(t, result.Err)
}

func TestRunRecurringJobSucceedsOnFirstInvocation(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits++
		assert.Equal(t, "Bearer test-bearer", req.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	r, jobs := newTestRunner(t, server)

	job := recurringJob("tick-1", "/api/internal/monitor-tick")
	require.NoError(t, jobs.Create(job))

	result := r.Run(context.Background(), "tick-1")
	assert.True(t, result.Success)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, 1, hits)

	// Recurring jobs are never deleted by the runner.
	got, err := jobs.Get("tick-1")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestRunRetriesOnceOn5xxThenSucceeds(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	r, jobs := newTestRunner(t, server)

	job := recurringJob("tick-2", "/api/internal/monitor-tick")
	require.NoError(t, jobs.Create(job))

	result := r.Run(context.Background(), "tick-2")
	assert.True(t, result.Success)
	assert.Equal(t, 2, hits)
}

func TestRunReturnsFailureOn4xxWithoutRetry(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()
	r, jobs := newTestRunner(t, server)

	job := recurringJob("tick-3", "/api/internal/monitor-tick")
	require.NoError(t, jobs.Create(job))

	result := r.Run(context.Background(), "tick-3")
	assert.False(t, result.Success)
	assert.Equal(t, 1, hits)
}

func TestRunAppendsLogLine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	r, jobs := newTestRunner(t, server)

	job := recurringJob("tick-4", "/api/internal/monitor-tick")
	require.NoError(t, jobs.Create(job))

	r.Run(context.Background(), "tick-4")

	data, err := os.ReadFile(r.logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "job_id=tick-4")
	assert.Contains(t, string(data), "invocation_succeeded")
}

func TestProtectedBearerTokenReadsValueFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runner.env")
	require.NoError(t, os.WriteFile(path, []byte("OTHER_VAR=ignored\nRUNNER_BEARER_TOKEN=abc123\n"), 0o600))

	token, err := ProtectedBearerToken(path)
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
}

func TestProtectedBearerTokenMissingKeyErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runner.env")
	require.NoError(t, os.WriteFile(path, []byte("OTHER_VAR=ignored\n"), 0o600))

	_, err := ProtectedBearerToken(path)
	assert.Error(t, err)
}

func TestProtectedBearerTokenMissingFileErrors(t *testing.T) {
	_, err := ProtectedBearerToken(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
