// Package runner is C7: the logic library behind the cron-runner
// executable. Its Run method implements the seven contractual steps of
// spec.md §4.7 in the exact order specified.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/science/HotTubController-sub005/internal/cronadapter"
	"github.com/science/HotTubController-sub005/internal/jobstore"
)

const loopbackTimeout = 30 * time.Second

// Runner executes one job_id invocation to completion; it is not a
// long-lived process — each cron fire spawns a fresh one.
type Runner struct {
	jobs       *jobstore.Store
	cron       *cronadapter.Adapter
	httpClient *http.Client
	apiBaseURL string
	bearer     string
	logPath    string
}

func New(jobs *jobstore.Store, cron *cronadapter.Adapter, httpClient *http.Client, apiBaseURL, bearer, logPath string) *Runner {
	return &Runner{jobs: jobs, cron: cron, httpClient: httpClient, apiBaseURL: apiBaseURL, bearer: bearer, logPath: logPath}
}

// Result carries the runner's outcome for the caller (cmd/runner) to turn
// into a process exit status.
type Result struct {
	Success    bool
	StatusCode int
	Err        error
}

// Run executes the seven-step contract for jobID. Steps are numbered per
// spec.md §4.7 and must not be reordered.
func (r *Runner) Run(ctx context.Context, jobID string) Result {
	job, err := r.jobs.Get(jobID)
	if err != nil {
		r.appendLog(jobID, "lookup_error", err)
		return Result{Err: fmt.Errorf("reading job record: %w", err)}
	}
	if job == nil {
		r.appendLog(jobID, "missing_job_record", nil)
		return Result{Err: fmt.Errorf("no job record for %s", jobID)}
	}

	// 1. Self-removal first, one-shots only.
	if !job.Recurring {
		if err := r.cron.RemoveMatching("HOTTUB:" + jobID); err != nil {
			r.appendLog(jobID, "self_removal_failed", err)
			return Result{Err: fmt.Errorf("removing cron entry: %w", err)}
		}
	}

	// 2. Bearer token is injected at construction (cmd/runner reads it from
	// the protected environment file via ProtectedBearerToken; Run never
	// reads the file itself).

	// 3. Endpoint already loaded onto job by step 0's Get.
	endpoint := job.Endpoint

	// 4. POST to the loopback endpoint; bounded timeout, one retry on 5xx/network.
	statusCode, postErr := r.invoke(ctx, endpoint)

	// 5. For one-shots, delete the job file regardless of invocation outcome —
	// the cron entry is already gone, so the job file would otherwise orphan.
	if !job.Recurring {
		if err := r.jobs.Delete(jobID); err != nil {
			r.appendLog(jobID, "job_file_delete_failed", err)
		}
	}

	success := postErr == nil && statusCode >= 200 && statusCode < 300

	// 6. Structured log line.
	r.appendLog(jobID, outcomeLabel(success), postErr)

	// 7. Exit status reflects 2xx vs anything else.
	return Result{Success: success, StatusCode: statusCode, Err: postErr}
}

func outcomeLabel(success bool) string {
	if success {
		return "invocation_succeeded"
	}
	return "invocation_failed"
}

func (r *Runner) invoke(ctx context.Context, endpoint string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, loopbackTimeout)
	defer cancel()

	status, err := r.post(ctx, endpoint)
	if err == nil && status >= 200 && status < 300 {
		return status, nil
	}
	if err == nil && status >= 400 && status < 500 {
		return status, fmt.Errorf("loopback returned %d", status)
	}

	// Single retry on 5xx or transport error.
	status, err = r.post(ctx, endpoint)
	return status, err
}

func (r *Runner) post(ctx context.Context, endpoint string) (int, error) {
	url := r.apiBaseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(nil))
	if err != nil {
		return 0, fmt.Errorf("building loopback request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.bearer)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("loopback request: %w", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func (r *Runner) appendLog(jobID, event string, err error) {
	if r.logPath == "" {
		return
	}
	if dir := filepath.Dir(r.logPath); dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	f, openErr := os.OpenFile(r.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if openErr != nil {
		return
	}
	defer f.Close()

	line := fmt.Sprintf("%s job_id=%s event=%s", time.Now().UTC().Format(time.RFC3339), jobID, event)
	if err != nil {
		line += " error=" + err.Error()
	}
	fmt.Fprintln(f, line)
}

// ProtectedBearerToken reads the runner bearer token from the protected
// environment file path, per spec.md §4.7 step 2 — deliberately not
// godotenv-loaded into the main process environment.
func ProtectedBearerToken(protectedEnvPath string) (string, error) {
	data, err := os.ReadFile(protectedEnvPath)
	if err != nil {
		return "", fmt.Errorf("reading protected environment file: %w", err)
	}
	for _, line := range splitLines(data) {
		const prefix = "RUNNER_BEARER_TOKEN="
		if len(line) > len(prefix) && line[:len(prefix)] == prefix {
			return line[len(prefix):], nil
		}
	}
	return "", fmt.Errorf("RUNNER_BEARER_TOKEN not present in %s", protectedEnvPath)
}

func splitLines(data []byte) []string {
	var lines []string
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, string(data[start:i]))
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, string(data[start:]))
	}
	return lines
}
