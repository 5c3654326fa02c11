// Command cron-runner is C7: the short-lived executable the host crontab
// invokes directly. It receives a job_id as its sole argument, executes
// the seven-step contract of spec.md §4.7, and exits 0 iff the loopback
// call it made returned 2xx.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/science/HotTubController-sub005/internal/config"
	"github.com/science/HotTubController-sub005/internal/cronadapter"
	"github.com/science/HotTubController-sub005/internal/jobstore"
	"github.com/science/HotTubController-sub005/internal/runner"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: cron-runner <job_id>")
		os.Exit(1)
	}
	jobID := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading configuration:", err)
		os.Exit(1)
	}

	protectedEnvPath := os.Getenv("RUNNER_PROTECTED_ENV_PATH")
	if protectedEnvPath == "" {
		protectedEnvPath = filepath.Join(cfg.StorageDir, ".runner.env")
	}
	bearer, err := runner.ProtectedBearerToken(protectedEnvPath)
	if err != nil {
		// Fall back to the main config's value so development setups
		// without a protected file still function, per spec.md §7's
		// tolerance for stub-mode deployments.
		bearer = cfg.RunnerBearerToken
	}

	jobs := jobstore.New(filepath.Join(cfg.StorageDir, "scheduled-jobs"))
	cron := cronadapter.New(cfg.CronSentinelPath, filepath.Join(cfg.StorageDir, "crontab-backups"))
	httpClient := &http.Client{Timeout: config.LoopbackTimeout}
	logPath := filepath.Join(cfg.StorageDir, "logs", "cron.log")

	r := runner.New(jobs, cron, httpClient, cfg.APIBaseURL, bearer, logPath)

	ctx, cancel := context.WithTimeout(context.Background(), config.LoopbackTimeout+5*time.Second)
	defer cancel()

	result := r.Run(ctx, jobID)
	if !result.Success {
		fmt.Fprintf(os.Stderr, "cron-runner: job %s failed (status=%d err=%v)\n", jobID, result.StatusCode, result.Err)
		os.Exit(1)
	}
	os.Exit(0)
}
