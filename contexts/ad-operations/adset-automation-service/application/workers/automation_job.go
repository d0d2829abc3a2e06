package workers

import (
	"context"
	"log/slog"

	application "adshift/contexts/ad-operations/adset-automation-service/application"
	"adshift/contexts/ad-operations/adset-automation-service/application/automation"
)

// AutomationJob runs one scheduler cycle per tick. A failed platform read is
// logged and returned; the next tick starts from fresh platform truth.
type AutomationJob struct {
	Runner *automation.Runner
	Logger *slog.Logger
}

func (j AutomationJob) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	report, err := j.Runner.RunCycle(ctx)
	if err != nil {
		logger.Error("automation job cycle failed",
			"event", "automation_job_cycle_failed",
			"module", "ad-operations/adset-automation-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if report.Failed > 0 {
		logger.Warn("automation job left ad sets unreconciled",
			"event", "automation_job_unreconciled",
			"module", "ad-operations/adset-automation-service",
			"layer", "worker",
			"failed_count", report.Failed,
			"evaluated", report.Evaluated,
		)
	}
	return nil
}
