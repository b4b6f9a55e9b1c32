package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/drummonds/pdfcanvas/database"
	"github.com/robfig/cron/v3"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// InitializeSchedules starts the job retention cron and returns it so the caller can stop it
func (serverHandler *ServerHandler) InitializeSchedules(db database.Repository) *cron.Cron {
	interval := serverHandler.ServerConfig.CleanupIntervalMinutes
	if interval <= 0 {
		interval = 60
	}
	retention := time.Duration(serverHandler.ServerConfig.JobRetentionHours) * time.Hour

	c := cron.New()
	var cleanupJob cron.Job
	cleanupJob = cron.FuncJob(func() { serverHandler.cleanupJobFunc(db, retention) })
	cleanupJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(cleanupJob) //ensure we don't kick off another if old one is still running
	if _, err := c.AddJob(fmt.Sprintf("@every %dm", interval), cleanupJob); err != nil {
		Logger.Error("Unable to schedule job cleanup", "error", err)
	}
	Logger.Info("Adding job cleanup scheduler", "interval_minutes", interval, "retention", retention.String())
	c.Start()
	return c
}

// cleanupJobFunc deletes finished jobs older than retention, tracking itself as a cleanup job
func (serverHandler *ServerHandler) cleanupJobFunc(db database.Repository, retention time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in cleanup job", "panic", r)
		}
	}()
	if retention <= 0 {
		Logger.Debug("Job retention disabled, skipping cleanup")
		return
	}

	job, err := db.CreateJob(database.JobTypeCleanup, "Removing old jobs")
	if err != nil {
		Logger.Error("Failed to create cleanup job", "error", err)
		return
	}
	if err := db.UpdateJobStatus(job.ID, database.JobStatusRunning, "Removing old jobs"); err != nil {
		Logger.Warn("Failed to update job status", "error", err)
	}

	deleted, err := db.DeleteOldJobs(retention)
	if err != nil {
		Logger.Error("Job cleanup failed", "error", err)
		db.UpdateJobError(job.ID, err.Error())
		return
	}
	Logger.Info("Job cleanup finished", "deleted", deleted)
	if err := db.CompleteJob(job.ID, fmt.Sprintf(`{"deleted":%d}`, deleted)); err != nil {
		Logger.Error("Failed to complete cleanup job", "error", err)
	}
}
