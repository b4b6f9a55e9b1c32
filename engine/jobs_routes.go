package engine

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/drummonds/pdfcanvas/database"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
)

const (
	defaultJobLimit = 20
	maxJobLimit     = 100
)

// JobView is a job as the API returns it. Finished sessions carry their
// decoded summary next to the raw result.
type JobView struct {
	database.Job
	Summary *database.SessionSummary `json:"summary,omitempty"`
}

func viewJob(job database.Job) JobView {
	view := JobView{Job: job}
	if job.Type != database.JobTypeSession || job.Result == "" {
		return view
	}
	var summary database.SessionSummary
	if err := json.Unmarshal([]byte(job.Result), &summary); err != nil {
		Logger.Warn("Session result is not a summary", "jobID", job.ID, "error", err)
		return view
	}
	view.Summary = &summary
	return view
}

// viewJobs keeps the jobs of jobType, or all of them when jobType is empty
func viewJobs(jobs []database.Job, jobType database.JobType) []JobView {
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		if jobType != "" && job.Type != jobType {
			continue
		}
		views = append(views, viewJob(job))
	}
	return views
}

// GetJob returns one session or cleanup job
// @Summary Get job by ID
// @Description Status, progress and current step of a job; finished sessions include their summary
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID (ULID)"
// @Success 200 {object} JobView "Job details"
// @Failure 400 {object} map[string]interface{} "Invalid job ID"
// @Failure 404 {object} map[string]interface{} "Job not found"
// @Router /sessions/{id} [get]
func (serverHandler *ServerHandler) GetJob(c echo.Context) error {
	jobID, err := ulid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Session id must be a ULID",
		})
	}

	job, err := serverHandler.DB.GetJob(jobID)
	if err != nil {
		Logger.Warn("Job lookup failed", "jobID", jobID, "error", err)
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Job not found",
		})
	}
	return c.JSON(http.StatusOK, viewJob(*job))
}

// GetRecentJobs lists jobs newest first
// @Summary Get recent jobs
// @Description Recent sessions and cleanup runs, optionally of one type
// @Tags Jobs
// @Produce json
// @Param limit query int false "Number of jobs to return (default: 20, max: 100)"
// @Param offset query int false "Offset for pagination (default: 0)"
// @Param type query string false "session or cleanup"
// @Success 200 {array} JobView "List of jobs"
// @Failure 400 {object} map[string]interface{} "Unknown job type"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /sessions [get]
func (serverHandler *ServerHandler) GetRecentJobs(c echo.Context) error {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 || limit > maxJobLimit {
		limit = defaultJobLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	jobType := database.JobType(c.QueryParam("type"))
	switch jobType {
	case "", database.JobTypeSession, database.JobTypeCleanup:
	default:
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "type must be session or cleanup",
		})
	}

	jobs, err := serverHandler.DB.GetRecentJobs(limit, offset)
	if err != nil {
		Logger.Error("Failed to list recent jobs", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to retrieve jobs",
		})
	}
	return c.JSON(http.StatusOK, viewJobs(jobs, jobType))
}

// GetActiveJobs lists pending and running jobs
// @Summary Get active jobs
// @Description At most one session is ever active, a cleanup run may be active alongside it
// @Tags Jobs
// @Produce json
// @Success 200 {array} JobView "List of active jobs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /sessions/active [get]
func (serverHandler *ServerHandler) GetActiveJobs(c echo.Context) error {
	jobs, err := serverHandler.DB.GetActiveJobs()
	if err != nil {
		Logger.Error("Failed to list active jobs", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to retrieve active jobs",
		})
	}
	return c.JSON(http.StatusOK, viewJobs(jobs, ""))
}
