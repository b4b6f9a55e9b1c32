package webapp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// JobsPage lists recent sessions and cleanup runs
type JobsPage struct {
	app.Compo
	jobs          []Job
	loading       bool
	error         string
	autoRefresh   bool
	refreshTicker *time.Ticker
}

// OnMount is called when the component is mounted
func (j *JobsPage) OnMount(ctx app.Context) {
	j.autoRefresh = true
	j.loadJobs(ctx)

	// Start auto-refresh every 2 seconds
	ctx.Async(func() {
		j.refreshTicker = time.NewTicker(2 * time.Second)
		for range j.refreshTicker.C {
			if j.autoRefresh {
				j.loadJobs(ctx)
			}
		}
	})
}

// OnDismount is called when the component is unmounted
func (j *JobsPage) OnDismount() {
	if j.refreshTicker != nil {
		j.refreshTicker.Stop()
	}
}

// Render renders the jobs page
func (j *JobsPage) Render() app.UI {
	return app.Div().
		Class("jobs-page").
		Body(
			app.H2().Text("Sessions"),
			app.P().Text("Every inserted document is tracked as a session job; old jobs are removed by a scheduled cleanup."),

			app.Div().Class("jobs-controls").Body(
				app.Button().
					Class("btn-primary").
					OnClick(j.onRefreshClick).
					Disabled(j.loading).
					Body(app.Text("Refresh")),
				app.Label().Class("auto-refresh-label").Body(
					app.Input().
						Type("checkbox").
						Checked(j.autoRefresh).
						OnChange(j.onAutoRefreshChange),
					app.Text(" Auto-refresh"),
				),
			),

			j.renderStatus(),
		)
}

// renderStatus renders the jobs list or status messages
func (j *JobsPage) renderStatus() app.UI {
	if j.loading && len(j.jobs) == 0 {
		return app.Div().Class("loading").Body(
			app.Text("Loading jobs..."),
		)
	}

	if j.error != "" {
		return app.Div().Class("error").Body(
			app.Text("Error: " + j.error),
		)
	}

	if len(j.jobs) == 0 {
		return app.Div().Class("info").Body(
			app.P().Text("No jobs found. A job is created each time a document is inserted."),
		)
	}

	return app.Div().Class("jobs-list").Body(
		j.renderJobsList()...,
	)
}

// renderJobsList renders the list of jobs
func (j *JobsPage) renderJobsList() []app.UI {
	var items []app.UI

	for i := range j.jobs {
		job := &j.jobs[i]
		items = append(items, j.renderJob(job))
	}

	return items
}

// renderJob renders a single job card
func (j *JobsPage) renderJob(job *Job) app.UI {
	statusClass := "job-card job-" + job.Status

	return app.Div().
		Class(statusClass).
		Body(
			app.Div().Class("job-header").Body(
				app.Div().Class("job-type").Body(
					app.Strong().Text(j.formatJobType(job.Type)),
					app.Span().Class("job-status-badge job-status-"+job.Status).
						Body(app.Text(job.Status)),
				),
				app.Div().Class("job-time").Body(
					app.Text(j.formatTime(job.CreatedAt)),
				),
			),

			app.If(job.Status == "running" || job.Status == "pending",
				func() app.UI {
					return app.Div().Class("job-progress").Body(
						app.Div().Class("progress-bar").Body(
							app.Div().
								Class("progress-fill").
								Style("width", fmt.Sprintf("%d%%", job.Progress)),
						),
						app.Div().Class("progress-text").Body(
							app.Text(fmt.Sprintf("%d%% - %s", job.Progress, job.CurrentStep)),
						),
					)
				},
			),

			app.If(job.Message != "",
				func() app.UI {
					return app.Div().Class("job-message").Body(
						app.Text(job.Message),
					)
				},
			),

			app.If(job.Error != "",
				func() app.UI {
					return app.Div().Class("job-error").Body(
						app.Strong().Text("Error: "),
						app.Text(job.Error),
					)
				},
			),

			app.If(job.Result != "",
				func() app.UI {
					return app.Div().Class("job-result").Body(
						app.Text(j.formatResult(job)),
					)
				},
			),

			app.Div().Class("job-footer").Body(
				app.Div().Class("job-id").Body(
					app.Text("ID: " + job.ID),
				),
				app.If(job.CompletedAt != "",
					func() app.UI {
						return app.Div().Class("job-completed").Body(
							app.Text("Completed: " + j.formatTime(job.CompletedAt)),
						)
					},
				),
			),
		)
}

// formatJobType converts job type to readable format
func (j *JobsPage) formatJobType(jobType string) string {
	switch jobType {
	case "session":
		return "Document Insertion"
	case "cleanup":
		return "Job Cleanup"
	default:
		return jobType
	}
}

// formatTime formats ISO time string to readable format
func (j *JobsPage) formatTime(timeStr string) string {
	if timeStr == "" {
		return ""
	}

	// Try to parse ISO 8601 format
	t, err := time.Parse(time.RFC3339, timeStr)
	if err != nil {
		// Try without nanoseconds
		t, err = time.Parse("2006-01-02T15:04:05Z", timeStr)
		if err != nil {
			return timeStr
		}
	}

	// Format as relative time if recent
	now := time.Now()
	diff := now.Sub(t)

	if diff < time.Minute {
		return "Just now"
	} else if diff < time.Hour {
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	} else if diff < 24*time.Hour {
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}

	return t.Format("Jan 2, 2006 at 3:04 PM")
}

// formatResult formats JSON result string
func (j *JobsPage) formatResult(job *Job) string {
	if job.Type == "session" {
		return summaryText(job.Result)
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(job.Result), &data); err != nil {
		return job.Result
	}
	if val, ok := data["deleted"].(float64); ok {
		return fmt.Sprintf("Deleted: %.0f jobs", val)
	}
	return job.Result
}

// onRefreshClick handles the refresh button click
func (j *JobsPage) onRefreshClick(ctx app.Context, e app.Event) {
	j.loadJobs(ctx)
}

// onAutoRefreshChange handles auto-refresh checkbox change
func (j *JobsPage) onAutoRefreshChange(ctx app.Context, e app.Event) {
	j.autoRefresh = ctx.JSSrc().Get("checked").Bool()
	ctx.Update()
}

// loadJobs fetches jobs from the API
func (j *JobsPage) loadJobs(ctx app.Context) {
	j.loading = true
	j.error = ""
	ctx.Update()

	fetchJSON(ctx, BuildAPIURL("/api/sessions?limit=50"), nil, func(ctx app.Context, status int, body string) {
		j.loading = false
		if status < 200 || status >= 300 {
			j.error = fmt.Sprintf("Failed to load jobs (status: %d)", status)
			return
		}
		var jobs []Job
		if err := json.Unmarshal([]byte(body), &jobs); err != nil {
			j.error = "Failed to parse jobs: " + err.Error()
			return
		}
		j.jobs = jobs
	}, func(ctx app.Context) {
		j.loading = false
		j.error = "Network error: Could not connect to server"
	})
}
