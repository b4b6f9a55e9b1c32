package webapp

import (
	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// GetAPIBaseURL returns the configured API base URL
// It reads from window.pdfcanvasConfig.apiURL if available,
// otherwise falls back to empty string (relative URLs)
func GetAPIBaseURL() string {
	if !app.IsClient {
		return "" // Server-side rendering - use relative URLs
	}

	config := app.Window().Get("pdfcanvasConfig")
	if config.Truthy() {
		apiURL := config.Get("apiURL")
		if apiURL.Truthy() {
			url := apiURL.String()
			if len(url) > 0 && url[len(url)-1] == '/' {
				return url[:len(url)-1]
			}
			return url
		}
	}
	return ""
}

// BuildAPIURL constructs a full API URL from a path
// Example: BuildAPIURL("/api/sessions") -> "http://backend:8000/api/sessions"
// or just "/api/sessions" if using relative URLs
func BuildAPIURL(path string) string {
	baseURL := GetAPIBaseURL()
	if baseURL == "" {
		return path
	}
	return baseURL + path
}

// fetchJSON calls fetch and hands the status and the JSON body, re-serialised
// as a string, to done on the UI goroutine. failed runs on network errors.
func fetchJSON(ctx app.Context, url string, options map[string]interface{}, done func(ctx app.Context, status int, body string), failed func(ctx app.Context)) {
	ctx.Async(func() {
		var res app.Value
		if options == nil {
			res = app.Window().Call("fetch", url)
		} else {
			res = app.Window().Call("fetch", url, options)
		}

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) interface{} {
			if len(args) == 0 {
				return nil
			}
			response := args[0]
			status := response.Get("status").Int()

			response.Call("json").Call("then", app.FuncOf(func(this app.Value, args []app.Value) interface{} {
				body := "null"
				if len(args) > 0 && args[0].Truthy() {
					body = app.Window().Get("JSON").Call("stringify", args[0]).String()
				}
				ctx.Dispatch(func(ctx app.Context) {
					done(ctx, status, body)
				})
				return nil
			}))
			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) interface{} {
			ctx.Dispatch(failed)
			return nil
		}))
	})
}

// Job represents a session or cleanup job
type Job struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	CurrentStep string `json:"currentStep"`
	TotalSteps  int    `json:"totalSteps"`
	Message     string `json:"message"`
	Error       string `json:"error,omitempty"`
	Result      string `json:"result,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
	StartedAt   string `json:"startedAt,omitempty"`
	CompletedAt string `json:"completedAt,omitempty"`
}

// Finished reports whether the job will not change any more
func (j Job) Finished() bool {
	return j.Status == "completed" || j.Status == "failed" || j.Status == "cancelled"
}

// SessionSummary is the result stored on a completed session job
type SessionSummary struct {
	Document string  `json:"document"`
	Scale    string  `json:"scale"`
	Pages    int     `json:"pages"`
	Sent     int     `json:"sent"`
	Inserted int     `json:"inserted"`
	Failed   []int   `json:"failed,omitempty"`
	Warnings []int   `json:"warnings,omitempty"`
	Cursor   float64 `json:"cursor"`
}

// Preview is the answer of /api/preview
type Preview struct {
	Name            string  `json:"name"`
	Pages           int     `json:"pages"`
	Scale           string  `json:"scale"`
	IntrinsicWidth  float64 `json:"intrinsicWidth"`
	IntrinsicHeight float64 `json:"intrinsicHeight"`
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	Oversized       bool    `json:"oversized"`
}

// Drawable is one placed page as listed by /api/surface/drawables
type Drawable struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Index  int     `json:"index"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}
