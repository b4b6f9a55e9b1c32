package webapp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/drummonds/pdfcanvas/engine/scale"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// InsertPage picks a PDF and a scale and inserts the pages onto the surface
type InsertPage struct {
	app.Compo
	file       app.Value
	fileName   string
	label      string
	controller *scale.Controller
	pages      int

	sessionID  string
	job        Job
	error      string
	pollTicker *time.Ticker
	submitting bool
}

// scaleLabels are the dropdown entries, smallest first
func scaleLabels() []string {
	labels := make([]string, 0, len(scale.Factors))
	for _, f := range scale.Factors {
		labels = append(labels, f.String())
	}
	return labels
}

// previewText describes the destination size of the first page
func previewText(c *scale.Controller, pages int) string {
	if c == nil {
		return ""
	}
	p := c.Preview()
	text := fmt.Sprintf("%d page(s), first page %.0f x %.0f at %s", pages, p.Width, p.Height, c.Current())
	if c.Oversized() {
		text += " (larger than the host may display well)"
	}
	return text
}

// summaryText turns a session result into one line
func summaryText(result string) string {
	var s SessionSummary
	if err := json.Unmarshal([]byte(result), &s); err != nil || s.Pages == 0 {
		return result
	}
	parts := []string{fmt.Sprintf("Inserted %d of %d pages of %s at %s", s.Inserted, s.Pages, s.Document, s.Scale)}
	if len(s.Failed) > 0 {
		parts = append(parts, fmt.Sprintf("failed pages %v", oneBased(s.Failed)))
	}
	if len(s.Warnings) > 0 {
		parts = append(parts, fmt.Sprintf("oversized pages %v", oneBased(s.Warnings)))
	}
	return strings.Join(parts, ", ")
}

func oneBased(indexes []int) []int {
	pages := make([]int, len(indexes))
	for i, idx := range indexes {
		pages[i] = idx + 1
	}
	return pages
}

// OnMount is called when the component is mounted
func (p *InsertPage) OnMount(ctx app.Context) {
	if p.label == "" {
		p.label = scale.Default.String()
	}
}

// OnDismount is called when the component is unmounted
func (p *InsertPage) OnDismount() {
	if p.pollTicker != nil {
		p.pollTicker.Stop()
	}
}

// Render renders the insert page
func (p *InsertPage) Render() app.UI {
	label := p.label
	if label == "" {
		label = scale.Default.String()
	}
	running := p.sessionID != "" && !p.job.Finished()

	return app.Div().
		Class("insert-page").
		Body(
			app.H2().Text("Insert a PDF"),
			app.P().Text("Every page is rendered as an image and placed left to right, starting at the centre of the viewport."),

			app.Div().Class("insert-controls").Body(
				app.Input().
					Type("file").
					Accept("application/pdf,.pdf").
					Disabled(running).
					OnChange(p.onFileChange),
				app.Select().
					Class("scale-select").
					Disabled(running).
					OnChange(p.onScaleChange).
					Body(p.scaleOptions(label)...),
				app.Button().
					Class("btn-primary").
					Disabled(p.file == nil || running || p.submitting).
					OnClick(p.onInsertClick).
					Text("Insert"),
				app.Button().
					Class("btn-secondary").
					Disabled(!running).
					OnClick(p.onClearClick).
					Text("Clear document"),
			),

			app.If(p.controller != nil, func() app.UI {
				return app.Div().Class("scale-preview").Text(previewText(p.controller, p.pages))
			}),

			p.renderStatus(),
		)
}

func (p *InsertPage) scaleOptions(selected string) []app.UI {
	var options []app.UI
	for _, l := range scaleLabels() {
		options = append(options, app.Option().Value(l).Selected(l == selected).Text(l))
	}
	return options
}

// renderStatus renders the progress of the current session
func (p *InsertPage) renderStatus() app.UI {
	if p.error != "" {
		return app.Div().Class("error").Body(app.Text("Error: " + p.error))
	}
	if p.sessionID == "" {
		return app.Div()
	}

	switch p.job.Status {
	case "completed":
		return app.Div().Class("success").Text(summaryText(p.job.Result))
	case "failed":
		return app.Div().Class("error").Text("Failed: " + p.job.Error)
	case "cancelled":
		return app.Div().Class("info").Text(p.job.Message)
	}
	return app.Div().Class("job-progress").Body(
		app.Div().Class("progress-bar").Body(
			app.Div().
				Class("progress-fill").
				Style("width", fmt.Sprintf("%d%%", p.job.Progress)),
		),
		app.Div().Class("progress-text").Text(fmt.Sprintf("%d%% - %s", p.job.Progress, p.job.CurrentStep)),
	)
}

// onFileChange keeps the chosen file and asks the server for its first page size
func (p *InsertPage) onFileChange(ctx app.Context, e app.Event) {
	files := ctx.JSSrc().Get("files")
	if !files.Truthy() || files.Length() == 0 {
		return
	}
	p.file = files.Index(0)
	p.fileName = p.file.Get("name").String()
	p.controller = nil
	p.error = ""
	p.requestPreview(ctx)
}

// onScaleChange recomputes the preview locally
func (p *InsertPage) onScaleChange(ctx app.Context, e app.Event) {
	p.label = ctx.JSSrc().Get("value").String()
	if p.controller != nil {
		if err := p.controller.SetLabel(p.label); err != nil {
			p.error = err.Error()
		}
	}
	ctx.Update()
}

func (p *InsertPage) formData() app.Value {
	form := app.Window().Get("FormData").New()
	form.Call("append", "file", p.file, p.fileName)
	form.Call("append", "scale", p.label)
	return form
}

func (p *InsertPage) requestPreview(ctx app.Context) {
	fetchJSON(ctx, BuildAPIURL("/api/preview"), map[string]interface{}{
		"method": "POST",
		"body":   p.formData(),
	}, func(ctx app.Context, status int, body string) {
		if status != 200 {
			p.error = errorText(body, status)
			return
		}
		var preview Preview
		if err := json.Unmarshal([]byte(body), &preview); err != nil {
			p.error = "Failed to parse preview: " + err.Error()
			return
		}
		p.pages = preview.Pages
		p.controller = scale.NewController(scale.Size{Width: preview.IntrinsicWidth, Height: preview.IntrinsicHeight}, 0)
		p.controller.SetLabel(p.label)
	}, func(ctx app.Context) {
		p.error = "Network error: Could not connect to server"
	})
}

// onInsertClick starts a session for the chosen file
func (p *InsertPage) onInsertClick(ctx app.Context, e app.Event) {
	p.submitting = true
	p.error = ""
	fetchJSON(ctx, BuildAPIURL("/api/sessions"), map[string]interface{}{
		"method": "POST",
		"body":   p.formData(),
	}, func(ctx app.Context, status int, body string) {
		p.submitting = false
		if status != 202 {
			p.error = errorText(body, status)
			return
		}
		var started struct {
			SessionID string `json:"sessionId"`
		}
		json.Unmarshal([]byte(body), &started)
		p.sessionID = started.SessionID
		p.job = Job{ID: started.SessionID, Status: "running"}
		p.startPolling(ctx)
	}, func(ctx app.Context) {
		p.submitting = false
		p.error = "Network error: Could not connect to server"
	})
}

// onClearClick cancels the running session
func (p *InsertPage) onClearClick(ctx app.Context, e app.Event) {
	fetchJSON(ctx, BuildAPIURL("/api/sessions/current"), map[string]interface{}{
		"method": "DELETE",
	}, func(ctx app.Context, status int, body string) {
		if status != 200 {
			p.error = errorText(body, status)
		}
	}, func(ctx app.Context) {
		p.error = "Network error: Could not connect to server"
	})
}

func (p *InsertPage) startPolling(ctx app.Context) {
	if p.pollTicker != nil {
		p.pollTicker.Stop()
	}
	ticker := time.NewTicker(time.Second)
	p.pollTicker = ticker
	id := p.sessionID
	ctx.Async(func() {
		for range ticker.C {
			fetchJSON(ctx, BuildAPIURL("/api/sessions/"+id), nil, func(ctx app.Context, status int, body string) {
				if status != 200 || id != p.sessionID {
					return
				}
				var job Job
				if err := json.Unmarshal([]byte(body), &job); err != nil {
					return
				}
				p.job = job
				if job.Finished() {
					ticker.Stop()
				}
			}, func(ctx app.Context) {})
		}
	})
}

// errorText pulls the "error" field out of an API error body
func errorText(body string, status int) string {
	var response struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &response); err == nil && response.Error != "" {
		return response.Error
	}
	return fmt.Sprintf("request failed (status: %d)", status)
}
