package webapp

import (
	"encoding/json"
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// AboutInfo represents the about information from the API
type AboutInfo struct {
	Version          string    `json:"version"`
	RenderBackend    string    `json:"renderBackend"`
	DefaultScale     string    `json:"defaultScale"`
	Scales           []float64 `json:"scales"`
	HostQueueSize    int       `json:"hostQueueSize"`
	SoftMaxDimension float64   `json:"softMaxDimension"`
	HardMaxDimension float64   `json:"hardMaxDimension"`
	DatabaseType     string    `json:"databaseType"`
	DatabaseHost     string    `json:"databaseHost"`
	DatabaseName     string    `json:"databaseName"`
}

// AboutPage displays information about the application
type AboutPage struct {
	app.Compo
	aboutInfo AboutInfo
	loading   bool
	error     string
}

// OnMount is called when the component is mounted
func (a *AboutPage) OnMount(ctx app.Context) {
	a.loading = true
	fetchJSON(ctx, BuildAPIURL("/api/about"), nil, func(ctx app.Context, status int, body string) {
		a.loading = false
		if err := json.Unmarshal([]byte(body), &a.aboutInfo); err != nil {
			a.error = fmt.Sprintf("Failed to parse response: %v", err)
		}
	}, func(ctx app.Context) {
		a.error = "Network error"
		a.loading = false
	})
}

// Render renders the about page
func (a *AboutPage) Render() app.UI {
	if a.loading {
		return app.Div().Class("about-page").Body(
			app.H2().Text("About pdfcanvas"),
			app.Div().Class("loading").Body(app.Text("Loading...")),
		)
	}

	if a.error != "" {
		return app.Div().Class("about-page").Body(
			app.H2().Text("About pdfcanvas"),
			app.Div().Class("error").Body(app.Text("Error: "+a.error)),
		)
	}

	return app.Div().Class("about-page").Body(
		app.H2().Text("About pdfcanvas"),
		app.Div().Class("about-content").Body(
			app.Div().Class("about-section").Body(
				app.H3().Text("Application Information"),
				app.Div().Class("info-grid").Body(
					a.renderInfoItem("Version", a.aboutInfo.Version),
					a.renderInfoItem("Renderer", a.getBackendDisplay()),
					a.renderInfoItem("Database", a.getDatabaseDisplay()),
				),
			),
			app.Div().Class("about-section").Body(
				app.H3().Text("Rendering"),
				app.Div().Class("config-details").Body(
					app.P().Body(
						app.Strong().Text("Default Scale: "),
						app.Text(a.aboutInfo.DefaultScale),
					),
					app.P().Body(
						app.Strong().Text("Pages Queued For The Host: "),
						app.Text(fmt.Sprintf("%d", a.aboutInfo.HostQueueSize)),
					),
					app.P().Body(
						app.Strong().Text("Size Limits: "),
						app.Text(a.getLimitsDisplay()),
					),
				),
			),
			app.Div().Class("about-section").Body(
				app.H3().Text("Database Configuration"),
				app.Div().Class("config-details").Body(
					app.P().Body(
						app.Strong().Text("Host: "),
						app.Text(a.aboutInfo.DatabaseHost),
					),
					app.P().Body(
						app.Strong().Text("Database Name: "),
						app.Text(a.aboutInfo.DatabaseName),
					),
				),
			),
		),
	)
}

// renderInfoItem creates an info item display
func (a *AboutPage) renderInfoItem(label, value string) app.UI {
	return app.Div().Class("info-item").Body(
		app.Div().Class("info-label").Body(app.Text(label)),
		app.Div().Class("info-value").Body(app.Text(value)),
	)
}

// getDatabaseDisplay returns a user-friendly database display name
func (a *AboutPage) getDatabaseDisplay() string {
	switch a.aboutInfo.DatabaseType {
	case "postgres":
		return "PostgreSQL"
	case "cockroachdb":
		return "CockroachDB"
	case "sqlite":
		return "SQLite"
	case "ephemeral":
		return "PostgreSQL (Ephemeral)"
	default:
		return a.aboutInfo.DatabaseType
	}
}

// getBackendDisplay names the rasterisation backend
func (a *AboutPage) getBackendDisplay() string {
	switch a.aboutInfo.RenderBackend {
	case "", "pdfium":
		return "PDFium (WebAssembly)"
	case "fitz":
		return "MuPDF (CGo)"
	default:
		return a.aboutInfo.RenderBackend
	}
}

// getLimitsDisplay describes the soft warning and hard failure sizes
func (a *AboutPage) getLimitsDisplay() string {
	if a.aboutInfo.HardMaxDimension <= 0 {
		return fmt.Sprintf("warn above %.0f, no hard limit", a.aboutInfo.SoftMaxDimension)
	}
	return fmt.Sprintf("warn above %.0f, fail above %.0f", a.aboutInfo.SoftMaxDimension, a.aboutInfo.HardMaxDimension)
}
