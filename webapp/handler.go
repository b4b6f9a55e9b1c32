package webapp

import (
	"net/http"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// Routes are the client side paths, all rendered by App
var Routes = []string{"/", "/surface", "/jobs", "/about"}

// RegisterRoutes points every route at the App component
func RegisterRoutes() {
	for _, path := range Routes {
		app.Route(path, func() app.Composer { return &App{} })
	}
}

// Handler returns an HTTP handler for the web app
func Handler() http.Handler {
	RegisterRoutes()
	app.RunWhenOnBrowser()

	// wasm_exec.js is served at /wasm_exec.js by Echo
	// app.wasm is served from /web/app.wasm by Echo
	return &app.Handler{
		Name:        "pdfcanvas",
		Title:       "pdfcanvas",
		Description: "Place the pages of a PDF side by side on a canvas",
		Styles: []string{
			"/webapp/webapp.css",
		},
		Scripts: []string{
			"/config.js", // Load backend API configuration
		},
		RawHeaders: []string{
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
		},
	}
}
