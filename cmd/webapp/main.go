//go:build js && wasm

package main

import (
	"github.com/drummonds/pdfcanvas/webapp"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

func main() {
	// Register routes for the client-side app - all use App component with navbar/sidebar
	webapp.RegisterRoutes()

	// This main function is for the WASM build only
	app.RunWhenOnBrowser()
}
