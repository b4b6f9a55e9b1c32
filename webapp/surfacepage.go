package webapp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// SurfacePage shows a snapshot of the host surface and the placed pages
type SurfacePage struct {
	app.Compo
	drawables []Drawable
	selection map[string]bool
	stamp     int64
	loading   bool
	error     string
}

// OnMount is called when the component is mounted
func (s *SurfacePage) OnMount(ctx app.Context) {
	s.load(ctx)
}

func (s *SurfacePage) load(ctx app.Context) {
	s.loading = true
	s.error = ""
	fetchJSON(ctx, BuildAPIURL("/api/surface/drawables"), nil, func(ctx app.Context, status int, body string) {
		s.loading = false
		if status != 200 {
			s.error = errorText(body, status)
			return
		}
		var response struct {
			Drawables []Drawable `json:"drawables"`
			Selection []string   `json:"selection"`
		}
		if err := json.Unmarshal([]byte(body), &response); err != nil {
			s.error = "Failed to parse drawables: " + err.Error()
			return
		}
		s.drawables = response.Drawables
		s.selection = make(map[string]bool, len(response.Selection))
		for _, id := range response.Selection {
			s.selection[id] = true
		}
		s.stamp = time.Now().UnixMilli()
	}, func(ctx app.Context) {
		s.loading = false
		s.error = "Network error: Could not connect to server"
	})
}

// Render renders the surface page
func (s *SurfacePage) Render() app.UI {
	return app.Div().
		Class("surface-page").
		Body(
			app.H2().Text("Surface"),
			app.Div().Class("surface-controls").Body(
				app.Button().
					Class("btn-primary").
					Disabled(s.loading).
					OnClick(func(ctx app.Context, e app.Event) { s.load(ctx) }).
					Text("Refresh"),
			),
			s.renderBody(),
		)
}

func (s *SurfacePage) renderBody() app.UI {
	if s.error != "" {
		return app.Div().Class("error").Text("Error: " + s.error)
	}
	if len(s.drawables) == 0 {
		if s.loading {
			return app.Div().Class("loading").Text("Loading surface...")
		}
		return app.Div().Class("info").Text("Nothing has been placed yet.")
	}

	rows := make([]app.UI, 0, len(s.drawables))
	for _, d := range s.drawables {
		class := "drawable-row"
		if s.selection[d.ID] {
			class += " drawable-selected"
		}
		rows = append(rows, app.Tr().Class(class).Body(
			app.Td().Text(d.Name),
			app.Td().Text(fmt.Sprintf("%.0f, %.0f", d.X, d.Y)),
			app.Td().Text(fmt.Sprintf("%.0f x %.0f", d.Width, d.Height)),
		))
	}

	return app.Div().Body(
		app.Img().
			Class("surface-snapshot").
			Alt("Surface snapshot").
			Src(BuildAPIURL(fmt.Sprintf("/api/surface/snapshot.png?maxWidth=1200&t=%d", s.stamp))),
		app.Table().Class("drawables-table").Body(
			app.THead().Body(app.Tr().Body(
				app.Th().Text("Page"),
				app.Th().Text("Position"),
				app.Th().Text("Size"),
			)),
			app.TBody().Body(rows...),
		),
	)
}
