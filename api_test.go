package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	config "github.com/drummonds/pdfcanvas/config"
	database "github.com/drummonds/pdfcanvas/database"
	engine "github.com/drummonds/pdfcanvas/engine"
	"github.com/drummonds/pdfcanvas/engine/layout"
	"github.com/drummonds/pdfcanvas/engine/pdfrenderer"
	"github.com/drummonds/pdfcanvas/internal/pdftest"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
)

// solidRenderer paints every page grey at the requested size
type solidRenderer struct{}

func (solidRenderer) Load(data []byte) (pdfrenderer.PageSource, error) {
	return solidRenderer{}, nil
}

func (solidRenderer) RenderPage(index int, scale float64, width, height int) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.Gray{Y: 128}}, image.Point{}, draw.Src)
	return img, nil
}

func (solidRenderer) Close() error {
	return nil
}

func testServerConfig(t *testing.T) config.ServerConfig {
	serverConfig := config.Load()
	serverConfig.DatabaseType = "sqlite"
	serverConfig.DatabaseDbname = filepath.Join(t.TempDir(), "pdfcanvas.sqlite")
	serverConfig.WebPath = t.TempDir()
	serverConfig.DefaultScale = "1x"
	serverConfig.ViewportCenterX = 0
	serverConfig.ViewportCenterY = 0
	return serverConfig
}

// setupTestServer creates a test server wired exactly as main does
func setupTestServer(t *testing.T, factory engine.RendererFactory) (*echo.Echo, database.Repository) {
	t.Helper()
	serverConfig := testServerConfig(t)

	db, err := database.NewRepository(serverConfig)
	if err != nil {
		t.Fatalf("Failed to setup database: %v", err)
	}
	sessions := engine.NewSessionManager(db, serverConfig, factory)
	t.Cleanup(func() {
		sessions.Close()
		db.Close()
	})

	e, _ := newServer(serverConfig, db, sessions)
	return e, db
}

func fakeFactory(string) (pdfrenderer.Renderer, error) {
	return solidRenderer{}, nil
}

func upload(t *testing.T, name string, data []byte, scale string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write(data)
	if scale != "" {
		writer.WriteField("scale", scale)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v\nBody: %s", err, rec.Body.String())
	}
	return response
}

func waitForSession(t *testing.T, db database.Repository, id string, timeout time.Duration) *database.Job {
	t.Helper()
	jobID, err := ulid.Parse(id)
	if err != nil {
		t.Fatalf("Invalid session id %q: %v", id, err)
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		job, err := db.GetJob(jobID)
		if err != nil {
			t.Fatalf("Failed to get job: %v", err)
		}
		if job.Status.Finished() {
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("Session %s did not finish in time", id)
	return nil
}

func TestInsertDocumentThroughServer(t *testing.T) {
	e, db := setupTestServer(t, fakeFactory)
	doc := pdftest.Build(pdftest.Sizes(100, 200, 150, 100, 50, 50)...)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, upload(t, "three.pdf", doc, ""))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", rec.Code, rec.Body.String())
	}
	response := decodeBody(t, rec)
	if response["scale"] != "1x" {
		t.Errorf("Expected the configured default scale, got %v", response["scale"])
	}

	job := waitForSession(t, db, response["sessionId"].(string), 10*time.Second)
	if job.Status != database.JobStatusCompleted {
		t.Fatalf("Expected completed session, got %s: %s", job.Status, job.Error)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/surface/drawables", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	drawables := decodeBody(t, rec)["drawables"].([]interface{})
	if len(drawables) != 3 {
		t.Fatalf("Expected 3 drawables, got %d", len(drawables))
	}

	// pages run along x from the viewport centre, layout.Gap apart
	wantX := []float64{0, 100 + layout.Gap, 250 + 2*layout.Gap}
	for i, raw := range drawables {
		d := raw.(map[string]interface{})
		if d["x"] != wantX[i] || d["y"] != float64(0) {
			t.Errorf("Page %d placed at (%v,%v), expected (%v,0)", i+1, d["x"], d["y"], wantX[i])
		}
		wantName := fmt.Sprintf("three.pdf - Page %d of 3", i+1)
		if d["name"] != wantName {
			t.Errorf("Expected name %q, got %v", wantName, d["name"])
		}
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/surface/snapshot.png", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected snapshot, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "image/png" {
		t.Errorf("Expected image/png, got %s", ct)
	}
}

func TestRejectedDocumentThroughServer(t *testing.T) {
	e, db := setupTestServer(t, fakeFactory)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, upload(t, "notes.txt", []byte("just some text"), "1x"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rec.Code)
	}
	response := decodeBody(t, rec)
	id, ok := response["sessionId"].(string)
	if !ok {
		t.Fatalf("Expected a session id for the failed job, got %v", response)
	}
	job := waitForSession(t, db, id, time.Second)
	if job.Status != database.JobStatusFailed {
		t.Errorf("Expected failed job, got %s", job.Status)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/surface/drawables", nil))
	if drawables := decodeBody(t, rec)["drawables"].([]interface{}); len(drawables) != 0 {
		t.Errorf("Expected an empty surface, got %d drawables", len(drawables))
	}
}

func TestStaticAndConfigRoutes(t *testing.T) {
	e, _ := setupTestServer(t, fakeFactory)

	t.Run("config.js carries the default scale", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config.js", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "window.pdfcanvasConfig") {
			t.Error("config.js does not define window.pdfcanvasConfig")
		}
		if !strings.Contains(rec.Body.String(), `defaultScale: "1x"`) {
			t.Errorf("config.js missing default scale: %s", rec.Body.String())
		}
	})

	t.Run("embedded stylesheet", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webapp/webapp.css", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rec.Code)
		}
		if !strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/css") {
			t.Errorf("Expected text/css, got %s", rec.Header().Get(echo.HeaderContentType))
		}
	})

	t.Run("unknown api path returns JSON", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nothing-here", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("Expected status 404, got %d", rec.Code)
		}
		if decodeBody(t, rec)["path"] != "/api/nothing-here" {
			t.Error("Expected the path in the error body")
		}
	})
}

func TestContentTypes(t *testing.T) {
	e, _ := setupTestServer(t, fakeFactory)

	tests := []struct {
		name     string
		endpoint string
	}{
		{"About", "/api/about"},
		{"Health", "/api/health"},
		{"Sessions", "/api/sessions"},
		{"Active sessions", "/api/sessions/active"},
		{"Drawables", "/api/surface/drawables"},
		{"Jobs alias", "/api/jobs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.endpoint, nil))
			if rec.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
				t.Errorf("Expected application/json, got %s", ct)
			}
		})
	}
}

func TestConcurrentRequests(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping concurrent test in short mode")
	}
	e, _ := setupTestServer(t, fakeFactory)

	concurrency := 10
	errs := make(chan error, concurrency)
	for i := 0; i < concurrency; i++ {
		go func(id int) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/surface/drawables", nil))
			if rec.Code != http.StatusOK {
				errs <- fmt.Errorf("concurrent request %d failed with status %d", id, rec.Code)
				return
			}
			errs <- nil
		}(i)
	}
	for i := 0; i < concurrency; i++ {
		if err := <-errs; err != nil {
			t.Error(err)
		}
	}
}

// TestInsertWithPDFium runs the real pure Go backend end to end
func TestInsertWithPDFium(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping pdfium test in short mode")
	}
	e, db := setupTestServer(t, nil)
	doc := pdftest.Build(pdftest.Sizes(72, 144)...)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, upload(t, "one.pdf", doc, "2x"))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", rec.Code, rec.Body.String())
	}
	job := waitForSession(t, db, decodeBody(t, rec)["sessionId"].(string), 2*time.Minute)
	if job.Status != database.JobStatusCompleted {
		t.Fatalf("Expected completed session, got %s: %s", job.Status, job.Error)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/surface/drawables", nil))
	d := decodeBody(t, rec)["drawables"].([]interface{})[0].(map[string]interface{})
	if d["width"] != float64(144) || d["height"] != float64(288) {
		t.Errorf("Expected 144x288 at 2x, got %vx%v", d["width"], d["height"])
	}
}
