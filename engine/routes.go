package engine

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/drummonds/pdfcanvas/config"
	"github.com/drummonds/pdfcanvas/database"
	"github.com/drummonds/pdfcanvas/engine/host"
	"github.com/drummonds/pdfcanvas/engine/layout"
	"github.com/drummonds/pdfcanvas/engine/pdfrenderer"
	"github.com/drummonds/pdfcanvas/engine/scale"
	"github.com/drummonds/pdfcanvas/internal/build"
	"github.com/labstack/echo/v4"
)

// maxUploadBytes bounds a single uploaded document
const maxUploadBytes = 256 << 20

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	DB           database.Repository
	Echo         *echo.Echo
	ServerConfig config.ServerConfig
	Sessions     *SessionManager
}

// AddRoutes registers every API route on the handler's echo instance
func (serverHandler *ServerHandler) AddRoutes() {
	e := serverHandler.Echo

	// Session API routes
	e.POST("/api/sessions", serverHandler.StartSession)
	e.GET("/api/sessions", serverHandler.GetRecentJobs)
	e.GET("/api/sessions/active", serverHandler.GetActiveJobs)
	e.DELETE("/api/sessions/current", serverHandler.CancelSession)
	e.GET("/api/sessions/:id", serverHandler.GetJob)
	e.POST("/api/preview", serverHandler.PreviewScale)

	// Surface API routes
	e.GET("/api/surface/drawables", serverHandler.GetDrawables)
	e.GET("/api/surface/snapshot.png", serverHandler.GetSnapshot)
	e.PUT("/api/surface/viewport", serverHandler.SetViewport)

	// Job tracking API routes
	e.GET("/api/jobs", serverHandler.GetRecentJobs)
	e.GET("/api/jobs/active", serverHandler.GetActiveJobs)
	e.GET("/api/jobs/:id", serverHandler.GetJob)

	// Admin API routes
	e.GET("/api/about", serverHandler.GetAboutInfo)
	e.GET("/api/health", serverHandler.Health)
}

// readUpload returns the name and bytes of the multipart "file" field
func readUpload(c echo.Context) (string, []byte, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return "", nil, err
	}
	file, err := fileHeader.Open()
	if err != nil {
		return "", nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return "", nil, err
	}
	if len(data) > maxUploadBytes {
		return "", nil, echo.ErrStatusRequestEntityTooLarge
	}
	return fileHeader.Filename, data, nil
}

// scaleLabel falls back to the configured default scale
func (serverHandler *ServerHandler) scaleLabel(c echo.Context) string {
	if label := c.FormValue("scale"); label != "" {
		return label
	}
	return serverHandler.ServerConfig.DefaultScale
}

// StartSession accepts a PDF and begins inserting its pages onto the surface
// @Summary Insert a document
// @Description Upload a PDF and place every page onto the surface at the chosen scale
// @Tags Sessions
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF document"
// @Param scale formData string false "Scale label, eg 2x"
// @Success 202 {object} map[string]interface{} "Session started"
// @Failure 400 {object} map[string]interface{} "Not a usable PDF or invalid scale"
// @Failure 409 {object} map[string]interface{} "A document is already being inserted"
// @Router /sessions [post]
func (serverHandler *ServerHandler) StartSession(c echo.Context) error {
	name, data, err := readUpload(c)
	if err != nil {
		Logger.Warn("Problem reading uploaded file", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "A PDF file is required in the 'file' field",
		})
	}

	session, err := serverHandler.Sessions.Start(name, data, serverHandler.scaleLabel(c))
	var parseErr *pdfrenderer.DocumentParseError
	switch {
	case errors.Is(err, ErrSessionActive):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error": err.Error(),
		})
	case errors.Is(err, scale.ErrInvalid):
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
	case errors.As(err, &parseErr):
		response := map[string]interface{}{
			"error": err.Error(),
		}
		if session != nil {
			response["sessionId"] = session.ID.String()
		}
		return c.JSON(http.StatusBadRequest, response)
	case err != nil:
		Logger.Error("Failed to start session", "name", name, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to start session",
		})
	}

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"sessionId": session.ID.String(),
		"pages":     session.Pages,
		"scale":     session.Scale.String(),
	})
}

// CancelSession clears the active document
// @Summary Cancel the active session
// @Description Stop rendering the active document. Pages already sent are still placed.
// @Tags Sessions
// @Produce json
// @Success 200 {object} map[string]interface{} "Cancellation requested"
// @Failure 404 {object} map[string]interface{} "No active session"
// @Router /sessions/current [delete]
func (serverHandler *ServerHandler) CancelSession(c echo.Context) error {
	session, err := serverHandler.Sessions.Cancel()
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":   "Cancellation requested",
		"sessionId": session.ID.String(),
	})
}

// PreviewScale reports the size the first page would be placed at
// @Summary Preview a scale
// @Description Compute the destination size of the first page at a scale without rendering
// @Tags Sessions
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF document"
// @Param scale formData string false "Scale label, eg 2x"
// @Success 200 {object} map[string]interface{} "Preview size"
// @Failure 400 {object} map[string]interface{} "Not a usable PDF or invalid scale"
// @Router /preview [post]
func (serverHandler *ServerHandler) PreviewScale(c echo.Context) error {
	name, data, err := readUpload(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "A PDF file is required in the 'file' field",
		})
	}

	doc, err := pdfrenderer.Inspect(name, data)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer doc.Close()
	first, err := doc.Page(0)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
	}

	controller := scale.NewController(first.Size(), serverHandler.ServerConfig.SoftMaxDimension)
	if err := controller.SetLabel(serverHandler.scaleLabel(c)); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
	}
	preview := controller.Preview()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"name":            name,
		"pages":           doc.PageCount(),
		"scale":           controller.Current().String(),
		"intrinsicWidth":  first.Size().Width,
		"intrinsicHeight": first.Size().Height,
		"width":           preview.Width,
		"height":          preview.Height,
		"oversized":       controller.Oversized(),
	})
}

// GetDrawables lists what has been placed on the surface
// @Summary Get placed drawables
// @Description Retrieve every drawable on the surface with the layout cursor and selection
// @Tags Surface
// @Produce json
// @Success 200 {object} map[string]interface{} "Drawables"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /surface/drawables [get]
func (serverHandler *ServerHandler) GetDrawables(c echo.Context) error {
	ctx := c.Request().Context()
	surface := serverHandler.DB.Surface()
	drawables, err := surface.Drawables(ctx)
	if err != nil {
		Logger.Error("Failed to list drawables", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to retrieve drawables",
		})
	}
	selection, err := surface.Selection(ctx)
	if err != nil {
		Logger.Warn("Failed to read selection", "error", err)
	}
	center, err := surface.ViewportCenter(ctx)
	if err != nil {
		Logger.Warn("Failed to read viewport centre", "error", err)
	}
	if drawables == nil {
		drawables = []host.Drawable{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"drawables": drawables,
		"selection": selection,
		"viewport":  center,
		"layout":    serverHandler.Sessions.Host().Controller().Layout(),
	})
}

// GetSnapshot renders the surface as a PNG
// @Summary Snapshot the surface
// @Description Render the bounding box of every placed page as a PNG
// @Tags Surface
// @Produce png
// @Param maxWidth query int false "Maximum width in pixels (default: 1600)"
// @Success 200 {file} file "PNG image"
// @Failure 404 {object} map[string]interface{} "Nothing placed yet"
// @Router /surface/snapshot.png [get]
func (serverHandler *ServerHandler) GetSnapshot(c echo.Context) error {
	maxWidth := 1600
	if widthStr := c.QueryParam("maxWidth"); widthStr != "" {
		if w, err := strconv.Atoi(widthStr); err == nil && w > 0 && w <= 8192 {
			maxWidth = w
		}
	}

	ctx := c.Request().Context()
	surface := serverHandler.DB.Surface()
	drawables, err := surface.Drawables(ctx)
	if err != nil {
		Logger.Error("Failed to list drawables", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to retrieve drawables",
		})
	}

	data, err := host.Snapshot(ctx, drawables, surface, maxWidth)
	if errors.Is(err, host.ErrEmptySurface) {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err != nil {
		Logger.Error("Failed to render snapshot", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to render snapshot",
		})
	}
	return c.Blob(http.StatusOK, "image/png", data)
}

// SetViewport moves the centre the next document starts at
// @Summary Move the viewport
// @Description Set the viewport centre used as the origin of the next document
// @Tags Surface
// @Accept json
// @Produce json
// @Param center body layout.Point true "New centre"
// @Success 200 {object} layout.Point "New centre"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Router /surface/viewport [put]
func (serverHandler *ServerHandler) SetViewport(c echo.Context) error {
	var center layout.Point
	if err := c.Bind(&center); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Expected a JSON body with x and y",
		})
	}
	if err := serverHandler.DB.Surface().SetViewportCenter(c.Request().Context(), center); err != nil {
		Logger.Error("Failed to move viewport", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to move viewport",
		})
	}
	return c.JSON(http.StatusOK, center)
}

// GetAboutInfo returns information about the application
// @Summary Get application information
// @Description Retrieve information about the application configuration, version, and database
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{} "Application information"
// @Router /about [get]
func (serverHandler *ServerHandler) GetAboutInfo(c echo.Context) error {
	cfg := serverHandler.ServerConfig
	aboutInfo := map[string]interface{}{
		"version":          build.Version,
		"renderBackend":    cfg.RenderBackend,
		"defaultScale":     cfg.DefaultScale,
		"scales":           scale.Factors,
		"hostQueueSize":    cfg.HostQueueSize,
		"softMaxDimension": cfg.SoftMaxDimension,
		"hardMaxDimension": cfg.HardMaxDimension,
		"databaseType":     serverHandler.DB.DatabaseType(),
		"databaseHost":     cfg.DatabaseHost,
		"databaseName":     cfg.DatabaseDbname,
	}
	return c.JSON(http.StatusOK, aboutInfo)
}

// Health reports that the server and its database are answering
// @Summary Health check
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{} "Healthy"
// @Failure 503 {object} map[string]interface{} "Database unavailable"
// @Router /health [get]
func (serverHandler *ServerHandler) Health(c echo.Context) error {
	if _, err := serverHandler.DB.Surface().ViewportCenter(c.Request().Context()); err != nil {
		Logger.Error("Health check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unavailable",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"activeSession": serverHandler.Sessions.Active() != nil,
	})
}
