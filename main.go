package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gogpu/gg"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	config "github.com/drummonds/pdfcanvas/config"
	database "github.com/drummonds/pdfcanvas/database"
	engine "github.com/drummonds/pdfcanvas/engine"
	"github.com/drummonds/pdfcanvas/engine/host"
	"github.com/drummonds/pdfcanvas/engine/pdfrenderer"
	"github.com/drummonds/pdfcanvas/engine/sequencer"
	"github.com/drummonds/pdfcanvas/webapp"
)

//go:embed webapp/webapp.css
var webappFS embed.FS

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	database.Logger = Logger
	config.Logger = Logger
	engine.Logger = Logger
	pdfrenderer.Logger = Logger
	sequencer.Logger = Logger
	host.Logger = Logger
	gg.SetLogger(Logger)
}

// newServer wires the API and the go-app UI onto a fresh echo instance
func newServer(serverConfig config.ServerConfig, db database.Repository, sessions *engine.SessionManager) (*echo.Echo, *engine.ServerHandler) {
	e := echo.New()
	e.HideBanner = true

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}
		// API callers always get JSON
		if strings.HasPrefix(c.Request().URL.Path, "/api/") {
			message := http.StatusText(code)
			if he, ok := err.(*echo.HTTPError); ok {
				message = fmt.Sprint(he.Message)
			}
			c.JSON(code, map[string]string{
				"error": message,
				"path":  c.Request().URL.Path,
			})
			return
		}
		e.DefaultHTTPErrorHandler(err, c)
	}

	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			Logger.Debug("Request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	serverHandler := &engine.ServerHandler{DB: db, Echo: e, ServerConfig: serverConfig, Sessions: sessions}
	serverHandler.AddRoutes()
	e.Any("/api/*", func(c echo.Context) error {
		return echo.ErrNotFound
	})

	appHandler := webapp.Handler()

	// app.wasm and wasm_exec.js are build artefacts kept in WEB_PATH
	e.GET("/wasm_exec.js", func(c echo.Context) error {
		return c.File(filepath.Join(serverConfig.WebPath, "wasm_exec.js"))
	})
	e.Static("/web", serverConfig.WebPath)

	// Register go-app specific resources
	e.GET("/app.js", echo.WrapHandler(appHandler))
	e.GET("/app.css", echo.WrapHandler(appHandler))
	e.GET("/manifest.webmanifest", echo.WrapHandler(appHandler))

	e.GET("/webapp/webapp.css", func(c echo.Context) error {
		data, err := webappFS.ReadFile("webapp/webapp.css")
		if err != nil {
			return c.String(http.StatusNotFound, "webapp.css not found")
		}
		return c.Blob(http.StatusOK, "text/css", data)
	})

	// Inject backend API URL into the page
	e.GET("/config.js", func(c echo.Context) error {
		configJS := fmt.Sprintf(`
// pdfcanvas Frontend Configuration
window.pdfcanvasConfig = {
    apiURL: "%s",
    defaultScale: "%s"
};
`, serverConfig.ServerAPIURL, serverConfig.DefaultScale)
		c.Response().Header().Set("Content-Type", "application/javascript")
		return c.String(http.StatusOK, configJS)
	})

	// Serve go-app handler for all other routes (must be last)
	e.Any("/*", echo.WrapHandler(appHandler))
	return e, serverHandler
}

func main() {
	serverConfig, logger := config.SetupServer()
	injectGlobals(logger) //inject the logger into all of the packages

	// Show info banner if using ephemeral database
	if serverConfig.DatabaseType == "ephemeral" {
		fmt.Println("\n" + strings.Repeat("=", 50))
		fmt.Println("🚀  EPHEMERAL DATABASE MODE")
		fmt.Println(strings.Repeat("=", 50))
		fmt.Println("• Database will be destroyed on exit")
		fmt.Println("• Placed pages are lost with it")
		fmt.Println(strings.Repeat("=", 50) + "\n")
	}

	Logger.Info("Setting up database", "type", serverConfig.DatabaseType)
	db, err := database.NewRepository(serverConfig)
	if err != nil {
		Logger.Error("Failed to set up database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	Logger.Info("Database setup complete")

	sessions := engine.NewSessionManager(db, serverConfig, nil)
	defer sessions.Close()

	e, serverHandler := newServer(serverConfig, db, sessions)
	if err := serverHandler.StartupChecks(); err != nil {
		Logger.Error("Startup checks failed", "error", err)
		os.Exit(1)
	}
	scheduler := serverHandler.InitializeSchedules(db)
	defer scheduler.Stop()

	if serverConfig.ListenAddrIP == "" {
		Logger.Info("No Ip Addr set, binding on ALL addresses")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			Logger.Error("Server shutdown failed", "error", err)
		}
	}()

	// Try to start server with automatic port increment if port is in use
	maxRetries := 5
	startPort := serverConfig.ListenAddrPort
	for attempt := 0; attempt < maxRetries; attempt++ {
		addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
		Logger.Info("Attempting to start server", "address", addr, "attempt", attempt+1)

		err = e.Start(addr)
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			break
		}
		if !isAddressInUse(err) {
			Logger.Error("Failed to start server", "error", err)
			return
		}

		Logger.Warn("Port already in use, trying next port",
			"port", serverConfig.ListenAddrPort,
			"attempt", attempt+1,
			"max_attempts", maxRetries)
		portNum := 0
		fmt.Sscanf(serverConfig.ListenAddrPort, "%d", &portNum)
		serverConfig.ListenAddrPort = fmt.Sprintf("%d", portNum+1)
		if attempt == maxRetries-1 {
			Logger.Error("Failed to find available port after maximum retries",
				"start_port", startPort,
				"end_port", serverConfig.ListenAddrPort,
				"max_retries", maxRetries)
		}
	}
	Logger.Info("Server stopped")
}

// isAddressInUse checks if the error is due to address already in use
func isAddressInUse(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "address already in use")
}
