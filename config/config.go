package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ServerConfig contains all of the server settings
type ServerConfig struct {
	ListenAddrIP     string
	ListenAddrPort   string
	DatabaseType     string
	DatabaseHost     string
	DatabasePort     string
	DatabaseUser     string
	DatabasePassword string `json:"-"`
	DatabaseDbname   string
	DatabaseSslmode  string
	WebPath          string // directory holding app.wasm and wasm_exec.js
	RenderConfig
	SurfaceConfig
	JobRetentionHours      int
	CleanupIntervalMinutes int
	FrontEndConfig
}

// RenderConfig holds the rendering context settings
type RenderConfig struct {
	RenderBackend string // pdfium or fitz
	DefaultScale  string // one of the scale labels, eg "2x"
	RenderRetries int
	HostQueueSize int
}

// SurfaceConfig holds the placement host settings
type SurfaceConfig struct {
	SoftMaxDimension float64
	HardMaxDimension float64
	ViewportCenterX  float64
	ViewportCenterY  float64
}

// FrontEndConfig stores all of the frontend settings
type FrontEndConfig struct {
	ServerAPIURL string
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolVal
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatVal
}

// SetupServer loads configuration and returns ServerConfig and Logger
func SetupServer() (ServerConfig, *slog.Logger) {
	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")

	logger := setupLogging()
	Logger = logger

	serverConfig := Load()
	logger.Info("Database configuration loaded", "type", serverConfig.DatabaseType)
	logger.Info("Render configuration loaded",
		"backend", serverConfig.RenderBackend,
		"defaultScale", serverConfig.DefaultScale,
		"hostQueueSize", serverConfig.HostQueueSize,
		"renderRetries", serverConfig.RenderRetries)

	fmt.Println("\n========================================")
	fmt.Println("   pdfcanvas - PDF pages onto a canvas")
	fmt.Println("========================================")
	fmt.Printf("Server will start on: %s:%s\n", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
	if serverConfig.ListenAddrIP == "" {
		fmt.Println("(Listening on all network interfaces)")
	}
	fmt.Printf("Detailed logs: %s\n", getEnv("LOG_FILE", "pdfcanvas.log"))

	return serverConfig, logger
}

// Load reads the configuration from the environment without touching logging
func Load() ServerConfig {
	serverConfig := ServerConfig{}

	serverConfig.ListenAddrPort = getEnv("SERVER_PORT", "8000")
	serverConfig.ListenAddrIP = getEnv("SERVER_ADDR", "")

	serverConfig.DatabaseType = getEnv("DATABASE_TYPE", "sqlite")
	serverConfig.DatabaseHost = getEnv("DATABASE_HOST", "localhost")
	serverConfig.DatabasePort = getEnv("DATABASE_PORT", "5432")
	serverConfig.DatabaseUser = getEnv("DATABASE_USER", "pdfcanvas")
	serverConfig.DatabasePassword = getEnv("DATABASE_PASSWORD", "")
	serverConfig.DatabaseDbname = getEnv("DATABASE_NAME", "databases/pdfcanvas.sqlite")
	serverConfig.DatabaseSslmode = getEnv("DATABASE_SSLMODE", "disable")

	webPath, err := filepath.Abs(filepath.ToSlash(getEnv("WEB_PATH", "web")))
	if err != nil && Logger != nil {
		Logger.Error("Failed creating absolute path for web directory", "error", err)
	}
	serverConfig.WebPath = webPath

	serverConfig.RenderBackend = getEnv("RENDER_BACKEND", "pdfium")
	serverConfig.DefaultScale = getEnv("DEFAULT_SCALE", "2x")
	serverConfig.RenderRetries = getEnvInt("RENDER_RETRIES", 0)
	serverConfig.HostQueueSize = getEnvInt("HOST_QUEUE_SIZE", 4)
	if serverConfig.HostQueueSize < 1 {
		serverConfig.HostQueueSize = 1
	}

	serverConfig.SoftMaxDimension = getEnvFloat("SOFT_MAX_DIMENSION", 4080)
	serverConfig.HardMaxDimension = getEnvFloat("HARD_MAX_DIMENSION", 16384)
	serverConfig.ViewportCenterX = getEnvFloat("VIEWPORT_CENTER_X", 0)
	serverConfig.ViewportCenterY = getEnvFloat("VIEWPORT_CENTER_Y", 0)

	serverConfig.JobRetentionHours = getEnvInt("JOB_RETENTION_HOURS", 72)
	serverConfig.CleanupIntervalMinutes = getEnvInt("CLEANUP_INTERVAL_MINUTES", 60)

	serverConfig.ServerAPIURL = getEnv("SERVER_API_URL", "")
	return serverConfig
}

// setupLogging configures the application logger
func setupLogging() *slog.Logger {
	logLevel := getEnv("LOG_LEVEL", "debug")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelDebug
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	logOutput := getEnv("LOG_OUTPUT", "file")
	var logWriter io.Writer

	if logOutput == "stdout" {
		logWriter = os.Stdout
	} else {
		logPath, err := filepath.Abs(filepath.ToSlash(getEnv("LOG_FILE", "pdfcanvas.log")))
		if err != nil {
			fmt.Printf("Error creating log file path: %v\n", err)
			logWriter = os.Stdout
		} else {
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Printf("Failed to open log file: %v\n", err)
				logWriter = os.Stdout
			} else {
				logWriter = logFile
				fmt.Println("Logging to file: ", logPath)
			}
		}
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}

// Debug reports whether verbose query logging was requested
func Debug() bool {
	return getEnvBool("DEBUG_QUERIES", false)
}
