package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "DATABASE_TYPE", "RENDER_BACKEND", "DEFAULT_SCALE",
		"HOST_QUEUE_SIZE", "SOFT_MAX_DIMENSION", "HARD_MAX_DIMENSION"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.ListenAddrPort != "8000" {
		t.Errorf("Expected default port 8000, got %s", cfg.ListenAddrPort)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("Expected default database sqlite, got %s", cfg.DatabaseType)
	}
	if cfg.RenderBackend != "pdfium" {
		t.Errorf("Expected default backend pdfium, got %s", cfg.RenderBackend)
	}
	if cfg.DefaultScale != "2x" {
		t.Errorf("Expected default scale 2x, got %s", cfg.DefaultScale)
	}
	if cfg.HostQueueSize != 4 {
		t.Errorf("Expected host queue size 4, got %d", cfg.HostQueueSize)
	}
	if cfg.SoftMaxDimension != 4080 {
		t.Errorf("Expected soft max dimension 4080, got %v", cfg.SoftMaxDimension)
	}
	if cfg.HardMaxDimension != 16384 {
		t.Errorf("Expected hard max dimension 16384, got %v", cfg.HardMaxDimension)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("RENDER_BACKEND", "fitz")
	t.Setenv("HOST_QUEUE_SIZE", "0")
	t.Setenv("VIEWPORT_CENTER_X", "500")
	t.Setenv("VIEWPORT_CENTER_Y", "300.5")
	t.Setenv("RENDER_RETRIES", "not-a-number")

	cfg := Load()

	if cfg.ListenAddrPort != "9100" {
		t.Errorf("Expected port 9100, got %s", cfg.ListenAddrPort)
	}
	if cfg.RenderBackend != "fitz" {
		t.Errorf("Expected backend fitz, got %s", cfg.RenderBackend)
	}
	if cfg.HostQueueSize != 1 {
		t.Errorf("Expected queue size to be clamped to 1, got %d", cfg.HostQueueSize)
	}
	if cfg.ViewportCenterX != 500 || cfg.ViewportCenterY != 300.5 {
		t.Errorf("Expected viewport centre (500, 300.5), got (%v, %v)", cfg.ViewportCenterX, cfg.ViewportCenterY)
	}
	if cfg.RenderRetries != 0 {
		t.Errorf("Expected invalid retries to fall back to 0, got %d", cfg.RenderRetries)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("PDFCANVAS_TEST_BOOL", "true")
	if !getEnvBool("PDFCANVAS_TEST_BOOL", false) {
		t.Error("Expected true from environment")
	}
	t.Setenv("PDFCANVAS_TEST_BOOL", "maybe")
	if getEnvBool("PDFCANVAS_TEST_BOOL", false) {
		t.Error("Expected default for unparsable value")
	}
}
