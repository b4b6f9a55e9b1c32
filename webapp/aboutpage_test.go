package webapp

import (
	"testing"
)

// TestGetDatabaseDisplay tests the database type display conversion
func TestGetDatabaseDisplay(t *testing.T) {
	tests := []struct {
		name     string
		dbType   string
		expected string
	}{
		{name: "PostgreSQL", dbType: "postgres", expected: "PostgreSQL"},
		{name: "CockroachDB", dbType: "cockroachdb", expected: "CockroachDB"},
		{name: "SQLite", dbType: "sqlite", expected: "SQLite"},
		{name: "Ephemeral", dbType: "ephemeral", expected: "PostgreSQL (Ephemeral)"},
		{name: "Unknown type", dbType: "mongodb", expected: "mongodb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &AboutPage{aboutInfo: AboutInfo{DatabaseType: tt.dbType}}
			if got := page.getDatabaseDisplay(); got != tt.expected {
				t.Errorf("getDatabaseDisplay() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetBackendDisplay(t *testing.T) {
	tests := []struct {
		backend  string
		expected string
	}{
		{"", "PDFium (WebAssembly)"},
		{"pdfium", "PDFium (WebAssembly)"},
		{"fitz", "MuPDF (CGo)"},
		{"other", "other"},
	}
	for _, tt := range tests {
		page := &AboutPage{aboutInfo: AboutInfo{RenderBackend: tt.backend}}
		if got := page.getBackendDisplay(); got != tt.expected {
			t.Errorf("getBackendDisplay(%q) = %v, want %v", tt.backend, got, tt.expected)
		}
	}
}

func TestGetLimitsDisplay(t *testing.T) {
	page := &AboutPage{aboutInfo: AboutInfo{SoftMaxDimension: 4080, HardMaxDimension: 16384}}
	if got := page.getLimitsDisplay(); got != "warn above 4080, fail above 16384" {
		t.Errorf("Unexpected limits %q", got)
	}
	page.aboutInfo.HardMaxDimension = 0
	if got := page.getLimitsDisplay(); got != "warn above 4080, no hard limit" {
		t.Errorf("Unexpected limits %q", got)
	}
}

// TestAboutPageRenderStates tests that every state renders
func TestAboutPageRenderStates(t *testing.T) {
	for name, page := range map[string]*AboutPage{
		"loading": {loading: true},
		"error":   {error: "boom"},
		"loaded":  {aboutInfo: AboutInfo{Version: "dev", DatabaseType: "sqlite"}},
	} {
		if page.Render() == nil {
			t.Errorf("%s: Render should return a valid UI component", name)
		}
	}
}
