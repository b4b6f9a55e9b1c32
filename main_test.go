package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	config "github.com/drummonds/pdfcanvas/config"
	database "github.com/drummonds/pdfcanvas/database"
	engine "github.com/drummonds/pdfcanvas/engine"
)

// getBrowser finds an available Chrome or Chromium for testing
func getBrowser() (string, error) {
	browsers := []string{"chromium", "chromium-browser", "google-chrome", "chrome"}
	for _, browser := range browsers {
		if path, err := exec.LookPath(browser); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no suitable browser found")
}

// startLiveServer runs the full server on 127.0.0.1:port until the test ends
func startLiveServer(t *testing.T, port string) string {
	t.Helper()
	serverConfig, logger := config.SetupServer()
	injectGlobals(logger)
	serverConfig.DatabaseType = "sqlite"
	serverConfig.DatabaseDbname = filepath.Join(t.TempDir(), "live.sqlite")

	db, err := database.NewRepository(serverConfig)
	if err != nil {
		t.Fatalf("Failed to setup database: %v", err)
	}
	sessions := engine.NewSessionManager(db, serverConfig, nil)
	e, _ := newServer(serverConfig, db, sessions)

	go func() {
		if err := e.Start(fmt.Sprintf("127.0.0.1:%s", port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("Server stopped: %v", err)
		}
	}()
	t.Cleanup(func() {
		e.Shutdown(context.Background())
		sessions.Close()
		db.Close()
	})

	// Give server time to start
	time.Sleep(time.Second)
	return fmt.Sprintf("http://127.0.0.1:%s", port)
}

// TestSetupServer checks the environment defaults reach the server config
func TestSetupServer(t *testing.T) {
	serverConfig, logger := config.SetupServer()
	if logger == nil {
		t.Error("Logger should not be nil")
	}
	if serverConfig.ListenAddrPort == "" {
		t.Error("Server config was not loaded properly")
	}
	if serverConfig.HostQueueSize < 1 {
		t.Errorf("Host queue size must be at least 1, got %d", serverConfig.HostQueueSize)
	}
}

func TestIsAddressInUse(t *testing.T) {
	if isAddressInUse(nil) {
		t.Error("nil is not an address error")
	}
	if !isAddressInUse(errors.New("listen tcp :8000: bind: address already in use")) {
		t.Error("Expected bind failure to be detected")
	}
	if isAddressInUse(errors.New("permission denied")) {
		t.Error("Unexpected match on an unrelated error")
	}
}

// TestWasmFileValid tests that a built WASM file has the right magic number
func TestWasmFileValid(t *testing.T) {
	wasmPath := "web/app.wasm"

	info, err := os.Stat(wasmPath)
	if err != nil {
		t.Skipf("WASM file not found at %s, build it with GOOS=js GOARCH=wasm go build -o web/app.wasm ./cmd/webapp", wasmPath)
	}
	if info.Size() == 0 {
		t.Fatal("WASM file is empty")
	}

	file, err := os.Open(wasmPath)
	if err != nil {
		t.Fatalf("Failed to open WASM file: %v", err)
	}
	defer file.Close()

	magicNumber := make([]byte, 4)
	if _, err := file.Read(magicNumber); err != nil {
		t.Fatalf("Failed to read WASM magic number: %v", err)
	}

	// "\0asm"
	expectedMagic := []byte{0x00, 0x61, 0x73, 0x6d}
	if !bytes.Equal(magicNumber, expectedMagic) {
		t.Errorf("Invalid WASM magic number. Got %v, expected %v", magicNumber, expectedMagic)
	}
	t.Logf("WASM file is valid: %s (%d bytes)", wasmPath, info.Size())
}

// TestRootEndpoint fetches the go-app shell page with curl
func TestRootEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if _, err := exec.LookPath("curl"); err != nil {
		t.Skip("curl not available")
	}
	baseURL := startLiveServer(t, "8996")

	cmd := exec.Command("curl", "-s", "-L", "-w", "\n%{http_code}", "--max-time", "5", baseURL+"/")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Logf("Curl error: %v, output: %s", err, string(output))
	}

	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	statusCode := lines[len(lines)-1]
	responseBody := strings.Join(lines[:len(lines)-1], "\n")

	if statusCode != "200" {
		t.Errorf("Expected status code 200, got %s", statusCode)
	}
	if !strings.Contains(strings.ToLower(responseBody), "<html") {
		t.Errorf("Response does not look like HTML: %s", responseBody[:min(200, len(responseBody))])
	}
	if !strings.Contains(responseBody, "/config.js") {
		t.Error("Shell page does not load /config.js")
	}
}

// TestFrontendRendering loads the insert page in a headless browser
func TestFrontendRendering(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	browserPath, err := getBrowser()
	if err != nil {
		t.Skip("No Chrome/Chromium browser found, skipping chromedp test")
	}
	t.Logf("Using browser: %s", browserPath)
	baseURL := startLiveServer(t, "8999")

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(browserPath),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancel()
	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()
	ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var pageTitle, bodyHTML string
	err = chromedp.Run(ctx,
		chromedp.Navigate(baseURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Title(&pageTitle),
		chromedp.InnerHTML("body", &bodyHTML),
	)
	if err != nil {
		t.Fatalf("Failed to load page: %v", err)
	}
	if pageTitle == "" {
		t.Error("Page title is empty")
	}
	if len(bodyHTML) < 100 {
		t.Errorf("Body HTML seems too short (%d chars), page may not have rendered properly", len(bodyHTML))
	}
}

// TestAboutPageWithChromedp renders the About page, which needs the WASM build
func TestAboutPageWithChromedp(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	browserPath, err := getBrowser()
	if err != nil {
		t.Skip("No Chrome/Chromium browser found, skipping chromedp test")
	}
	if _, err := os.Stat("web/app.wasm"); err != nil {
		t.Skip("web/app.wasm not built, skipping About page test")
	}
	baseURL := startLiveServer(t, "8997")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(browserPath),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(baseURL+"/about"),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		t.Skipf("Chromedp failed to navigate (browser may not be compatible): %v", err)
	}

	// Give WASM time to load and execute
	time.Sleep(8 * time.Second)

	var pageHTML string
	if err := chromedp.Run(taskCtx, chromedp.OuterHTML("html", &pageHTML, chromedp.ByQuery)); err != nil {
		t.Fatalf("Failed to get page content: %v", err)
	}
	pageLower := strings.ToLower(pageHTML)

	expectedContent := []string{
		"about pdfcanvas",
		"application information",
		"rendering",
		"database configuration",
		"version",
	}
	foundContent := 0
	for _, content := range expectedContent {
		if strings.Contains(pageLower, content) {
			foundContent++
		} else {
			t.Logf("Missing expected content: '%s'", content)
		}
	}
	if foundContent < 4 {
		t.Fatalf("Only found %d/%d expected content items. Page may not have rendered correctly.", foundContent, len(expectedContent))
	}
	if strings.Contains(pageHTML, "Network error") {
		t.Error("Page showing network error")
	}
}
