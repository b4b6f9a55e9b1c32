package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/drummonds/pdfcanvas/config"
	"github.com/drummonds/pdfcanvas/engine/scale"
)

// StartupChecks performs all the checks to make sure everything works
func (serverHandler *ServerHandler) StartupChecks() error {
	if err := defaultScaleChecks(serverHandler.ServerConfig); err != nil {
		return err
	}
	dimensionChecks(serverHandler.ServerConfig)
	webDirectoryChecks(serverHandler.ServerConfig)
	return nil
}

// defaultScaleChecks refuses to start with a default the dropdown cannot show
func defaultScaleChecks(serverConfig config.ServerConfig) error {
	f, err := scale.Parse(serverConfig.DefaultScale)
	if err != nil {
		Logger.Error("DEFAULT_SCALE is not one of the supported scales", "scale", serverConfig.DefaultScale, "error", err)
		return err
	}
	Logger.Info("Default scale", "scale", f.String())
	return nil
}

func dimensionChecks(serverConfig config.ServerConfig) {
	soft, hard := serverConfig.SoftMaxDimension, serverConfig.HardMaxDimension
	if hard > 0 && soft > hard {
		Logger.Warn("Soft dimension limit is above the hard limit, pages will fail before they warn",
			"soft", soft, "hard", hard)
	}
}

// webDirectoryChecks warns when the UI has not been built into the web directory
func webDirectoryChecks(serverConfig config.ServerConfig) error {
	if serverConfig.WebPath == "" {
		Logger.Warn("Web path not configured")
		return nil
	}
	info, err := os.Stat(serverConfig.WebPath)
	if err != nil {
		Logger.Warn("Web directory not found, only the embedded UI will be served", "path", serverConfig.WebPath, "error", err)
		return nil
	}
	if !info.IsDir() {
		Logger.Error("Web path exists but is not a directory", "path", serverConfig.WebPath)
		return fmt.Errorf("web path is not a directory: %s", serverConfig.WebPath)
	}
	if _, err := os.Stat(filepath.Join(serverConfig.WebPath, "app.wasm")); err != nil {
		Logger.Warn("app.wasm missing, build it with GOOS=js GOARCH=wasm go build -o web/app.wasm ./cmd/webapp", "path", serverConfig.WebPath)
		return nil
	}
	Logger.Info("Web directory exists", "path", serverConfig.WebPath)
	return nil
}
