// Package build holds values stamped in at link time, eg
//
//	go build -ldflags "-X github.com/drummonds/pdfcanvas/internal/build.Version=v1.2.0"
package build

// Version is the released version, "dev" for local builds
var Version = "dev"
