// Package version reports which pipedata build is running.
//
// Version, commit and build time are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/pipedata/version.Version=1.2.0" ./cmd/pipedata
//
// Values left empty fall back to the VCS stamp Go embeds in the binary.
package version
