// Package version holds the build version, set with
// -ldflags "-X phredavg/internal/version.Version=...".
package version

var Version = "dev"
