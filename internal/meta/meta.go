// Package meta holds identifying constants shared across the host binaries.
package meta

// AppName is the on-disk config/cache directory prefix ("~/.<AppName>/...").
const AppName = "reglet"

// Version is overridden at build time via -ldflags.
var Version = "dev"
