// Package buildinfo holds the application identity used in version output
// and log headers.
package buildinfo

// AppName is the binary and config-directory name.
const AppName = "agentwerk"

// Version is stamped at link time with
// -ldflags "-X github.com/codefionn/agentwerk/internal/buildinfo.Version=...".
var Version = "dev"
