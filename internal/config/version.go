package config

// Version is the doclens binary version.
// Set at build time via: -ldflags "-X github.com/doclens/doclens/internal/config.Version=<tag>"
// Defaults to "dev" when built without ldflags.
var Version = "dev"
