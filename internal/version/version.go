package version

// Version is set at build time via -ldflags "-X github.com/bnema/hivemind/internal/version.Version=...".
var Version = "dev"
