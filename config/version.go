package config

// Version is overridden at build time via -ldflags "-X ...config.Version=v1.2.3".
var Version = "dev"
