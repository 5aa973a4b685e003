package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/mvxt99/minidb/internal"
	"github.com/mvxt99/minidb/server/httpapi"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "path to YAML config file")
		addr    = flag.String("addr", "", "listen address (overrides config)")
		dataDir = flag.String("data-dir", "", "directory for database files (overrides config)")
		debug   = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	cfg, err := internal.LoadConfig(*cfgPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}
	if *debug {
		cfg.Server.Debug = true
	}

	level := slog.LevelInfo
	if cfg.Server.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		slog.Error("create data directory", "err", err)
		os.Exit(1)
	}

	err = httpapi.Run(httpapi.ServerConfig{
		Addr:    cfg.Server.Addr,
		DataDir: cfg.Storage.DataDir,
		Debug:   cfg.Server.Debug,
		Auth: &httpapi.AuthConfig{
			Enabled:   cfg.Auth.Enabled,
			JWTSecret: cfg.Auth.JWTSecret,
			Issuer:    cfg.Auth.Issuer,
		},
	})
	if err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}
