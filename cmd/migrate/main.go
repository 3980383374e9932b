package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/zata-zhangtao/transFileServer/internal/config"
	"github.com/zata-zhangtao/transFileServer/internal/logging"
	meta "github.com/zata-zhangtao/transFileServer/internal/repo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}

	dsn := strings.TrimSpace(cfg.MetaDSN)
	if dsn == "" || strings.HasPrefix(dsn, "memory://") {
		logger.Info("memory meta store selected, skipping migrations")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("applying migrations", "meta_dsn", cfg.Redacted().MetaDSN)
	if err := meta.ApplyMigrations(ctx, dsn); err != nil {
		logger.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	logger.Info("migrations applied")
}
