package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/quartermaster/backend/internal/config"
	"github.com/quartermaster/backend/internal/database"
	"github.com/quartermaster/backend/internal/logger"
	"github.com/quartermaster/backend/internal/models"
	"github.com/quartermaster/backend/internal/server"
	"github.com/quartermaster/backend/internal/version"
)

func main() {
	// Setup logging with rotation
	logDir := filepath.Join("data", "logs")
	_ = os.MkdirAll(logDir, 0755)

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "quartermaster.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	// Log to both stdout and file
	mw := io.MultiWriter(os.Stdout, rotator)
	log.SetOutput(mw)
	logger.Init(os.Getenv("QM_ENV") == "development", mw)

	// Handle CLI commands
	if len(os.Args) > 1 && os.Args[1] == "reset-password" {
		resetPassword()
		return
	}

	log.Printf("starting %s backend version %s", version.Name, version.Full())

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	srv, err := server.New(db, cfg)
	if err != nil {
		log.Fatalf("build server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduleOrphanScan(ctx, cfg, srv)

	log.Printf("listening on :%s", cfg.HTTPPort)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// scheduleOrphanScan runs the periodic dry-run identity orphan scan. The
// schedule never deletes on its own; cleanup stays an explicit admin action.
func scheduleOrphanScan(ctx context.Context, cfg config.Config, srv *server.Server) {
	if cfg.OrphanScanSchedule == "" {
		return
	}

	c := cron.New()
	_, err := c.AddFunc(cfg.OrphanScanSchedule, func() {
		report, err := srv.Deps.Scanner.Scan(ctx, true)
		if err != nil {
			logger.Log().WithError(err).Error("Scheduled orphan scan failed")
			return
		}
		logger.Log().WithField("candidates", len(report.OrphanCandidates)).Info("Scheduled orphan scan complete")
	})
	if err != nil {
		logger.Log().WithError(err).WithField("schedule", cfg.OrphanScanSchedule).Error("Invalid orphan scan schedule")
		return
	}
	c.Start()

	go func() {
		<-ctx.Done()
		c.Stop()
	}()
}

func resetPassword() {
	if len(os.Args) != 4 {
		log.Fatalf("Usage: %s reset-password <email> <new-password>", os.Args[0])
	}
	email := os.Args[2]
	newPassword := os.Args[3]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	var user models.AdminUser
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		log.Fatalf("admin not found: %v", err)
	}

	if err := user.SetPassword(newPassword); err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	// Unlock account if locked
	user.LockedUntil = nil
	user.FailedLoginAttempts = 0

	if err := db.Save(&user).Error; err != nil {
		log.Fatalf("failed to save admin: %v", err)
	}

	log.Printf("Password updated successfully for %s", email)
}
