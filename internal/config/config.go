package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// IdentityConfig describes the external identity provider connection.
type IdentityConfig struct {
	URL        string
	ServiceKey string
	// Suffix is the fixed login-key domain appended to employee codes.
	Suffix   string
	PageSize int
}

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment  string
	HTTPPort     string
	DatabasePath string
	JWTSecret    string

	Identity IdentityConfig

	// AuditPatchWindow bounds how far back the attribution patcher looks for
	// the audit row a mutation just produced.
	AuditPatchWindow time.Duration
	// OrphanScanSchedule is a cron expression for the periodic dry-run scan.
	// Empty disables the schedule.
	OrphanScanSchedule string
	// NotifyURLs are shoutrrr destinations for operational notifications.
	NotifyURLs []string
	// DefaultEmployeePassword is the initial credential for freshly minted
	// identities when the upsert does not supply one.
	DefaultEmployeePassword string
}

// Load reads env vars and falls back to defaults so the server can boot with
// zero configuration.
func Load() (Config, error) {
	cfg := Config{
		Environment:  getEnv("QM_ENV", "development"),
		HTTPPort:     getEnv("QM_HTTP_PORT", "8080"),
		DatabasePath: getEnv("QM_DB_PATH", filepath.Join("data", "quartermaster.db")),
		JWTSecret:    getEnv("QM_JWT_SECRET", ""),
		Identity: IdentityConfig{
			URL:        getEnv("QM_IDENTITY_URL", ""),
			ServiceKey: getEnv("QM_IDENTITY_SERVICE_KEY", ""),
			Suffix:     getEnv("QM_IDENTITY_SUFFIX", "staff.quartermaster.local"),
			PageSize:   getEnvInt("QM_IDENTITY_PAGE_SIZE", 50),
		},
		AuditPatchWindow:        time.Duration(getEnvInt("QM_AUDIT_PATCH_WINDOW_SECONDS", 10)) * time.Second,
		OrphanScanSchedule:      getEnv("QM_ORPHAN_SCAN_CRON", "0 3 * * *"),
		DefaultEmployeePassword: getEnv("QM_DEFAULT_EMPLOYEE_PASSWORD", "ChangeMe!123"),
	}

	if urls := getEnv("QM_NOTIFY_URLS", ""); urls != "" {
		for _, u := range strings.Split(urls, ",") {
			if u = strings.TrimSpace(u); u != "" {
				cfg.NotifyURLs = append(cfg.NotifyURLs, u)
			}
		}
	}

	if cfg.JWTSecret == "" {
		if cfg.Environment == "production" {
			return Config{}, fmt.Errorf("QM_JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-only-secret"
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}

	return fallback
}
