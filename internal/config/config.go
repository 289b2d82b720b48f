// Package config reads TalentDesk's environment variables into typed values.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the runtime configuration shared by the API, the worker and the
// CLI. Empty DatabaseURL or RedisAddr switch the API into in-memory mode.
type Config struct {
	Address string
	// TrustedProxies lists the peers whose X-Forwarded-For header is honoured.
	TrustedProxies []netip.Prefix

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	S3Endpoint   string
	S3AccessKey  string
	S3SecretKey  string
	S3Region     string
	S3UseSSL     bool
	ResumeBucket string

	ResumeMaxBytes     int64
	ResumeAllowedTypes []string
	SignedURLTTL       time.Duration

	AdminPassword      string
	AdminSigningSecret []byte
	AdminSessionTTL    time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	NotifyEmail  string

	CaptchaSecret    string
	CaptchaVerifyURL string

	FormDefaultsFile    string
	IntakeStrictFormats bool
	AuditSchedule       string
	WorkerConcurrency   int
}

const (
	defaultAddress        = ":8080"
	defaultResumeMaxBytes = 10 << 20 // 10 MiB
	defaultResumeTypes    = "application/pdf,application/msword,application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	defaultSignedTTL      = 15 * time.Minute
	defaultSessionTTL     = 12 * time.Hour
	defaultSMTPPort       = 587
	defaultCaptchaURL     = "https://www.google.com/recaptcha/api/siteverify"
	defaultAuditSchedule  = "@every 1h"
	defaultWorkerCount    = 4
	defaultBucket         = "resumes"
	defaultRegion         = "us-east-1"
)

// Load reads configuration from environment variables falling back to
// defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Address:     readEnv("TALENTDESK_ADDRESS", defaultAddress),
		DatabaseURL: readEnv("DATABASE_URL", ""),

		RedisAddr:     readEnv("REDIS_ADDR", ""),
		RedisPassword: readEnv("REDIS_PASSWORD", ""),
		RedisDB:       parseInt("REDIS_DB", 0),

		S3Endpoint:   readEnv("S3_ENDPOINT", ""),
		S3AccessKey:  readEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:  readEnv("S3_SECRET_KEY", ""),
		S3Region:     readEnv("S3_REGION", defaultRegion),
		S3UseSSL:     parseBool("S3_USE_SSL", false),
		ResumeBucket: readEnv("RESUME_BUCKET", defaultBucket),

		ResumeMaxBytes:     parseInt64("RESUME_MAX_BYTES", defaultResumeMaxBytes),
		ResumeAllowedTypes: parseList("RESUME_ALLOWED_TYPES", defaultResumeTypes),
		SignedURLTTL:       parseDuration("SIGNED_URL_TTL", defaultSignedTTL),

		AdminPassword:      readEnv("ADMIN_PASSWORD", ""),
		AdminSigningSecret: parseSecret("ADMIN_SIGNING_SECRET"),
		AdminSessionTTL:    parseDuration("ADMIN_SESSION_TTL", defaultSessionTTL),

		SMTPHost:     readEnv("SMTP_HOST", ""),
		SMTPPort:     parseInt("SMTP_PORT", defaultSMTPPort),
		SMTPUsername: readEnv("SMTP_USERNAME", ""),
		SMTPPassword: readEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     readEnv("SMTP_FROM", "no-reply@talentdesk.local"),
		NotifyEmail:  readEnv("NOTIFY_EMAIL", ""),

		CaptchaSecret:    readEnv("CAPTCHA_SECRET", ""),
		CaptchaVerifyURL: readEnv("CAPTCHA_VERIFY_URL", defaultCaptchaURL),

		FormDefaultsFile:    readEnv("FORM_DEFAULTS_FILE", ""),
		IntakeStrictFormats: parseBool("INTAKE_STRICT_FORMATS", false),
		AuditSchedule:       readEnv("AUDIT_SCHEDULE", defaultAuditSchedule),
		WorkerConcurrency:   parseInt("WORKER_CONCURRENCY", defaultWorkerCount),
	}
	proxies, err := parsePrefixes("TRUSTED_PROXIES")
	if err != nil {
		return nil, err
	}
	cfg.TrustedProxies = proxies
	if cfg.AdminSigningSecret == nil {
		// Sessions will not survive a restart without a configured secret.
		cfg.AdminSigningSecret = randomSecret()
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = defaultWorkerCount
	}
	if cfg.ResumeMaxBytes <= 0 {
		cfg.ResumeMaxBytes = defaultResumeMaxBytes
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = defaultSignedTTL
	}
	if cfg.AdminSessionTTL <= 0 {
		cfg.AdminSessionTTL = defaultSessionTTL
	}
	return cfg, nil
}

// StorageEnabled reports whether object storage is configured.
func (c *Config) StorageEnabled() bool { return c.S3Endpoint != "" }

// QueueEnabled reports whether Redis-backed tasks and events are configured.
func (c *Config) QueueEnabled() bool { return c.RedisAddr != "" }

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseList(key, def string) []string {
	val := readEnv(key, def)
	out := make([]string, 0)
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parsePrefixes accepts CIDR ranges and bare addresses.
func parsePrefixes(key string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range parseList(key, "") {
		if prefix, err := netip.ParsePrefix(item); err == nil {
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid address %q", key, item)
		}
		out = append(out, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return out, nil
}

func parseInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseSecret(key string) []byte {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return []byte(v)
	}
	return nil
}

func randomSecret() []byte {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return []byte(hex.EncodeToString([]byte("fallbacksecret")))
	}
	return buf
}
