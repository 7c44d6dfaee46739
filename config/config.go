package config

import (
	"os"
	"strconv"
	"strings"
)

var (
	BIND_ADDRESS = "0.0.0.0:8080"
	DEBUG_MODE   = true

	// Chunked upload pipeline
	TMP_DIR         = "/tmp/fileshare"                // In-progress upload files live here
	CHUNK_SIZE      = int64(5 * 1024 * 1024)          // 5 MiB, fixed for all uploads
	MAX_UPLOAD_SIZE = int64(5 * 1024 * 1024 * 1024)   // 5 GiB
	SESSION_TTL     = 3600                            // seconds
	EXPIRY_GRACE    = 900                             // seconds a logically expired session stays in the store so the sweep can clean its temp file
	SWEEP_INTERVAL  = 300                             // seconds between expiry sweeps
	ALLOWED_TYPES   = "jpg,jpeg,png,gif,heic,heif,webp,mp4,mov,avi,mkv,webm,mp3,wav,flac,pdf,txt,md,doc,docx,xls,xlsx,ppt,pptx,zip,tar,gz"

	// Realtime notifier
	HEARTBEAT_INTERVAL       = 30 // seconds between liveness probes
	PROGRESS_MIN_INTERVAL_MS = 0  // 0 = broadcast progress on every accepted chunk
	TOKEN_SECRET             = "" // HMAC secret shared with the token issuer

	// Session store - Redis is used when REDIS_ADDR is set, otherwise in-memory
	REDIS_ADDR     = ""
	REDIS_PASSWORD = ""
	REDIS_DB       = 0

	// User directory - MySQL if configured, then SQLite, otherwise allow-all
	MYSQL_DSN   = ""
	SQLITE_FILE = ""

	// Transfer handoff - S3 when S3_BUCKET is set, otherwise a local directory
	S3_BUCKET     = ""
	S3_REGION     = ""
	S3_ENDPOINT   = "" // Optional, for S3-compatible storage
	S3_ACCESS_KEY = ""
	S3_SECRET_KEY = ""
	HANDOFF_DIR   = "/tmp/fileshare-files"
)

func init() {
	readEnvString("BIND_ADDRESS", &BIND_ADDRESS)
	readEnvBool("DEBUG_MODE", &DEBUG_MODE)
	readEnvString("TMP_DIR", &TMP_DIR)
	readEnvInt64("CHUNK_SIZE", &CHUNK_SIZE)
	readEnvInt64("MAX_UPLOAD_SIZE", &MAX_UPLOAD_SIZE)
	readEnvInt("SESSION_TTL", &SESSION_TTL)
	readEnvInt("EXPIRY_GRACE", &EXPIRY_GRACE)
	readEnvInt("SWEEP_INTERVAL", &SWEEP_INTERVAL)
	readEnvString("ALLOWED_TYPES", &ALLOWED_TYPES)
	readEnvInt("HEARTBEAT_INTERVAL", &HEARTBEAT_INTERVAL)
	readEnvInt("PROGRESS_MIN_INTERVAL_MS", &PROGRESS_MIN_INTERVAL_MS)
	readEnvString("TOKEN_SECRET", &TOKEN_SECRET)
	readEnvString("REDIS_ADDR", &REDIS_ADDR)
	readEnvString("REDIS_PASSWORD", &REDIS_PASSWORD)
	readEnvInt("REDIS_DB", &REDIS_DB)
	readEnvString("MYSQL_DSN", &MYSQL_DSN)
	readEnvString("SQLITE_FILE", &SQLITE_FILE)
	readEnvString("S3_BUCKET", &S3_BUCKET)
	readEnvString("S3_REGION", &S3_REGION)
	readEnvString("S3_ENDPOINT", &S3_ENDPOINT)
	readEnvString("S3_ACCESS_KEY", &S3_ACCESS_KEY)
	readEnvString("S3_SECRET_KEY", &S3_SECRET_KEY)
	readEnvString("HANDOFF_DIR", &HANDOFF_DIR)
}

// AllowedTypes returns the configured extension allow-list, lower-cased.
func AllowedTypes() []string {
	parts := strings.Split(ALLOWED_TYPES, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func readEnvString(name string, value *string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	*value = v
}

func readEnvBool(name string, value *bool) {
	v := strings.ToLower(os.Getenv(name))
	if v == "true" || v == "1" || v == "yes" || v == "on" {
		*value = true
	} else if v == "false" || v == "0" || v == "no" || v == "off" {
		*value = false
	}
}

func readEnvInt(name string, value *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*value = i
}

func readEnvInt64(name string, value *int64) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return
	}
	*value = i
}
