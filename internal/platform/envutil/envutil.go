package envutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/ontomap/ontomap-backend/internal/platform/logger"
)

func GetEnv(key, fallback string, log *logger.Logger) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		if log != nil {
			log.Debug("env var unset, using fallback", "key", key, "fallback", fallback)
		}
		return fallback
	}
	return v
}

func GetEnvAsInt(key string, fallback int, log *logger.Logger) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		if log != nil {
			log.Warn("env var not an int, using fallback", "key", key, "value", v, "fallback", fallback)
		}
		return fallback
	}
	return parsed
}

func GetEnvAsBool(key string, fallback bool, log *logger.Logger) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch v {
	case "":
		return fallback
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		if log != nil {
			log.Warn("env var not a bool, using fallback", "key", key, "value", v, "fallback", fallback)
		}
		return fallback
	}
}
