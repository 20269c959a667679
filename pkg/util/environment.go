package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func GetEnvironmentVariables() map[string]string {
	environmentVariables := map[string]string{}

	for _, variable := range os.Environ() {
		pair := strings.SplitN(variable, "=", 2)

		environmentVariables[pair[0]] = pair[1]
	}

	return environmentVariables
}

// EnvDuration reads a Go duration ("5s", "1m") from env, leaving target untouched when unset
func EnvDuration(env map[string]string, key string, target *time.Duration) error {
	value := strings.TrimSpace(env[key])
	if value == "" {
		return nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fmt.Errorf("invalid %s: %q", key, value)
	}
	*target = parsed

	return nil
}

func EnvInt(env map[string]string, key string, target *int) error {
	value := strings.TrimSpace(env[key])
	if value == "" {
		return nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fmt.Errorf("invalid %s: %q", key, value)
	}
	*target = parsed

	return nil
}

func EnvString(env map[string]string, key string, target *string) {
	if value := strings.TrimSpace(env[key]); value != "" {
		*target = value
	}
}
