package util

import "os"

const EnvironmentPrefix = "ONEBUSAWAY_"

// GetEnvironmentVariable reads ONEBUSAWAY_<name> and falls back to defaultValue when unset or empty
func GetEnvironmentVariable(name string, defaultValue string) string {
	if value := os.Getenv(EnvironmentPrefix + name); value != "" {
		return value
	}

	return defaultValue
}
