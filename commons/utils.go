// SPDX-License-Identifier: GPL-3.0-only

package commons

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

var envOnce sync.Once

func LoadEnvFile() {
	envOnce.Do(func() {
		loadEnvFile(os.Args[1:])
	})
}

func loadEnvFile(args []string) {
	for i, arg := range args {
		if arg != "--env-file" || i+1 >= len(args) {
			continue
		}
		envFile := args[i+1]
		fmt.Printf("Loading environment variables from file: %s\n", envFile)
		file, err := os.Open(envFile)
		if err != nil {
			fmt.Printf("Failed to open env file: %s\n", err)
			return
		}
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			val := strings.Trim(strings.TrimSpace(parts[1]), `"`)
			os.Setenv(key, val)
		}
		if err := scanner.Err(); err != nil {
			fmt.Printf("Error reading env file: %s\n", err)
		}
		return
	}
}

// GetEnv returns the value of key, or the first fallback when it is unset or empty.
func GetEnv(key string, fallback ...string) string {
	LoadEnvFile()
	if v := os.Getenv(key); v != "" {
		return v
	}
	if len(fallback) > 0 {
		return fallback[0]
	}
	return ""
}

func GetEnvInt(key string, fallback int) int {
	raw := GetEnv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		Logger.Warnf("Ignoring invalid integer for %s: %q", key, raw)
		return fallback
	}
	return v
}

func GetEnvFloat(key string, fallback float64) float64 {
	raw := GetEnv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		Logger.Warnf("Ignoring invalid number for %s: %q", key, raw)
		return fallback
	}
	return v
}

func GetEnvBool(key string, fallback bool) bool {
	raw := GetEnv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		Logger.Warnf("Ignoring invalid boolean for %s: %q", key, raw)
		return fallback
	}
	return v
}
