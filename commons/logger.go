// SPDX-License-Identifier: GPL-3.0-only

package commons

import (
	"os"
	"strings"

	"github.com/labstack/gommon/log"
)

const LogHeader = "${time_rfc3339} ${level} ${short_file}:${line} -"

var Logger = newLogger()

func newLogger() *log.Logger {
	logger := log.New("courier")
	logger.SetLevel(ParseLogLevel(os.Getenv("LOG_LEVEL")))
	logger.SetHeader(LogHeader)
	return logger
}

// ParseLogLevel maps a LOG_LEVEL value to a gommon level, defaulting to INFO.
func ParseLogLevel(level string) log.Lvl {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return log.DEBUG
	case "INFO":
		return log.INFO
	case "WARN":
		return log.WARN
	case "ERROR":
		return log.ERROR
	case "OFF":
		return log.OFF
	default:
		return log.INFO
	}
}
