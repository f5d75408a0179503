// Package conf provides configuration management for MediScan.
package conf

import "github.com/tphakala/mediscan/internal/logger"

// GetLogger returns the config package logger. It is resolved on every call
// so it follows the central logger once that is installed.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
