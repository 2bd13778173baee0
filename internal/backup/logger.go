package backup

import "github.com/learnforge/trainingportal/internal/logger"

// GetLogger returns the backup package logger scoped to the backup module.
// It is fetched from the global logger each time so it follows SetGlobal.
func GetLogger() logger.Logger {
	return logger.Global().Module("backup")
}
