package tui

import (
	"os"
	"path/filepath"
)

// GetLogFilePath returns GRAFT_LOG_FILE, or ~/.graft/logs/graft.log.
func GetLogFilePath() string {
	if custom := os.Getenv("GRAFT_LOG_FILE"); custom != "" {
		return custom
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "graft.log"
	}
	return filepath.Join(home, ".graft", "logs", "graft.log")
}
