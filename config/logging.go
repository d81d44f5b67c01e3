package config

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogWriter receives application, request and SQL logs once InitLogging has run.
var LogWriter io.Writer = os.Stdout

const (
	defaultLogMaxSizeMB  = 50
	defaultLogMaxBackups = 5
)

// LogFilePath is LOG_FILE, or logs/book-submission-api.log.
func LogFilePath() string {
	if p := os.Getenv("LOG_FILE"); p != "" {
		return p
	}
	return filepath.Join("logs", "book-submission-api.log")
}

func envPositiveInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// InitLogging points the standard logger at stdout and a size-rotated log file.
// The caller closes the returned logger on shutdown.
func InitLogging() (*lumberjack.Logger, io.Writer) {
	path := LogFilePath()
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		log.Printf("Warning: Failed to create logs directory: %v", err)
	}

	logFile := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    envPositiveInt("LOG_MAX_SIZE_MB", defaultLogMaxSizeMB),
		MaxBackups: envPositiveInt("LOG_MAX_BACKUPS", defaultLogMaxBackups),
		LocalTime:  true,
	}
	LogWriter = io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(LogWriter)
	return logFile, LogWriter
}
