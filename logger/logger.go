package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RotationConfig bounds the size and age of log files. When set, the file
// writer rotates instead of growing without bound.
type RotationConfig struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type LoggerConfig struct {
	LogLevel      hclog.Level
	JSONLogFormat bool
	AppendFile    bool
	LogFilePath   string
	Name          string
	Rotation      *RotationConfig
}

func NewLogger(config LoggerConfig) (l hclog.Logger, err error) {
	var logWriter io.Writer

	if config.LogFilePath != "" {
		fullFilePath := filepath.Base(config.LogFilePath)

		if dir := filepath.Dir(config.LogFilePath); dir != "/" && strings.TrimLeft(dir, ".") != "" {
			if dirErr := os.MkdirAll(dir, os.ModePerm); dirErr == nil {
				fullFilePath = filepath.Join(dir, fullFilePath)
			}
		}

		if !config.AppendFile {
			timestamp := strings.Replace(strings.Replace(time.Now().UTC().Format(time.RFC3339), ":", "_", -1), "-", "_", -1)
			fullFilePath = fullFilePath + "_" + timestamp
		}

		if config.Rotation != nil {
			logWriter = &lumberjack.Logger{
				Filename:   fullFilePath + ".log",
				MaxSize:    config.Rotation.MaxSizeMB,
				MaxBackups: config.Rotation.MaxBackups,
				MaxAge:     config.Rotation.MaxAgeDays,
				Compress:   config.Rotation.Compress,
			}
		} else {
			logWriter, err = os.OpenFile(fullFilePath+".log", os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
			if err != nil {
				return nil, fmt.Errorf("could not create or open log file, %w", err)
			}
		}
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       config.Name,
		Level:      config.LogLevel,
		Output:     logWriter,
		JSONFormat: config.JSONLogFormat,
	}), nil
}
