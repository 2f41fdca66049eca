/*
Package logger configures the logrus standard logger from the log section of
the configuration, writing to stdout and optionally a rotated log file.
*/
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/alankarika/go-tryon/config"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init sets the level, formatter and outputs of the standard logger.  The
// returned closer releases the log file and is a no-op when no file is set.
func Init(cfg config.LogConfig) (io.Closer, error) {
	return configure(log.StandardLogger(), cfg, os.Stdout)
}

// configure applies cfg to l writing console output to stdout
func configure(l *log.Logger, cfg config.LogConfig, stdout io.Writer) (io.Closer, error) {

	level, err := log.ParseLevel(cfg.Level)

	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	l.SetLevel(level)
	l.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	if cfg.File == "" {
		l.SetOutput(stdout)
		return nopCloser{}, nil
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		LocalTime:  true,
		Compress:   true,
	}

	l.SetOutput(io.MultiWriter(stdout, file))

	return file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
