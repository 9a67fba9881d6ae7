package daemon

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/radio-control/rfkd/internal/config"
)

// SetupLogging points the standard logger at the configured file, rotated
// by lumberjack, or at stderr. The returned closer releases the file.
func SetupLogging(cfg config.LogConfig) io.Closer {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if cfg.File == "" {
		log.SetOutput(os.Stderr)
		return nopCloser{}
	}
	out := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	log.SetOutput(out)
	return out
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
