package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/radio-control/rfkd/internal/config"
)

// FileName is the audit file inside the audit directory.
const FileName = "audit.jsonl"

// Entry is a single audit record.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Outcome   string    `json:"outcome"`
	Code      string    `json:"code"`
	LatencyMS int64     `json:"latencyMs"`
}

type actorKey struct{}

// WithActor tags ctx with the client issuing a command.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// Logger appends entries to a rotated file.
type Logger struct {
	mu       sync.Mutex
	filePath string
	out      *lumberjack.Logger
}

// NewLogger creates the audit directory and opens the audit file in it.
func NewLogger(cfg config.AuditConfig) (*Logger, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	filePath := filepath.Join(cfg.Dir, FileName)
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	_ = f.Close()

	return &Logger{
		filePath: filePath,
		out: &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		},
	}, nil
}

// LogAction records one command. result is "<detail>: <CODE>" or a bare
// code.
func (l *Logger) LogAction(ctx context.Context, action, target, result string, latency time.Duration) {
	l.write(Entry{
		Timestamp: time.Now().UTC(),
		Actor:     actorFromContext(ctx),
		Action:    action,
		Target:    target,
		Outcome:   result,
		Code:      codeFromResult(result),
		LatencyMS: latency.Milliseconds(),
	})
}

func (l *Logger) write(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal audit entry: %v\n", err)
		return
	}
	if _, err := l.out.Write(append(data, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write audit entry: %v\n", err)
	}
}

func actorFromContext(ctx context.Context) string {
	if ctx != nil {
		if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
			return actor
		}
	}
	return "daemon"
}

// codeFromResult returns the trailing code of result.
func codeFromResult(result string) string {
	if i := strings.LastIndex(result, ": "); i >= 0 {
		result = result[i+2:]
	}
	switch result {
	case "SUCCESS", "GENERAL", "IN_PROGRESS", "EMERGENCY":
		return result
	default:
		return "UNKNOWN"
	}
}

// Rotate starts a new audit file, keeping the old one as a backup.
func (l *Logger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil {
		return fmt.Errorf("audit logger closed")
	}
	return l.out.Rotate()
}

// Close closes the audit file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil {
		return nil
	}
	err := l.out.Close()
	l.out = nil
	return err
}

// FilePath returns the path of the audit file.
func (l *Logger) FilePath() string {
	return l.filePath
}
