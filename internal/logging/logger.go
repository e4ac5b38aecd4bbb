package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Config holds logger configuration
type Config struct {
	Verbose    bool
	OutputFile string    // Path to log file (empty = stderr only)
	MaxSize    int64     // Max size in bytes before rotation (default: 10MB)
	MaxBackups int       // Number of old log files to keep (default: 3)
	JSONFormat bool      // Force JSON output even on a terminal
	Output     io.Writer // Defaults to os.Stderr
}

// Logger owns the logrus logger and the log file behind it, if any
type Logger struct {
	*logrus.Logger
	file *os.File
}

// New creates a logrus logger. Text output is used on a terminal, JSON otherwise.
func New(cfg Config) (*Logger, error) {
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 10 * 1024 * 1024
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = 3
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	l := &Logger{Logger: logrus.New()}

	writers := []io.Writer{cfg.Output}
	if cfg.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		if err := rotateIfNeeded(cfg.OutputFile, cfg.MaxSize, cfg.MaxBackups); err != nil {
			return nil, fmt.Errorf("failed to rotate logs: %w", err)
		}
		file, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.OutputFile, err)
		}
		l.file = file
		writers = append(writers, file)
	}
	l.SetOutput(io.MultiWriter(writers...))

	if cfg.JSONFormat || !isTerminal(cfg.Output) {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.00"})
	}

	if cfg.Verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}

	return l, nil
}

// Close closes the log file if one is open
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// SetRunID stamps every subsequent entry with run_id
func (l *Logger) SetRunID(id string) {
	l.AddHook(&runIDHook{id: id})
}

type runIDHook struct {
	id string
}

func (h *runIDHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *runIDHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["run_id"]; !ok {
		entry.Data["run_id"] = h.id
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// rotateIfNeeded shifts path to path.1, path.1 to path.2, ... once path reaches maxSize
func rotateIfNeeded(path string, maxSize int64, maxBackups int) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	if info.Size() < maxSize {
		return nil
	}

	for i := maxBackups - 1; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", path, i)
		newPath := fmt.Sprintf("%s.%d", path, i+1)
		if _, err := os.Stat(oldPath); err == nil {
			os.Rename(oldPath, newPath)
		}
	}

	if err := os.Rename(path, path+".1"); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	return nil
}
