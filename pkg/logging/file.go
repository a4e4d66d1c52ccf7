package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileLoggerConfig holds configuration for file logging
type FileLoggerConfig struct {
	// Path is the log file path
	Path string
	// Format is the output format (json or text)
	Format Format
	// Level is the minimum log level
	Level Level
	// MaxSize is the maximum size in bytes before rotation (0 = no rotation)
	MaxSize int64
	// MaxBackups is the maximum number of backup files to keep
	MaxBackups int
}

// FileLogger implements Logger with a size-rotated log file
type FileLogger struct {
	*fieldLogger
}

// NewFileLogger creates a new file logger, appending to an existing file
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	rf, err := openRotatingFile(config.Path, config.MaxSize, config.MaxBackups)
	if err != nil {
		return nil, err
	}

	format := config.Format
	if format == FormatGitHub {
		format = FormatText
	}

	return &FileLogger{
		fieldLogger: &fieldLogger{
			sink: &sink{
				w:          rf,
				closer:     rf,
				format:     format,
				level:      config.Level,
				timeLayout: "2006-01-02T15:04:05.000Z",
				now:        time.Now,
			},
		},
	}, nil
}

// rotatingFile is an append-only file that rolls over to numbered backups
// once it reaches maxSize. Callers serialize access.
type rotatingFile struct {
	path       string
	maxSize    int64
	maxBackups int
	file       *os.File
	size       int64
}

func openRotatingFile(path string, maxSize int64, maxBackups int) (*rotatingFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rf := &rotatingFile{path: path, maxSize: maxSize, maxBackups: maxBackups}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (r *rotatingFile) open() error {
	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	r.file = file
	r.size = info.Size()
	return nil
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	if r.file == nil {
		return 0, os.ErrClosed
	}
	if r.maxSize > 0 && r.size >= r.maxSize {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *rotatingFile) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// rotate shifts path.N to path.N+1, moves the live file to path.1 and
// reopens an empty file
func (r *rotatingFile) rotate() error {
	r.file.Close()

	if r.maxBackups > 0 {
		os.Remove(r.backup(r.maxBackups))
		for i := r.maxBackups - 1; i >= 1; i-- {
			os.Rename(r.backup(i), r.backup(i+1))
		}
		os.Rename(r.path, r.backup(1))
	} else {
		os.Remove(r.path)
	}

	r.file = nil
	return r.open()
}

func (r *rotatingFile) backup(i int) string {
	return fmt.Sprintf("%s.%d", r.path, i)
}
