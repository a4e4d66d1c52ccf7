package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// sink serializes entries onto a writer shared by a logger and its children
type sink struct {
	mu         sync.Mutex
	w          io.Writer
	closer     io.Closer
	format     Format
	level      Level
	timeLayout string
	now        func() time.Time
}

func (s *sink) write(level Level, msg string, err error, fields Fields) {
	if level < s.level {
		return
	}

	var line []byte
	switch s.format {
	case FormatJSON:
		var encErr error
		line, encErr = s.formatJSON(level, msg, err, fields)
		if encErr != nil {
			return
		}
	case FormatGitHub:
		line = s.formatGitHub(level, msg, err, fields)
	default:
		line = s.formatText(level, msg, err, fields)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Write(line)
}

func (s *sink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

// formatJSON formats a log entry as one JSON object per line
func (s *sink) formatJSON(level Level, msg string, err error, fields Fields) ([]byte, error) {
	entry := make(map[string]interface{}, len(fields)+4)
	for k, v := range fields {
		entry[k] = v
	}
	entry["timestamp"] = s.now().UTC().Format(time.RFC3339)
	entry["level"] = level.String()
	entry["message"] = msg
	if err != nil {
		entry["error"] = err.Error()
	}

	data, jsonErr := json.Marshal(entry)
	if jsonErr != nil {
		return nil, jsonErr
	}
	return append(data, '\n'), nil
}

// formatText formats a log entry as plain text with sorted fields
func (s *sink) formatText(level Level, msg string, err error, fields Fields) []byte {
	var b strings.Builder
	if s.timeLayout != "" {
		b.WriteString(s.now().UTC().Format(s.timeLayout))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "[%s] %s", level, msg)
	if err != nil {
		fmt.Fprintf(&b, " error=%q", err.Error())
	}
	writeFields(&b, fields)
	b.WriteByte('\n')
	return []byte(b.String())
}

// formatGitHub maps levels onto workflow commands so the runner annotates them
func (s *sink) formatGitHub(level Level, msg string, err error, fields Fields) []byte {
	var b strings.Builder
	switch level {
	case DebugLevel:
		b.WriteString("::debug::")
	case WarnLevel:
		b.WriteString("::warning::")
	case ErrorLevel:
		b.WriteString("::error::")
	}
	b.WriteString(msg)
	if err != nil {
		fmt.Fprintf(&b, ": %v", err)
	}
	writeFields(&b, fields)
	b.WriteByte('\n')
	return []byte(b.String())
}

func writeFields(b *strings.Builder, fields Fields) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, fields[k])
	}
}

// fieldLogger is a Logger bound to a sink and a set of fields
type fieldLogger struct {
	sink   *sink
	fields Fields
}

// Debug logs a debug message
func (l *fieldLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.sink.write(DebugLevel, msg, nil, mergeFields(l.fields, fields))
}

// Info logs an info message
func (l *fieldLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.sink.write(InfoLevel, msg, nil, mergeFields(l.fields, fields))
}

// Warn logs a warning message
func (l *fieldLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.sink.write(WarnLevel, msg, nil, mergeFields(l.fields, fields))
}

// Error logs an error message
func (l *fieldLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	l.sink.write(ErrorLevel, msg, err, mergeFields(l.fields, fields))
}

// WithFields returns a logger sharing the same output with additional fields
func (l *fieldLogger) WithFields(fields Fields) Logger {
	return &fieldLogger{sink: l.sink, fields: mergeFields(l.fields, fields)}
}

// Close closes the underlying output
func (l *fieldLogger) Close() error {
	return l.sink.close()
}
